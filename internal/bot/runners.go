package bot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/service"
)

// notifyMessage is the payload of "notify" jobs.
type notifyMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// addTaskRequest is the payload of "add_task" jobs: a task created on the
// user's behalf when the job fires.
type addTaskRequest struct {
	ChatID   int64  `json:"chat_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

func notifyPayload(chatID int64, text string) (string, error) {
	raw, err := json.Marshal(notifyMessage{ChatID: chatID, Text: text})
	if err != nil {
		return "", fmt.Errorf("encode notify payload: %w", err)
	}
	return string(raw), nil
}

func notifyText(payload string) string {
	var msg notifyMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || msg.Text == "" {
		return "reminder"
	}
	return msg.Text
}

// RegisterRunners binds the bot-facing job types to the engine. Call once
// before the poll tick starts.
func (b *Bot) RegisterRunners() {
	b.jobSvc.Register("notify", func(ctx context.Context, job model.ScheduledJob) error {
		var msg notifyMessage
		if err := json.Unmarshal([]byte(job.Payload), &msg); err != nil {
			return fmt.Errorf("decode notify payload: %w", err)
		}
		return b.Notify(msg.ChatID, fmt.Sprintf("🔔 %s", escape(msg.Text)))
	})

	b.jobSvc.Register("add_task", func(ctx context.Context, job model.ScheduledJob) error {
		var req addTaskRequest
		if err := json.Unmarshal([]byte(job.Payload), &req); err != nil {
			return fmt.Errorf("decode add_task payload: %w", err)
		}
		task, err := b.taskSvc.Create(ctx, &model.User{ID: job.UserID}, service.TaskInput{
			Title:    req.Title,
			Category: req.Category,
		})
		if err != nil {
			return err
		}
		if req.ChatID != 0 {
			return b.Notify(req.ChatID, fmt.Sprintf("📌 Added task #%d: %s", task.ID, escape(task.Title)))
		}
		return nil
	})
}
