package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/priority"
	"github.com/LarryDahl/TODOv2/internal/repository"
)

// DigestService builds human-readable summaries for periodic notifications.
type DigestService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	jobRepo      *repository.JobRepository
	clk          clock.Clock
}

func NewDigestService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository, jobRepo *repository.JobRepository, clk clock.Clock) *DigestService {
	return &DigestService{taskRepo: taskRepo, categoryRepo: categoryRepo, jobRepo: jobRepo, clk: clk}
}

// DailySummary renders the user's open tasks in effective-priority order
// plus their upcoming reminders, as Telegram HTML.
func (s *DigestService) DailySummary(ctx context.Context, user model.User) (string, error) {
	now := s.clk.Now()
	local := clock.InZone(now, user.Timezone)

	tasks, err := s.taskRepo.ListActive(ctx, user.ID)
	if err != nil {
		return "", err
	}
	priority.Sort(tasks, now)

	catNames, err := s.categoryRepo.NamesByID(ctx, user.ID)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", local.Format("02.01.2006")))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(tasks) == 0 {
		builder.WriteString("— nothing open, enjoy the quiet\n")
	} else {
		for _, task := range tasks {
			builder.WriteString(s.formatTask(task, catNames, now, user.Timezone))
		}
	}

	jobs, err := s.jobRepo.ListPending(ctx, user.ID, 5)
	if err != nil {
		return "", err
	}
	if len(jobs) > 0 {
		builder.WriteString("\n⏰ <b>Upcoming reminders</b>\n")
		for _, job := range jobs {
			builder.WriteString(s.formatJob(job, user.Timezone))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func (s *DigestService) formatTask(task model.Task, catNames map[uint]string, now time.Time, tz string) string {
	var sb strings.Builder

	icon := "🟢"
	var due time.Time
	hasDue := false
	if task.DueAt != nil {
		if parsed, err := clock.ParseUTC(*task.DueAt); err == nil {
			due = parsed
			hasDue = true
			switch {
			case now.After(due):
				icon = "⚠️"
			case due.Sub(now) <= 48*time.Hour:
				icon = "⏳"
			}
		}
	}

	title := html.EscapeString(priority.RenderTitle(task.Title, task.Priority))
	sb.WriteString(fmt.Sprintf("%s %s", icon, title))

	if task.CategoryID != nil {
		if name, ok := catNames[*task.CategoryID]; ok && strings.TrimSpace(name) != "" {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(strings.TrimSpace(name))))
		}
	}

	if hasDue {
		local := clock.InZone(due, tz)
		label := "due"
		if task.Kind == model.TaskKindScheduled {
			label = "at"
		}
		if now.After(due) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s %s — <b>overdue</b>", label, local.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s %s", label, local.Format("2006-01-02 15:04")))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

func (s *DigestService) formatJob(job model.ScheduledJob, tz string) string {
	when := job.DueAt
	if due, err := clock.ParseUTC(job.DueAt); err == nil {
		when = clock.InZone(due, tz).Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("⏰ %s · %s\n", html.EscapeString(job.JobType), when)
}
