package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/priority"
)

// TaskRepository owns the active tasks table and the lifecycle event log.
// Every transition that removes a task (complete, delete) or resurrects one
// (restore) runs as a single transaction touching both tables, so a task is
// always in exactly one place.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, model.ErrNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// ListActive returns every active task for the user. Ordering by effective
// priority is time-dependent and lives in the service layer.
func (r *TaskRepository) ListActive(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", task.UserID, task.ID).
		Updates(map[string]interface{}{
			"category_id":     task.CategoryID,
			"title":           task.Title,
			"kind":            task.Kind,
			"priority":        task.Priority,
			"priority_source": task.PrioritySource,
			"due_at":          task.DueAt,
			"updated_at":      task.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Complete removes the task and, in one transaction, logs a completed event
// plus a progress-log entry for downstream statistics. Not idempotent: a
// second call fails with ErrNotFound because the row is already gone.
func (r *TaskRepository) Complete(ctx context.Context, userID, taskID uint, at string) (*model.TaskEvent, error) {
	return r.removeAndLog(ctx, userID, taskID, model.EventCompleted, "", at)
}

// Delete removes the task and logs a deleted event. The reason rides along
// as audit payload only; restore does not need it.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint, reason, at string) (*model.TaskEvent, error) {
	return r.removeAndLog(ctx, userID, taskID, model.EventDeleted, reason, at)
}

func (r *TaskRepository) removeAndLog(ctx context.Context, userID, taskID uint, action, reason, at string) (*model.TaskEvent, error) {
	var event model.TaskEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrNotFound
			}
			return fmt.Errorf("find task: %w", err)
		}

		id := task.ID
		event = model.TaskEvent{
			UserID: userID,
			TaskID: &id,
			Action: action,
			Title:  priority.RenderTitle(task.Title, task.Priority),
			Reason: reason,
			At:     at,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("log event: %w", err)
		}
		if action == model.EventCompleted {
			progress := model.ProgressEntry{
				UserID: userID,
				Source: model.ProgressSourceTask,
				TaskID: &id,
				Amount: 1,
				At:     at,
			}
			if err := tx.Create(&progress).Error; err != nil {
				return fmt.Errorf("log progress: %w", err)
			}
		}
		if err := tx.Delete(&model.Task{}, task.ID).Error; err != nil {
			return fmt.Errorf("remove task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Restore consumes a lifecycle event: it re-creates a task from the stored
// title and deletes the event row in the same transaction. The restoring
// instant becomes the new creation time. A second restore of the same event
// fails with ErrNotFound.
func (r *TaskRepository) Restore(ctx context.Context, userID, eventID uint, at string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event model.TaskEvent
		if err := tx.Where("user_id = ? AND id = ?", userID, eventID).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrNotFound
			}
			return fmt.Errorf("find event: %w", err)
		}

		clean, prio := priority.ParseTitle(event.Title)
		task = model.Task{
			UserID:         userID,
			Title:          clean,
			Kind:           model.TaskKindRegular,
			Priority:       prio,
			PrioritySource: model.PrioritySourceBang,
			CreatedAt:      at,
			UpdatedAt:      at,
		}
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("restore task: %w", err)
		}
		if err := tx.Delete(&model.TaskEvent{}, event.ID).Error; err != nil {
			return fmt.Errorf("consume event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListEvents pages through the lifecycle log for one action, newest first.
func (r *TaskRepository) ListEvents(ctx context.Context, userID uint, action string, limit, offset int) ([]model.TaskEvent, error) {
	var events []model.TaskEvent
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND action = ?", userID, action).
		Order("at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// CountEvents reports how many lifecycle events of one action a user has.
func (r *TaskRepository) CountEvents(ctx context.Context, userID uint, action string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.TaskEvent{}).
		Where("user_id = ? AND action = ?", userID, action).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
