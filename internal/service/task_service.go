package service

import (
	"context"
	"fmt"
	"time"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/priority"
	"github.com/LarryDahl/TODOv2/internal/repository"
)

// TaskInput represents data required to create a task. The raw title may
// carry trailing '!' priority markers; they are parsed out before storage.
type TaskInput struct {
	Title    string
	Category string
	Kind     string
	DueAt    *time.Time
}

// TaskPatch is a partial update. Nil fields are left untouched; ClearDue
// drops the due instant.
type TaskPatch struct {
	Title    *string
	Category *string
	Kind     *string
	DueAt    *time.Time
	ClearDue bool
}

// TaskService wraps task lifecycle logic around the repository: title and
// priority parsing, timestamps from the injected clock, and effective
// priority ordering for reads.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	clk          clock.Clock
}

func NewTaskService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository, clk clock.Clock) *TaskService {
	return &TaskService{taskRepo: taskRepo, categoryRepo: categoryRepo, clk: clk}
}

func (s *TaskService) Create(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	clean, prio := priority.ParseTitle(input.Title)
	if clean == "" {
		return nil, fmt.Errorf("%w: empty title", model.ErrValidation)
	}

	kind := input.Kind
	if kind == "" {
		kind = model.TaskKindRegular
	}
	switch kind {
	case model.TaskKindRegular, model.TaskKindScheduled, model.TaskKindDeadline:
	default:
		return nil, fmt.Errorf("%w: unknown task kind %q", model.ErrValidation, kind)
	}
	if kind != model.TaskKindRegular && input.DueAt == nil {
		return nil, fmt.Errorf("%w: %s task needs a due instant", model.ErrValidation, kind)
	}

	var categoryID *uint
	if input.Category != "" {
		category, err := s.categoryRepo.GetOrCreate(ctx, user.ID, input.Category)
		if err != nil {
			return nil, err
		}
		if category != nil {
			categoryID = &category.ID
		}
	}

	now := clock.FormatUTC(s.clk.Now())
	task := model.Task{
		UserID:         user.ID,
		CategoryID:     categoryID,
		Title:          clean,
		Kind:           kind,
		Priority:       prio,
		PrioritySource: model.PrioritySourceBang,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.DueAt != nil {
		due := clock.FormatUTC(*input.DueAt)
		task.DueAt = &due
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies a partial edit. A changed title re-derives the declared
// priority from its markers.
func (s *TaskService) Update(ctx context.Context, user *model.User, taskID uint, patch TaskPatch) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		clean, prio := priority.ParseTitle(*patch.Title)
		if clean == "" {
			return nil, fmt.Errorf("%w: empty title", model.ErrValidation)
		}
		task.Title = clean
		task.Priority = prio
		task.PrioritySource = model.PrioritySourceBang
	}
	if patch.Category != nil {
		category, err := s.categoryRepo.GetOrCreate(ctx, user.ID, *patch.Category)
		if err != nil {
			return nil, err
		}
		if category != nil {
			task.CategoryID = &category.ID
		} else {
			task.CategoryID = nil
		}
	}
	if patch.Kind != nil {
		switch *patch.Kind {
		case model.TaskKindRegular, model.TaskKindScheduled, model.TaskKindDeadline:
			task.Kind = *patch.Kind
		default:
			return nil, fmt.Errorf("%w: unknown task kind %q", model.ErrValidation, *patch.Kind)
		}
	}
	if patch.ClearDue {
		task.DueAt = nil
	} else if patch.DueAt != nil {
		due := clock.FormatUTC(*patch.DueAt)
		task.DueAt = &due
	}
	task.UpdatedAt = clock.FormatUTC(s.clk.Now())

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, user.ID, taskID)
}

// ListActive returns the user's active tasks ordered by effective priority
// descending, due instant ascending for ties.
func (s *TaskService) ListActive(ctx context.Context, user *model.User) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListActive(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	priority.Sort(tasks, s.clk.Now())
	return tasks, nil
}

// Complete closes a task for good: the row moves into the lifecycle log.
// Repeating the call fails because the task is no longer active.
func (s *TaskService) Complete(ctx context.Context, user *model.User, taskID uint) (*model.TaskEvent, error) {
	return s.taskRepo.Complete(ctx, user.ID, taskID, clock.FormatUTC(s.clk.Now()))
}

// Delete removes a task with an optional audit reason.
func (s *TaskService) Delete(ctx context.Context, user *model.User, taskID uint, reason string) (*model.TaskEvent, error) {
	return s.taskRepo.Delete(ctx, user.ID, taskID, reason, clock.FormatUTC(s.clk.Now()))
}

// Restore resurrects a completed or deleted task from its lifecycle event,
// consuming the event.
func (s *TaskService) Restore(ctx context.Context, user *model.User, eventID uint) (*model.Task, error) {
	return s.taskRepo.Restore(ctx, user.ID, eventID, clock.FormatUTC(s.clk.Now()))
}

func (s *TaskService) ListCompleted(ctx context.Context, user *model.User, limit, offset int) ([]model.TaskEvent, error) {
	return s.taskRepo.ListEvents(ctx, user.ID, model.EventCompleted, limit, offset)
}

func (s *TaskService) ListDeleted(ctx context.Context, user *model.User, limit, offset int) ([]model.TaskEvent, error) {
	return s.taskRepo.ListEvents(ctx, user.ID, model.EventDeleted, limit, offset)
}
