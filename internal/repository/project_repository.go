package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/LarryDahl/TODOv2/internal/model"
)

// Advance actions reported by AdvanceStep.
const (
	AdvanceActionAdvanced  = "advanced"
	AdvanceActionCompleted = "completed_project"
)

// AdvanceResult describes what one AdvanceStep call did.
type AdvanceResult struct {
	Action     string
	Project    model.Project
	DoneStep   model.ProjectStep
	NextStep   *model.ProjectStep
	TotalSteps int
}

// ProjectRepository owns projects and their ordered steps.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a project and its steps, ordered 1..n, in one transaction.
func (r *ProjectRepository) Create(ctx context.Context, userID uint, title string, stepTexts []string, now string) (*model.Project, error) {
	project := model.Project{
		UserID:    userID,
		Title:     title,
		Status:    model.ProjectActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		for i, text := range stepTexts {
			step := model.ProjectStep{
				ProjectID:  project.ID,
				OrderIndex: i + 1,
				Text:       text,
				Status:     model.StepPending,
				CreatedAt:  now,
			}
			if err := tx.Create(&step).Error; err != nil {
				return fmt.Errorf("create step: %w", err)
			}
		}
		if len(stepTexts) > 0 {
			first := 1
			project.CurrentStepOrder = &first
			if err := tx.Model(&model.Project{}).Where("id = ?", project.ID).
				Update("current_step_order", first).Error; err != nil {
				return fmt.Errorf("set current step: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Get(ctx context.Context, userID, projectID uint) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, projectID).First(&project).Error
	switch {
	case err == nil:
		return &project, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, model.ErrNotFound
	default:
		return nil, fmt.Errorf("find project: %w", err)
	}
}

func (r *ProjectRepository) ListByUser(ctx context.Context, userID uint) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) Steps(ctx context.Context, userID, projectID uint) ([]model.ProjectStep, error) {
	var steps []model.ProjectStep
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND project_id IN (?)", projectID,
			r.db.Model(&model.Project{}).Select("id").Where("user_id = ?", userID)).
		Order("order_index ASC").
		Find(&steps).Error; err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	return steps, nil
}

// AdvanceStep marks the current step done and moves the pointer forward, or
// completes the project when the last pending step is consumed. The current
// step is always the pending step with the lowest order index; steps are
// never skipped or reordered. Fails with ErrNotFound when the project is
// not active or has no pending steps left.
func (r *ProjectRepository) AdvanceStep(ctx context.Context, userID, projectID uint, now string) (*AdvanceResult, error) {
	var result AdvanceResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.Where("user_id = ? AND id = ?", userID, projectID).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrNotFound
			}
			return fmt.Errorf("find project: %w", err)
		}
		if project.Status != model.ProjectActive {
			return model.ErrNotFound
		}

		var current model.ProjectStep
		err := tx.Where("project_id = ? AND status = ?", projectID, model.StepPending).
			Order("order_index ASC").
			First(&current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrNotFound
			}
			return fmt.Errorf("find current step: %w", err)
		}

		if err := tx.Model(&model.ProjectStep{}).Where("id = ?", current.ID).
			Updates(map[string]interface{}{"status": model.StepDone, "done_at": now}).Error; err != nil {
			return fmt.Errorf("finish step: %w", err)
		}
		current.Status = model.StepDone
		current.DoneAt = &now

		var total int64
		if err := tx.Model(&model.ProjectStep{}).Where("project_id = ?", projectID).
			Count(&total).Error; err != nil {
			return fmt.Errorf("count steps: %w", err)
		}

		var next model.ProjectStep
		err = tx.Where("project_id = ? AND status = ? AND order_index > ?",
			projectID, model.StepPending, current.OrderIndex).
			Order("order_index ASC").
			First(&next).Error
		switch {
		case err == nil:
			if err := tx.Model(&model.Project{}).Where("id = ?", projectID).
				Updates(map[string]interface{}{
					"current_step_order": next.OrderIndex,
					"updated_at":         now,
				}).Error; err != nil {
				return fmt.Errorf("move step pointer: %w", err)
			}
			project.CurrentStepOrder = &next.OrderIndex
			project.UpdatedAt = now
			result = AdvanceResult{
				Action:     AdvanceActionAdvanced,
				Project:    project,
				DoneStep:   current,
				NextStep:   &next,
				TotalSteps: int(total),
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Model(&model.Project{}).Where("id = ?", projectID).
				Updates(map[string]interface{}{
					"status":             model.ProjectCompleted,
					"current_step_order": nil,
					"updated_at":         now,
					"completed_at":       now,
				}).Error; err != nil {
				return fmt.Errorf("complete project: %w", err)
			}
			project.Status = model.ProjectCompleted
			project.CurrentStepOrder = nil
			project.UpdatedAt = now
			project.CompletedAt = &now
			result = AdvanceResult{
				Action:     AdvanceActionCompleted,
				Project:    project,
				DoneStep:   current,
				TotalSteps: int(total),
			}
			return nil
		default:
			return fmt.Errorf("find next step: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AddStep appends a pending step after the current last one.
func (r *ProjectRepository) AddStep(ctx context.Context, userID, projectID uint, text, now string) (*model.ProjectStep, error) {
	var step model.ProjectStep
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.Where("user_id = ? AND id = ?", userID, projectID).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrNotFound
			}
			return fmt.Errorf("find project: %w", err)
		}

		var maxOrder int
		row := tx.Model(&model.ProjectStep{}).Where("project_id = ?", projectID).
			Select("COALESCE(MAX(order_index), 0)").Row()
		if err := row.Scan(&maxOrder); err != nil {
			return fmt.Errorf("max step order: %w", err)
		}

		step = model.ProjectStep{
			ProjectID:  projectID,
			OrderIndex: maxOrder + 1,
			Text:       text,
			Status:     model.StepPending,
			CreatedAt:  now,
		}
		if err := tx.Create(&step).Error; err != nil {
			return fmt.Errorf("add step: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// DeleteStep removes a step without advancing anything else.
func (r *ProjectRepository) DeleteStep(ctx context.Context, userID, stepID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND project_id IN (?)", stepID,
			r.db.Model(&model.Project{}).Select("id").Where("user_id = ?", userID)).
		Delete(&model.ProjectStep{})
	if res.Error != nil {
		return fmt.Errorf("delete step: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Cancel terminates an active project without touching its steps.
func (r *ProjectRepository) Cancel(ctx context.Context, userID, projectID uint, now string) error {
	res := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("user_id = ? AND id = ? AND status = ?", userID, projectID, model.ProjectActive).
		Updates(map[string]interface{}{"status": model.ProjectCancelled, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("cancel project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete removes a project together with its steps.
func (r *ProjectRepository) Delete(ctx context.Context, userID, projectID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND id = ?", userID, projectID).Delete(&model.Project{})
		if res.Error != nil {
			return fmt.Errorf("delete project: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return model.ErrNotFound
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&model.ProjectStep{}).Error; err != nil {
			return fmt.Errorf("delete steps: %w", err)
		}
		return nil
	})
}
