package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/LarryDahl/TODOv2/internal/model"
)

// JobRepository owns the scheduled jobs table. The claim operation is the
// only concurrency-safety mechanism: a conditional single-row update that
// at most one caller can win, so a second executor polling the same store
// can never double-run a job.
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *model.ScheduledJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, jobID uint) (*model.ScheduledJob, error) {
	var job model.ScheduledJob
	err := r.db.WithContext(ctx).First(&job, jobID).Error
	switch {
	case err == nil:
		return &job, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, model.ErrNotFound
	default:
		return nil, fmt.Errorf("find job: %w", err)
	}
}

// PollDue returns pending jobs whose due instant has passed, soonest first
// with id as the tie-breaker. Read-only; callers must still claim each job
// before running it.
func (r *JobRepository) PollDue(ctx context.Context, now string, limit int) ([]model.ScheduledJob, error) {
	var jobs []model.ScheduledJob
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", model.JobPending, now).
		Order("due_at ASC, id ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("poll due jobs: %w", err)
	}
	return jobs, nil
}

// Claim attempts the pending -> running transition. Exactly one of any
// number of concurrent callers sees true; the rest see false because the
// conditional update matches zero rows.
func (r *JobRepository) Claim(ctx context.Context, jobID uint, now string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ScheduledJob{}).
		Where("id = ? AND status = ?", jobID, model.JobPending).
		Updates(map[string]interface{}{"status": model.JobRunning, "updated_at": now})
	if res.Error != nil {
		return false, fmt.Errorf("claim job: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkSuccess records a successful run. With a next due instant the job
// returns to pending on the new slot; without one it is done for good.
func (r *JobRepository) MarkSuccess(ctx context.Context, jobID uint, nextDue *string, now string) error {
	updates := map[string]interface{}{
		"last_run_at": now,
		"run_count":   gorm.Expr("run_count + 1"),
		"last_error":  nil,
		"updated_at":  now,
	}
	if nextDue != nil {
		updates["status"] = model.JobPending
		updates["due_at"] = *nextDue
	} else {
		updates["status"] = model.JobDone
		updates["completed_at"] = now
	}
	res := r.db.WithContext(ctx).Model(&model.ScheduledJob{}).
		Where("id = ?", jobID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("mark job success: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MarkFailure records a failed run. With a retry instant the job goes back
// to pending on a delayed slot; without one it lands in failed terminally.
func (r *JobRepository) MarkFailure(ctx context.Context, jobID uint, errText string, retryAt *string, now string) error {
	updates := map[string]interface{}{
		"last_run_at": now,
		"run_count":   gorm.Expr("run_count + 1"),
		"last_error":  errText,
		"updated_at":  now,
	}
	if retryAt != nil {
		updates["status"] = model.JobPending
		updates["due_at"] = *retryAt
	} else {
		updates["status"] = model.JobFailed
	}
	res := r.db.WithContext(ctx).Model(&model.ScheduledJob{}).
		Where("id = ?", jobID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("mark job failure: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListPending pages a user's pending jobs, soonest due first.
func (r *JobRepository) ListPending(ctx context.Context, userID uint, limit int) ([]model.ScheduledJob, error) {
	var jobs []model.ScheduledJob
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.JobPending).
		Order("due_at ASC, id ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a job outright. Scoped to the owning user so one user
// cannot cancel another user's job by guessing its ID.
func (r *JobRepository) Delete(ctx context.Context, userID, jobID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, jobID).
		Delete(&model.ScheduledJob{})
	if res.Error != nil {
		return fmt.Errorf("delete job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
