package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
)

// Statistics aggregates a user's activity over a trailing window.
type Statistics struct {
	Completed int64
	Deleted   int64
	Active    int64
	Days      int
}

// StatsRepository reads aggregates over the lifecycle and progress logs.
// It never writes; the progress rows it counts are inserted by the task
// completion transaction.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Statistics counts completions and deletions inside the trailing window
// plus the currently active tasks. Stored timestamps are RFC3339 UTC, so
// the window cutoff is a plain string comparison.
func (r *StatsRepository) Statistics(ctx context.Context, userID uint, days int, now time.Time) (*Statistics, error) {
	since := clock.FormatUTC(now.AddDate(0, 0, -days))
	stats := Statistics{Days: days}

	db := r.db.WithContext(ctx)
	if err := db.Model(&model.TaskEvent{}).
		Where("user_id = ? AND action = ? AND at >= ?", userID, model.EventCompleted, since).
		Count(&stats.Completed).Error; err != nil {
		return nil, fmt.Errorf("count completed: %w", err)
	}
	if err := db.Model(&model.TaskEvent{}).
		Where("user_id = ? AND action = ? AND at >= ?", userID, model.EventDeleted, since).
		Count(&stats.Deleted).Error; err != nil {
		return nil, fmt.Errorf("count deleted: %w", err)
	}
	if err := db.Model(&model.Task{}).
		Where("user_id = ?", userID).
		Count(&stats.Active).Error; err != nil {
		return nil, fmt.Errorf("count active: %w", err)
	}
	return &stats, nil
}

// DailyProgress scores today's progress-log entries: ten points per entry,
// capped at one hundred.
func (r *StatsRepository) DailyProgress(ctx context.Context, userID uint, now time.Time) (int, error) {
	day := now.UTC()
	dayStart := clock.FormatUTC(time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC))

	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ProgressEntry{}).
		Where("user_id = ? AND at >= ?", userID, dayStart).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count progress: %w", err)
	}
	score := int(n) * 10
	if score > 100 {
		score = 100
	}
	return score, nil
}
