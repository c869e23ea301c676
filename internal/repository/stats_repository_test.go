package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
)

var statsNow = time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)

func TestCompleteWritesProgressFact(t *testing.T) {
	db := newTestDB(t)
	taskRepo := NewTaskRepository(db)
	_ = NewStatsRepository(db)
	ctx := context.Background()
	at := clock.FormatUTC(statsNow)

	task := seedTask(t, taskRepo, 1, "Ship it", 1)
	event, err := taskRepo.Complete(ctx, 1, task.ID, at)
	require.NoError(t, err)

	var entries []model.ProgressEntry
	require.NoError(t, db.Where("user_id = ?", 1).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ProgressSourceTask, entries[0].Source)
	require.NotNil(t, entries[0].TaskID)
	assert.Equal(t, task.ID, *entries[0].TaskID)
	assert.Equal(t, at, entries[0].At)

	// Deletions are not progress.
	other := seedTask(t, taskRepo, 1, "Never mind", 0)
	_, err = taskRepo.Delete(ctx, 1, other.ID, "gave up", at)
	require.NoError(t, err)
	require.NoError(t, db.Where("user_id = ?", 1).Find(&entries).Error)
	assert.Len(t, entries, 1)

	// Restoring the task does not take the progress back.
	_, err = taskRepo.Restore(ctx, 1, event.ID, at)
	require.NoError(t, err)
	require.NoError(t, db.Where("user_id = ?", 1).Find(&entries).Error)
	assert.Len(t, entries, 1)
}

func TestStatisticsCountsInsideWindow(t *testing.T) {
	db := newTestDB(t)
	taskRepo := NewTaskRepository(db)
	statsRepo := NewStatsRepository(db)
	ctx := context.Background()

	recent := clock.FormatUTC(statsNow.Add(-time.Hour))
	ancient := clock.FormatUTC(statsNow.AddDate(0, 0, -30))

	done := seedTask(t, taskRepo, 1, "Recent win", 0)
	_, err := taskRepo.Complete(ctx, 1, done.ID, recent)
	require.NoError(t, err)

	old := seedTask(t, taskRepo, 1, "Old win", 0)
	_, err = taskRepo.Complete(ctx, 1, old.ID, ancient)
	require.NoError(t, err)

	dropped := seedTask(t, taskRepo, 1, "Dropped", 0)
	_, err = taskRepo.Delete(ctx, 1, dropped.ID, "", recent)
	require.NoError(t, err)

	seedTask(t, taskRepo, 1, "Still open", 0)

	stats, err := statsRepo.Statistics(ctx, 1, 7, statsNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Deleted)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, 7, stats.Days)

	// A wide enough window picks up the old completion too.
	wide, err := statsRepo.Statistics(ctx, 1, 60, statsNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), wide.Completed)
}

func TestDailyProgressScoresAndCaps(t *testing.T) {
	db := newTestDB(t)
	statsRepo := NewStatsRepository(db)
	ctx := context.Background()

	score, err := statsRepo.DailyProgress(ctx, 1, statsNow)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	today := clock.FormatUTC(statsNow.Add(-time.Hour))
	yesterday := clock.FormatUTC(statsNow.AddDate(0, 0, -1))
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&model.ProgressEntry{
			UserID: 1, Source: model.ProgressSourceTask, Amount: 1, At: today,
		}).Error)
	}
	require.NoError(t, db.Create(&model.ProgressEntry{
		UserID: 1, Source: model.ProgressSourceTask, Amount: 1, At: yesterday,
	}).Error)

	score, err = statsRepo.DailyProgress(ctx, 1, statsNow)
	require.NoError(t, err)
	assert.Equal(t, 30, score)

	for i := 0; i < 9; i++ {
		require.NoError(t, db.Create(&model.ProgressEntry{
			UserID: 1, Source: model.ProgressSourceTask, Amount: 1, At: today,
		}).Error)
	}
	score, err = statsRepo.DailyProgress(ctx, 1, statsNow)
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}
