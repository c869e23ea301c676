package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
)

func seedTask(t *testing.T, repo *TaskRepository, userID uint, title string, prio int) *model.Task {
	t.Helper()
	now := clock.FormatUTC(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	task := &model.Task{
		UserID:         userID,
		Title:          title,
		Kind:           model.TaskKindRegular,
		Priority:       prio,
		PrioritySource: model.PrioritySourceBang,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

func TestCompleteMovesTaskIntoLog(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()
	at := clock.FormatUTC(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC))

	task := seedTask(t, repo, 1, "Write report", 2)

	event, err := repo.Complete(ctx, 1, task.ID, at)
	require.NoError(t, err)
	assert.Equal(t, model.EventCompleted, event.Action)
	assert.Equal(t, "Write report!!", event.Title)
	require.NotNil(t, event.TaskID)
	assert.Equal(t, task.ID, *event.TaskID)

	// The task is gone from the active table and lives only in the log.
	_, err = repo.FindByID(ctx, 1, task.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	events, err := repo.ListEvents(ctx, 1, model.EventCompleted, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
}

func TestCompleteIsNotIdempotent(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()
	at := clock.FormatUTC(time.Now())

	task := seedTask(t, repo, 1, "Once only", 0)

	_, err := repo.Complete(ctx, 1, task.ID, at)
	require.NoError(t, err)

	_, err = repo.Complete(ctx, 1, task.ID, at)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestCompleteScopedToUser(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()

	task := seedTask(t, repo, 1, "Mine", 0)

	_, err := repo.Complete(ctx, 2, task.ID, clock.FormatUTC(time.Now()))
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestRestoreRoundTrip(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()
	completedAt := clock.FormatUTC(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC))
	restoredAt := clock.FormatUTC(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	task := seedTask(t, repo, 1, "Pay rent", 3)

	event, err := repo.Complete(ctx, 1, task.ID, completedAt)
	require.NoError(t, err)

	restored, err := repo.Restore(ctx, 1, event.ID, restoredAt)
	require.NoError(t, err)
	assert.Equal(t, "Pay rent", restored.Title)
	assert.Equal(t, 3, restored.Priority)
	assert.Equal(t, restoredAt, restored.CreatedAt)

	// Restore consumed the event: the log is empty and a second restore
	// fails.
	events, err := repo.ListEvents(ctx, 1, model.EventCompleted, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = repo.Restore(ctx, 1, event.ID, restoredAt)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDeleteCarriesReasonAsAudit(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()
	at := clock.FormatUTC(time.Now())

	task := seedTask(t, repo, 1, "Buy milk", 0)

	event, err := repo.Delete(ctx, 1, task.ID, "dup", at)
	require.NoError(t, err)
	assert.Equal(t, model.EventDeleted, event.Action)
	assert.Equal(t, "Buy milk", event.Title)
	assert.Equal(t, "dup", event.Reason)

	deleted, err := repo.ListEvents(ctx, 1, model.EventDeleted, 10, 0)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "Buy milk", deleted[0].Title)

	// Restore does not depend on the reason.
	restored, err := repo.Restore(ctx, 1, event.ID, at)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", restored.Title)
}

func TestListEventsNewestFirstPaginated(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		task := seedTask(t, repo, 1, title, 0)
		_, err := repo.Complete(ctx, 1, task.ID, clock.FormatUTC(base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	page, err := repo.ListEvents(ctx, 1, model.EventCompleted, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "third", page[0].Title)
	assert.Equal(t, "second", page[1].Title)

	rest, err := repo.ListEvents(ctx, 1, model.EventCompleted, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "first", rest[0].Title)
}

func TestUpdateMissingTask(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))

	err := repo.Update(context.Background(), &model.Task{ID: 999, UserID: 1, Title: "ghost"})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
