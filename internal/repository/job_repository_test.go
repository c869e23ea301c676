package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/schedule"
)

var jobBase = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func seedJob(t *testing.T, repo *JobRepository, status string, due time.Time) *model.ScheduledJob {
	t.Helper()
	now := clock.FormatUTC(jobBase)
	job := &model.ScheduledJob{
		UserID:       1,
		Agent:        "planner",
		JobType:      "notify",
		ScheduleKind: schedule.KindOnce,
		ScheduleJSON: "{}",
		Payload:      "{}",
		Status:       status,
		DueAt:        clock.FormatUTC(due),
		MaxAttempts:  5,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), job))
	return job
}

func TestPollDueFiltersAndOrders(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()

	later := seedJob(t, repo, model.JobPending, jobBase.Add(-time.Minute))
	earlier := seedJob(t, repo, model.JobPending, jobBase.Add(-time.Hour))
	seedJob(t, repo, model.JobPending, jobBase.Add(time.Hour))   // not yet due
	seedJob(t, repo, model.JobRunning, jobBase.Add(-time.Hour))  // already claimed
	seedJob(t, repo, model.JobDone, jobBase.Add(-2*time.Hour))   // finished
	seedJob(t, repo, model.JobFailed, jobBase.Add(-2*time.Hour)) // dead

	due, err := repo.PollDue(ctx, clock.FormatUTC(jobBase), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, earlier.ID, due[0].ID)
	assert.Equal(t, later.ID, due[1].ID)

	// The limit caps the batch.
	capped, err := repo.PollDue(ctx, clock.FormatUTC(jobBase), 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, earlier.ID, capped[0].ID)
}

func TestClaimWinsExactlyOnce(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	now := clock.FormatUTC(jobBase)

	job := seedJob(t, repo, model.JobPending, jobBase.Add(-time.Minute))

	won, err := repo.Claim(ctx, job.ID, now)
	require.NoError(t, err)
	assert.True(t, won)

	again, err := repo.Claim(ctx, job.ID, now)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestClaimConcurrentSingleWinner(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	now := clock.FormatUTC(jobBase)

	job := seedJob(t, repo, model.JobPending, jobBase.Add(-time.Minute))

	type claimResult struct {
		won bool
		err error
	}

	const callers = 2
	results := make(chan claimResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.Claim(ctx, job.ID, now)
			results <- claimResult{won: won, err: err}
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for res := range results {
		require.NoError(t, res.err)
		if res.won {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestDeleteJobIsUserScoped(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()

	job := seedJob(t, repo, model.JobPending, jobBase.Add(time.Hour))

	err := repo.Delete(ctx, 2, job.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, repo.Delete(ctx, 1, job.ID))
	_, err = repo.Get(ctx, job.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestMarkSuccessRecurringReturnsToPending(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	now := clock.FormatUTC(jobBase)
	nextDue := clock.FormatUTC(jobBase.Add(time.Hour))

	job := seedJob(t, repo, model.JobRunning, jobBase)

	require.NoError(t, repo.MarkSuccess(ctx, job.ID, &nextDue, now))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, got.Status)
	assert.Equal(t, nextDue, got.DueAt)
	assert.Equal(t, 1, got.RunCount)
	assert.Nil(t, got.LastError)
	assert.Nil(t, got.CompletedAt)
}

func TestMarkSuccessOneOffCompletes(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	now := clock.FormatUTC(jobBase)

	job := seedJob(t, repo, model.JobRunning, jobBase)

	require.NoError(t, repo.MarkSuccess(ctx, job.ID, nil, now))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobDone, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, now, *got.CompletedAt)
}

func TestMarkFailureRetriesThenFails(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	now := clock.FormatUTC(jobBase)
	retryAt := clock.FormatUTC(jobBase.Add(time.Minute))

	job := seedJob(t, repo, model.JobRunning, jobBase)

	require.NoError(t, repo.MarkFailure(ctx, job.ID, "boom", &retryAt, now))
	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, got.Status)
	assert.Equal(t, retryAt, got.DueAt)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "boom", *got.LastError)
	assert.Equal(t, 1, got.RunCount)

	require.NoError(t, repo.MarkFailure(ctx, job.ID, "boom again", nil, now))
	got, err = repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, 2, got.RunCount)
}
