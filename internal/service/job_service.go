package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/repository"
	"github.com/LarryDahl/TODOv2/internal/schedule"
)

// RunnerFunc executes one claimed job.
type RunnerFunc func(ctx context.Context, job model.ScheduledJob) error

// Retry backoff: 1 min doubling per attempt, capped at 30 min. A job that
// keeps failing moves to the failed state once its attempt ceiling is hit.
const (
	retryBackoffBase = time.Minute
	retryBackoffCap  = 30 * time.Minute
	pollBatchLimit   = 25
)

// JobService owns the due-time engine: enqueueing jobs with a computed
// first due instant, polling and claiming due ones, and recording run
// outcomes. Correctness never depends on timer precision, only on due
// instants being eventually observed and claims being safe under
// concurrent pollers.
type JobService struct {
	jobRepo     *repository.JobRepository
	clk         clock.Clock
	maxAttempts int
	runners     map[string]RunnerFunc
}

func NewJobService(jobRepo *repository.JobRepository, clk clock.Clock, maxAttempts int) *JobService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &JobService{
		jobRepo:     jobRepo,
		clk:         clk,
		maxAttempts: maxAttempts,
		runners:     make(map[string]RunnerFunc),
	}
}

// Register binds a job type to its runner. Call before Tick starts firing;
// the registry is not guarded for mid-flight mutation.
func (s *JobService) Register(jobType string, fn RunnerFunc) {
	s.runners[jobType] = fn
}

// Enqueue stores a new job with its first due instant computed from the
// schedule spec. Specs that can never produce a future instant are
// rejected.
func (s *JobService) Enqueue(ctx context.Context, user *model.User, agent, jobType string, spec schedule.Spec, payload string) (*model.ScheduledJob, error) {
	now := s.clk.Now()
	due, err := spec.FirstDue(now)
	if err != nil {
		return nil, err
	}
	kind, params, err := schedule.Encode(spec)
	if err != nil {
		return nil, err
	}

	nowISO := clock.FormatUTC(now)
	job := model.ScheduledJob{
		UserID:       user.ID,
		Agent:        agent,
		JobType:      jobType,
		ScheduleKind: kind,
		ScheduleJSON: params,
		Payload:      payload,
		Status:       model.JobPending,
		DueAt:        clock.FormatUTC(due),
		MaxAttempts:  s.maxAttempts,
		CreatedAt:    nowISO,
		UpdatedAt:    nowISO,
	}
	if err := s.jobRepo.Create(ctx, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// PollDue lists jobs eligible to run at now without claiming them.
func (s *JobService) PollDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduledJob, error) {
	return s.jobRepo.PollDue(ctx, clock.FormatUTC(now), limit)
}

// Claim attempts to take exclusive ownership of a job for execution.
func (s *JobService) Claim(ctx context.Context, jobID uint) (bool, error) {
	return s.jobRepo.Claim(ctx, jobID, clock.FormatUTC(s.clk.Now()))
}

// ReportResult records a run outcome. Success reschedules recurring jobs
// from their due instant (skipping slots missed while offline) or
// completes one-offs; failure backs the job off for a retry, or fails it
// permanently once the attempt ceiling is reached.
func (s *JobService) ReportResult(ctx context.Context, jobID uint, runErr error) error {
	job, err := s.jobRepo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	now := s.clk.Now()
	nowISO := clock.FormatUTC(now)

	if runErr == nil {
		spec, err := schedule.Decode(job.ScheduleKind, job.ScheduleJSON)
		if err != nil {
			// A job whose stored schedule no longer decodes can't recur.
			log.Printf("[warn] job %d: %v; completing", job.ID, err)
			return s.jobRepo.MarkSuccess(ctx, job.ID, nil, nowISO)
		}
		due, err := clock.ParseUTC(job.DueAt)
		if err != nil {
			due = now
		}
		if next, ok := spec.NextAfter(due, now); ok {
			nextISO := clock.FormatUTC(next)
			return s.jobRepo.MarkSuccess(ctx, job.ID, &nextISO, nowISO)
		}
		return s.jobRepo.MarkSuccess(ctx, job.ID, nil, nowISO)
	}

	attempts := job.RunCount + 1
	ceiling := job.MaxAttempts
	if ceiling <= 0 {
		ceiling = s.maxAttempts
	}
	if attempts >= ceiling {
		return s.jobRepo.MarkFailure(ctx, job.ID, runErr.Error(), nil, nowISO)
	}
	retryISO := clock.FormatUTC(now.Add(backoff(attempts)))
	return s.jobRepo.MarkFailure(ctx, job.ID, runErr.Error(), &retryISO, nowISO)
}

func backoff(attempt int) time.Duration {
	d := retryBackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= retryBackoffCap {
			return retryBackoffCap
		}
	}
	return d
}

// Tick runs one poll cycle: fetch due jobs, claim each, execute its runner
// and record the outcome. Claim losses are silent — another executor got
// there first, which is fine.
func (s *JobService) Tick(ctx context.Context) {
	jobs, err := s.PollDue(ctx, s.clk.Now(), pollBatchLimit)
	if err != nil {
		log.Printf("[warn] poll due jobs: %v", err)
		return
	}
	for _, job := range jobs {
		won, err := s.Claim(ctx, job.ID)
		if err != nil {
			log.Printf("[warn] claim job %d: %v", job.ID, err)
			continue
		}
		if !won {
			continue
		}
		runErr := s.run(ctx, job)
		if runErr != nil {
			log.Printf("[warn] job %d (%s) failed: %v", job.ID, job.JobType, runErr)
		}
		if err := s.ReportResult(ctx, job.ID, runErr); err != nil {
			log.Printf("[warn] report job %d result: %v", job.ID, err)
		}
	}
}

func (s *JobService) run(ctx context.Context, job model.ScheduledJob) error {
	fn, ok := s.runners[job.JobType]
	if !ok {
		return fmt.Errorf("no runner registered for job type %q", job.JobType)
	}
	return fn(ctx, job)
}

// ListPending surfaces a user's upcoming jobs for display.
func (s *JobService) ListPending(ctx context.Context, user *model.User, limit int) ([]model.ScheduledJob, error) {
	return s.jobRepo.ListPending(ctx, user.ID, limit)
}

// Cancel removes one of the user's jobs outright.
func (s *JobService) Cancel(ctx context.Context, user *model.User, jobID uint) error {
	return s.jobRepo.Delete(ctx, user.ID, jobID)
}
