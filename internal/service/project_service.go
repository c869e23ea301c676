package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/repository"
)

// AdvanceOutcome is what one advance call did, with a human summary for the
// chat layer.
type AdvanceOutcome struct {
	Action   string
	Summary  string
	Project  model.Project
	NextStep *model.ProjectStep
}

// ProjectService wraps the step machine with timestamps and summaries.
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	clk         clock.Clock
}

func NewProjectService(projectRepo *repository.ProjectRepository, clk clock.Clock) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, clk: clk}
}

func (s *ProjectService) Create(ctx context.Context, user *model.User, title string, steps []string) (*model.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty project title", model.ErrValidation)
	}
	texts := make([]string, 0, len(steps))
	for _, step := range steps {
		step = strings.TrimSpace(step)
		if step != "" {
			texts = append(texts, step)
		}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: project needs at least one step", model.ErrValidation)
	}
	now := clock.FormatUTC(s.clk.Now())
	return s.projectRepo.Create(ctx, user.ID, title, texts, now)
}

// Advance marks the current step done and reports what happened: either the
// next step's text, or a completion summary with step count and elapsed
// time. Only the owning user's projects are visible to it.
func (s *ProjectService) Advance(ctx context.Context, user *model.User, projectID uint) (*AdvanceOutcome, error) {
	now := s.clk.Now()
	result, err := s.projectRepo.AdvanceStep(ctx, user.ID, projectID, clock.FormatUTC(now))
	if err != nil {
		return nil, err
	}

	outcome := &AdvanceOutcome{
		Action:   result.Action,
		Project:  result.Project,
		NextStep: result.NextStep,
	}
	switch result.Action {
	case repository.AdvanceActionCompleted:
		outcome.Summary = fmt.Sprintf("Project %q completed: %d steps in %s.",
			result.Project.Title, result.TotalSteps, s.elapsed(result.Project, now))
	default:
		outcome.Summary = fmt.Sprintf("Step done. Next up: %s", result.NextStep.Text)
	}
	return outcome, nil
}

func (s *ProjectService) elapsed(project model.Project, now time.Time) string {
	started, err := clock.ParseUTC(project.CreatedAt)
	if err != nil {
		return "an unknown time"
	}
	d := now.Sub(started)
	switch {
	case d < time.Minute:
		return "under a minute"
	case d < time.Hour:
		return fmt.Sprintf("%d min", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%.1f h", d.Hours())
	default:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	}
}

func (s *ProjectService) Get(ctx context.Context, user *model.User, projectID uint) (*model.Project, error) {
	return s.projectRepo.Get(ctx, user.ID, projectID)
}

func (s *ProjectService) List(ctx context.Context, user *model.User) ([]model.Project, error) {
	return s.projectRepo.ListByUser(ctx, user.ID)
}

func (s *ProjectService) Steps(ctx context.Context, user *model.User, projectID uint) ([]model.ProjectStep, error) {
	return s.projectRepo.Steps(ctx, user.ID, projectID)
}

func (s *ProjectService) AddStep(ctx context.Context, user *model.User, projectID uint, text string) (*model.ProjectStep, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty step text", model.ErrValidation)
	}
	return s.projectRepo.AddStep(ctx, user.ID, projectID, text, clock.FormatUTC(s.clk.Now()))
}

func (s *ProjectService) DeleteStep(ctx context.Context, user *model.User, stepID uint) error {
	return s.projectRepo.DeleteStep(ctx, user.ID, stepID)
}

func (s *ProjectService) Cancel(ctx context.Context, user *model.User, projectID uint) error {
	return s.projectRepo.Cancel(ctx, user.ID, projectID, clock.FormatUTC(s.clk.Now()))
}

func (s *ProjectService) Delete(ctx context.Context, user *model.User, projectID uint) error {
	return s.projectRepo.Delete(ctx, user.ID, projectID)
}
