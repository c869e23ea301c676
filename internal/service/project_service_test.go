package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/repository"
)

func newProjectService(t *testing.T, clk clock.Clock) (*ProjectService, *model.User) {
	t.Helper()
	db := newTestDB(t)
	svc := NewProjectService(repository.NewProjectRepository(db), clk)
	user := &model.User{ID: 1, TelegramID: 42, Timezone: "UTC"}
	require.NoError(t, db.Create(user).Error)
	return svc, user
}

func TestProjectCreateValidation(t *testing.T) {
	svc, user := newProjectService(t, clock.Fixed(testNow))
	ctx := context.Background()

	_, err := svc.Create(ctx, user, "  ", []string{"step"})
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = svc.Create(ctx, user, "No steps", []string{"", "   "})
	assert.True(t, errors.Is(err, model.ErrValidation))

	project, err := svc.Create(ctx, user, "Tidy", []string{" Sort ", "", "Shred"})
	require.NoError(t, err)

	steps, err := svc.Steps(ctx, user, project.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "Sort", steps[0].Text)
	assert.Equal(t, "Shred", steps[1].Text)
}

func TestAdvanceReportsNextStepThenCompletion(t *testing.T) {
	clk := &stepClock{now: testNow}
	svc, user := newProjectService(t, clk)
	ctx := context.Background()

	project, err := svc.Create(ctx, user, "Ship release", []string{"Tag", "Publish"})
	require.NoError(t, err)

	first, err := svc.Advance(ctx, user, project.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.AdvanceActionAdvanced, first.Action)
	assert.Contains(t, first.Summary, "Publish")

	clk.now = testNow.Add(90 * time.Minute)
	second, err := svc.Advance(ctx, user, project.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.AdvanceActionCompleted, second.Action)
	assert.Contains(t, second.Summary, "2 steps")
	assert.Contains(t, second.Summary, "1.5 h")
	assert.Equal(t, model.ProjectCompleted, second.Project.Status)

	_, err = svc.Advance(ctx, user, project.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	// A different user never sees the project at all.
	stranger := &model.User{ID: 99}
	_, err = svc.Get(ctx, stranger, project.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
