package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/repository"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	return db
}

func newTaskService(t *testing.T, clk clock.Clock) (*TaskService, *model.User) {
	t.Helper()
	db := newTestDB(t)
	svc := NewTaskService(repository.NewTaskRepository(db), repository.NewCategoryRepository(db), clk)
	user := &model.User{ID: 1, TelegramID: 42, Timezone: "UTC"}
	require.NoError(t, db.Create(user).Error)
	return svc, user
}

func TestCreateParsesPriorityMarkers(t *testing.T) {
	svc, user := newTaskService(t, clock.Fixed(testNow))
	ctx := context.Background()

	task, err := svc.Create(ctx, user, TaskInput{Title: "Call dentist!!!", Category: "health"})
	require.NoError(t, err)
	assert.Equal(t, "Call dentist", task.Title)
	assert.Equal(t, 3, task.Priority)
	assert.Equal(t, model.PrioritySourceBang, task.PrioritySource)
	assert.NotNil(t, task.CategoryID)
	assert.Equal(t, clock.FormatUTC(testNow), task.CreatedAt)
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	svc, user := newTaskService(t, clock.Fixed(testNow))
	ctx := context.Background()

	for _, title := range []string{"", "   ", "!!!"} {
		_, err := svc.Create(ctx, user, TaskInput{Title: title})
		assert.True(t, errors.Is(err, model.ErrValidation), "title %q", title)
	}
}

func TestCreateDatedKindsNeedDueInstant(t *testing.T) {
	svc, user := newTaskService(t, clock.Fixed(testNow))
	ctx := context.Background()

	_, err := svc.Create(ctx, user, TaskInput{Title: "File taxes", Kind: model.TaskKindDeadline})
	assert.True(t, errors.Is(err, model.ErrValidation))

	due := testNow.Add(24 * time.Hour)
	task, err := svc.Create(ctx, user, TaskInput{Title: "File taxes", Kind: model.TaskKindDeadline, DueAt: &due})
	require.NoError(t, err)
	require.NotNil(t, task.DueAt)
	assert.Equal(t, clock.FormatUTC(due), *task.DueAt)
}

func TestUpdateTitleReparsesPriority(t *testing.T) {
	svc, user := newTaskService(t, clock.Fixed(testNow))
	ctx := context.Background()

	task, err := svc.Create(ctx, user, TaskInput{Title: "Mow lawn"})
	require.NoError(t, err)
	assert.Equal(t, 0, task.Priority)

	newTitle := "Mow lawn now!!"
	updated, err := svc.Update(ctx, user, task.ID, TaskPatch{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Mow lawn now", updated.Title)
	assert.Equal(t, 2, updated.Priority)
}

func TestUpdateUnknownTask(t *testing.T) {
	svc, user := newTaskService(t, clock.Fixed(testNow))

	title := "ghost"
	_, err := svc.Update(context.Background(), user, 999, TaskPatch{Title: &title})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestListActiveOrdersByEffectivePriority(t *testing.T) {
	svc, user := newTaskService(t, clock.Fixed(testNow))
	ctx := context.Background()

	_, err := svc.Create(ctx, user, TaskInput{Title: "Background chore"})
	require.NoError(t, err)

	soon := testNow.Add(30 * time.Minute)
	urgent, err := svc.Create(ctx, user, TaskInput{Title: "Catch train", Kind: model.TaskKindDeadline, DueAt: &soon})
	require.NoError(t, err)

	_, err = svc.Create(ctx, user, TaskInput{Title: "Important someday!!!!"})
	require.NoError(t, err)

	tasks, err := svc.ListActive(ctx, user)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	// A deadline half an hour out beats even a high declared priority.
	assert.Equal(t, urgent.ID, tasks[0].ID)
	assert.Equal(t, "Important someday", tasks[1].Title)
	assert.Equal(t, "Background chore", tasks[2].Title)
}

func TestCompleteRestoreRoundTrip(t *testing.T) {
	svc, user := newTaskService(t, clock.Fixed(testNow))
	ctx := context.Background()

	task, err := svc.Create(ctx, user, TaskInput{Title: "Pay rent!!"})
	require.NoError(t, err)

	event, err := svc.Complete(ctx, user, task.ID)
	require.NoError(t, err)

	restored, err := svc.Restore(ctx, user, event.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, restored.Title)
	assert.Equal(t, task.Priority, restored.Priority)

	// The event was consumed by the restore.
	_, err = svc.Restore(ctx, user, event.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDeleteShowsUpInDeletedList(t *testing.T) {
	svc, user := newTaskService(t, clock.Fixed(testNow))
	ctx := context.Background()

	task, err := svc.Create(ctx, user, TaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, user, task.ID, "dup")
	require.NoError(t, err)

	deleted, err := svc.ListDeleted(ctx, user, 10, 0)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "Buy milk", deleted[0].Title)
	assert.Equal(t, "dup", deleted[0].Reason)

	completed, err := svc.ListCompleted(ctx, user, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, completed)
}
