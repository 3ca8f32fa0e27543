package repository

import (
	"context"
	"testing"
	"time"

	"task_webapp/internal/db/dbtest"
	"task_webapp/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestTaskRepository_Create(t *testing.T) {
	repo := NewTaskRepository(dbtest.Open(t))
	ctx := context.Background()

	due := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	task := &domain.Task{Title: "Write report", Description: strPtr("quarterly"), DueDate: &due}
	require.NoError(t, repo.Create(ctx, task))

	assert.Positive(t, task.ID)
	assert.False(t, task.Completed)
	assert.False(t, task.CreatedAt.IsZero())
	assert.True(t, task.CreatedAt.Equal(task.UpdatedAt))

	found, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", found.Title)
	require.NotNil(t, found.Description)
	assert.Equal(t, "quarterly", *found.Description)
	require.NotNil(t, found.DueDate)
	assert.True(t, due.Equal(*found.DueDate))
	assert.True(t, task.CreatedAt.Equal(found.CreatedAt))
}

func TestTaskRepository_ListNewestFirst(t *testing.T) {
	gdb := dbtest.OpenWithClock(t, dbtest.Clock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Second))
	repo := NewTaskRepository(gdb)
	ctx := context.Background()

	t.Run("empty database", func(t *testing.T) {
		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	var ids []int64
	for _, title := range []string{"T1", "T2", "T3"} {
		task := &domain.Task{Title: title}
		require.NoError(t, repo.Create(ctx, task))
		ids = append(ids, task.ID)
	}

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"T3", "T2", "T1"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
	assert.Equal(t, ids[2], tasks[0].ID)
}

func TestTaskRepository_Update(t *testing.T) {
	gdb := dbtest.OpenWithClock(t, dbtest.Clock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute))
	repo := NewTaskRepository(gdb)
	ctx := context.Background()

	due := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	task := &domain.Task{Title: "Original", Description: strPtr("desc"), DueDate: &due}
	require.NoError(t, repo.Create(ctx, task))

	t.Run("partial update keeps other fields", func(t *testing.T) {
		done := true
		updated, err := repo.Update(ctx, task.ID, domain.TaskPatch{Completed: &done})
		require.NoError(t, err)

		assert.True(t, updated.Completed)
		assert.Equal(t, "Original", updated.Title)
		require.NotNil(t, updated.Description)
		assert.Equal(t, "desc", *updated.Description)
		require.NotNil(t, updated.DueDate)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
		assert.True(t, task.CreatedAt.Equal(updated.CreatedAt))
	})

	t.Run("clears nullable fields", func(t *testing.T) {
		updated, err := repo.Update(ctx, task.ID, domain.TaskPatch{SetDescription: true, SetDueDate: true})
		require.NoError(t, err)
		assert.Nil(t, updated.Description)
		assert.Nil(t, updated.DueDate)
	})

	t.Run("update non-existent task", func(t *testing.T) {
		title := "nope"
		_, err := repo.Update(ctx, 999999, domain.TaskPatch{Title: &title})
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})
}

func TestTaskRepository_Delete(t *testing.T) {
	repo := NewTaskRepository(dbtest.Open(t))
	ctx := context.Background()

	keep := &domain.Task{Title: "keep"}
	gone := &domain.Task{Title: "gone"}
	require.NoError(t, repo.Create(ctx, keep))
	require.NoError(t, repo.Create(ctx, gone))

	require.NoError(t, repo.Delete(ctx, gone.ID))
	assert.ErrorIs(t, repo.Delete(ctx, gone.ID), domain.ErrTaskNotFound)

	_, err := repo.Get(ctx, gone.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, keep.ID, tasks[0].ID)

	// ids are never handed out again
	next := &domain.Task{Title: "next"}
	require.NoError(t, repo.Create(ctx, next))
	assert.Greater(t, next.ID, gone.ID)
}

func TestTaskRepository_Ping(t *testing.T) {
	repo := NewTaskRepository(dbtest.Open(t))
	assert.NoError(t, repo.Ping(context.Background()))
}
