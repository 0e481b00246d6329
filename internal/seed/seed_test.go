package seed

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todolist/internal/model"
	"todolist/internal/repository"
)

func TestDefault(t *testing.T) {
	f := Default()
	require.Len(t, f.Todos, 8)

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	byTitle := map[string]model.Todo{}
	for _, item := range f.Todos {
		byTitle[item.Title] = item.Todo(now)
	}

	bill := byTitle["Pay electricity bill"]
	require.NotNil(t, bill.DueAt)
	assert.Equal(t, now.Add(24*time.Hour), *bill.DueAt)
	assert.Equal(t, model.PriorityHigh, *bill.Priority)

	assert.Equal(t, model.StatusOverdue, byTitle["Submit tax documents"].Status(now))
	assert.Equal(t, model.StatusCompleted, byTitle["Read the docs"].Status(now))
	assert.Nil(t, byTitle["Clean desk"].Priority)
	assert.Nil(t, byTitle["Clean desk"].DueAt)
}

func TestParseRejectsBadItems(t *testing.T) {
	_, err := Parse([]byte("todos:\n  - title: ''\n"))
	assert.ErrorContains(t, err, "has no title")

	_, err = Parse([]byte("todos:\n  - title: x\n    priority: 4\n"))
	assert.ErrorContains(t, err, "outside 0-3")

	_, err = Parse([]byte("todos:\n  - title: x\n    due_in: soon\n"))
	assert.Error(t, err)
}

func TestRunSkipsExistingTitles(t *testing.T) {
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(repository.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	repo := repository.NewTodoRepository(db)

	require.NoError(t, repo.Create(ctx, &model.Todo{Title: "Clean desk"}))

	now := time.Now().UTC()
	created, err := Run(ctx, repo, Default(), now)
	require.NoError(t, err)
	assert.Equal(t, 7, created)

	created, err = Run(ctx, repo, Default(), now)
	require.NoError(t, err)
	assert.Zero(t, created)

	all, err := repo.List(ctx, model.DefaultFilters(), now)
	require.NoError(t, err)
	require.Len(t, all, 8)
	for i, todo := range all {
		assert.Equal(t, i, todo.OrderIndex)
	}
}
