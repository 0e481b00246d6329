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

	"todolist/internal/model"
	"todolist/internal/repository"
	"todolist/internal/validation"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *TodoService {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(repository.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	svc := NewTodoService(repository.NewTodoRepository(db), validation.New())
	svc.SetClock(func() time.Time { return testNow })
	return svc
}

func mustCreate(t *testing.T, svc *TodoService, d model.Draft) *model.Todo {
	t.Helper()
	todo, err := svc.Create(context.Background(), d)
	require.NoError(t, err)
	return todo
}

func TestTodoService_Create(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := mustCreate(t, svc, model.Draft{Title: "  Buy groceries  "})
	assert.NotZero(t, first.ID)
	assert.Equal(t, "Buy groceries", first.Title)
	assert.Equal(t, 0, first.OrderIndex)
	assert.True(t, first.CreatedAt.Equal(testNow))

	second := mustCreate(t, svc, model.Draft{Title: "Clean desk", Priority: model.PriorityLow.Ptr()})
	assert.Equal(t, 1, second.OrderIndex)

	_, err := svc.Create(ctx, model.Draft{Title: "  "})
	var errs validation.Errors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, []string{"title is required"}, errs["title"])

	all, err := svc.List(ctx, model.DefaultFilters())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTodoService_SetCompleted(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	todo := mustCreate(t, svc, model.Draft{Title: "Pay bill"})

	done, err := svc.SetCompleted(ctx, todo.ID, true)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	first := *done.CompletedAt

	svc.SetClock(func() time.Time { return testNow.Add(time.Hour) })
	again, err := svc.SetCompleted(ctx, todo.ID, true)
	require.NoError(t, err)
	assert.True(t, again.CompletedAt.Equal(first), "completion time must not move")

	open, err := svc.SetCompleted(ctx, todo.ID, false)
	require.NoError(t, err)
	assert.Nil(t, open.CompletedAt)

	_, err = svc.SetCompleted(ctx, 999, true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTodoService_UpdateKeepsCompletion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	todo := mustCreate(t, svc, model.Draft{Title: "Pay bill"})
	_, err := svc.SetCompleted(ctx, todo.ID, true)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, todo.ID, model.Patch{Title: model.Some("Pay the bill")})
	require.NoError(t, err)
	assert.Equal(t, "Pay the bill", updated.Title)
	assert.NotNil(t, updated.CompletedAt)

	_, err = svc.Update(ctx, todo.ID, model.Patch{Title: model.Some("")})
	var errs validation.Errors
	assert.True(t, errors.As(err, &errs))
}

func TestTodoService_Move(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := mustCreate(t, svc, model.Draft{Title: "A"})
	b := mustCreate(t, svc, model.Draft{Title: "B"})
	c := mustCreate(t, svc, model.Draft{Title: "C"})

	moved, res, err := svc.Move(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MoveApplied, res)
	assert.Equal(t, []uint{b.ID, c.ID, a.ID}, model.IDs(moved))

	stored, err := svc.List(ctx, model.DefaultFilters())
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, c.ID, a.ID}, model.IDs(stored))
	for i, td := range stored {
		assert.Equal(t, i, td.OrderIndex)
	}

	_, res, err = svc.Move(ctx, a.ID, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, model.MoveNotFound, res)

	_, res, err = svc.Move(ctx, a.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MoveUnchanged, res)
}

func TestTodoService_ReorderRejectsDuplicates(t *testing.T) {
	svc := newTestService(t)
	a := mustCreate(t, svc, model.Draft{Title: "A"})

	err := svc.Reorder(context.Background(), []uint{a.ID, a.ID})
	var errs validation.Errors
	require.True(t, errors.As(err, &errs))
	assert.Contains(t, errs, "ids")
}

func TestReportService_Summary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	late := testNow.AddDate(0, 0, -7)
	soon := testNow.Add(24 * time.Hour)
	mustCreate(t, svc, model.Draft{Title: "Submit tax <documents>", DueAt: &late, Priority: model.PriorityHigh.Ptr()})
	mustCreate(t, svc, model.Draft{Title: "Pay electricity bill", DueAt: &soon})
	mustCreate(t, svc, model.Draft{Title: "Clean desk"})

	report, err := NewReportService(svc).Summary(ctx, testNow)
	require.NoError(t, err)

	assert.Contains(t, report, "Total: 3 · Completed: 0 · Pending: 3 · Overdue: 1")
	assert.Contains(t, report, "⚠️ Submit tax &lt;documents&gt; <i>(High)</i>")
	assert.Contains(t, report, "<b>7 d late</b>")
	assert.Contains(t, report, "⏳ Pay electricity bill")
	assert.NotContains(t, report, "Clean desk")
}

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("07:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 7 * * *", spec)

	for _, bad := range []string{"7", "24:00", "07:60", "aa:bb"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, "@every 3600s", buildIntervalSpec(time.Hour))
}

func TestSchedulerService_Schedule(t *testing.T) {
	s := NewSchedulerService(time.UTC)

	_, err := s.Schedule("", 0, "report", func() {})
	assert.ErrorIs(t, err, ErrNoSchedule)

	_, err = s.Schedule("08:00", 0, "report", func() {})
	require.NoError(t, err)
	_, err = s.Schedule("08:00", 5*time.Hour, "report", func() {})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())
}

func TestTodoService_ReorderSubset(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := mustCreate(t, svc, model.Draft{Title: "A", Priority: model.PriorityHigh.Ptr()})
	b := mustCreate(t, svc, model.Draft{Title: "B"})
	c := mustCreate(t, svc, model.Draft{Title: "C", Priority: model.PriorityHigh.Ptr()})
	d := mustCreate(t, svc, model.Draft{Title: "D"})

	// swap the two high priority todos, B and D stay where they are
	require.NoError(t, svc.Reorder(ctx, []uint{c.ID, a.ID}))

	stored, err := svc.List(ctx, model.DefaultFilters())
	require.NoError(t, err)
	assert.Equal(t, []uint{c.ID, b.ID, a.ID, d.ID}, model.IDs(stored))
	for i, td := range stored {
		assert.Equal(t, i, td.OrderIndex)
	}

	err = svc.Reorder(ctx, []uint{a.ID, 999})
	assert.ErrorIs(t, err, model.ErrNotFound)
}
