package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"todolist/internal/model"
	"todolist/internal/validation"
)

var errOffline = errors.New("offline")

// fakeBackend is an in-memory Persistence. Setting fail makes every mutation error.
type fakeBackend struct {
	mu       sync.Mutex
	todos    []model.Todo
	nextID   uint
	fail     bool
	order    []uint
	listHook func(model.Filters)
}

func newFakeBackend(titles ...string) *fakeBackend {
	b := &fakeBackend{}
	for _, title := range titles {
		b.nextID++
		b.todos = append(b.todos, model.Todo{ID: b.nextID, Title: title, OrderIndex: len(b.todos)})
	}
	return b
}

func (b *fakeBackend) List(_ context.Context, f model.Filters) ([]model.Todo, error) {
	if b.listHook != nil {
		b.listHook(f)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.todos), nil
}

func (b *fakeBackend) Create(_ context.Context, d model.Draft) (*model.Todo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return nil, errOffline
	}
	if d.Title == "" {
		return nil, validation.Errors{"title": {"title is required"}}
	}
	b.nextID++
	t := model.Todo{ID: b.nextID, Title: d.Title, Description: d.Description, OrderIndex: len(b.todos)}
	b.todos = append(b.todos, t)
	return &t, nil
}

func (b *fakeBackend) Update(_ context.Context, id uint, p model.Patch) (*model.Todo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return nil, errOffline
	}
	todos, ok := Apply(b.todos, id, p, time.Now())
	if !ok {
		return nil, model.ErrNotFound
	}
	b.todos = todos
	t := b.todos[model.IndexOf(b.todos, id)]
	return &t, nil
}

func (b *fakeBackend) SetCompleted(_ context.Context, id uint, completed bool) (*model.Todo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return nil, errOffline
	}
	i := model.IndexOf(b.todos, id)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	if completed {
		now := time.Now()
		b.todos[i].CompletedAt = &now
	} else {
		b.todos[i].CompletedAt = nil
	}
	t := b.todos[i]
	return &t, nil
}

func (b *fakeBackend) Delete(_ context.Context, id uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errOffline
	}
	todos, ok := Remove(b.todos, id)
	if !ok {
		return model.ErrNotFound
	}
	b.todos = todos
	return nil
}

func (b *fakeBackend) Reorder(_ context.Context, ids []uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errOffline
	}
	b.order = ids
	return nil
}

func loaded(t *testing.T, b *fakeBackend, opts ...Option) *Store {
	t.Helper()
	s := New(b, opts...)
	if err := s.Load(context.Background(), model.DefaultFilters()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func ids(s *Store) []uint {
	return model.IDs(s.Todos())
}

func TestStore_Load(t *testing.T) {
	is := is.New(t)
	s := New(newFakeBackend("A", "B"))
	is.True(s.Loading())

	is.NoErr(s.Load(context.Background(), model.Filters{Search: "a"}))
	is.True(!s.Loading())
	is.Equal(s.Len(), 2)
	is.Equal(s.Filters().Search, "a")
	is.Equal(s.Filters().SortField, model.SortOrderIndex)
}

func TestStore_LoadSuperseded(t *testing.T) {
	is := is.New(t)
	b := newFakeBackend("A")
	s := New(b)

	release := make(chan struct{})
	started := make(chan struct{})
	b.listHook = func(f model.Filters) {
		if f.Search == "slow" {
			close(started)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), model.Filters{Search: "slow"}) }()
	<-started

	is.NoErr(s.Load(context.Background(), model.Filters{Search: "fast"}))
	close(release)

	is.True(errors.Is(<-done, ErrSuperseded))
	is.Equal(s.Filters().Search, "fast")
	is.True(!s.Loading())
}

func TestStore_AddAndDelete(t *testing.T) {
	b := newFakeBackend("A", "B")
	s := loaded(t, b, WithValidator(validation.New()))
	ctx := context.Background()

	t.Run("add appends the stored record", func(t *testing.T) {
		is := is.New(t)
		todo, err := s.Add(ctx, model.Draft{Title: "  C "})
		is.NoErr(err)
		is.Equal(todo.Title, "C")
		is.Equal(ids(s), []uint{1, 2, 3})
	})

	t.Run("whitespace title is a validation error", func(t *testing.T) {
		is := is.New(t)
		_, err := s.Add(ctx, model.Draft{Title: "  "})
		var errs validation.Errors
		is.True(errors.As(err, &errs))
		is.Equal(errs["title"], []string{"title is required"})
		is.Equal(s.Len(), 3)
	})

	t.Run("delete removes locally after remote success", func(t *testing.T) {
		is := is.New(t)
		is.NoErr(s.Delete(ctx, 2))
		is.Equal(ids(s), []uint{1, 3})
	})

	t.Run("delete of unknown id reports not found", func(t *testing.T) {
		is := is.New(t)
		err := s.Delete(ctx, 999)
		is.True(errors.Is(err, model.ErrNotFound))
		is.Equal(s.Len(), 2)
	})

	t.Run("transport failure is surfaced", func(t *testing.T) {
		is := is.New(t)
		b.fail = true
		defer func() { b.fail = false }()
		err := s.Delete(ctx, 1)
		is.True(errors.Is(err, errOffline))
		is.Equal(s.Len(), 2)
		_, err = s.Add(ctx, model.Draft{Title: "D"})
		is.True(errors.Is(err, errOffline))
		is.Equal(s.Len(), 2)
	})
}

func TestStore_LengthFollowsAddsAndDeletes(t *testing.T) {
	is := is.New(t)
	s := loaded(t, newFakeBackend())
	ctx := context.Background()

	adds, deletes := 0, 0
	for i := 0; i < 10; i++ {
		todo, err := s.Add(ctx, model.Draft{Title: "x"})
		is.NoErr(err)
		adds++
		if i%3 == 0 {
			is.NoErr(s.Delete(ctx, todo.ID))
			deletes++
		}
		// deleting something that is already gone never counts
		_ = s.Delete(ctx, 10_000)
		is.Equal(s.Len(), adds-deletes)
	}
}

func TestStore_UpdatePartial(t *testing.T) {
	is := is.New(t)
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	s := loaded(t, newFakeBackend("A", "B"), WithClock(func() time.Time { return now }))

	todo, err := s.UpdatePartial(2, model.Patch{Title: model.Some("B2"), Priority: model.Some(model.PriorityUrgent)})
	is.NoErr(err)
	is.Equal(todo.Title, "B2")
	is.Equal(*todo.Priority, model.PriorityUrgent)
	is.Equal(todo.UpdatedAt, now)
	is.Equal(ids(s), []uint{1, 2})

	_, err = s.UpdatePartial(9, model.Patch{Title: model.Some("x")})
	is.True(errors.Is(err, model.ErrNotFound))
}

func TestStore_UpdatePersisted(t *testing.T) {
	b := newFakeBackend("A")
	s := loaded(t, b, WithValidator(validation.New()))
	ctx := context.Background()

	t.Run("stores the patch", func(t *testing.T) {
		is := is.New(t)
		todo, err := s.UpdatePersisted(ctx, 1, model.Patch{Title: model.Some("A2")})
		is.NoErr(err)
		is.Equal(todo.Title, "A2")
		got, _ := s.Get(1)
		is.Equal(got.Title, "A2")
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		is := is.New(t)
		b.fail = true
		defer func() { b.fail = false }()
		_, err := s.UpdatePersisted(ctx, 1, model.Patch{Title: model.Some("A3")})
		is.True(errors.Is(err, errOffline))
		got, _ := s.Get(1)
		is.Equal(got.Title, "A2")
	})

	t.Run("rejects blank title before any change", func(t *testing.T) {
		is := is.New(t)
		_, err := s.UpdatePersisted(ctx, 1, model.Patch{Title: model.Some(" ")})
		var errs validation.Errors
		is.True(errors.As(err, &errs))
		got, _ := s.Get(1)
		is.Equal(got.Title, "A2")
	})
}

func TestStore_ToggleComplete(t *testing.T) {
	is := is.New(t)
	s := loaded(t, newFakeBackend("A"))

	done, err := s.ToggleComplete(1)
	is.NoErr(err)
	is.True(done.CompletedAt != nil)

	open, err := s.ToggleComplete(1)
	is.NoErr(err)
	is.True(open.CompletedAt == nil)

	_, err = s.ToggleComplete(5)
	is.True(errors.Is(err, model.ErrNotFound))
}

func TestStore_ToggleCompletePersisted(t *testing.T) {
	b := newFakeBackend("A")
	s := loaded(t, b)
	ctx := context.Background()

	t.Run("persists completion", func(t *testing.T) {
		is := is.New(t)
		todo, err := s.ToggleCompletePersisted(ctx, 1)
		is.NoErr(err)
		is.True(todo.CompletedAt != nil)
		is.True(b.todos[0].CompletedAt != nil)
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		is := is.New(t)
		b.fail = true
		defer func() { b.fail = false }()
		_, err := s.ToggleCompletePersisted(ctx, 1)
		is.True(errors.Is(err, errOffline))
		got, _ := s.Get(1)
		is.True(got.CompletedAt != nil)
	})
}

func TestStore_Reorder(t *testing.T) {
	t.Run("first onto last", func(t *testing.T) {
		is := is.New(t)
		s := loaded(t, newFakeBackend("A", "B", "C"))
		outcome, err := s.Reorder(1, 3)
		is.NoErr(err)
		is.Equal(outcome, Applied)
		is.Equal(ids(s), []uint{2, 3, 1})
		for i, todo := range s.Todos() {
			is.Equal(todo.OrderIndex, i)
		}
	})

	t.Run("indexes stay dense over many moves", func(t *testing.T) {
		is := is.New(t)
		s := loaded(t, newFakeBackend("A", "B", "C", "D", "E"))
		moves := [][2]uint{{1, 5}, {4, 2}, {3, 1}, {5, 3}, {2, 4}}
		for _, m := range moves {
			_, err := s.Reorder(m[0], m[1])
			is.NoErr(err)
			seen := map[int]bool{}
			for _, todo := range s.Todos() {
				is.True(!seen[todo.OrderIndex])
				seen[todo.OrderIndex] = true
				is.True(todo.OrderIndex >= 0 && todo.OrderIndex < 5)
			}
		}
	})

	t.Run("same id is unchanged", func(t *testing.T) {
		is := is.New(t)
		s := loaded(t, newFakeBackend("A", "B"))
		outcome, err := s.Reorder(2, 2)
		is.NoErr(err)
		is.Equal(outcome, Unchanged)
	})

	t.Run("unknown id is not found and changes nothing", func(t *testing.T) {
		is := is.New(t)
		s := loaded(t, newFakeBackend("A", "B"))
		outcome, err := s.Reorder(1, 42)
		is.True(errors.Is(err, model.ErrNotFound))
		is.Equal(outcome, Unchanged)
		is.Equal(ids(s), []uint{1, 2})
	})
}

func TestStore_ReorderPersisted(t *testing.T) {
	b := newFakeBackend("A", "B", "C")
	s := loaded(t, b)
	ctx := context.Background()

	t.Run("sends the new order", func(t *testing.T) {
		is := is.New(t)
		outcome, err := s.ReorderPersisted(ctx, 3, 1)
		is.NoErr(err)
		is.Equal(outcome, Applied)
		is.Equal(b.order, []uint{3, 1, 2})
	})

	t.Run("restores the order on failure", func(t *testing.T) {
		is := is.New(t)
		b.fail = true
		defer func() { b.fail = false }()
		outcome, err := s.ReorderPersisted(ctx, 3, 2)
		is.True(errors.Is(err, errOffline))
		is.Equal(outcome, Unchanged)
		is.Equal(ids(s), []uint{3, 1, 2})
	})
}

// slowReorder blocks Reorder until the test sends its result.
type slowReorder struct {
	*fakeBackend
	started chan struct{}
	result  chan error
}

func (b *slowReorder) Reorder(context.Context, []uint) error {
	close(b.started)
	return <-b.result
}

func TestStore_ReorderPersistedKeepsConcurrentChanges(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	b := &slowReorder{fakeBackend: newFakeBackend("A", "B", "C"), started: make(chan struct{}), result: make(chan error)}
	s := New(b)
	is.NoErr(s.Load(ctx, model.DefaultFilters()))

	done := make(chan error)
	go func() {
		_, err := s.ReorderPersisted(ctx, 1, 3)
		done <- err
	}()
	<-b.started
	is.Equal(ids(s), []uint{2, 3, 1})

	_, err := s.Add(ctx, model.Draft{Title: "D"})
	is.NoErr(err)
	_, err = s.ToggleComplete(2)
	is.NoErr(err)
	is.Equal(s.Len(), 4)

	b.result <- errOffline
	is.True(errors.Is(<-done, errOffline))

	is.Equal(ids(s), []uint{1, 2, 3, 4})
	is.Equal(s.Len(), 4)
	for i, todo := range s.Todos() {
		is.Equal(todo.OrderIndex, i)
	}
	got, ok := s.Get(2)
	is.True(ok)
	is.True(got.CompletedAt != nil)
}

func TestRestoreOrderSkipsDeletedTodos(t *testing.T) {
	is := is.New(t)
	movedAt := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	prev := []model.Todo{{ID: 1, OrderIndex: 0}, {ID: 2, OrderIndex: 1}, {ID: 3, OrderIndex: 2}}
	current, _ := Move(prev, 1, 3, movedAt)
	current, _ = Remove(current, 2)

	out := RestoreOrder(current, prev, movedAt)
	is.Equal(model.IDs(out), []uint{1, 3})
	is.True(out[0].UpdatedAt.IsZero())
	is.Equal(out[1].OrderIndex, 2)
}

func TestReducersDoNotMutateInput(t *testing.T) {
	is := is.New(t)
	in := []model.Todo{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}
	now := time.Now()

	_, _ = Apply(in, 1, model.Patch{Title: model.Some("Z")}, now)
	_, _ = Toggle(in, 2, now)
	_, _ = Remove(in, 1)
	_ = Append(in, model.Todo{ID: 3})
	_, _ = Move(in, 1, 2, now)

	is.Equal(in[0].Title, "A")
	is.True(in[1].CompletedAt == nil)
	is.Equal(model.IDs(in), []uint{1, 2})
	is.Equal(in[0].OrderIndex, 0)
	is.True(in[0].UpdatedAt.IsZero())
}
