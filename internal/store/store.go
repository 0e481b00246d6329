// Package store keeps the session's list of todos in memory and keeps it in
// step with a persistence collaborator. Mutations are applied optimistically
// and rolled back when the remote call fails.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"todolist/internal/model"
	"todolist/internal/validation"
)

// ErrSuperseded is returned by Load when a newer Load started before this one finished.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Persistence is what the store needs from the backend.
type Persistence interface {
	List(ctx context.Context, filters model.Filters) ([]model.Todo, error)
	Create(ctx context.Context, draft model.Draft) (*model.Todo, error)
	Update(ctx context.Context, id uint, patch model.Patch) (*model.Todo, error)
	SetCompleted(ctx context.Context, id uint, completed bool) (*model.Todo, error)
	Delete(ctx context.Context, id uint) error
	Reorder(ctx context.Context, ids []uint) error
}

// Outcome separates "nothing to do" from "applied" for operations that may
// legitimately leave the list unchanged.
type Outcome int

const (
	Unchanged Outcome = iota
	Applied
)

func (o Outcome) String() string {
	if o == Applied {
		return "applied"
	}
	return "unchanged"
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithValidator checks drafts and patches locally before any state changes.
func WithValidator(v *validation.Validator) Option {
	return func(s *Store) { s.validator = v }
}

// Store is the in-memory, ordered collection of todos of one UI session.
// It is safe for concurrent use; the lock is never held across a remote call.
type Store struct {
	persist   Persistence
	validator *validation.Validator
	now       func() time.Time

	mu      sync.Mutex
	todos   []model.Todo
	filters model.Filters
	loading bool
	gen     uint64
}

func New(persist Persistence, opts ...Option) *Store {
	s := &Store{
		persist: persist,
		now:     func() time.Time { return time.Now().UTC() },
		filters: model.DefaultFilters(),
		loading: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Todos returns a copy of the current collection in display order.
func (s *Store) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.todos)
}

// Get returns the todo with id from the local collection.
func (s *Store) Get(id uint) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := model.IndexOf(s.todos, id); i >= 0 {
		return s.todos[i], true
	}
	return model.Todo{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.todos)
}

func (s *Store) Filters() model.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Load fetches the todos matching filters and replaces the collection.
// If another Load started meanwhile, the result is dropped and ErrSuperseded returned.
func (s *Store) Load(ctx context.Context, filters model.Filters) error {
	filters = filters.Normalized()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.filters = filters
	s.loading = true
	s.mu.Unlock()

	todos, err := s.persist.List(ctx, filters)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrSuperseded
	}
	s.loading = false
	if err != nil {
		return fmt.Errorf("load todos: %w", err)
	}
	s.todos = clone(todos)
	return nil
}

// Reload repeats Load with the current filters.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx, s.Filters())
}

// Add creates the todo remotely and appends the stored record.
// Validation failures are returned as validation.Errors and change nothing.
func (s *Store) Add(ctx context.Context, draft model.Draft) (model.Todo, error) {
	if s.validator != nil {
		var err error
		if draft, err = s.validator.Draft(draft); err != nil {
			return model.Todo{}, err
		}
	}

	created, err := s.persist.Create(ctx, draft)
	if err != nil {
		return model.Todo{}, err
	}

	s.mu.Lock()
	s.todos = Append(s.todos, *created)
	s.mu.Unlock()
	return *created, nil
}

// UpdatePartial merges patch into the local record only.
func (s *Store) UpdatePartial(id uint, patch model.Patch) (model.Todo, error) {
	patch, err := s.checkPatch(patch)
	if err != nil {
		return model.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	todos, ok := Apply(s.todos, id, patch, s.now())
	if !ok {
		return model.Todo{}, fmt.Errorf("update todo %d: %w", id, model.ErrNotFound)
	}
	s.todos = todos
	return s.todos[model.IndexOf(s.todos, id)], nil
}

// UpdatePersisted merges patch locally, then persists it. The stored record
// replaces the local one; on failure the previous record is restored.
func (s *Store) UpdatePersisted(ctx context.Context, id uint, patch model.Patch) (model.Todo, error) {
	patch, err := s.checkPatch(patch)
	if err != nil {
		return model.Todo{}, err
	}

	s.mu.Lock()
	prev, ok := s.lookup(id)
	if !ok {
		s.mu.Unlock()
		return model.Todo{}, fmt.Errorf("update todo %d: %w", id, model.ErrNotFound)
	}
	s.todos, _ = Apply(s.todos, id, patch, s.now())
	s.mu.Unlock()

	saved, err := s.persist.Update(ctx, id, patch)
	return s.settle(id, prev, saved, err, "update")
}

// ToggleComplete flips the completion of the local record only.
func (s *Store) ToggleComplete(id uint) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todos, ok := Toggle(s.todos, id, s.now())
	if !ok {
		return model.Todo{}, fmt.Errorf("toggle todo %d: %w", id, model.ErrNotFound)
	}
	s.todos = todos
	return s.todos[model.IndexOf(s.todos, id)], nil
}

// ToggleCompletePersisted flips the completion locally, then persists it.
func (s *Store) ToggleCompletePersisted(ctx context.Context, id uint) (model.Todo, error) {
	s.mu.Lock()
	prev, ok := s.lookup(id)
	if !ok {
		s.mu.Unlock()
		return model.Todo{}, fmt.Errorf("toggle todo %d: %w", id, model.ErrNotFound)
	}
	s.todos, _ = Toggle(s.todos, id, s.now())
	s.mu.Unlock()

	saved, err := s.persist.SetCompleted(ctx, id, prev.CompletedAt == nil)
	return s.settle(id, prev, saved, err, "toggle")
}

// Delete removes the todo remotely, then locally. Failures leave the
// collection unchanged and are returned; unknown ids yield model.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id uint) error {
	if err := s.persist.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	s.mu.Lock()
	s.todos, _ = Remove(s.todos, id)
	s.mu.Unlock()
	return nil
}

// Reorder moves activeID onto overID's position in the local collection and
// renumbers every todo. Equal ids are Unchanged; unknown ids are model.ErrNotFound.
func (s *Store) Reorder(activeID, overID uint) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, outcome, err := s.move(activeID, overID, s.now())
	return outcome, err
}

// ReorderPersisted reorders locally and sends the new order to the backend.
// On failure the previous order is restored; todos added, changed or
// deleted meanwhile keep those changes.
func (s *Store) ReorderPersisted(ctx context.Context, activeID, overID uint) (Outcome, error) {
	s.mu.Lock()
	movedAt := s.now()
	prev, outcome, err := s.move(activeID, overID, movedAt)
	ids := model.IDs(s.todos)
	s.mu.Unlock()
	if err != nil || outcome == Unchanged {
		return outcome, err
	}

	if err := s.persist.Reorder(ctx, ids); err != nil {
		s.mu.Lock()
		s.todos = RestoreOrder(s.todos, prev, movedAt)
		s.mu.Unlock()
		return Unchanged, fmt.Errorf("reorder todos: %w", err)
	}
	return Applied, nil
}

// move must be called with s.mu held. It returns the collection as it was before.
func (s *Store) move(activeID, overID uint, now time.Time) ([]model.Todo, Outcome, error) {
	prev := s.todos
	moved, res := Move(s.todos, activeID, overID, now)
	switch res {
	case model.MoveNotFound:
		return prev, Unchanged, fmt.Errorf("move %d onto %d: %w", activeID, overID, model.ErrNotFound)
	case model.MoveUnchanged:
		return prev, Unchanged, nil
	}
	s.todos = moved
	return prev, Applied, nil
}

// settle finishes an optimistic mutation: keep the stored record or roll back.
func (s *Store) settle(id uint, prev model.Todo, saved *model.Todo, err error, op string) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.todos, _ = Replace(s.todos, prev)
		return model.Todo{}, fmt.Errorf("%s todo %d: %w", op, id, err)
	}
	s.todos, _ = Replace(s.todos, *saved)
	return *saved, nil
}

func (s *Store) lookup(id uint) (model.Todo, bool) {
	if i := model.IndexOf(s.todos, id); i >= 0 {
		return s.todos[i], true
	}
	return model.Todo{}, false
}

func (s *Store) checkPatch(patch model.Patch) (model.Patch, error) {
	if s.validator == nil {
		return patch, nil
	}
	return s.validator.Patch(patch)
}
