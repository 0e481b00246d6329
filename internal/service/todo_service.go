package service

import (
	"context"
	"fmt"
	"time"

	"todolist/internal/model"
	"todolist/internal/repository"
	"todolist/internal/validation"
)

// TodoService validates input and persists todos. It is the persistence
// collaborator of the client-side store.
type TodoService struct {
	repo      *repository.TodoRepository
	validator *validation.Validator
	now       func() time.Time
}

func NewTodoService(repo *repository.TodoRepository, validator *validation.Validator) *TodoService {
	return &TodoService{
		repo:      repo,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source.
func (s *TodoService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TodoService) List(ctx context.Context, filters model.Filters) ([]model.Todo, error) {
	return s.repo.List(ctx, filters, s.now())
}

func (s *TodoService) Get(ctx context.Context, id uint) (*model.Todo, error) {
	return s.repo.FindByID(ctx, id)
}

// Create validates the draft and stores it at the end of the list.
// Validation failures come back as validation.Errors.
func (s *TodoService) Create(ctx context.Context, draft model.Draft) (*model.Todo, error) {
	draft, err := s.validator.Draft(draft)
	if err != nil {
		return nil, err
	}

	now := s.now()
	todo := model.Todo{
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		DueAt:       draft.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (s *TodoService) Update(ctx context.Context, id uint, patch model.Patch) (*model.Todo, error) {
	patch, err := s.validator.Patch(patch)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, patch, s.now())
}

// SetCompleted marks the todo done or open. Completing an already completed
// todo keeps its original completion time.
func (s *TodoService) SetCompleted(ctx context.Context, id uint, completed bool) (*model.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if completed == (todo.CompletedAt != nil) {
		return todo, nil
	}

	now := s.now()
	var completedAt *time.Time
	if completed {
		completedAt = &now
	}
	return s.repo.SetCompletedAt(ctx, id, completedAt, now)
}

func (s *TodoService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// Reorder places the given todos in the given relative order. They keep the
// positions they jointly held in the manual order, so a filtered subset can
// be reordered without disturbing the rest. The whole list is renumbered
// densely from zero.
func (s *TodoService) Reorder(ctx context.Context, ids []uint) error {
	wanted := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := wanted[id]; dup {
			errs := validation.Errors{}
			errs.Add("ids", fmt.Sprintf("ids must be unique, %d repeats", id))
			return errs
		}
		wanted[id] = struct{}{}
	}
	if len(ids) == 0 {
		return nil
	}

	now := s.now()
	all, err := s.repo.List(ctx, model.DefaultFilters(), now)
	if err != nil {
		return err
	}

	byID := make(map[uint]model.Todo, len(ids))
	var slots []int
	for i, todo := range all {
		if _, ok := wanted[todo.ID]; ok {
			slots = append(slots, i)
			byID[todo.ID] = todo
		}
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("reorder todo %d: %w", id, model.ErrNotFound)
		}
	}

	ordered := make([]model.Todo, len(all))
	copy(ordered, all)
	for k, slot := range slots {
		ordered[slot] = byID[ids[k]]
	}
	return s.repo.SaveOrder(ctx, model.IDs(ordered), now)
}

// Move applies a drag-and-drop of activeID onto overID to the stored manual
// order and returns the renumbered list.
func (s *TodoService) Move(ctx context.Context, activeID, overID uint) ([]model.Todo, model.MoveResult, error) {
	now := s.now()
	todos, err := s.repo.List(ctx, model.DefaultFilters(), now)
	if err != nil {
		return nil, model.MoveUnchanged, err
	}

	moved, res := model.Move(todos, activeID, overID, now)
	switch res {
	case model.MoveNotFound:
		return todos, res, fmt.Errorf("move %d onto %d: %w", activeID, overID, model.ErrNotFound)
	case model.MoveUnchanged:
		return todos, res, nil
	}

	if err := s.repo.SaveOrder(ctx, model.IDs(moved), now); err != nil {
		return todos, model.MoveUnchanged, err
	}
	return moved, res, nil
}

func (s *TodoService) Stats(ctx context.Context) (model.Stats, error) {
	return s.repo.Stats(ctx, s.now())
}

// DueSoon lists open todos due within the window starting now.
func (s *TodoService) DueSoon(ctx context.Context, window time.Duration) ([]model.Todo, error) {
	now := s.now()
	return s.repo.ListDueBetween(ctx, now, now.Add(window))
}
