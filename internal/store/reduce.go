package store

import (
	"time"

	"todolist/internal/model"
)

// The functions below are pure: they never modify the slice they are given
// and return a new one when something changed.

// Append adds a todo at the end.
func Append(todos []model.Todo, todo model.Todo) []model.Todo {
	out := make([]model.Todo, len(todos), len(todos)+1)
	copy(out, todos)
	return append(out, todo)
}

// Replace swaps the todo with the same id for todo.
func Replace(todos []model.Todo, todo model.Todo) ([]model.Todo, bool) {
	i := model.IndexOf(todos, todo.ID)
	if i < 0 {
		return todos, false
	}
	out := clone(todos)
	out[i] = todo
	return out, true
}

// Apply merges patch into the todo with id and refreshes its UpdatedAt.
func Apply(todos []model.Todo, id uint, patch model.Patch, now time.Time) ([]model.Todo, bool) {
	i := model.IndexOf(todos, id)
	if i < 0 {
		return todos, false
	}
	out := clone(todos)
	patch.ApplyTo(&out[i], now)
	return out, true
}

// Toggle completes an open todo at now or reopens a completed one.
func Toggle(todos []model.Todo, id uint, now time.Time) ([]model.Todo, bool) {
	i := model.IndexOf(todos, id)
	if i < 0 {
		return todos, false
	}
	out := clone(todos)
	if out[i].CompletedAt != nil {
		out[i].CompletedAt = nil
	} else {
		at := now
		out[i].CompletedAt = &at
	}
	out[i].UpdatedAt = now
	return out, true
}

// Remove drops the todo with id.
func Remove(todos []model.Todo, id uint) ([]model.Todo, bool) {
	i := model.IndexOf(todos, id)
	if i < 0 {
		return todos, false
	}
	out := make([]model.Todo, 0, len(todos)-1)
	out = append(out, todos[:i]...)
	return append(out, todos[i+1:]...), true
}

// Move is the drag-and-drop reorder, see model.Move.
func Move(todos []model.Todo, activeID, overID uint, now time.Time) ([]model.Todo, model.MoveResult) {
	return model.Move(todos, activeID, overID, now)
}

// RestoreOrder undoes a move on the current collection. Todos also found in
// prev go back to prev's positions and order indexes; UpdatedAt is reset
// only where it still carries movedAt. Todos added since follow at the end.
func RestoreOrder(current, prev []model.Todo, movedAt time.Time) []model.Todo {
	out := make([]model.Todo, 0, len(current))
	for _, p := range prev {
		i := model.IndexOf(current, p.ID)
		if i < 0 {
			continue
		}
		t := current[i]
		t.OrderIndex = p.OrderIndex
		if t.UpdatedAt.Equal(movedAt) {
			t.UpdatedAt = p.UpdatedAt
		}
		out = append(out, t)
	}
	for _, t := range current {
		if model.IndexOf(prev, t.ID) < 0 {
			out = append(out, t)
		}
	}
	return out
}

func clone(todos []model.Todo) []model.Todo {
	out := make([]model.Todo, len(todos))
	copy(out, todos)
	return out
}
