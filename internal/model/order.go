package model

import "time"

// MoveResult tells whether Move changed the order.
type MoveResult int

const (
	MoveUnchanged MoveResult = iota
	MoveApplied
	MoveNotFound
)

// Move performs a drag-and-drop: the todo with activeID is taken out of the
// list and reinserted at the position overID held. Every todo is then
// renumbered to its zero-based position and its UpdatedAt refreshed.
// The input slice is never modified.
func Move(todos []Todo, activeID, overID uint, now time.Time) ([]Todo, MoveResult) {
	from, to := IndexOf(todos, activeID), IndexOf(todos, overID)
	if from < 0 || to < 0 {
		return todos, MoveNotFound
	}
	if activeID == overID {
		return todos, MoveUnchanged
	}

	moved := make([]Todo, 0, len(todos))
	moved = append(moved, todos[:from]...)
	moved = append(moved, todos[from+1:]...)
	moved = append(moved[:to], append([]Todo{todos[from]}, moved[to:]...)...)

	Renumber(moved, now)
	return moved, MoveApplied
}

// Renumber assigns dense zero-based order indexes in slice order.
func Renumber(todos []Todo, now time.Time) {
	for i := range todos {
		todos[i].OrderIndex = i
		todos[i].UpdatedAt = now
	}
}

// IndexOf returns the position of id in todos or -1.
func IndexOf(todos []Todo, id uint) int {
	for i := range todos {
		if todos[i].ID == id {
			return i
		}
	}
	return -1
}

// IDs lists the ids of todos in order.
func IDs(todos []Todo) []uint {
	ids := make([]uint, len(todos))
	for i, t := range todos {
		ids[i] = t.ID
	}
	return ids
}
