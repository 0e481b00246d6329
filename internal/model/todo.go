package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an operation targets a todo that does not exist.
var ErrNotFound = errors.New("todo not found")

// Todo is a single item of the list.
type Todo struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description *string    `json:"description"`
	Priority    *Priority  `gorm:"index" json:"priority"`
	DueAt       *time.Time `gorm:"index" json:"dueAt"`
	CompletedAt *time.Time `gorm:"index" json:"completedAt"`
	OrderIndex  int        `gorm:"index;not null;default:0" json:"orderIndex"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// SearchText is the lower-cased title and description the search filter matches against.
	SearchText string `gorm:"not null;default:''" json:"-"`
}

// Status derives the status of the todo at the given moment.
func (t Todo) Status(now time.Time) Status {
	switch {
	case t.CompletedAt != nil:
		return StatusCompleted
	case t.DueAt != nil && t.DueAt.Before(now):
		return StatusOverdue
	default:
		return StatusPending
	}
}

// Draft carries the fields accepted when a todo is created.
type Draft struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Priority    *Priority  `json:"priority" validate:"omitempty,min=0,max=3"`
	DueAt       *time.Time `json:"dueAt"`
}

// Stats summarises the whole collection.
type Stats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
	Overdue   int64 `json:"overdue"`
}
