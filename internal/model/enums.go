package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the derived state of a todo. It is never stored.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// ParseStatus accepts one of pending, completed or overdue.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusCompleted, StatusOverdue:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

// Priority ranks a todo from 0 (urgent) to 3 (low).
type Priority int

const (
	PriorityUrgent Priority = 0
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3

	// PriorityNone is only meaningful as a filter selector: it matches todos
	// without a priority. It is never stored on a todo.
	PriorityNone Priority = -1
)

// ParsePriority accepts 0-3 or "none".
func ParsePriority(raw string) (Priority, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "none" || raw == "null" {
		return PriorityNone, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < int(PriorityUrgent) || n > int(PriorityLow) {
		return 0, fmt.Errorf("unknown priority %q", raw)
	}
	return Priority(n), nil
}

// Ptr returns a pointer to a copy of p, handy for filling Todo.Priority.
func (p Priority) Ptr() *Priority {
	return &p
}

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityNone:
		return "none"
	default:
		return strconv.Itoa(int(p))
	}
}

// PriorityLabel renders an optional priority for humans.
func PriorityLabel(p *Priority) string {
	if p == nil {
		return "No priority"
	}
	switch *p {
	case PriorityUrgent:
		return "Urgent"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return "No priority"
	}
}

// SortField is a column the list can be ordered by.
type SortField string

const (
	SortOrderIndex SortField = "orderIndex"
	SortPriority   SortField = "priority"
	SortDueAt      SortField = "dueAt"
	SortCreatedAt  SortField = "createdAt"
	SortTitle      SortField = "title"
)

// SortFields lists every sort field in display order.
var SortFields = []SortField{SortOrderIndex, SortPriority, SortDueAt, SortCreatedAt, SortTitle}

var sortColumns = map[SortField]string{
	SortOrderIndex: "order_index",
	SortPriority:   "priority",
	SortDueAt:      "due_at",
	SortCreatedAt:  "created_at",
	SortTitle:      "title",
}

// ParseSortField accepts the camelCase field names; empty means orderIndex.
func ParseSortField(raw string) (SortField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SortOrderIndex, nil
	}
	for _, f := range SortFields {
		if strings.EqualFold(raw, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", raw)
}

// Column is the database column backing the field.
func (f SortField) Column() string {
	if c, ok := sortColumns[f]; ok {
		return c
	}
	return sortColumns[SortOrderIndex]
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection accepts asc or desc; empty means asc.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", raw)
	}
}

// Flip returns the opposite direction.
func (d SortDirection) Flip() SortDirection {
	if d == SortDesc {
		return SortAsc
	}
	return SortDesc
}
