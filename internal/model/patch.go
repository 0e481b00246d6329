package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Field is an optional patch value. A zero Field leaves the target untouched;
// a set Field with a nil Value clears it.
type Field[T any] struct {
	Set   bool
	Value *T
}

// Some sets the field to v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Null clears the field.
func Null[T any]() Field[T] {
	return Field[T]{Set: true}
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*f.Value)
}

// UnmarshalJSON is only called for keys present in the document, which is
// what distinguishes "null" from "absent".
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

// Patch is a partial update. CompletedAt is deliberately absent: completion
// only changes through SetCompleted / toggling.
type Patch struct {
	Title       Field[string]    `json:"title"`
	Description Field[string]    `json:"description"`
	Priority    Field[Priority]  `json:"priority"`
	DueAt       Field[time.Time] `json:"dueAt"`
}

// MarshalJSON emits only the fields that are set.
func (p Patch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4)
	if p.Title.Set {
		out["title"] = p.Title
	}
	if p.Description.Set {
		out["description"] = p.Description
	}
	if p.Priority.Set {
		out["priority"] = p.Priority
	}
	if p.DueAt.Set {
		out["dueAt"] = p.DueAt
	}
	return json.Marshal(out)
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Priority.Set && !p.DueAt.Set
}

// ApplyTo merges the set fields into t and refreshes UpdatedAt.
func (p Patch) ApplyTo(t *Todo, now time.Time) {
	if p.Title.Set && p.Title.Value != nil {
		t.Title = *p.Title.Value
	}
	if p.Description.Set {
		t.Description = copyPtr(p.Description.Value)
	}
	if p.Priority.Set {
		t.Priority = copyPtr(p.Priority.Value)
	}
	if p.DueAt.Set {
		t.DueAt = copyPtr(p.DueAt.Value)
	}
	t.UpdatedAt = now
}

// Columns returns the column/value map gorm needs to persist the patch.
func (p Patch) Columns(now time.Time) map[string]any {
	cols := map[string]any{"updated_at": now}
	if p.Title.Set && p.Title.Value != nil {
		cols["title"] = *p.Title.Value
	}
	if p.Description.Set {
		cols["description"] = p.Description.Value
	}
	if p.Priority.Set {
		cols["priority"] = p.Priority.Value
	}
	if p.DueAt.Set {
		cols["due_at"] = p.DueAt.Value
	}
	return cols
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
