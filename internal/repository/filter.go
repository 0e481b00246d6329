package repository

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"todolist/internal/model"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// filterScopes turns the filters into gorm scopes. now decides which todos
// count as overdue.
func filterScopes(f model.Filters, now time.Time) []func(*gorm.DB) *gorm.DB {
	f = f.Normalized()
	return []func(*gorm.DB) *gorm.DB{
		searchScope(f.Search),
		statusScope(f.Statuses, now),
		priorityScope(f.Priorities),
		sortScope(f.SortField, f.SortDirection),
	}
}

// searchText folds case in Go so non-ASCII letters match on every driver.
func searchText(todo model.Todo) string {
	text := todo.Title
	if todo.Description != nil {
		text += "\n" + *todo.Description
	}
	return strings.ToLower(text)
}

func searchScope(search string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term := strings.ToLower(strings.TrimSpace(search))
		if term == "" {
			return db
		}
		pattern := "%" + likeEscaper.Replace(term) + "%"
		return db.Where(`search_text LIKE ? ESCAPE '\'`, pattern)
	}
}

func statusScope(statuses []model.Status, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(statuses) == 0 {
			return db
		}
		var (
			branches []string
			args     []any
		)
		for _, s := range statuses {
			switch s {
			case model.StatusCompleted:
				branches = append(branches, "completed_at IS NOT NULL")
			case model.StatusPending:
				branches = append(branches, "(completed_at IS NULL AND (due_at IS NULL OR due_at >= ?))")
				args = append(args, now)
			case model.StatusOverdue:
				branches = append(branches, "(completed_at IS NULL AND due_at < ?)")
				args = append(args, now)
			}
		}
		if len(branches) == 0 {
			return db
		}
		return db.Where("("+strings.Join(branches, " OR ")+")", args...)
	}
}

// priorityScope matches numeric priorities with IN and the "none" selector
// with a separate IS NULL branch.
func priorityScope(priorities []model.Priority) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(priorities) == 0 {
			return db
		}
		var (
			values      []int
			includeNone bool
		)
		for _, p := range priorities {
			if p == model.PriorityNone {
				includeNone = true
				continue
			}
			values = append(values, int(p))
		}
		switch {
		case len(values) > 0 && includeNone:
			return db.Where("(priority IN ? OR priority IS NULL)", values)
		case includeNone:
			return db.Where("priority IS NULL")
		default:
			return db.Where("priority IN ?", values)
		}
	}
}

// sortScope orders by the chosen column with NULLs last in both directions
// and the id as a stable tie-break.
func sortScope(field model.SortField, dir model.SortDirection) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		col := field.Column()
		order := "ASC"
		if dir == model.SortDesc {
			order = "DESC"
		}
		if field == model.SortPriority || field == model.SortDueAt {
			db = db.Order(fmt.Sprintf("CASE WHEN %s IS NULL THEN 1 ELSE 0 END", col))
		}
		return db.Order(col + " " + order).Order("id ASC")
	}
}
