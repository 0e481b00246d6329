package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todolist/internal/model"
)

// TodoRepository handles CRUD for todos.
type TodoRepository struct {
	db *gorm.DB
}

func NewTodoRepository(db *gorm.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// List returns the todos matching the filters in the requested order.
func (r *TodoRepository) List(ctx context.Context, filters model.Filters, now time.Time) ([]model.Todo, error) {
	var todos []model.Todo
	if err := r.db.WithContext(ctx).Scopes(filterScopes(filters, now)...).Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

func (r *TodoRepository) FindByID(ctx context.Context, id uint) (*model.Todo, error) {
	var todo model.Todo
	err := r.db.WithContext(ctx).First(&todo, id).Error
	switch {
	case err == nil:
		return &todo, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find todo %d: %w", id, model.ErrNotFound)
	default:
		return nil, fmt.Errorf("find todo %d: %w", id, err)
	}
}

// ExistsByTitle reports whether a todo with exactly this title is stored.
func (r *TodoRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Todo{}).Where("title = ?", title).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count todos by title: %w", err)
	}
	return count > 0, nil
}

// Create stores the todo at the end of the manual order.
func (r *TodoRepository) Create(ctx context.Context, todo *model.Todo) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&model.Todo{}).Select("COALESCE(MAX(order_index), -1)").Row().Scan(&last); err != nil {
			return err
		}
		todo.OrderIndex = last + 1
		todo.SearchText = searchText(*todo)
		return tx.Create(todo).Error
	})
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

// Update writes the patched columns and returns the stored record.
// The search text is rebuilt from the stored title and description.
func (r *TodoRepository) Update(ctx context.Context, id uint, patch model.Patch, now time.Time) (*model.Todo, error) {
	var todo model.Todo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Todo{}).Where("id = ?", id).Updates(patch.Columns(now))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrNotFound
		}
		if err := tx.First(&todo, id).Error; err != nil {
			return err
		}
		todo.SearchText = searchText(todo)
		return tx.Model(&todo).UpdateColumn("search_text", todo.SearchText).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update todo %d: %w", id, err)
	}
	return &todo, nil
}

// SetCompletedAt stores the completion time; nil marks the todo as open again.
func (r *TodoRepository) SetCompletedAt(ctx context.Context, id uint, completedAt *time.Time, now time.Time) (*model.Todo, error) {
	res := r.db.WithContext(ctx).Model(&model.Todo{}).Where("id = ?", id).
		Updates(map[string]any{"completed_at": completedAt, "updated_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("complete todo %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("complete todo %d: %w", id, model.ErrNotFound)
	}
	return r.FindByID(ctx, id)
}

func (r *TodoRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Todo{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete todo %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete todo %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// SaveOrder gives every listed todo its position as order index, all or nothing.
func (r *TodoRepository) SaveOrder(ctx context.Context, ids []uint, now time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			res := tx.Model(&model.Todo{}).Where("id = ?", id).
				Updates(map[string]any{"order_index": i, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("todo %d: %w", id, model.ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// ListDueBetween returns open todos with a due date in [from, to).
func (r *TodoRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Todo, error) {
	var todos []model.Todo
	if err := r.db.WithContext(ctx).
		Where("completed_at IS NULL AND due_at >= ? AND due_at < ?", from, to).
		Order("due_at ASC").Order("id ASC").
		Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list due todos: %w", err)
	}
	return todos, nil
}

// Stats counts todos per status. Pending includes overdue todos.
func (r *TodoRepository) Stats(ctx context.Context, now time.Time) (model.Stats, error) {
	var stats model.Stats
	db := r.db.WithContext(ctx).Model(&model.Todo{})
	counts := []struct {
		dst   *int64
		where []any
	}{
		{&stats.Total, nil},
		{&stats.Completed, []any{"completed_at IS NOT NULL"}},
		{&stats.Pending, []any{"completed_at IS NULL"}},
		{&stats.Overdue, []any{"completed_at IS NULL AND due_at < ?", now}},
	}
	for _, c := range counts {
		q := db.Session(&gorm.Session{})
		if len(c.where) > 0 {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return model.Stats{}, fmt.Errorf("count todos: %w", err)
		}
	}
	return stats, nil
}
