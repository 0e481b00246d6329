package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"todolist/internal/model"
)

// SubscriberRepository stores the chats that receive reports.
type SubscriberRepository struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// Subscribe finds or creates the subscriber for chatID, refreshes its profile and activates it.
func (r *SubscriberRepository) Subscribe(ctx context.Context, chatID int64, firstName, username string) (*model.Subscriber, error) {
	var sub model.Subscriber
	db := r.db.WithContext(ctx)
	err := db.Where("chat_id = ?", chatID).First(&sub).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"username":   username,
			"active":     true,
		}
		if err := db.Model(&sub).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update subscriber: %w", err)
		}
		sub.FirstName, sub.Username, sub.Active = firstName, username, true
		return &sub, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = model.Subscriber{
			ChatID:    chatID,
			FirstName: firstName,
			Username:  username,
			Active:    true,
		}
		if err := db.Create(&sub).Error; err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}
		return &sub, nil
	default:
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
}

// Unsubscribe deactivates the chat. Unknown chats are ignored.
func (r *SubscriberRepository) Unsubscribe(ctx context.Context, chatID int64) error {
	if err := r.db.WithContext(ctx).Model(&model.Subscriber{}).
		Where("chat_id = ?", chatID).Update("active", false).Error; err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func (r *SubscriberRepository) ListActive(ctx context.Context) ([]model.Subscriber, error) {
	var subs []model.Subscriber
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return subs, nil
}
