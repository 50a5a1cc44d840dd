package store

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
)

type chatRepo struct {
	db *gorm.DB
}

func (r *chatRepo) Append(ctx context.Context, msg *ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// Recent returns the last limit messages of a user, oldest first.
func (r *chatRepo) Recent(ctx context.Context, userID uint, limit int) ([]ChatMessage, error) {
	var msgs []ChatMessage
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("recent chat messages: %w", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (r *chatRepo) Rate(ctx context.Context, userID, messageID uint, helpful bool) error {
	res := r.db.WithContext(ctx).Model(&ChatMessage{}).
		Where("id = ? AND user_id = ? AND message_type = ?", messageID, userID, MessageAssistant).
		Update("helpful", helpful)
	if res.Error != nil {
		return fmt.Errorf("rate chat message: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("rate chat message %d: %w", messageID, ErrNotFound)
	}
	return nil
}
