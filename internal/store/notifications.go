package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type notificationRepo struct {
	db *gorm.DB
}

func (r *notificationRepo) Create(ctx context.Context, n *SystemNotification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *notificationRepo) Due(ctx context.Context, now time.Time, limit int) ([]SystemNotification, error) {
	var out []SystemNotification
	q := r.db.WithContext(ctx).
		Where("is_sent = ? AND gave_up = ? AND scheduled_for <= ?", false, false, now).
		Order("attempts ASC, scheduled_for ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("due notifications: %w", err)
	}
	return out, nil
}

func (r *notificationRepo) MarkSent(ctx context.Context, id uint, at time.Time) error {
	return r.mark(ctx, id, map[string]any{"is_sent": true, "sent_at": at})
}

func (r *notificationRepo) MarkFailed(ctx context.Context, id uint, reason string, giveUp bool) error {
	if rs := []rune(reason); len(rs) > 500 {
		reason = string(rs[:500])
	}
	return r.mark(ctx, id, map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": reason,
		"gave_up":    giveUp,
	})
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uint, at time.Time) error {
	return r.mark(ctx, id, map[string]any{"is_read": true, "read_at": at})
}

func (r *notificationRepo) mark(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&SystemNotification{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update notification %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *notificationRepo) LastOfType(ctx context.Context, userID uint, typ string) (*SystemNotification, error) {
	var n SystemNotification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND notification_type = ?", userID, typ).
		Order("scheduled_for DESC, id DESC").
		First(&n).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}
