package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) GetOrCreate(ctx context.Context, p TelegramProfile) (*User, bool, error) {
	var u User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", p.TelegramID).First(&u).Error
	if err == nil {
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	now := time.Now()
	u = User{
		TelegramID:             p.TelegramID,
		Username:               p.Username,
		FirstName:              p.FirstName,
		LastName:               p.LastName,
		CurrentDifficultyLevel: 1,
		PreferredLanguage:      "ru",
		NotificationsEnabled:   true,
		LastActivity:           now,
	}
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		// A concurrent first contact may have inserted the row.
		var existing User
		if lookupErr := r.db.WithContext(ctx).Where("telegram_id = ?", p.TelegramID).First(&existing).Error; lookupErr == nil {
			return &existing, false, nil
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return &u, true, nil
}

func (r *userRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepo) Get(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepo) SetDifficulty(ctx context.Context, userID uint, level int) error {
	return r.update(ctx, userID, "current_difficulty_level", level)
}

func (r *userRepo) SetNotifications(ctx context.Context, userID uint, enabled bool) error {
	return r.update(ctx, userID, "notifications_enabled", enabled)
}

func (r *userRepo) Touch(ctx context.Context, userID uint, at time.Time) error {
	return r.update(ctx, userID, "last_activity", at)
}

func (r *userRepo) update(ctx context.Context, userID uint, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) Inactive(ctx context.Context, cutoff time.Time) ([]User, error) {
	var users []User
	err := r.db.WithContext(ctx).
		Where("notifications_enabled = ? AND last_activity < ?", true, cutoff).
		Order("last_activity ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("query inactive users: %w", err)
	}
	return users, nil
}
