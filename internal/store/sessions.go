package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type sessionRepo struct {
	db *gorm.DB
}

func (r *sessionRepo) Start(ctx context.Context, userID uint, topicID, lessonID *uint) (*LearningSession, error) {
	now := time.Now()
	sess := LearningSession{
		UserID:          userID,
		State:           SessionActive,
		CurrentTopicID:  topicID,
		CurrentLessonID: lessonID,
		AgentState:      map[string]any{},
		StartedAt:       now,
		LastActivityAt:  now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&LearningSession{}).
			Where("user_id = ? AND state = ?", userID, SessionActive).
			Update("state", SessionPaused).Error; err != nil {
			return fmt.Errorf("pause active sessions: %w", err)
		}
		if err := tx.Create(&sess).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *sessionRepo) Active(ctx context.Context, userID uint) (*LearningSession, error) {
	var sess LearningSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND state = ?", userID, SessionActive).
		Order("started_at DESC").
		First(&sess).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}

func (r *sessionRepo) Get(ctx context.Context, id uint) (*LearningSession, error) {
	var sess LearningSession
	if err := r.db.WithContext(ctx).First(&sess, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}

func (r *sessionRepo) Complete(ctx context.Context, id uint, at time.Time) error {
	return completeSession(r.db.WithContext(ctx), id, SessionCompleted, at)
}

func (r *sessionRepo) Abandon(ctx context.Context, id uint, at time.Time) error {
	return completeSession(r.db.WithContext(ctx), id, SessionAbandoned, at)
}

func completeSession(db *gorm.DB, id uint, state string, at time.Time) error {
	res := db.Model(&LearningSession{}).Where("id = ?", id).Updates(map[string]any{
		"state":            state,
		"completed_at":     at,
		"last_activity_at": at,
	})
	if res.Error != nil {
		return fmt.Errorf("set session %d %s: %w", id, state, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID uint) ([]LearningSession, error) {
	var sessions []LearningSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
