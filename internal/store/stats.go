package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type statsRepo struct {
	db *gorm.DB
}

func (r *statsRepo) Global(ctx context.Context) (GlobalStats, error) {
	db := r.db.WithContext(ctx)
	var s GlobalStats

	counts := []struct {
		dst   *int64
		model any
		where []any
	}{
		{&s.Users, &User{}, nil},
		{&s.Sessions, &LearningSession{}, nil},
		{&s.ActiveSessions, &LearningSession{}, []any{"state = ?", SessionActive}},
		{&s.Attempts, &QuestionAttempt{}, nil},
		{&s.LLMRequests, &LLMRequestEvent{}, nil},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if len(c.where) > 0 {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return s, fmt.Errorf("count %T: %w", c.model, err)
		}
	}

	if s.Attempts > 0 {
		var correct, fallback int64
		if err := db.Model(&QuestionAttempt{}).Where("is_correct = ?", true).Count(&correct).Error; err != nil {
			return s, fmt.Errorf("count correct attempts: %w", err)
		}
		if err := db.Model(&QuestionAttempt{}).Where("source = ?", SourceFallback).Count(&fallback).Error; err != nil {
			return s, fmt.Errorf("count fallback attempts: %w", err)
		}
		s.CorrectRate = float64(correct) / float64(s.Attempts) * 100
		s.FallbackRate = float64(fallback) / float64(s.Attempts) * 100
	}
	return s, nil
}
