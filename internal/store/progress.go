package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type progressRepo struct {
	db *gorm.DB
}

func (r *progressRepo) Get(ctx context.Context, userID, lessonID uint) (*UserProgress, error) {
	var p UserProgress
	err := r.db.WithContext(ctx).Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *progressRepo) Finish(ctx context.Context, userID, lessonID, sessionID uint, status string, score float64, at time.Time) (*UserProgress, error) {
	if status != ProgressCompleted && status != ProgressNeedsReview {
		return nil, fmt.Errorf("invalid final status %q", status)
	}

	var p UserProgress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = UserProgress{UserID: userID, LessonID: lessonID, FirstAttemptAt: &at, LastAttemptAt: &at}
		} else if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}

		p.Status = status
		p.AverageScore = score
		if status == ProgressCompleted {
			p.CompletionPercentage = 100
			p.CompletedAt = &at
		} else {
			p.CompletionPercentage = score
		}
		if err := tx.Save(&p).Error; err != nil {
			return fmt.Errorf("save progress: %w", err)
		}

		return completeSession(tx, sessionID, SessionCompleted, at)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *progressRepo) ListByUser(ctx context.Context, userID uint) ([]UserProgress, error) {
	var out []UserProgress
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("lesson_id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return out, nil
}

func (r *progressRepo) Summary(ctx context.Context, userID uint) (ProgressSummary, error) {
	db := r.db.WithContext(ctx)
	var s ProgressSummary

	var user User
	if err := db.First(&user, userID).Error; err != nil {
		return s, notFound(err)
	}
	s.CurrentLevel = user.CurrentDifficultyLevel

	var counts []struct {
		Status string
		N      int
	}
	if err := db.Model(&UserProgress{}).
		Select("status, count(*) AS n").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return s, fmt.Errorf("count progress: %w", err)
	}
	for _, c := range counts {
		switch c.Status {
		case ProgressCompleted:
			s.CompletedLessons = c.N
		case ProgressNeedsReview:
			s.NeedsReview = c.N
		}
	}

	var totals struct {
		Total   int
		Correct int
	}
	if err := db.Model(&QuestionAttempt{}).
		Select("count(*) AS total, coalesce(sum(CASE WHEN is_correct THEN 1 ELSE 0 END), 0) AS correct").
		Where("user_id = ?", userID).
		Scan(&totals).Error; err != nil {
		return s, fmt.Errorf("count attempts: %w", err)
	}
	s.TotalAttempts = totals.Total
	s.CorrectAttempts = totals.Correct

	var sessions []LearningSession
	if err := db.Where("user_id = ?", userID).Find(&sessions).Error; err != nil {
		return s, fmt.Errorf("load sessions: %w", err)
	}
	for i := range sessions {
		s.StudyTime += sessions[i].Duration()
	}

	return s, nil
}

func (r *progressRepo) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []struct {
		ID                     uint
		FirstName              string
		Username               string
		CurrentDifficultyLevel int
		CompletedLessons       int
		AvgScore               float64
	}
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.first_name, users.username, users.current_difficulty_level, " +
			"count(user_progress.id) AS completed_lessons, coalesce(avg(user_progress.average_score), 0) AS avg_score").
		Joins("JOIN user_progress ON user_progress.user_id = users.id").
		Where("user_progress.status = ?", ProgressCompleted).
		Group("users.id, users.first_name, users.username, users.current_difficulty_level").
		Order("completed_lessons DESC, avg_score DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	out := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		u := User{FirstName: row.FirstName, Username: row.Username}
		out[i] = LeaderboardEntry{
			Rank:             i + 1,
			UserID:           row.ID,
			Name:             u.DisplayName(),
			Level:            row.CurrentDifficultyLevel,
			CompletedLessons: row.CompletedLessons,
			AverageScore:     row.AvgScore,
		}
	}
	return out, nil
}
