package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type attemptRepo struct {
	db *gorm.DB
}

func (r *attemptRepo) Record(ctx context.Context, rec AttemptRecord) (*UserProgress, error) {
	var progress UserProgress

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt := rec.Attempt
		if attempt.CreatedAt.IsZero() {
			attempt.CreatedAt = time.Now()
		}
		at := attempt.CreatedAt

		if err := tx.Create(&attempt).Error; err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}

		c := rec.Counters
		res := tx.Model(&LearningSession{}).Where("id = ?", attempt.SessionID).Updates(map[string]any{
			"total_questions_answered": c.TotalQuestionsAnswered,
			"correct_answers":          c.CorrectAnswers,
			"current_streak":           c.CurrentStreak,
			"max_streak":               c.MaxStreak,
			"consecutive_incorrect":    c.ConsecutiveIncorrect,
			"last_activity_at":         at,
		})
		if res.Error != nil {
			return fmt.Errorf("update session counters: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("update session %d: %w", attempt.SessionID, ErrNotFound)
		}

		if rec.NewLevel > 0 {
			res := tx.Model(&User{}).Where("id = ?", attempt.UserID).Update("current_difficulty_level", rec.NewLevel)
			if res.Error != nil {
				return fmt.Errorf("update difficulty: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("update user %d: %w", attempt.UserID, ErrNotFound)
			}
		}

		p, err := upsertProgress(tx, attempt.UserID, rec.LessonID, attempt.IsCorrect, at)
		if err != nil {
			return err
		}
		progress = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// upsertProgress counts one attempt against the (user, lesson) row. A
// completed lesson keeps its status; anything else moves to in_progress.
func upsertProgress(tx *gorm.DB, userID, lessonID uint, correct bool, at time.Time) (*UserProgress, error) {
	var p UserProgress
	err := tx.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		p = UserProgress{
			UserID:         userID,
			LessonID:       lessonID,
			Status:         ProgressInProgress,
			FirstAttemptAt: &at,
		}
	case err != nil:
		return nil, fmt.Errorf("load progress: %w", err)
	}

	p.TotalAttempts++
	if correct {
		p.CorrectAttempts++
	}
	p.AverageScore = float64(p.CorrectAttempts) / float64(p.TotalAttempts) * 100
	p.LastAttemptAt = &at
	if p.Status != ProgressCompleted {
		p.Status = ProgressInProgress
	}

	if err := tx.Save(&p).Error; err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	return &p, nil
}

func (r *attemptRepo) ListByUser(ctx context.Context, userID uint, opts QueryOpts) ([]QuestionAttempt, error) {
	q := applyOpts(r.db.WithContext(ctx).Where("user_id = ?", userID), opts)
	var out []QuestionAttempt
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return out, nil
}

func (r *attemptRepo) ListBySession(ctx context.Context, sessionID uint) ([]QuestionAttempt, error) {
	var out []QuestionAttempt
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list session attempts: %w", err)
	}
	return out, nil
}

func (r *attemptRepo) Daily(ctx context.Context, userID uint, now time.Time, days int) ([]DayStats, error) {
	if days <= 0 {
		return nil, nil
	}
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	out := make([]DayStats, days)
	for i := range out {
		out[i].Day = first.AddDate(0, 0, i)
	}

	// Bucketed in Go; day functions differ between SQLite and Postgres.
	var rows []struct {
		CreatedAt time.Time
		IsCorrect bool
	}
	err := r.db.WithContext(ctx).Model(&QuestionAttempt{}).
		Select("created_at", "is_correct").
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, first, first.AddDate(0, 0, days)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("daily attempts: %w", err)
	}
	for _, row := range rows {
		i := int(row.CreatedAt.UTC().Sub(first) / (24 * time.Hour))
		if i < 0 || i >= days {
			continue
		}
		out[i].Total++
		if row.IsCorrect {
			out[i].Correct++
		}
	}
	return out, nil
}

// applyOpts adds QueryOpts filters and orders newest first.
func applyOpts(q *gorm.DB, opts QueryOpts) *gorm.DB {
	if opts.After > 0 {
		q = q.Where("id > ?", opts.After)
	}
	if opts.Before > 0 {
		q = q.Where("id < ?", opts.Before)
	}
	if !opts.From.IsZero() {
		q = q.Where("created_at >= ?", opts.From)
	}
	if !opts.To.IsZero() {
		q = q.Where("created_at <= ?", opts.To)
	}
	q = q.Order("id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	return q
}
