package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type catalogRepo struct {
	db *gorm.DB
}

// UpsertTopic inserts the topic or updates the one with the same title.
func (r *catalogRepo) UpsertTopic(ctx context.Context, t *Topic) error {
	var existing Topic
	err := r.db.WithContext(ctx).Where("title = ?", t.Title).First(&existing).Error
	switch {
	case err == nil:
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("lookup topic: %w", err)
	}
	if err := r.db.WithContext(ctx).Omit("Lessons").Save(t).Error; err != nil {
		return fmt.Errorf("save topic %q: %w", t.Title, err)
	}
	return nil
}

// UpsertLesson inserts the lesson or updates the one with the same topic
// and title.
func (r *catalogRepo) UpsertLesson(ctx context.Context, l *Lesson) error {
	var existing Lesson
	err := r.db.WithContext(ctx).Where("topic_id = ? AND title = ?", l.TopicID, l.Title).First(&existing).Error
	switch {
	case err == nil:
		l.ID = existing.ID
		l.CreatedAt = existing.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("lookup lesson: %w", err)
	}
	if err := r.db.WithContext(ctx).Save(l).Error; err != nil {
		return fmt.Errorf("save lesson %q: %w", l.Title, err)
	}
	return nil
}

func (r *catalogRepo) Topics(ctx context.Context) ([]Topic, error) {
	var topics []Topic
	err := r.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("order_index ASC")
		}).
		Where("is_active = ?", true).
		Order("order_index ASC, id ASC").
		Find(&topics).Error
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

func (r *catalogRepo) Topic(ctx context.Context, id uint) (*Topic, error) {
	var t Topic
	err := r.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }).
		First(&t, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// LessonForLevel returns the first active lesson at the given difficulty.
func (r *catalogRepo) LessonForLevel(ctx context.Context, level int) (*Lesson, error) {
	var l Lesson
	err := r.db.WithContext(ctx).
		Where("difficulty_level = ? AND is_active = ?", level, true).
		Order("order_index ASC, id ASC").
		First(&l).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *catalogRepo) Lesson(ctx context.Context, id uint) (*Lesson, error) {
	var l Lesson
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}
