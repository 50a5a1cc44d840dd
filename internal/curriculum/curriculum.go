// Package curriculum is the built-in course: one theory module per
// difficulty level, seeded into the catalog as topics and lessons.
package curriculum

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/riskbot/internal/difficulty"
	"github.com/abhisek/riskbot/internal/store"
)

// Module is the theory part of a lesson.
type Module struct {
	Level       int
	Topic       string
	Description string
	Lesson      string
	// Theory is Telegram HTML.
	Theory     string
	Objectives []string
	Minutes    int
}

// Modules returns the course in level order.
func Modules() []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	return out
}

// ForLevel returns the module of level. Unknown levels get level 1.
func ForLevel(level int) Module {
	for _, m := range modules {
		if m.Level == level {
			return m
		}
	}
	return modules[0]
}

// LessonFlow describes how a lesson at a level is run.
type LessonFlow struct {
	Module             Module
	QuestionsPerLesson int
	PassThreshold      int
	ScenariosEnabled   bool
}

// Flow combines the module with the configured lesson thresholds.
// Scenario questions begin at level 3.
func Flow(level, questionsPerLesson, passThreshold int) LessonFlow {
	return LessonFlow{
		Module:             ForLevel(level),
		QuestionsPerLesson: questionsPerLesson,
		PassThreshold:      passThreshold,
		ScenariosEnabled:   level >= 3,
	}
}

// Validate checks that every difficulty level has exactly one module.
func Validate(ms []Module) error {
	seen := make(map[int]bool, len(ms))
	for _, m := range ms {
		if m.Level < difficulty.MinLevel || m.Level > difficulty.MaxLevel {
			return fmt.Errorf("module %q has level %d out of range", m.Topic, m.Level)
		}
		if seen[m.Level] {
			return fmt.Errorf("duplicate module for level %d", m.Level)
		}
		if m.Theory == "" || m.Lesson == "" {
			return fmt.Errorf("module for level %d is incomplete", m.Level)
		}
		seen[m.Level] = true
	}
	for l := difficulty.MinLevel; l <= difficulty.MaxLevel; l++ {
		if !seen[l] {
			return fmt.Errorf("no module for level %d", l)
		}
	}
	return nil
}

// Seed writes the course into the catalog. It is idempotent: existing
// topics and lessons are matched by title and updated.
func Seed(ctx context.Context, catalog store.CatalogRepo, logger *slog.Logger) error {
	if err := Validate(modules); err != nil {
		return err
	}
	for i, m := range modules {
		topic := &store.Topic{
			Title:           m.Topic,
			Description:     m.Description,
			DifficultyLevel: m.Level,
			OrderIndex:      i,
			IsActive:        true,
		}
		if err := catalog.UpsertTopic(ctx, topic); err != nil {
			return fmt.Errorf("seed topic %d: %w", m.Level, err)
		}
		lesson := &store.Lesson{
			TopicID:                  topic.ID,
			Title:                    m.Lesson,
			Description:              m.Description,
			Content:                  m.Theory,
			DifficultyLevel:          m.Level,
			OrderIndex:               0,
			EstimatedDurationMinutes: m.Minutes,
			LearningObjectives:       m.Objectives,
			IsActive:                 true,
		}
		if err := catalog.UpsertLesson(ctx, lesson); err != nil {
			return fmt.Errorf("seed lesson %d: %w", m.Level, err)
		}
	}
	if logger != nil {
		logger.Info("curriculum seeded", slog.Int("modules", len(modules)))
	}
	return nil
}

// ProgressLine renders the in-lesson status line.
func ProgressLine(theoryDone bool, answered, correct int) string {
	if !theoryDone {
		return "📚 Изучите теоретическую часть"
	}
	if answered == 0 {
		return "✅ Теория изучена • 🎯 Готов к вопросам"
	}
	accuracy := float64(correct) / float64(answered) * 100
	return fmt.Sprintf("✅ Теория изучена • 🎯 Вопросов: %d • 📊 Точность: %.0f%%", answered, accuracy)
}
