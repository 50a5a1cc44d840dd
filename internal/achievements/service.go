// Package achievements derives badges from a learner's progress summary.
package achievements

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/riskbot/internal/store"
)

// SummarySource loads progress summaries. store.ProgressRepo satisfies it.
type SummarySource interface {
	Summary(ctx context.Context, userID uint) (store.ProgressSummary, error)
}

// Service answers achievement queries for a user.
type Service struct {
	progress SummarySource
}

// NewService creates a Service.
func NewService(progress SummarySource) *Service {
	return &Service{progress: progress}
}

// ForUser returns the user's earned achievements.
func (s *Service) ForUser(ctx context.Context, userID uint) ([]Achievement, error) {
	sum, err := s.progress.Summary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress summary: %w", err)
	}
	return Earned(sum), nil
}

// Render formats the achievements screen.
func Render(earned []Achievement) string {
	var b strings.Builder
	b.WriteString("🏆 <b>Ваши достижения</b>\n\n")
	if len(earned) == 0 {
		b.WriteString("Пока нет достижений. Завершите первый урок, чтобы получить награду!")
		return b.String()
	}
	for _, a := range earned {
		b.WriteString(a.String())
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nПолучено: %d из %d", len(earned), len(rules))
	return b.String()
}

// RenderUnlocked formats the lines appended to a completion message.
// It returns "" when nothing was unlocked.
func RenderUnlocked(unlocked []Achievement) string {
	if len(unlocked) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n🏅 <b>Новые достижения:</b>")
	for _, a := range unlocked {
		b.WriteString("\n")
		b.WriteString(a.String())
	}
	return b.String()
}
