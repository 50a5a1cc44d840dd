package achievements

import (
	"time"

	"github.com/abhisek/riskbot/internal/store"
)

// MinAttemptsForAccuracy is how many answers are needed before accuracy
// counts toward an achievement.
const MinAttemptsForAccuracy = 10

type rule struct {
	Achievement
	earned func(s store.ProgressSummary) bool
}

var rules = []rule{
	{
		Achievement: Achievement{ID: FirstLesson, Title: "Первые шаги", Description: "Завершен первый урок", Icon: "🎯", Rarity: RarityCommon},
		earned:      func(s store.ProgressSummary) bool { return s.CompletedLessons >= 1 },
	},
	{
		Achievement: Achievement{ID: FiveLessons, Title: "Настойчивость", Description: "Завершено 5 уроков", Icon: "🏆", Rarity: RarityRare},
		earned:      func(s store.ProgressSummary) bool { return s.CompletedLessons >= 5 },
	},
	{
		Achievement: Achievement{ID: TenLessons, Title: "Эксперт", Description: "Завершено 10 уроков", Icon: "🥇", Rarity: RarityEpic},
		earned:      func(s store.ProgressSummary) bool { return s.CompletedLessons >= 10 },
	},
	{
		Achievement: Achievement{ID: AccuracyMaster, Title: "Мастер точности", Description: "80%+ правильных ответов", Icon: "🎯", Rarity: RarityEpic},
		earned: func(s store.ProgressSummary) bool {
			return s.TotalAttempts >= MinAttemptsForAccuracy && s.Accuracy() >= 80
		},
	},
	{
		Achievement: Achievement{ID: OneHour, Title: "Час знаний", Description: "Час обучения пройден", Icon: "⏰", Rarity: RarityCommon},
		earned:      func(s store.ProgressSummary) bool { return s.StudyTime >= time.Hour },
	},
	{
		Achievement: Achievement{ID: AdvancedLevel, Title: "Продвинутый уровень", Description: "Достигнут продвинутый уровень", Icon: "🚀", Rarity: RarityRare},
		earned:      func(s store.ProgressSummary) bool { return s.CurrentLevel >= 3 },
	},
	{
		Achievement: Achievement{ID: MasterLevel, Title: "Мастер рисков", Description: "Достигнут мастер-уровень", Icon: "👑", Rarity: RarityLegendary},
		earned:      func(s store.ProgressSummary) bool { return s.CurrentLevel >= 5 },
	},
}

// All returns every achievement in display order.
func All() []Achievement {
	out := make([]Achievement, len(rules))
	for i, r := range rules {
		out[i] = r.Achievement
	}
	return out
}

// Earned returns the achievements a summary qualifies for, in display order.
func Earned(s store.ProgressSummary) []Achievement {
	var out []Achievement
	for _, r := range rules {
		if r.earned(s) {
			out = append(out, r.Achievement)
		}
	}
	return out
}

// NewlyUnlocked returns the achievements earned in after but not in before.
func NewlyUnlocked(before, after store.ProgressSummary) []Achievement {
	had := make(map[ID]bool)
	for _, a := range Earned(before) {
		had[a.ID] = true
	}
	var out []Achievement
	for _, a := range Earned(after) {
		if !had[a.ID] {
			out = append(out, a)
		}
	}
	return out
}
