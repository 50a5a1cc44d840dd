// Package difficulty holds the adaptive level policy: a pure transition
// function with hysteresis, level names and per-level query keywords.
package difficulty

import "fmt"

const (
	// MinLevel and MaxLevel bound every difficulty level.
	MinLevel = 1
	MaxLevel = 5

	// ShiftStreak is how many consecutive answers of the same correctness
	// are needed before the level moves.
	ShiftStreak = 2
)

// Direction of a level change.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionNone Direction = "none"
)

// Transition is the outcome of Next.
type Transition struct {
	From    int
	Level   int
	Changed bool
	// Direction is DirectionNone when the level did not change.
	Direction Direction
	// Reason is user-facing text, empty when nothing noteworthy happened.
	Reason string
}

var names = map[int]string{
	1: "Начинающий",
	2: "Базовый",
	3: "Продвинутый",
	4: "Эксперт",
	5: "Мастер",
}

var keywords = map[int][]string{
	1: {"основы", "что такое", "определение"},
	2: {"процедуры", "как", "методы"},
	3: {"анализ", "оценка", "сценарии"},
	4: {"расчет", "формула", "сложные"},
	5: {"экспертные", "принятие решений", "комплексные"},
}

// Clamp forces level into [MinLevel, MaxLevel].
func Clamp(level int) int {
	switch {
	case level < MinLevel:
		return MinLevel
	case level > MaxLevel:
		return MaxLevel
	default:
		return level
	}
}

// Name returns the display name of a level. Out-of-range levels are clamped.
func Name(level int) string {
	return names[Clamp(level)]
}

// Label renders "3 (Продвинутый)".
func Label(level int) string {
	level = Clamp(level)
	return fmt.Sprintf("%d (%s)", level, names[level])
}

// Keywords returns the topic-focus keywords for a level. Unknown levels get
// the level 1 set.
func Keywords(level int) []string {
	kw, ok := keywords[level]
	if !ok {
		kw = keywords[MinLevel]
	}
	out := make([]string, len(kw))
	copy(out, kw)
	return out
}

// Next computes the level after an answer. consecutiveCorrect and
// consecutiveIncorrect already include the current answer. After a change
// the caller resets the streak that caused it.
func Next(current int, isCorrect bool, consecutiveCorrect, consecutiveIncorrect int) Transition {
	current = Clamp(current)
	t := Transition{From: current, Level: current, Direction: DirectionNone}

	if isCorrect {
		if consecutiveCorrect < ShiftStreak {
			return t
		}
		if current == MaxLevel {
			t.Reason = "Достигнут максимальный уровень"
			return t
		}
		t.Level = current + 1
		t.Changed = true
		t.Direction = DirectionUp
		t.Reason = "Уровень повышен до " + names[t.Level]
		return t
	}

	if consecutiveIncorrect < ShiftStreak {
		return t
	}
	if current == MinLevel {
		t.Reason = "Достигнут минимальный уровень"
		return t
	}
	t.Level = current - 1
	t.Changed = true
	t.Direction = DirectionDown
	t.Reason = "Уровень понижен до " + names[t.Level]
	return t
}
