package session

import (
	"fmt"

	"github.com/abhisek/riskbot/internal/difficulty"
	"github.com/abhisek/riskbot/internal/questiongen"
)

// Feedback composes the reply to an answer.
func Feedback(q *questiongen.Question, correct bool, t difficulty.Transition) string {
	var text string
	if correct {
		text = "✅ Правильно! " + q.Explanation
	} else {
		text = fmt.Sprintf("❌ Неправильно. Правильный ответ: %s\n\n💡 %s", q.CorrectOption(), q.Explanation)
	}
	return text + levelLine(t)
}

func skipFeedback(q *questiongen.Question, t difficulty.Transition) string {
	return fmt.Sprintf("⏭ Вопрос пропущен. Правильный ответ: %s\n\n💡 %s", q.CorrectOption(), q.Explanation) + levelLine(t)
}

func levelLine(t difficulty.Transition) string {
	switch t.Direction {
	case difficulty.DirectionUp:
		return fmt.Sprintf("\n\n⬆️ Уровень повышен: %s → %s", difficulty.Name(t.From), difficulty.Name(t.Level))
	case difficulty.DirectionDown:
		return fmt.Sprintf("\n\n⬇️ Уровень понижен: %s → %s", difficulty.Name(t.From), difficulty.Name(t.Level))
	default:
		return ""
	}
}

// CompletionMessage renders the end-of-lesson headline.
func CompletionMessage(passed bool, successRate float64, threshold int) string {
	if passed {
		return fmt.Sprintf("🎉 Урок завершен успешно!\n📊 Результат: %.1f%%", successRate)
	}
	return fmt.Sprintf("📚 Необходимо повторение\n📊 Результат: %.1f%% (требуется %d%%)", successRate, threshold)
}

// SuccessRate is correct/answered as a percentage.
func SuccessRate(answered, correct int) float64 {
	if answered == 0 {
		return 0
	}
	return float64(correct) / float64(answered) * 100
}

// Passed applies the pass threshold in integer arithmetic so 4 of 5 at 80%
// passes exactly.
func Passed(answered, correct, threshold int) bool {
	if answered == 0 {
		return false
	}
	return correct*100 >= threshold*answered
}
