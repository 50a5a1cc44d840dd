package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/riskbot/internal/difficulty"
)

// QuerySubject prefixes every retrieval query.
const QuerySubject = "банковские риски"

// MaxContextChars caps the retrieved context embedded in the prompt, in
// runes.
const MaxContextChars = 1500

// PlaceholderContext stands in when retrieval yields nothing.
const PlaceholderContext = "Контекст из методики недоступен. Используй общие знания о рисках непрерывности деятельности банка."

const systemPrompt = `Ты эксперт по управлению рисками непрерывности деятельности банка и составляешь проверочные вопросы для сотрудников.

Правила:
- Составь один вопрос с четырьмя вариантами ответа, ровно один из которых верный.
- Вопрос должен опираться на предоставленный контекст из методики.
- Неверные варианты должны быть правдоподобными и отражать типичные ошибки.
- Сложность вопроса должна соответствовать указанному уровню.
- Пиши на русском языке.
- Ответь только JSON-объектом без пояснений и без Markdown.`

// BuildQuery returns the retrieval query for a level: the subject followed
// by the first two level keywords.
func BuildQuery(level int) string {
	kw := difficulty.Keywords(level)
	if len(kw) > 2 {
		kw = kw[:2]
	}
	return QuerySubject + " " + strings.Join(kw, " ")
}

// focusList is the topic focus shown to the model.
func focusList(level int, topic string) []string {
	focus := difficulty.Keywords(level)
	if topic != "" {
		focus = append([]string{topic}, focus...)
	}
	return focus
}

// buildUserMessage renders the per-turn prompt. nonce varies the prompt so
// provider caches do not return a repeated question.
func buildUserMessage(level int, topic, context, nonce string) string {
	level = difficulty.Clamp(level)
	var b strings.Builder

	fmt.Fprintf(&b, "Уровень сложности: %d (%s)\n", level, difficulty.Name(level))
	fmt.Fprintf(&b, "Фокус темы: %s\n", strings.Join(focusList(level, topic), ", "))
	fmt.Fprintf(&b, "Идентификатор запроса: %s\n", nonce)

	b.WriteString("\nКонтекст из методики:\n")
	b.WriteString(truncateRunes(context, MaxContextChars))

	b.WriteString("\n\nФормат ответа (строго JSON):\n")
	b.WriteString(`{"question": "текст вопроса", "options": ["вариант 1", "вариант 2", "вариант 3", "вариант 4"], "correct_answer": 0, "explanation": "объяснение правильного ответа"}`)
	b.WriteString("\ncorrect_answer это индекс верного варианта от 0 до 3.")

	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
