package assistant

import (
	"fmt"
	"strings"

	"github.com/abhisek/riskbot/internal/knowledge"
)

// instructions vary the system prompt by query type.
var instructions = map[string]string{
	knowledge.QueryDefinition:  "Дайте четкое определение термина и объясните его значение в контексте банковских рисков.",
	knowledge.QueryInstruction: "Предоставьте пошаговые инструкции по выполнению действий.",
	knowledge.QueryExplanation: "Объясните причины и механизмы явления.",
	knowledge.QueryCalculation: "Объясните формулы и приведите примеры расчетов.",
	knowledge.QueryExample:     "Приведите конкретные примеры и сценарии.",
	knowledge.QueryGeneral:     "Дайте полный и понятный ответ на вопрос.",
}

func systemPrompt(queryType string) string {
	instr, ok := instructions[queryType]
	if !ok {
		instr = instructions[knowledge.QueryGeneral]
	}
	return "Вы - эксперт по управлению рисками непрерывности деятельности банка.\n" +
		instr + "\n\n" +
		"Используйте предоставленную информацию из методики банка.\n" +
		"Отвечайте четко, профессионально и практично.\n" +
		"Если информации недостаточно, честно об этом скажите.\n" +
		"Форматируйте ответ только тегами <b> и <i>."
}

func userPrompt(contextText, question string) string {
	var b strings.Builder
	b.WriteString("Контекст из методики банка:\n")
	b.WriteString(contextText)
	fmt.Fprintf(&b, "\n\nВопрос: %s\n\n", question)
	b.WriteString("Дайте подробный и практичный ответ на основе методики.")
	return b.String()
}

// contextText joins the first n document contents.
func contextText(docs []knowledge.Document, n int) string {
	parts := make([]string, 0, n)
	for i, d := range docs {
		if i == n {
			break
		}
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n\n")
}

// NoContextReply is sent when retrieval finds nothing.
const NoContextReply = `😔 <b>Извините, я не нашел релевантной информации в методике для ответа на ваш вопрос.</b>

💡 <b>Попробуйте:</b>
• Переформулировать вопрос
• Задать более конкретный вопрос
• Обратиться к специалисту по рискам

❓ <b>Могу помочь с вопросами по:</b>
• Типам угроз непрерывности
• Процедурам оценки рисков
• Расчету времени восстановления
• Планам реагирования на инциденты`

func excerptReply(text string, limit int) string {
	r := []rune(text)
	suffix := ""
	if len(r) > limit {
		r = r[:limit]
		suffix = "..."
	}
	return "📚 <b>Ответ на основе методики банка:</b>\n\n" +
		string(r) + suffix +
		"\n\n💡 <b>Рекомендации:</b>\nИзучите полную методику для получения детальной информации."
}
