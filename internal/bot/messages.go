package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/abhisek/riskbot/internal/assistant"
	"github.com/abhisek/riskbot/internal/curriculum"
	"github.com/abhisek/riskbot/internal/difficulty"
	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/session"
	"github.com/abhisek/riskbot/internal/store"
)

const welcomeText = `🏦 Добро пожаловать в AI-агент обучения банковским рискам!

Я помогу вам изучить методики управления рисками непрерывности деятельности банка.

🎯 Особенности обучения:
• Адаптивные вопросы по вашему уровню
• Интерактивные сценарии катастроф
• Персональный прогресс
• Помощь AI-ассистента 24/7

Выберите действие в меню ниже 👇`

const helpText = `📚 Инструкция по работе с ботом:

1️⃣ Начните обучение - пройдите адаптивный курс
2️⃣ Задайте вопрос - получите помощь от AI
3️⃣ Проверьте прогресс - узнайте свои достижения

💡 Советы:
• Отвечайте честно на вопросы
• Используйте функцию "Задать вопрос" для получения дополнительной информации
• Обучение сохраняется автоматически
• Получайте напоминания о продолжении курса

❓ Есть вопросы? Просто напишите мне!`

const (
	mainMenuText = "🏠 <b>Главное меню</b>\n\nВыберите действие:"

	askIntroText = `❓ <b>AI-ассистент</b>

Задайте любой вопрос по управлению рисками непрерывности деятельности банка.

Просто напишите вопрос следующим сообщением.`

	noSessionText     = "📚 У вас нет активной сессии обучения.\n\nНачните новое обучение?"
	staleSessionText  = "⌛ Сессия устарела, начните заново"
	errorText         = "😔 Произошла ошибка. Попробуйте еще раз позже."
	generatingText    = "🤖 Генерирую вопрос..."
	difficultyMenuTxt = "🎯 <b>Выберите уровень сложности</b>\n\nУровень определяет сложность генерируемых вопросов:"
	emptyHistoryText  = "📜 История вопросов пуста.\n\nЗадайте первый вопрос AI-ассистенту!"
	topicsText        = "📋 <b>Выберите тему для изучения:</b>"
	learningMenuText  = "🎓 <b>Обучение</b>\n\nВыберите действие:"

	searchUnavailableText = "😔 Поиск временно недоступен"
	suggestionGoneText    = "❌ Вопрос не найден. Задайте его заново."
	feedbackYesText       = "👍 Спасибо за обратную связь! Рад, что смог помочь."
	feedbackNoText        = "👎 Спасибо за обратную связь! Попробуйте переформулировать вопрос."
)

const searchIntroText = `🔍 <b>Поиск в методике</b>

Введите ключевые слова для поиска в методике управления рисками:

💡 <b>Примеры поисковых запросов:</b>
• "время восстановления"
• "техногенные угрозы"
• "матрица рисков"
• "переоценка"
• "аутсорсинг"

📝 <b>Напишите ваш поисковый запрос:</b>`

// searchExcerptRunes bounds each search result excerpt.
const searchExcerptRunes = 200

// startWords open the main menu when sent as plain text.
var startWords = map[string]bool{
	"start": true, "старт": true, "начать": true, "начнем": true, "go": true,
	"поехали": true, "запуск": true, "run": true, "давай": true,
}

func isStartWord(text string) bool {
	return startWords[strings.ToLower(strings.TrimSpace(text))]
}

func theoryText(m curriculum.Module, line string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📖 <b>%s</b>\n", html.EscapeString(m.Lesson))
	fmt.Fprintf(&b, "🎯 Уровень: %s • ⏱ ~%d мин\n\n", difficulty.Label(m.Level), m.Minutes)
	b.WriteString(m.Theory)
	if len(m.Objectives) > 0 {
		b.WriteString("\n\n🎓 <b>Цели урока:</b>\n")
		for _, o := range m.Objectives {
			b.WriteString("• ")
			b.WriteString(html.EscapeString(o))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(line)
	return b.String()
}

func questionText(t *session.Turn) string {
	q := t.Question
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 <b>Вопрос %d/%d (%d уровень)</b>\n", t.Number, t.Total, t.Level)
	topic := q.Topic
	if topic == "" && t.Lesson != nil {
		topic = t.Lesson.Title
	}
	if topic != "" {
		fmt.Fprintf(&b, "📚 <i>%s</i>\n", html.EscapeString(topic))
	}
	fmt.Fprintf(&b, "\n❓ <b>%s</b>\n\n", html.EscapeString(q.Text))
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, html.EscapeString(opt))
	}
	b.WriteString("\nВыберите правильный ответ:")
	return b.String()
}

func progressText(u *store.User, s store.ProgressSummary) string {
	acc := s.Accuracy()
	var b strings.Builder
	b.WriteString("📊 <b>Ваш прогресс</b>\n\n")
	fmt.Fprintf(&b, "👤 <b>Уровень:</b> %s\n", difficulty.Label(u.CurrentDifficultyLevel))
	fmt.Fprintf(&b, "✅ <b>Завершено уроков:</b> %d\n", s.CompletedLessons)
	fmt.Fprintf(&b, "📚 <b>На повторении:</b> %d\n", s.NeedsReview)
	fmt.Fprintf(&b, "🎯 <b>Ответов:</b> %d (верных: %d)\n", s.TotalAttempts, s.CorrectAttempts)
	fmt.Fprintf(&b, "📈 <b>Точность:</b> %.1f%%\n", acc)
	fmt.Fprintf(&b, "⏱ <b>Время обучения:</b> %d мин\n\n", int(s.StudyTime.Minutes()))
	b.WriteString(recommendation(acc))
	return b.String()
}

func recommendation(accuracy float64) string {
	switch {
	case accuracy >= 90:
		return "🎯 <b>Отличные результаты!</b> Вы готовы к более сложным темам."
	case accuracy >= 70:
		return "💪 <b>Хороший прогресс!</b> Продолжайте изучение новых тем."
	case accuracy >= 50:
		return "📚 <b>Есть над чем работать.</b> Рекомендуем повторить материал."
	default:
		return "🎓 <b>Начинайте с основ.</b> Изучите теоретические материалы."
	}
}

func settingsText(u *store.User) string {
	notes := "Отключены"
	if u.NotificationsEnabled {
		notes = "Включены"
	}
	return fmt.Sprintf(`⚙️ <b>Настройки</b>

👤 <b>Текущие настройки:</b>
• Уровень сложности: %d/5
• Уведомления: %s
• Язык: %s

🔧 <b>Доступные настройки:</b>`, u.CurrentDifficultyLevel, notes, strings.ToUpper(u.PreferredLanguage))
}

func difficultyChangedText(level int) string {
	return fmt.Sprintf(`✅ <b>Уровень сложности изменен</b>

Новый уровень: <b>%s</b>

AI-агент будет генерировать вопросы соответствующей сложности.`, difficulty.Name(level))
}

func replyText(r *assistant.Reply) string {
	var b strings.Builder
	b.WriteString("🤖 <b>Ответ AI-ассистента:</b>\n\n")
	if r.Source == assistant.SourceLLM {
		b.WriteString(r.Text)
	} else {
		b.WriteString(html.EscapeString(r.Text))
	}
	if len(r.Suggestions) > 0 {
		b.WriteString("\n\n🔗 <b>Связанные вопросы:</b>\n")
		for i, s := range r.Suggestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, html.EscapeString(s))
		}
	}
	return b.String()
}

func faqText(e assistant.FAQEntry) string {
	return fmt.Sprintf("❓ <b>%s</b>\n\n%s", html.EscapeString(e.Question), html.EscapeString(e.Answer))
}

func historyText(msgs []store.ChatMessage) string {
	if len(msgs) == 0 {
		return emptyHistoryText
	}
	var b strings.Builder
	b.WriteString("📜 <b>Последние вопросы:</b>\n")
	n := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.MessageType != store.MessageUser {
			continue
		}
		n++
		fmt.Fprintf(&b, "\n%d. %s <i>(%s)</i>", n, html.EscapeString(truncate(m.Content, 100)), m.CreatedAt.Format("02.01 15:04"))
	}
	return b.String()
}

func searchResultsText(query string, docs []knowledge.Document) string {
	q := html.EscapeString(query)
	if len(docs) == 0 {
		return "🔍 <b>Поиск по запросу:</b> " + q + "\n\n❌ Ничего не найдено.\n\nПопробуйте другие ключевые слова."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 <b>Результаты поиска:</b> %s\n", q)
	for i, d := range docs {
		topic := d.Metadata[knowledge.MetaTopic]
		if topic == "" {
			topic = "Методика"
		}
		fmt.Fprintf(&b, "\n%d. <b>%s</b>\n   %s\n", i+1, html.EscapeString(topic), html.EscapeString(truncate(d.Content, searchExcerptRunes)))
	}
	return b.String()
}

func detailedStatsText(days []store.DayStats) string {
	var b strings.Builder
	b.WriteString("📈 <b>Подробная статистика за неделю</b>\n\n")
	for _, d := range days {
		date := d.Day.Format("02.01")
		if d.Total == 0 {
			fmt.Fprintf(&b, "📅 <b>%s</b>: Не было активности\n", date)
			continue
		}
		fmt.Fprintf(&b, "📅 <b>%s</b>: %d/%d (%.0f%%)\n", date, d.Correct, d.Total, d.Accuracy())
	}
	return b.String()
}

// recommendationsText advises on the level, the accuracy and, when the last
// attempt is more than three days before now, on regularity.
func recommendationsText(level int, s store.ProgressSummary, lastAttempt *time.Time, now time.Time) string {
	var b strings.Builder
	b.WriteString("🎯 <b>Персональные рекомендации</b>\n\n")
	switch {
	case level <= 1:
		b.WriteString("📚 <b>Базовый уровень:</b>\n• Изучите основные термины (RTO, MTPD)\n• Разберите классификацию рисков\n• Пройдите теоретические модули\n\n")
	case level == 2:
		b.WriteString("📈 <b>Развивающийся уровень:</b>\n• Изучите типы угроз подробнее\n• Практикуйтесь в идентификации рисков\n• Решайте больше практических задач\n\n")
	default:
		b.WriteString("🚀 <b>Продвинутый уровень:</b>\n• Изучайте сложные сценарии\n• Практикуйте планирование восстановления\n• Углубляйтесь в регулятивные требования\n\n")
	}
	if s.Accuracy() < 60 {
		b.WriteString("💡 <b>Рекомендации по улучшению:</b>\n• Больше времени уделяйте теории\n• Используйте подсказки при ответах\n• Задавайте вопросы AI-ассистенту\n• Повторяйте пройденный материал\n\n")
	}
	if lastAttempt != nil && now.Sub(*lastAttempt) > 3*24*time.Hour {
		b.WriteString("⏰ <b>Регулярность обучения:</b>\n• Занимайтесь каждый день по 10-15 минут\n• Установите напоминания\n• Регулярная практика улучшает результаты\n\n")
	}
	b.WriteString("🎓 <b>Следующие шаги:</b>\n• Пройдите новый урок\n• Задайте вопросы по сложным темам\n• Отслеживайте свой прогресс")
	return b.String()
}

func outcomeText(o *session.Outcome) string {
	text := html.EscapeString(o.Feedback)
	if o.Finished() {
		text += "\n\n" + o.Completion.Message
	}
	return text
}
