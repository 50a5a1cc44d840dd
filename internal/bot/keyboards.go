package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abhisek/riskbot/internal/assistant"
	"github.com/abhisek/riskbot/internal/store"
)

// maxButtonRunes bounds answer button labels.
const maxButtonRunes = 50

// maxSuggestionButtons bounds the suggested questions offered under an answer.
const maxSuggestionButtons = 3

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

var menuRow = tgbotapi.NewInlineKeyboardRow(button("🏠 Главное меню", cbMainMenu))

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("🎓 Начать обучение", cbStartLearning),
			button("❓ Задать вопрос AI", cbAskQuestion),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("📊 Мой прогресс", cbShowProgress),
			button("📚 Инструкция", cbShowHelp),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🏆 Достижения", cbAchievements),
			button("⚙️ Настройки", cbSettings),
		),
	)
}

func backToMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(menuRow)
}

func learningMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("▶️ Продолжить урок", cbContinueLesson),
			button("🔄 Начать заново", cbRestartLearning),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("📋 Выбрать тему", cbSelectTopic),
			button("❓ Задать вопрос AI", cbAskQuestion),
		),
		menuRow,
	)
}

func theoryKeyboard(level int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("🎯 Перейти к вопросам", startQuestionsData(level))),
		tgbotapi.NewInlineKeyboardRow(
			button("📖 Перечитать теорию", rereadTheoryData(level)),
			button("❓ Задать вопрос", cbAskQuestion),
		),
		menuRow,
	)
}

func answerKeyboard(token string, options []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options)+2)
	for i, opt := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(truncate(opt, maxButtonRunes), answerData(token, i))))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			button("❓ Подсказка", hintData(token)),
			button("⏭️ Пропустить", skipData(token)),
		),
		menuRow,
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func topicsKeyboard(topics []store.Topic) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(topics)+1)
	for _, t := range topics {
		label := fmt.Sprintf("%d. %s", t.DifficultyLevel, t.Title)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(truncate(label, 60), topicData(t.ID))))
	}
	rows = append(rows, menuRow)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func assistantKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("📋 Частые вопросы", cbFAQ),
			button("📜 История вопросов", cbQuestionHistory),
		),
		tgbotapi.NewInlineKeyboardRow(button("🔍 Поиск в методике", cbSearch)),
		menuRow,
	)
}

// replyKeyboard offers the suggested questions and, for a stored answer,
// the helpful votes.
func replyKeyboard(r *assistant.Reply) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, s := range r.Suggestions {
		if i == maxSuggestionButtons {
			break
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("❓ "+truncate(s, 40), suggestionData(i+1))))
	}
	if r.MessageID != 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("👍 Полезно", helpfulData(r.MessageID, true)),
			button("👎 Не помогло", helpfulData(r.MessageID, false)),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			button("❓ Еще вопрос", cbAskQuestion),
			button("🎓 К обучению", cbStartLearning),
		),
		menuRow,
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func searchResultsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("🔍 Новый поиск", cbSearch),
			button("❓ Задать вопрос", cbAskQuestion),
		),
		menuRow,
	)
}

func faqKeyboard() tgbotapi.InlineKeyboardMarkup {
	entries := assistant.FAQ()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(entries)+1)
	for i, e := range entries {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(fmt.Sprintf("%d. %s", i+1, e.Question), faqData(i+1))))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("❓ Задать свой вопрос", cbAskQuestion),
		button("🏠 Главное меню", cbMainMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func progressKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("📈 Подробная статистика", cbDetailedStats),
			button("🎯 Рекомендации", cbRecommendations),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🏆 Достижения", cbAchievements),
			button("📚 Продолжить обучение", cbStartLearning),
		),
		menuRow,
	)
}

func statsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("◀️ Назад к прогрессу", cbShowProgress)),
		menuRow,
	)
}

func recommendationsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("📚 Начать изучение", cbStartLearning)),
		tgbotapi.NewInlineKeyboardRow(button("◀️ Назад к прогрессу", cbShowProgress)),
		menuRow,
	)
}

func settingsKeyboard(notificationsEnabled bool) tgbotapi.InlineKeyboardMarkup {
	toggle := button("🔔 Включить уведомления", cbNotificationsOn)
	if notificationsEnabled {
		toggle = button("🔕 Выключить уведомления", cbNotificationsOff)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(toggle),
		tgbotapi.NewInlineKeyboardRow(button("🎯 Сложность", cbDifficultyMenu)),
		menuRow,
	)
}

func difficultyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("🟢 Начинающий", difficultyData(1)),
			button("🟡 Базовый", difficultyData(2)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🟠 Продвинутый", difficultyData(3)),
			button("🔴 Эксперт", difficultyData(4)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🟣 Мастер", difficultyData(5)),
			button("🔙 Назад", cbSettings),
		),
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
