package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abhisek/riskbot/internal/achievements"
	"github.com/abhisek/riskbot/internal/assistant"
	"github.com/abhisek/riskbot/internal/curriculum"
	"github.com/abhisek/riskbot/internal/difficulty"
	"github.com/abhisek/riskbot/internal/session"
	"github.com/abhisek/riskbot/internal/store"
)

// historyLimit is the number of chat messages shown in the question history.
const historyLimit = 10

// maxAlertRunes is the Telegram limit for callback alert text.
const maxAlertRunes = 200

// statsDays is the period of the detailed statistics.
const statsDays = 7

// searchLimit is the number of methodology excerpts a search shows.
const searchLimit = 3

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.Chat == nil {
		return
	}
	chatID := m.Chat.ID
	user, created, err := b.user(ctx, m.From)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	if m.IsCommand() {
		b.chats.cancelSearch(user.TelegramID)
		err = b.handleCommand(ctx, user, created, m)
	} else if strings.TrimSpace(m.Text) == "" {
		return
	} else if b.chats.takeSearch(user.TelegramID) && b.Methodology != nil {
		err = b.search(ctx, chatID, m.Text)
	} else if isStartWord(m.Text) {
		b.send(ctx, chatID, welcomeText, mainMenuKeyboard())
	} else {
		err = b.ask(ctx, chatID, user, m.Text)
	}
	if err != nil {
		b.fail(ctx, chatID, err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, user *store.User, created bool, m *tgbotapi.Message) error {
	chatID := m.Chat.ID
	switch m.Command() {
	case "start":
		if !created {
			b.send(ctx, chatID, "👋 С возвращением, "+html.EscapeString(user.DisplayName())+"!\n\n"+welcomeText, mainMenuKeyboard())
			return nil
		}
		b.send(ctx, chatID, welcomeText, mainMenuKeyboard())
	case "menu":
		b.send(ctx, chatID, mainMenuText, mainMenuKeyboard())
	case "help":
		b.send(ctx, chatID, helpText, mainMenuKeyboard())
	case "learn":
		b.send(ctx, chatID, b.theory(ctx, user, user.CurrentDifficultyLevel), theoryKeyboard(difficulty.Clamp(user.CurrentDifficultyLevel)))
	case "progress":
		text, err := b.progress(ctx, user)
		if err != nil {
			return err
		}
		b.send(ctx, chatID, text, progressKeyboard())
	case "ask":
		q := m.CommandArguments()
		if strings.TrimSpace(q) == "" {
			b.send(ctx, chatID, askIntroText, assistantKeyboard())
			return nil
		}
		return b.ask(ctx, chatID, user, q)
	default:
		b.send(ctx, chatID, "🤔 Неизвестная команда. Используйте /menu.", mainMenuKeyboard())
	}
	return nil
}

func (b *Bot) ask(ctx context.Context, chatID int64, user *store.User, question string) error {
	b.typing(ctx, chatID)
	reply, err := b.Assistant.Ask(ctx, user, question)
	if err != nil {
		return err
	}
	b.chats.setSuggestions(user.TelegramID, reply.Suggestions)
	b.send(ctx, chatID, replyText(reply), replyKeyboard(reply))
	return nil
}

func (b *Bot) search(ctx context.Context, chatID int64, query string) error {
	query = strings.TrimSpace(query)
	b.typing(ctx, chatID)
	docs, err := b.Methodology.Search(ctx, query, searchLimit, nil)
	if err != nil {
		return fmt.Errorf("search methodology: %w", err)
	}
	b.Logger.InfoContext(ctx, "methodology search", slog.String("query", query), slog.Int("results", len(docs)))
	b.send(ctx, chatID, searchResultsText(query, docs), searchResultsKeyboard())
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	var chatID int64
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}
	user, _, err := b.user(ctx, q.From)
	if err != nil {
		b.answerCallback(ctx, q.ID, "", false)
		b.fail(ctx, chatID, err)
		return
	}
	if q.Message == nil || q.Message.Chat == nil {
		b.answerCallback(ctx, q.ID, "", false)
		return
	}

	b.Logger.DebugContext(ctx, "callback",
		slog.Int64("telegram_id", user.TelegramID), slog.String("data", q.Data))

	if q.Data != cbSearch {
		b.chats.cancelSearch(user.TelegramID)
	}

	// Hints and votes answer the callback themselves.
	if token, ok := strings.CutPrefix(q.Data, prefixHint); ok {
		b.hint(ctx, q, user, token)
		return
	}
	if strings.HasPrefix(q.Data, prefixHelpful) {
		b.feedback(ctx, q, user)
		return
	}
	b.answerCallback(ctx, q.ID, "", false)

	if err := b.route(ctx, q, user); err != nil {
		b.fail(ctx, chatID, err)
	}
}

func (b *Bot) route(ctx context.Context, q *tgbotapi.CallbackQuery, user *store.User) error {
	msg := q.Message
	data := q.Data

	switch data {
	case cbMainMenu:
		b.edit(ctx, msg, mainMenuText, mainMenuKeyboard())
	case cbStartLearning:
		level := difficulty.Clamp(user.CurrentDifficultyLevel)
		b.edit(ctx, msg, b.theory(ctx, user, level), theoryKeyboard(level))
	case cbContinueLesson:
		turn, err := b.Sessions.Continue(ctx, user)
		if errors.Is(err, session.ErrNoActiveSession) {
			b.edit(ctx, msg, noSessionText, learningMenuKeyboard())
			return nil
		}
		if err != nil {
			return err
		}
		b.edit(ctx, msg, questionText(turn), answerKeyboard(turn.Question.Token, turn.Question.Options))
	case cbRestartLearning:
		b.edit(ctx, msg, generatingText, tgbotapi.NewInlineKeyboardMarkup())
		turn, err := b.Sessions.Restart(ctx, user)
		if err != nil {
			return err
		}
		b.edit(ctx, msg, questionText(turn), answerKeyboard(turn.Question.Token, turn.Question.Options))
	case cbSelectTopic:
		topics, err := b.Catalog.Topics(ctx)
		if err != nil {
			return err
		}
		b.edit(ctx, msg, topicsText, topicsKeyboard(topics))
	case cbAskQuestion:
		b.edit(ctx, msg, askIntroText, assistantKeyboard())
	case cbFAQ:
		b.edit(ctx, msg, "📋 <b>Частые вопросы</b>\n\nВыберите вопрос:", faqKeyboard())
	case cbQuestionHistory:
		msgs, err := b.Assistant.History(ctx, user.ID, historyLimit)
		if err != nil {
			return err
		}
		b.edit(ctx, msg, historyText(msgs), assistantKeyboard())
	case cbShowProgress:
		text, err := b.progress(ctx, user)
		if err != nil {
			return err
		}
		b.edit(ctx, msg, text, progressKeyboard())
	case cbDetailedStats:
		days, err := b.Attempts.Daily(ctx, user.ID, time.Now(), statsDays)
		if err != nil {
			return err
		}
		b.edit(ctx, msg, detailedStatsText(days), statsKeyboard())
	case cbRecommendations:
		text, err := b.recommendations(ctx, user)
		if err != nil {
			return err
		}
		b.edit(ctx, msg, text, recommendationsKeyboard())
	case cbSearch:
		if b.Methodology == nil {
			b.edit(ctx, msg, searchUnavailableText, assistantKeyboard())
			return nil
		}
		b.chats.startSearch(user.TelegramID)
		b.edit(ctx, msg, searchIntroText, backToMenuKeyboard())
	case cbShowHelp:
		b.edit(ctx, msg, helpText, backToMenuKeyboard())
	case cbAchievements:
		earned, err := b.Achievements.ForUser(ctx, user.ID)
		if err != nil {
			return err
		}
		b.edit(ctx, msg, achievements.Render(earned), progressKeyboard())
	case cbSettings:
		b.edit(ctx, msg, settingsText(user), settingsKeyboard(user.NotificationsEnabled))
	case cbDifficultyMenu:
		b.edit(ctx, msg, difficultyMenuTxt, difficultyKeyboard())
	case cbNotificationsOn, cbNotificationsOff:
		enabled := data == cbNotificationsOn
		if err := b.Users.SetNotifications(ctx, user.ID, enabled); err != nil {
			return err
		}
		user.NotificationsEnabled = enabled
		b.edit(ctx, msg, settingsText(user), settingsKeyboard(enabled))
	default:
		return b.routePrefixed(ctx, msg, user, data)
	}
	return nil
}

func (b *Bot) routePrefixed(ctx context.Context, msg *tgbotapi.Message, user *store.User, data string) error {
	if token, idx, ok := parseAnswer(data); ok {
		out, err := b.Sessions.Answer(ctx, user, token, idx)
		if err != nil {
			return err
		}
		return b.outcome(ctx, msg, user, out)
	}
	if token, ok := strings.CutPrefix(data, prefixSkip); ok {
		out, err := b.Sessions.Skip(ctx, user, token)
		if err != nil {
			return err
		}
		return b.outcome(ctx, msg, user, out)
	}
	if level, ok := intArg(data, prefixStartQuestion); ok {
		b.edit(ctx, msg, generatingText, tgbotapi.NewInlineKeyboardMarkup())
		turn, err := b.Sessions.Start(ctx, user, level)
		if err != nil {
			return err
		}
		b.edit(ctx, msg, questionText(turn), answerKeyboard(turn.Question.Token, turn.Question.Options))
		return nil
	}
	if level, ok := intArg(data, prefixRereadTheory); ok {
		level = difficulty.Clamp(level)
		b.edit(ctx, msg, b.theory(ctx, user, level), theoryKeyboard(level))
		return nil
	}
	if id, ok := intArg(data, prefixTopic); ok {
		topic, err := b.Catalog.Topic(ctx, uint(id))
		if err != nil {
			return err
		}
		level := difficulty.Clamp(topic.DifficultyLevel)
		b.edit(ctx, msg, b.theory(ctx, user, level), theoryKeyboard(level))
		return nil
	}
	if level, ok := intArg(data, prefixDifficulty); ok {
		level = difficulty.Clamp(level)
		if err := b.Users.SetDifficulty(ctx, user.ID, level); err != nil {
			return err
		}
		user.CurrentDifficultyLevel = level
		b.Logger.InfoContext(ctx, "difficulty set by user",
			slog.Int64("telegram_id", user.TelegramID), slog.Int("level", level))
		b.edit(ctx, msg, difficultyChangedText(level), backToMenuKeyboard())
		return nil
	}
	if i, ok := intArg(data, prefixSuggestion); ok {
		question, found := b.chats.suggestion(user.TelegramID, i)
		if !found {
			b.send(ctx, msg.Chat.ID, suggestionGoneText, assistantKeyboard())
			return nil
		}
		return b.ask(ctx, msg.Chat.ID, user, question)
	}
	if i, ok := intArg(data, prefixFAQ); ok {
		e, found := assistant.FAQAt(i)
		if !found {
			b.edit(ctx, msg, "📋 <b>Частые вопросы</b>\n\nВыберите вопрос:", faqKeyboard())
			return nil
		}
		b.edit(ctx, msg, faqText(e), faqKeyboard())
		return nil
	}

	b.Logger.WarnContext(ctx, "unknown callback", slog.String("data", data))
	b.edit(ctx, msg, mainMenuText, mainMenuKeyboard())
	return nil
}

// outcome replaces the question with its feedback and either presents the
// next question in a new message or closes the lesson.
func (b *Bot) outcome(ctx context.Context, msg *tgbotapi.Message, user *store.User, out *session.Outcome) error {
	if out.Finished() {
		b.edit(ctx, msg, outcomeText(out), learningMenuKeyboard())
		b.sticker(ctx, msg.Chat.ID, completionSticker(out.Completion.Passed))
		return nil
	}
	b.edit(ctx, msg, outcomeText(out), tgbotapi.NewInlineKeyboardMarkup())

	turn, err := b.Sessions.Next(ctx, user)
	if err != nil {
		return err
	}
	b.send(ctx, msg.Chat.ID, questionText(turn), answerKeyboard(turn.Question.Token, turn.Question.Options))
	return nil
}

func (b *Bot) hint(ctx context.Context, q *tgbotapi.CallbackQuery, user *store.User, token string) {
	text, err := b.Sessions.Hint(ctx, user, token)
	if errors.Is(err, session.ErrSessionExpired) {
		b.answerCallback(ctx, q.ID, staleSessionText, true)
		return
	}
	if err != nil {
		b.Logger.ErrorContext(ctx, "hint", slog.Any("error", err))
		b.answerCallback(ctx, q.ID, errorText, true)
		return
	}
	b.answerCallback(ctx, q.ID, "💡 "+truncate(text, maxAlertRunes-5), true)
}

// feedback stores a vote on an assistant answer and thanks the user.
func (b *Bot) feedback(ctx context.Context, q *tgbotapi.CallbackQuery, user *store.User) {
	id, helpful, ok := parseHelpful(q.Data)
	if !ok {
		b.Logger.WarnContext(ctx, "malformed feedback callback", slog.String("data", q.Data))
		b.answerCallback(ctx, q.ID, "", false)
		return
	}
	if err := b.Assistant.Rate(ctx, user.ID, id, helpful); err != nil {
		b.Logger.WarnContext(ctx, "rate answer", slog.Uint64("message_id", uint64(id)), slog.Any("error", err))
	}
	text := feedbackNoText
	if helpful {
		text = feedbackYesText
	}
	b.answerCallback(ctx, q.ID, text, false)
}

func (b *Bot) theory(ctx context.Context, user *store.User, level int) string {
	m := curriculum.ForLevel(difficulty.Clamp(level))
	summary, err := b.Progress.Summary(ctx, user.ID)
	if err != nil {
		b.Logger.WarnContext(ctx, "progress summary", slog.Any("error", err))
	}
	started := summary.TotalAttempts > 0
	return theoryText(m, curriculum.ProgressLine(started, summary.TotalAttempts, summary.CorrectAttempts))
}

func (b *Bot) progress(ctx context.Context, user *store.User) (string, error) {
	summary, err := b.Progress.Summary(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return progressText(user, summary), nil
}

func (b *Bot) recommendations(ctx context.Context, user *store.User) (string, error) {
	summary, err := b.Progress.Summary(ctx, user.ID)
	if err != nil {
		return "", err
	}
	recent, err := b.Attempts.ListByUser(ctx, user.ID, store.QueryOpts{Limit: 1})
	if err != nil {
		return "", err
	}
	var last *time.Time
	if len(recent) > 0 {
		last = &recent[0].CreatedAt
	}
	return recommendationsText(user.CurrentDifficultyLevel, summary, last, time.Now()), nil
}

// fail reports err to the user with a way back to the menu.
func (b *Bot) fail(ctx context.Context, chatID int64, err error) {
	text := errorText
	kb := backToMenuKeyboard()
	if errors.Is(err, session.ErrSessionExpired) {
		text = staleSessionText
		kb = learningMenuKeyboard()
		b.Logger.InfoContext(ctx, "stale session", slog.Int64("chat_id", chatID))
	} else {
		b.Logger.ErrorContext(ctx, "handle update", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
	if chatID == 0 {
		return
	}
	b.send(ctx, chatID, text, kb)
}
