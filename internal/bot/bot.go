// Package bot is the Telegram front end: it routes commands and inline
// keyboard callbacks to the learning, assistant and progress services.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abhisek/riskbot/internal/achievements"
	"github.com/abhisek/riskbot/internal/assistant"
	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/metrics"
	"github.com/abhisek/riskbot/internal/reminder"
	"github.com/abhisek/riskbot/internal/session"
	"github.com/abhisek/riskbot/internal/store"
)

// DefaultMaxConcurrentUpdates bounds the updates handled at once.
const DefaultMaxConcurrentUpdates = 32

// updateTimeout bounds the work done for one update. It covers a question
// generation with its retry.
const updateTimeout = 3 * time.Minute

// Sender is the part of the Telegram API the bot uses. *tgbotapi.BotAPI
// satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps are the collaborators of a Bot.
type Deps struct {
	API          Sender
	Users        store.UserRepo
	Progress     store.ProgressRepo
	Attempts     store.AttemptRepo
	Catalog      store.CatalogRepo
	Sessions     *session.Service
	Assistant    *assistant.Service
	Achievements *achievements.Service
	// Methodology serves the in-bot search. Search is unavailable when nil.
	Methodology knowledge.Searcher
	Logger      *slog.Logger
	// MaxConcurrentUpdates defaults to DefaultMaxConcurrentUpdates.
	MaxConcurrentUpdates int
}

// Bot handles Telegram updates.
type Bot struct {
	Deps
	chats *chatStates
	sem   chan struct{}
	wg    sync.WaitGroup
}

// New creates a Bot.
func New(deps Deps) *Bot {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxConcurrentUpdates <= 0 {
		deps.MaxConcurrentUpdates = DefaultMaxConcurrentUpdates
	}
	return &Bot{Deps: deps, chats: newChatStates(), sem: make(chan struct{}, deps.MaxConcurrentUpdates)}
}

// Poll receives updates by long polling until ctx is cancelled.
func (b *Bot) Poll(ctx context.Context, api *tgbotapi.BotAPI, timeout int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	b.Logger.InfoContext(ctx, "polling for updates", slog.String("bot", api.Self.UserName))
	return b.Run(ctx, updates)
}

// Run handles updates until ctx is cancelled or the channel is closed. Each
// update runs in its own goroutine; in-flight updates are drained before
// Run returns.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case b.sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer func() {
					<-b.sem
					b.wg.Done()
				}()
				b.dispatch(ctx, update)
			}()
		}
	}
}

func (b *Bot) dispatch(parent context.Context, update tgbotapi.Update) {
	// In-flight updates finish after shutdown starts.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), updateTimeout)
	defer cancel()

	metrics.UpdatesInFlight.Inc()
	defer metrics.UpdatesInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			b.Logger.ErrorContext(ctx, "panic handling update",
				slog.Int("update_id", update.UpdateID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	b.Handle(ctx, update)
}

// Handle processes one update synchronously.
func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		metrics.UpdatesHandled.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		metrics.UpdatesHandled.WithLabelValues("message").Inc()
		b.handleMessage(ctx, update.Message)
	default:
		metrics.UpdatesHandled.WithLabelValues("other").Inc()
	}
}

// Notify sends a plain HTML message. It implements reminder.Notifier.
func (b *Bot) Notify(_ context.Context, telegramID int64, text string) error {
	msg := tgbotapi.NewMessage(telegramID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("▶️ Продолжить урок", cbContinueLesson)),
		menuRow,
	)
	if _, err := b.API.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("send to %d: %w: %s", telegramID, reminder.ErrRecipientUnreachable, apiErr.Message)
		}
		return fmt.Errorf("send to %d: %w", telegramID, err)
	}
	return nil
}

// send posts a new HTML message. When Telegram rejects the markup the text
// is resent without parse mode.
func (b *Bot) send(ctx context.Context, chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	if _, err := b.API.Send(msg); err != nil {
		b.Logger.WarnContext(ctx, "send html message failed, retrying as plain text",
			slog.Int64("chat_id", chatID), slog.Any("error", err))
		msg.ParseMode = ""
		if _, err := b.API.Send(msg); err != nil {
			b.Logger.ErrorContext(ctx, "send message", slog.Int64("chat_id", chatID), slog.Any("error", err))
		}
	}
}

// edit replaces the text of a message the callback came from. Messages
// that cannot be edited are answered with a new message.
func (b *Bot) edit(ctx context.Context, msg *tgbotapi.Message, text string, kb tgbotapi.InlineKeyboardMarkup) {
	if msg == nil {
		return
	}
	cfg := tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, text, kb)
	cfg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.API.Send(cfg); err != nil {
		b.Logger.DebugContext(ctx, "edit message failed, sending new one", slog.Any("error", err))
		b.send(ctx, msg.Chat.ID, text, kb)
	}
}

func (b *Bot) typing(ctx context.Context, chatID int64) {
	if _, err := b.API.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.Logger.DebugContext(ctx, "chat action", slog.Any("error", err))
	}
}

func (b *Bot) answerCallback(ctx context.Context, id, text string, alert bool) {
	cfg := tgbotapi.NewCallback(id, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(id, text)
	}
	if _, err := b.API.Request(cfg); err != nil {
		b.Logger.DebugContext(ctx, "answer callback", slog.Any("error", err))
	}
}

func (b *Bot) user(ctx context.Context, from *tgbotapi.User) (*store.User, bool, error) {
	if from == nil {
		return nil, false, fmt.Errorf("update has no sender")
	}
	u, created, err := b.Users.GetOrCreate(ctx, store.TelegramProfile{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	})
	if err != nil {
		return nil, false, fmt.Errorf("resolve user %d: %w", from.ID, err)
	}
	if created {
		b.Logger.InfoContext(ctx, "new user", slog.Int64("telegram_id", from.ID))
	}
	if err := b.Users.Touch(ctx, u.ID, time.Now()); err != nil {
		b.Logger.WarnContext(ctx, "touch user", slog.Any("error", err))
	}
	return u, created, nil
}
