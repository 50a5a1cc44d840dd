// Package reminder nudges learners who have been inactive. Each tick it
// schedules at most one reminder per user per interval as a
// SystemNotification row, then delivers whatever is due.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/riskbot/internal/metrics"
	"github.com/abhisek/riskbot/internal/store"
)

// NotificationType is the notification_type of reminder rows.
const NotificationType = "reminder"

// DeliveryBatch bounds deliveries per tick.
const DeliveryBatch = 100

// MaxAttempts is how many failed deliveries a reminder gets before it is
// given up on.
const MaxAttempts = 3

// ErrRecipientUnreachable is returned by a Notifier when the user can never
// receive messages, e.g. they blocked the bot. The reminder is given up on
// and the user's notifications are switched off.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

const (
	reminderTitle   = "Напоминание об обучении"
	reminderMessage = "📚 <b>Пора продолжить обучение!</b>\n\n" +
		"Вы давно не заходили. Несколько вопросов по рискам непрерывности займут пару минут.\n\n" +
		"Нажмите /learn, чтобы продолжить."
)

// Notifier delivers a text to a Telegram user.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}

// Config controls the scheduler.
type Config struct {
	// Interval is how long a user must be inactive before a reminder, and
	// the minimum gap between two reminders.
	Interval time.Duration
	// CheckEvery is the tick period.
	CheckEvery time.Duration
}

// Scheduler scans for inactive users and delivers reminders.
type Scheduler struct {
	users  store.UserRepo
	notes  store.NotificationRepo
	notify Notifier
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Scheduler.
func New(users store.UserRepo, notes store.NotificationRepo, notify Notifier, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = 15 * time.Minute
	}
	return &Scheduler{users: users, notes: notes, notify: notify, cfg: cfg, logger: logger, now: time.Now}
}

// Run ticks until ctx is cancelled. Tick errors are logged, not returned.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("reminder scheduler started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Duration("check_every", s.cfg.CheckEvery))

	t := time.NewTicker(s.cfg.CheckEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return nil
		case <-t.C:
			if _, _, err := s.Tick(ctx); err != nil {
				s.logger.Error("reminder tick", slog.Any("error", err))
			}
		}
	}
}

// Tick schedules reminders for inactive users and delivers due ones.
func (s *Scheduler) Tick(ctx context.Context) (scheduled, delivered int, err error) {
	scheduled, err = s.schedule(ctx)
	if err != nil {
		return 0, 0, err
	}
	delivered, err = s.deliver(ctx)
	return scheduled, delivered, err
}

func (s *Scheduler) schedule(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.cfg.Interval)
	users, err := s.users.Inactive(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, u := range users {
		last, err := s.notes.LastOfType(ctx, u.ID, NotificationType)
		switch {
		case err == nil && last.ScheduledFor.After(cutoff):
			continue
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return n, fmt.Errorf("last reminder of user %d: %w", u.ID, err)
		}
		note := &store.SystemNotification{
			UserID:           u.ID,
			NotificationType: NotificationType,
			Title:            reminderTitle,
			Message:          reminderMessage,
			ScheduledFor:     now,
		}
		if err := s.notes.Create(ctx, note); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		s.logger.Info("reminders scheduled", slog.Int("count", n))
	}
	return n, nil
}

// deliver sends due notifications. A failed send is retried on later
// ticks, behind rows that have not failed yet, until MaxAttempts.
func (s *Scheduler) deliver(ctx context.Context) (int, error) {
	due, err := s.notes.Due(ctx, s.now(), DeliveryBatch)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, note := range due {
		u, err := s.users.Get(ctx, note.UserID)
		if err != nil {
			s.logger.Warn("reminder for unknown user", slog.Uint64("user_id", uint64(note.UserID)), slog.Any("error", err))
			if markErr := s.notes.MarkFailed(ctx, note.ID, err.Error(), true); markErr != nil {
				return n, markErr
			}
			continue
		}
		if !u.NotificationsEnabled {
			if err := s.notes.MarkSent(ctx, note.ID, s.now()); err != nil {
				return n, err
			}
			continue
		}
		if err := s.notify.Notify(ctx, u.TelegramID, note.Message); err != nil {
			if markErr := s.failed(ctx, u, note, err); markErr != nil {
				return n, markErr
			}
			continue
		}
		if err := s.notes.MarkSent(ctx, note.ID, s.now()); err != nil {
			return n, err
		}
		metrics.RemindersSent.Inc()
		n++
	}
	return n, nil
}

func (s *Scheduler) failed(ctx context.Context, u *store.User, note store.SystemNotification, sendErr error) error {
	unreachable := errors.Is(sendErr, ErrRecipientUnreachable)
	giveUp := unreachable || note.Attempts+1 >= MaxAttempts
	s.logger.Warn("deliver reminder",
		slog.Int64("telegram_id", u.TelegramID),
		slog.Int("attempt", note.Attempts+1),
		slog.Bool("give_up", giveUp),
		slog.Any("error", sendErr))

	if err := s.notes.MarkFailed(ctx, note.ID, sendErr.Error(), giveUp); err != nil {
		return err
	}
	if unreachable {
		if err := s.users.SetNotifications(ctx, u.ID, false); err != nil {
			return fmt.Errorf("disable notifications of user %d: %w", u.ID, err)
		}
	}
	return nil
}
