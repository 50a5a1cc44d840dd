package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), Options{})
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

func newUser(t *testing.T, s *Store, tgID int64) *User {
	t.Helper()
	u, created, err := s.Users().GetOrCreate(context.Background(), TelegramProfile{TelegramID: tgID, FirstName: "Анна"})
	require.NoError(t, err)
	require.True(t, created)
	return u
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestDialectorFor(t *testing.T) {
	_, err := dialectorFor("")
	assert.Error(t, err)

	d, err := dialectorFor("postgres://u:p@localhost:5432/riskbot")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = dialectorFor("sqlite://" + t.TempDir() + "/x.db")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	var fk int
	require.NoError(t, s.DB().Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestUserGetOrCreate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Users()

	u, created, err := repo.GetOrCreate(ctx, TelegramProfile{TelegramID: 42, Username: "anna"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, u.CurrentDifficultyLevel)
	assert.True(t, u.NotificationsEnabled)
	assert.Equal(t, "ru", u.PreferredLanguage)

	again, created, err := repo.GetOrCreate(ctx, TelegramProfile{TelegramID: 42})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	_, err = repo.GetByTelegramID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Users()
	u := newUser(t, s, 1)

	require.NoError(t, repo.SetDifficulty(ctx, u.ID, 4))
	require.NoError(t, repo.SetNotifications(ctx, u.ID, false))

	got, err := repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentDifficultyLevel)
	assert.False(t, got.NotificationsEnabled)

	assert.ErrorIs(t, repo.SetDifficulty(ctx, 12345, 2), ErrNotFound)
}

func TestInactiveUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Users()

	old := newUser(t, s, 1)
	fresh := newUser(t, s, 2)
	muted := newUser(t, s, 3)

	now := time.Now()
	require.NoError(t, repo.Touch(ctx, old.ID, now.Add(-10*time.Hour)))
	require.NoError(t, repo.Touch(ctx, fresh.ID, now))
	require.NoError(t, repo.Touch(ctx, muted.ID, now.Add(-10*time.Hour)))
	require.NoError(t, repo.SetNotifications(ctx, muted.ID, false))

	users, err := repo.Inactive(ctx, now.Add(-8*time.Hour))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, old.ID, users[0].ID)
}

func TestSessionStartPausesPrevious(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Sessions()
	u := newUser(t, s, 1)

	first, err := repo.Start(ctx, u.ID, nil, nil)
	require.NoError(t, err)
	second, err := repo.Start(ctx, u.ID, nil, nil)
	require.NoError(t, err)

	active, err := repo.Active(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	prev, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionPaused, prev.State)

	require.NoError(t, repo.Abandon(ctx, second.ID, time.Now()))
	_, err = repo.Active(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func seedLesson(t *testing.T, s *Store, level int) *Lesson {
	t.Helper()
	ctx := context.Background()
	topic := &Topic{Title: fmt.Sprintf("Тема %d", level), DifficultyLevel: level, OrderIndex: level, IsActive: true}
	require.NoError(t, s.Catalog().UpsertTopic(ctx, topic))
	lesson := &Lesson{TopicID: topic.ID, Title: fmt.Sprintf("Урок %d", level), DifficultyLevel: level, IsActive: true}
	require.NoError(t, s.Catalog().UpsertLesson(ctx, lesson))
	return lesson
}

func TestRecordAttemptTransaction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)
	lesson := seedLesson(t, s, 1)
	sess, err := s.Sessions().Start(ctx, u.ID, &lesson.TopicID, &lesson.ID)
	require.NoError(t, err)

	rec := AttemptRecord{
		Attempt: QuestionAttempt{
			UserID: u.ID, SessionID: sess.ID, QuestionText: "Что такое RTO?",
			UserAnswer: "0", IsCorrect: true, Difficulty: 1, Source: SourceLLM,
		},
		LessonID: lesson.ID,
		Counters: SessionCounters{TotalQuestionsAnswered: 1, CorrectAnswers: 1, CurrentStreak: 1, MaxStreak: 1},
	}
	p, err := s.Attempts().Record(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalAttempts)
	assert.Equal(t, 1, p.CorrectAttempts)
	assert.Equal(t, ProgressInProgress, p.Status)
	assert.InDelta(t, 100.0, p.AverageScore, 0.001)

	rec.Attempt.IsCorrect = false
	rec.Counters = SessionCounters{TotalQuestionsAnswered: 2, CorrectAnswers: 1, MaxStreak: 1, ConsecutiveIncorrect: 1}
	p, err = s.Attempts().Record(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalAttempts)
	assert.InDelta(t, 50.0, p.AverageScore, 0.001)

	got, err := s.Sessions().Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalQuestionsAnswered)
	assert.Equal(t, 1, got.CorrectAnswers)
	assert.Equal(t, 1, got.ConsecutiveIncorrect)

	attempts, err := s.Attempts().ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestRecordAttemptRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)

	_, err := s.Attempts().Record(ctx, AttemptRecord{
		Attempt:  QuestionAttempt{UserID: u.ID, SessionID: 9999, UserAnswer: "1"},
		LessonID: 1,
	})
	require.ErrorIs(t, err, ErrNotFound)

	attempts, err := s.Attempts().ListByUser(ctx, u.ID, QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, attempts, "attempt insert must roll back with the failed session update")

	_, err = s.Progress().Get(ctx, u.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDailyAttempts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)
	other := newUser(t, s, 2)
	lesson := seedLesson(t, s, 1)
	sess, err := s.Sessions().Start(ctx, u.ID, &lesson.TopicID, &lesson.ID)
	require.NoError(t, err)
	otherSess, err := s.Sessions().Start(ctx, other.ID, &lesson.TopicID, &lesson.ID)
	require.NoError(t, err)

	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	record := func(userID, sessionID uint, at time.Time, correct bool) {
		t.Helper()
		_, err := s.Attempts().Record(ctx, AttemptRecord{
			Attempt:  QuestionAttempt{UserID: userID, SessionID: sessionID, UserAnswer: "0", IsCorrect: correct, CreatedAt: at},
			LessonID: lesson.ID,
		})
		require.NoError(t, err)
	}
	record(u.ID, sess.ID, now.Add(-time.Hour), true)
	record(u.ID, sess.ID, now.Add(-2*time.Hour), false)
	record(u.ID, sess.ID, now.AddDate(0, 0, -2), true)
	record(u.ID, sess.ID, now.AddDate(0, 0, -7), true)
	record(other.ID, otherSess.ID, now.Add(-time.Hour), true)

	days, err := s.Attempts().Daily(ctx, u.ID, now, 7)
	require.NoError(t, err)
	require.Len(t, days, 7)

	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), days[0].Day, "oldest day first")
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), days[6].Day)
	assert.Equal(t, DayStats{Day: days[6].Day, Total: 2, Correct: 1}, days[6])
	assert.Equal(t, DayStats{Day: days[4].Day, Total: 1, Correct: 1}, days[4])
	assert.InDelta(t, 50.0, days[6].Accuracy(), 0.001)

	total := 0
	for _, d := range days {
		total += d.Total
	}
	assert.Equal(t, 3, total, "an attempt a week ago and other users' attempts are excluded")

	none, err := s.Attempts().Daily(ctx, u.ID, now, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFinishAndSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)
	lesson := seedLesson(t, s, 1)
	sess, err := s.Sessions().Start(ctx, u.ID, &lesson.TopicID, &lesson.ID)
	require.NoError(t, err)

	for i := range 5 {
		_, err := s.Attempts().Record(ctx, AttemptRecord{
			Attempt:  QuestionAttempt{UserID: u.ID, SessionID: sess.ID, UserAnswer: "0", IsCorrect: i < 4},
			LessonID: lesson.ID,
			Counters: SessionCounters{TotalQuestionsAnswered: i + 1},
		})
		require.NoError(t, err)
	}

	p, err := s.Progress().Finish(ctx, u.ID, lesson.ID, sess.ID, ProgressCompleted, 80, time.Now())
	require.NoError(t, err)
	assert.Equal(t, ProgressCompleted, p.Status)
	assert.InDelta(t, 100.0, p.CompletionPercentage, 0.001)
	require.NotNil(t, p.CompletedAt)

	closed, err := s.Sessions().Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, closed.State)

	sum, err := s.Progress().Summary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.CompletedLessons)
	assert.Equal(t, 5, sum.TotalAttempts)
	assert.Equal(t, 4, sum.CorrectAttempts)
	assert.InDelta(t, 80.0, sum.Accuracy(), 0.001)

	_, err = s.Progress().Finish(ctx, u.ID, lesson.ID, sess.ID, "bogus", 0, time.Now())
	assert.Error(t, err)
}

func TestLeaderboard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	l1 := seedLesson(t, s, 1)
	l2 := seedLesson(t, s, 2)

	a := newUser(t, s, 1)
	b := newUser(t, s, 2)
	for _, x := range []struct {
		u      *User
		lesson *Lesson
		score  float64
	}{{a, l1, 90}, {a, l2, 80}, {b, l1, 100}} {
		sess, err := s.Sessions().Start(ctx, x.u.ID, nil, &x.lesson.ID)
		require.NoError(t, err)
		_, err = s.Progress().Finish(ctx, x.u.ID, x.lesson.ID, sess.ID, ProgressCompleted, x.score, time.Now())
		require.NoError(t, err)
	}

	board, err := s.Progress().Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, a.ID, board[0].UserID)
	assert.Equal(t, 2, board[0].CompletedLessons)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "Анна", board[0].Name)
}

func TestUniqueProgressUnderConcurrency(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)
	lesson := seedLesson(t, s, 1)
	sess, err := s.Sessions().Start(ctx, u.ID, nil, &lesson.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Attempts().Record(ctx, AttemptRecord{
				Attempt:  QuestionAttempt{UserID: u.ID, SessionID: sess.ID, UserAnswer: "1"},
				LessonID: lesson.ID,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, err := s.Progress().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 8, rows[0].TotalAttempts)
}

func TestChatRecentOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)

	for i := range 4 {
		require.NoError(t, s.Chat().Append(ctx, &ChatMessage{UserID: u.ID, MessageType: MessageUser, Content: fmt.Sprintf("m%d", i)}))
	}
	msgs, err := s.Chat().Recent(ctx, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[0].Content)
	assert.Equal(t, "m3", msgs[1].Content)
}

func TestChatRate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)
	other := newUser(t, s, 2)

	question := &ChatMessage{UserID: u.ID, MessageType: MessageUser, Content: "Что такое RTO?"}
	answer := &ChatMessage{UserID: u.ID, MessageType: MessageAssistant, Content: "Целевое время восстановления."}
	require.NoError(t, s.Chat().Append(ctx, question))
	require.NoError(t, s.Chat().Append(ctx, answer))

	require.NoError(t, s.Chat().Rate(ctx, u.ID, answer.ID, false))
	require.NoError(t, s.Chat().Rate(ctx, u.ID, answer.ID, true))

	msgs, err := s.Chat().Recent(ctx, u.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, msgs[1].Helpful)
	assert.True(t, *msgs[1].Helpful, "the last vote wins")
	assert.Nil(t, msgs[0].Helpful)

	assert.ErrorIs(t, s.Chat().Rate(ctx, u.ID, question.ID, true), ErrNotFound, "questions cannot be rated")
	assert.ErrorIs(t, s.Chat().Rate(ctx, other.ID, answer.ID, true), ErrNotFound, "only the owner rates a message")
}

func TestNotificationsDue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)
	now := time.Now()

	past := &SystemNotification{UserID: u.ID, NotificationType: "reminder", Message: "a", ScheduledFor: now.Add(-time.Minute)}
	future := &SystemNotification{UserID: u.ID, NotificationType: "reminder", Message: "b", ScheduledFor: now.Add(time.Hour)}
	require.NoError(t, s.Notifications().Create(ctx, past))
	require.NoError(t, s.Notifications().Create(ctx, future))

	due, err := s.Notifications().Due(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)

	require.NoError(t, s.Notifications().MarkSent(ctx, past.ID, now))
	due, err = s.Notifications().Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	last, err := s.Notifications().LastOfType(ctx, u.ID, "reminder")
	require.NoError(t, err)
	assert.Equal(t, future.ID, last.ID)
}

func TestNotificationFailuresOrderAndGiveUp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)
	now := time.Now()
	repo := s.Notifications()

	failing := &SystemNotification{UserID: u.ID, NotificationType: "reminder", ScheduledFor: now.Add(-2 * time.Hour)}
	fresh := &SystemNotification{UserID: u.ID, NotificationType: "reminder", ScheduledFor: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, failing))
	require.NoError(t, repo.Create(ctx, fresh))

	require.NoError(t, repo.MarkFailed(ctx, failing.ID, "timeout", false))
	due, err := repo.Due(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, fresh.ID, due[0].ID)

	require.NoError(t, repo.MarkFailed(ctx, failing.ID, "Forbidden: bot was blocked by the user", true))
	due, err = repo.Due(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, fresh.ID, due[0].ID)

	var got SystemNotification
	require.NoError(t, s.DB().First(&got, failing.ID).Error)
	assert.Equal(t, 2, got.Attempts)
	assert.True(t, got.GaveUp)
	assert.Equal(t, "Forbidden: bot was blocked by the user", got.LastError)
	assert.False(t, got.IsSent)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Events()

	for i := range 3 {
		require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
			Provider: "mock", Model: "mock", Purpose: "question-gen",
			InputTokens: 10 * (i + 1), Success: i != 1, RequestBody: "[user]\nhi",
		}))
	}

	events, err := repo.QueryLLMRequests(ctx, QueryOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Greater(t, events[0].ID, events[1].ID, "newest first")

	ev, err := repo.GetLLMRequest(ctx, events[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 30, ev.InputTokens)

	_, err = repo.GetLLMRequest(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLLMUsage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Events()

	rows := []LLMRequestEventData{
		{Model: "gpt-4o-mini", Purpose: "question-gen", InputTokens: 100, OutputTokens: 50, LatencyMs: 200},
		{Model: "gpt-4o-mini", Purpose: "assistant", InputTokens: 300, OutputTokens: 70, LatencyMs: 400},
		{Model: "gpt-4o", Purpose: "question-gen", InputTokens: 10, OutputTokens: 5, LatencyMs: 600},
	}
	for _, r := range rows {
		require.NoError(t, repo.AppendLLMRequest(ctx, r))
	}

	byPurpose, err := repo.UsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "assistant", byPurpose[0].Name)
	assert.Equal(t, 1, byPurpose[0].Calls)
	assert.Equal(t, "question-gen", byPurpose[1].Name)
	assert.Equal(t, 2, byPurpose[1].Calls)
	assert.Equal(t, 110, byPurpose[1].InputTokens)
	assert.InDelta(t, 400, byPurpose[1].AvgLatencyMs, 0.01)

	byModel, err := repo.UsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "gpt-4o-mini", byModel[1].Name)
	assert.Equal(t, 120, byModel[1].OutputTokens)
}

func TestGlobalStatsAndReset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)
	lesson := seedLesson(t, s, 1)
	sess, err := s.Sessions().Start(ctx, u.ID, nil, &lesson.ID)
	require.NoError(t, err)
	for i, src := range []string{SourceLLM, SourceFallback} {
		_, err := s.Attempts().Record(ctx, AttemptRecord{
			Attempt:  QuestionAttempt{UserID: u.ID, SessionID: sess.ID, UserAnswer: "0", IsCorrect: i == 0, Source: src},
			LessonID: lesson.ID,
		})
		require.NoError(t, err)
	}

	st, err := s.Stats().Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Users)
	assert.Equal(t, int64(1), st.ActiveSessions)
	assert.Equal(t, int64(2), st.Attempts)
	assert.InDelta(t, 50.0, st.CorrectRate, 0.001)
	assert.InDelta(t, 50.0, st.FallbackRate, 0.001)

	require.NoError(t, s.Reset(ctx))
	st, err = s.Stats().Global(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Users)
	assert.Zero(t, st.Attempts)

	topics, err := s.Catalog().Topics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 1, "catalog survives reset")
}
