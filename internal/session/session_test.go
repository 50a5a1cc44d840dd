package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/riskbot/internal/curriculum"
	"github.com/abhisek/riskbot/internal/dialogue"
	"github.com/abhisek/riskbot/internal/questiongen"
	"github.com/abhisek/riskbot/internal/store"
)

// scriptedQuestions hands out questions whose correct option is always 1.
type scriptedQuestions struct {
	n      atomic.Int32
	inputs []questiongen.Input
	mu     sync.Mutex
}

func (s *scriptedQuestions) Generate(_ context.Context, in questiongen.Input) questiongen.Result {
	i := s.n.Add(1)
	s.mu.Lock()
	s.inputs = append(s.inputs, in)
	s.mu.Unlock()
	q := &questiongen.Question{
		Token:       fmt.Sprintf("tok%d", i),
		Text:        fmt.Sprintf("Вопрос %d про RTO?", i),
		Options:     []string{"A", "B", "C", "D"},
		Correct:     1,
		Explanation: "RTO - целевое время восстановления.",
		Difficulty:  in.Difficulty,
		Topic:       in.Topic,
		Source:      questiongen.SourceLLM,
	}
	return questiongen.Result{Question: q, Source: questiongen.SourceLLM, Stage: questiongen.StageAccept}
}

type fixture struct {
	svc  *Service
	st   *store.Store
	qs   *scriptedQuestions
	user *store.User
	dctx *dialogue.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, curriculum.Seed(ctx, st.Catalog(), nil))

	u, _, err := st.Users().GetOrCreate(ctx, store.TelegramProfile{TelegramID: 42, FirstName: "Анна"})
	require.NoError(t, err)

	qs := &scriptedQuestions{}
	dctx := dialogue.NewMemoryStore(100, dialogue.DefaultTTL)
	svc := New(Deps{
		Users:     st.Users(),
		Sessions:  st.Sessions(),
		Attempts:  st.Attempts(),
		Progress:  st.Progress(),
		Catalog:   st.Catalog(),
		Questions: qs,
		Contexts:  dctx,
	}, DefaultConfig())
	return &fixture{svc: svc, st: st, qs: qs, user: u, dctx: dctx}
}

func (f *fixture) answer(t *testing.T, turn *Turn, correct bool) *Outcome {
	t.Helper()
	raw := "0"
	if correct {
		raw = "1"
	}
	out, err := f.svc.Answer(context.Background(), f.user, turn.Question.Token, raw)
	require.NoError(t, err)
	return out
}

func TestStartPresentsFirstQuestion(t *testing.T) {
	f := newFixture(t)
	turn, err := f.svc.Start(context.Background(), f.user, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, turn.Number)
	assert.Equal(t, 5, turn.Total)
	assert.Equal(t, 1, turn.Level)
	assert.Equal(t, curriculum.ForLevel(1).Lesson, turn.Lesson.Title)
	require.Len(t, f.qs.inputs, 1)
	assert.Equal(t, curriculum.ForLevel(1).Topic, f.qs.inputs[0].Topic)

	sess, err := f.st.Sessions().Active(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionActive, sess.State)
}

func TestNextRepeatsPendingQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Start(ctx, f.user, 0)
	require.NoError(t, err)

	again, err := f.svc.Next(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, first.Question.Token, again.Question.Token)
	assert.Equal(t, int32(1), f.qs.n.Load())
}

func TestNextWithoutSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Next(context.Background(), f.user)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestAnswerFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	turn, err := f.svc.Start(ctx, f.user, 0)
	require.NoError(t, err)
	out := f.answer(t, turn, true)
	assert.True(t, out.Correct)
	assert.Equal(t, "✅ Правильно! RTO - целевое время восстановления.", out.Feedback)

	turn, err = f.svc.Next(ctx, f.user)
	require.NoError(t, err)
	out = f.answer(t, turn, false)
	assert.False(t, out.Correct)
	assert.Equal(t, "❌ Неправильно. Правильный ответ: B\n\n💡 RTO - целевое время восстановления.", out.Feedback)
}

func TestStaleTokenExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	turn, err := f.svc.Start(ctx, f.user, 0)
	require.NoError(t, err)

	_, err = f.svc.Answer(ctx, f.user, "nope", "1")
	assert.ErrorIs(t, err, ErrSessionExpired)

	f.answer(t, turn, true)
	_, err = f.svc.Answer(ctx, f.user, turn.Question.Token, "1")
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = f.svc.Hint(ctx, f.user, turn.Question.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestConcurrentAnswersAdvanceOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	turn, err := f.svc.Start(ctx, f.user, 0)
	require.NoError(t, err)

	var ok, expired atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Answer(ctx, f.user, turn.Question.Token, "1")
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, ErrSessionExpired):
				expired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), expired.Load())

	attempts, err := f.st.Attempts().ListByUser(ctx, f.user.ID, store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, attempts, 1)

	sess, err := f.st.Sessions().Active(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.TotalQuestionsAnswered)
}

func TestTwoCorrectRaisesLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	turn, err := f.svc.Start(ctx, f.user, 0)
	require.NoError(t, err)
	out := f.answer(t, turn, true)
	assert.False(t, out.Transition.Changed)

	turn, err = f.svc.Next(ctx, f.user)
	require.NoError(t, err)
	out = f.answer(t, turn, true)
	assert.True(t, out.Transition.Changed)
	assert.Equal(t, 2, out.Transition.Level)
	assert.Contains(t, out.Feedback, "⬆️ Уровень повышен: Начинающий → Базовый")
	assert.Equal(t, 0, out.Counters.CurrentStreak)
	assert.Equal(t, 2, out.Counters.MaxStreak)

	u, err := f.st.Users().Get(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, u.CurrentDifficultyLevel)

	turn, err = f.svc.Next(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, 2, turn.Level)
	assert.Equal(t, 2, turn.Question.Difficulty)
}

func TestLessonAtThresholdPasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pattern := []bool{true, true, false, true, true}
	turn, err := f.svc.Start(ctx, f.user, 1)
	require.NoError(t, err)
	var out *Outcome
	for i, correct := range pattern {
		out = f.answer(t, turn, correct)
		if i < len(pattern)-1 {
			require.False(t, out.Finished())
			turn, err = f.svc.Next(ctx, f.user)
			require.NoError(t, err)
		}
	}

	require.True(t, out.Finished())
	c := out.Completion
	assert.True(t, c.Passed)
	assert.InDelta(t, 80.0, c.SuccessRate, 1e-9)
	assert.True(t, strings.HasPrefix(c.Message, "🎉 Урок завершен успешно!\n📊 Результат: 80.0%"))
	assert.Contains(t, c.Unlocked, "Первые шаги")

	p, err := f.st.Progress().Get(ctx, f.user.ID, turn.Lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ProgressCompleted, p.Status)

	_, ok, err := f.dctx.Get(ctx, f.user.TelegramID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.st.Sessions().Active(ctx, f.user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLessonBelowThresholdNeedsReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pattern := []bool{true, false, true, false, true}
	turn, err := f.svc.Start(ctx, f.user, 1)
	require.NoError(t, err)
	var out *Outcome
	for i, correct := range pattern {
		out = f.answer(t, turn, correct)
		if i < len(pattern)-1 {
			turn, err = f.svc.Next(ctx, f.user)
			require.NoError(t, err)
		}
	}

	require.True(t, out.Finished())
	assert.False(t, out.Completion.Passed)
	assert.Equal(t, "📚 Необходимо повторение\n📊 Результат: 60.0% (требуется 80%)", out.Completion.Message)

	p, err := f.st.Progress().Get(ctx, f.user.ID, turn.Lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ProgressNeedsReview, p.Status)
}

func TestSkipRecordsIncorrect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	turn, err := f.svc.Start(ctx, f.user, 0)
	require.NoError(t, err)

	out, err := f.svc.Skip(ctx, f.user, turn.Question.Token)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.False(t, out.Correct)
	assert.True(t, strings.HasPrefix(out.Feedback, "⏭ Вопрос пропущен. Правильный ответ: B"))

	attempts, err := f.st.Attempts().ListByUser(ctx, f.user.ID, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, SkippedAnswer, attempts[0].UserAnswer)
	assert.False(t, attempts[0].IsCorrect)
}

func TestHint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	turn, err := f.svc.Start(ctx, f.user, 0)
	require.NoError(t, err)

	hint, err := f.svc.Hint(ctx, f.user, turn.Question.Token)
	require.NoError(t, err)
	assert.Equal(t, turn.Question.Explanation, hint)

	// The hint does not consume the question.
	f.answer(t, turn, true)
}

func TestRestartAbandonsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Start(ctx, f.user, 0)
	require.NoError(t, err)
	old, err := f.st.Sessions().Active(ctx, f.user.ID)
	require.NoError(t, err)

	turn, err := f.svc.Restart(ctx, f.user)
	require.NoError(t, err)
	assert.NotEqual(t, first.Question.Token, turn.Question.Token)
	assert.Equal(t, 1, turn.Number)

	prev, err := f.st.Sessions().Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionAbandoned, prev.State)
}

func TestContinueRestoresExpiredContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	turn, err := f.svc.Start(ctx, f.user, 0)
	require.NoError(t, err)
	f.answer(t, turn, true)

	require.NoError(t, f.dctx.Delete(ctx, f.user.TelegramID))

	next, err := f.svc.Continue(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Number)
	assert.Equal(t, curriculum.ForLevel(1).Topic, f.qs.inputs[len(f.qs.inputs)-1].Topic)
}

func TestContinueWithoutSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Continue(context.Background(), f.user)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestPassed(t *testing.T) {
	tests := []struct {
		answered, correct, threshold int
		want                         bool
	}{
		{5, 4, 80, true},
		{5, 3, 80, false},
		{10, 8, 80, true},
		{10, 7, 80, false},
		{0, 0, 80, false},
		{3, 3, 100, true},
	}
	for _, tt := range tests {
		if got := Passed(tt.answered, tt.correct, tt.threshold); got != tt.want {
			t.Errorf("Passed(%d, %d, %d) = %v, want %v", tt.answered, tt.correct, tt.threshold, got, tt.want)
		}
	}
}

// flakyProgress fails Finish once and Summary always when told to.
type flakyProgress struct {
	store.ProgressRepo
	finishFails  atomic.Int32
	summaryFails bool
}

func (p *flakyProgress) Finish(ctx context.Context, userID, lessonID, sessionID uint, status string, score float64, at time.Time) (*store.UserProgress, error) {
	if p.finishFails.Add(-1) >= 0 {
		return nil, errors.New("db down")
	}
	return p.ProgressRepo.Finish(ctx, userID, lessonID, sessionID, status, score, at)
}

func (p *flakyProgress) Summary(ctx context.Context, userID uint) (store.ProgressSummary, error) {
	if p.summaryFails {
		return store.ProgressSummary{}, errors.New("db down")
	}
	return p.ProgressRepo.Summary(ctx, userID)
}

// brokenUsers rejects every write outside the attempt transaction.
type brokenUsers struct {
	store.UserRepo
}

func (brokenUsers) SetDifficulty(context.Context, uint, int) error { return errors.New("db down") }
func (brokenUsers) Touch(context.Context, uint, time.Time) error   { return errors.New("db down") }

func TestFailedFinishDoesNotCountAnswerTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	progress := &flakyProgress{ProgressRepo: f.st.Progress()}
	progress.finishFails.Store(1)
	f.svc.Progress = progress

	turn, err := f.svc.Start(ctx, f.user, 1)
	require.NoError(t, err)
	for range 4 {
		f.answer(t, turn, true)
		turn, err = f.svc.Next(ctx, f.user)
		require.NoError(t, err)
	}

	_, err = f.svc.Answer(ctx, f.user, turn.Question.Token, "1")
	require.Error(t, err)

	_, err = f.svc.Answer(ctx, f.user, turn.Question.Token, "1")
	assert.ErrorIs(t, err, ErrSessionExpired)

	attempts, err := f.st.Attempts().ListByUser(ctx, f.user.ID, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, attempts, 5)
	sess, err := f.st.Sessions().Get(ctx, attempts[0].SessionID)
	require.NoError(t, err)
	assert.Equal(t, 5, sess.TotalQuestionsAnswered)
}

func TestLevelChangeCommitsWithAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Users = brokenUsers{UserRepo: f.st.Users()}

	turn, err := f.svc.Start(ctx, f.user, 1)
	require.NoError(t, err)
	f.answer(t, turn, true)
	turn, err = f.svc.Next(ctx, f.user)
	require.NoError(t, err)
	out := f.answer(t, turn, true)
	require.True(t, out.Transition.Changed)

	u, err := f.st.Users().Get(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, u.CurrentDifficultyLevel)

	attempts, err := f.st.Attempts().ListByUser(ctx, f.user.ID, store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestFailedSummarySkipsAchievements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Progress = &flakyProgress{ProgressRepo: f.st.Progress(), summaryFails: true}

	turn, err := f.svc.Start(ctx, f.user, 1)
	require.NoError(t, err)
	var out *Outcome
	for i := range 5 {
		out = f.answer(t, turn, true)
		if i < 4 {
			turn, err = f.svc.Next(ctx, f.user)
			require.NoError(t, err)
		}
	}
	require.True(t, out.Finished())
	assert.True(t, out.Completion.Passed)
	assert.Empty(t, out.Completion.Unlocked)
}
