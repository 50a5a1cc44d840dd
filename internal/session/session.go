// Package session runs a learning turn: it starts lessons, presents
// generated questions, evaluates answers, adapts the difficulty and closes
// the lesson once enough questions were answered.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/abhisek/riskbot/internal/achievements"
	"github.com/abhisek/riskbot/internal/dialogue"
	"github.com/abhisek/riskbot/internal/difficulty"
	"github.com/abhisek/riskbot/internal/metrics"
	"github.com/abhisek/riskbot/internal/questiongen"
	"github.com/abhisek/riskbot/internal/store"
)

// SkippedAnswer is the user_answer stored for a skipped question.
const SkippedAnswer = "skipped"

// QuestionSource produces questions. *questiongen.Generator satisfies it.
type QuestionSource interface {
	Generate(ctx context.Context, in questiongen.Input) questiongen.Result
}

// Config holds the lesson thresholds.
type Config struct {
	QuestionsPerLesson int
	// PassThreshold is a percentage.
	PassThreshold int
}

// DefaultConfig returns 5 questions per lesson and an 80% pass mark.
func DefaultConfig() Config {
	return Config{QuestionsPerLesson: 5, PassThreshold: 80}
}

// Deps are the collaborators of a Service.
type Deps struct {
	Users     store.UserRepo
	Sessions  store.SessionRepo
	Attempts  store.AttemptRepo
	Progress  store.ProgressRepo
	Catalog   store.CatalogRepo
	Questions QuestionSource
	Contexts  dialogue.Store
	Locks     *dialogue.Locks
	Logger    *slog.Logger
}

// Service orchestrates learning turns. It is safe for concurrent use; turns
// of one user are serialized by Locks.
type Service struct {
	Deps
	cfg Config
	now func() time.Time
}

// New creates a Service.
func New(deps Deps, cfg Config) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Locks == nil {
		deps.Locks = dialogue.NewLocks()
	}
	return &Service{Deps: deps, cfg: cfg, now: time.Now}
}

// Config returns the lesson thresholds.
func (s *Service) Config() Config { return s.cfg }

// Start opens a new session on the lesson of level and presents its first
// question. A level of 0 means the user's current level. Any active session
// of the user is paused.
func (s *Service) Start(ctx context.Context, user *store.User, level int) (*Turn, error) {
	unlock := s.Locks.Lock(user.TelegramID)
	defer unlock()
	return s.start(ctx, user, level)
}

func (s *Service) start(ctx context.Context, user *store.User, level int) (*Turn, error) {
	if level == 0 {
		level = user.CurrentDifficultyLevel
	}
	level = difficulty.Clamp(level)

	lesson, err := s.Catalog.LessonForLevel(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("lesson for level %d: %w", level, err)
	}
	topic, err := s.Catalog.Topic(ctx, lesson.TopicID)
	if err != nil {
		return nil, fmt.Errorf("topic %d: %w", lesson.TopicID, err)
	}

	sess, err := s.Sessions.Start(ctx, user.ID, &topic.ID, &lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	st := &dialogue.State{
		SessionID: sess.ID,
		TopicID:   topic.ID,
		LessonID:  lesson.ID,
		Topic:     topic.Title,
	}
	s.Logger.InfoContext(ctx, "session started",
		slog.Int64("telegram_id", user.TelegramID),
		slog.Uint64("session_id", uint64(sess.ID)),
		slog.Int("level", level))

	return s.next(ctx, user, st)
}

// Next presents the next question of the active lesson. If a question is
// already waiting for an answer it is presented again.
func (s *Service) Next(ctx context.Context, user *store.User) (*Turn, error) {
	unlock := s.Locks.Lock(user.TelegramID)
	defer unlock()

	st, ok, err := s.Contexts.Get(ctx, user.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("load dialogue: %w", err)
	}
	if !ok {
		return nil, ErrNoActiveSession
	}
	return s.next(ctx, user, st)
}

// Continue resumes the user's active session. When the dialogue context
// expired it is rebuilt from the stored session.
func (s *Service) Continue(ctx context.Context, user *store.User) (*Turn, error) {
	unlock := s.Locks.Lock(user.TelegramID)
	defer unlock()

	st, ok, err := s.Contexts.Get(ctx, user.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("load dialogue: %w", err)
	}
	if ok {
		return s.next(ctx, user, st)
	}

	sess, err := s.Sessions.Active(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("load active session: %w", err)
	}
	if sess.CurrentLessonID == nil {
		return nil, ErrNoActiveSession
	}

	st = &dialogue.State{SessionID: sess.ID, LessonID: *sess.CurrentLessonID, Asked: sess.TotalQuestionsAnswered}
	if sess.CurrentTopicID != nil {
		st.TopicID = *sess.CurrentTopicID
		if topic, err := s.Catalog.Topic(ctx, st.TopicID); err == nil {
			st.Topic = topic.Title
		}
	}
	s.Logger.InfoContext(ctx, "session restored",
		slog.Int64("telegram_id", user.TelegramID),
		slog.Uint64("session_id", uint64(sess.ID)))
	return s.next(ctx, user, st)
}

func (s *Service) next(ctx context.Context, user *store.User, st *dialogue.State) (*Turn, error) {
	lesson, err := s.Catalog.Lesson(ctx, st.LessonID)
	if err != nil {
		return nil, fmt.Errorf("lesson %d: %w", st.LessonID, err)
	}
	level := s.currentLevel(ctx, user)

	turn := &Turn{Total: s.cfg.QuestionsPerLesson, Level: level, Lesson: lesson}
	if st.Question != nil {
		turn.Question = st.Question
		turn.Number = st.Asked
		turn.Stage = questiongen.StageAccept
		return turn, nil
	}

	res := s.Questions.Generate(ctx, questiongen.Input{Difficulty: level, Topic: st.Topic})
	st.Question = res.Question
	st.Asked++
	st.UpdatedAt = s.now()
	if err := s.Contexts.Set(ctx, user.TelegramID, st); err != nil {
		return nil, fmt.Errorf("save dialogue: %w", err)
	}

	turn.Question = res.Question
	turn.Number = st.Asked
	turn.Stage = res.Stage
	turn.Degraded = res.Degraded
	return turn, nil
}

// currentLevel reloads the user's level. A missing user gets level 1.
func (s *Service) currentLevel(ctx context.Context, user *store.User) int {
	u, err := s.Users.Get(ctx, user.ID)
	if err != nil {
		s.Logger.WarnContext(ctx, "user not found, using level 1",
			slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
		return difficulty.MinLevel
	}
	user.CurrentDifficultyLevel = u.CurrentDifficultyLevel
	return difficulty.Clamp(u.CurrentDifficultyLevel)
}

// Answer evaluates raw against the question identified by token. A token
// that is not the question on screen yields ErrSessionExpired, so a
// repeated tap is never counted twice.
func (s *Service) Answer(ctx context.Context, user *store.User, token, raw string) (*Outcome, error) {
	unlock := s.Locks.Lock(user.TelegramID)
	defer unlock()

	st, err := s.pending(ctx, user, token)
	if err != nil {
		return nil, err
	}
	idx := questiongen.ParseAnswer(raw)
	correct := questiongen.Evaluate(idx, st.Question.Correct)
	return s.record(ctx, user, st, strconv.Itoa(idx), correct, false)
}

// Skip records the question as an incorrect skipped attempt.
func (s *Service) Skip(ctx context.Context, user *store.User, token string) (*Outcome, error) {
	unlock := s.Locks.Lock(user.TelegramID)
	defer unlock()

	st, err := s.pending(ctx, user, token)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, user, st, SkippedAnswer, false, true)
}

// Hint returns the explanation of the question on screen without
// answering it.
func (s *Service) Hint(ctx context.Context, user *store.User, token string) (string, error) {
	st, err := s.pending(ctx, user, token)
	if err != nil {
		return "", err
	}
	if st.Question.Explanation == "" {
		return "Подсказка недоступна", nil
	}
	return st.Question.Explanation, nil
}

// Restart abandons the active session, clears the dialogue context and
// starts over at the user's current level.
func (s *Service) Restart(ctx context.Context, user *store.User) (*Turn, error) {
	unlock := s.Locks.Lock(user.TelegramID)
	defer unlock()

	if sess, err := s.Sessions.Active(ctx, user.ID); err == nil {
		if err := s.Sessions.Abandon(ctx, sess.ID, s.now()); err != nil {
			return nil, fmt.Errorf("abandon session: %w", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load active session: %w", err)
	}
	if err := s.Contexts.Delete(ctx, user.TelegramID); err != nil {
		return nil, fmt.Errorf("clear dialogue: %w", err)
	}
	s.currentLevel(ctx, user)
	return s.start(ctx, user, 0)
}

func (s *Service) pending(ctx context.Context, user *store.User, token string) (*dialogue.State, error) {
	st, ok, err := s.Contexts.Get(ctx, user.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("load dialogue: %w", err)
	}
	if !ok || st.Question == nil || st.Question.Token != token {
		return nil, ErrSessionExpired
	}
	return st, nil
}

func (s *Service) record(ctx context.Context, user *store.User, st *dialogue.State, answer string, correct, skipped bool) (*Outcome, error) {
	q := st.Question
	sess, err := s.Sessions.Get(ctx, st.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	// before is nil when the summary could not be read; the achievement
	// diff is skipped then.
	var before *store.ProgressSummary
	finishing := sess.TotalQuestionsAnswered+1 >= s.cfg.QuestionsPerLesson
	if finishing {
		if sum, err := s.Progress.Summary(ctx, user.ID); err == nil {
			before = &sum
		} else {
			s.Logger.WarnContext(ctx, "progress summary before finish", slog.Any("error", err))
		}
	}

	level := s.currentLevel(ctx, user)
	c := advance(sess, correct)
	t := difficulty.Next(level, correct, c.CurrentStreak, c.ConsecutiveIncorrect)
	if t.Changed {
		if t.Direction == difficulty.DirectionUp {
			c.CurrentStreak = 0
		} else {
			c.ConsecutiveIncorrect = 0
		}
	}

	out := &Outcome{Correct: correct, Skipped: skipped, Transition: t, Counters: c}
	if skipped {
		out.Feedback = skipFeedback(q, t)
	} else {
		out.Feedback = Feedback(q, correct, t)
	}

	source := store.SourceLLM
	if q.Source == questiongen.SourceFallback {
		source = store.SourceFallback
	}
	rec := store.AttemptRecord{
		Attempt: store.QuestionAttempt{
			UserID:       user.ID,
			SessionID:    st.SessionID,
			QuestionText: q.Text,
			UserAnswer:   answer,
			IsCorrect:    correct,
			Difficulty:   q.Difficulty,
			AIFeedback:   out.Feedback,
			Source:       source,
			CreatedAt:    s.now(),
		},
		LessonID: st.LessonID,
		Counters: c,
	}
	if t.Changed {
		rec.NewLevel = t.Level
	}
	if _, err := s.Attempts.Record(ctx, rec); err != nil {
		s.Logger.ErrorContext(ctx, "record attempt", slog.Any("error", err))
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	// The attempt is committed: the question is answered from here on even
	// if a later step fails.
	st.Question = nil
	st.UpdatedAt = s.now()
	if err := s.Contexts.Set(ctx, user.TelegramID, st); err != nil {
		s.Logger.ErrorContext(ctx, "save dialogue", slog.Any("error", err))
		return nil, fmt.Errorf("save dialogue: %w", err)
	}

	if t.Changed {
		user.CurrentDifficultyLevel = t.Level
		metrics.DifficultyChanges.WithLabelValues(string(t.Direction)).Inc()
	}
	if err := s.Users.Touch(ctx, user.ID, s.now()); err != nil {
		s.Logger.WarnContext(ctx, "touch user", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
	}

	label := strconv.FormatBool(correct)
	if skipped {
		label = SkippedAnswer
	}
	metrics.AnswersEvaluated.WithLabelValues(label).Inc()

	if c.TotalQuestionsAnswered >= s.cfg.QuestionsPerLesson {
		comp, err := s.complete(ctx, user, st, c, before)
		if err != nil {
			return nil, err
		}
		out.Completion = comp
	}
	return out, nil
}

// advance applies one answer to the session counters.
func advance(sess *store.LearningSession, correct bool) store.SessionCounters {
	c := store.SessionCounters{
		TotalQuestionsAnswered: sess.TotalQuestionsAnswered + 1,
		CorrectAnswers:         sess.CorrectAnswers,
		CurrentStreak:          sess.CurrentStreak,
		MaxStreak:              sess.MaxStreak,
		ConsecutiveIncorrect:   sess.ConsecutiveIncorrect,
	}
	if correct {
		c.CorrectAnswers++
		c.CurrentStreak++
		c.ConsecutiveIncorrect = 0
		c.MaxStreak = max(c.MaxStreak, c.CurrentStreak)
	} else {
		c.CurrentStreak = 0
		c.ConsecutiveIncorrect++
	}
	return c
}

func (s *Service) complete(ctx context.Context, user *store.User, st *dialogue.State, c store.SessionCounters, before *store.ProgressSummary) (*Completion, error) {
	rate := SuccessRate(c.TotalQuestionsAnswered, c.CorrectAnswers)
	passed := Passed(c.TotalQuestionsAnswered, c.CorrectAnswers, s.cfg.PassThreshold)

	status := store.ProgressNeedsReview
	if passed {
		status = store.ProgressCompleted
	}
	if _, err := s.Progress.Finish(ctx, user.ID, st.LessonID, st.SessionID, status, rate, s.now()); err != nil {
		return nil, fmt.Errorf("finish lesson: %w", err)
	}
	if err := s.Contexts.Delete(ctx, user.TelegramID); err != nil {
		s.Logger.WarnContext(ctx, "clear dialogue", slog.Any("error", err))
	}
	metrics.LessonsCompleted.WithLabelValues(status).Inc()

	comp := &Completion{
		Answered:      c.TotalQuestionsAnswered,
		Correct:       c.CorrectAnswers,
		SuccessRate:   rate,
		Passed:        passed,
		PassThreshold: s.cfg.PassThreshold,
		Level:         user.CurrentDifficultyLevel,
		Message:       CompletionMessage(passed, rate, s.cfg.PassThreshold),
	}

	if before == nil {
		s.Logger.WarnContext(ctx, "skipping achievements, no summary before the lesson")
	} else if after, err := s.Progress.Summary(ctx, user.ID); err == nil {
		unlocked := achievements.NewlyUnlocked(*before, after)
		for _, a := range unlocked {
			comp.Unlocked = append(comp.Unlocked, a.Title)
		}
		comp.Message += achievements.RenderUnlocked(unlocked)
	} else {
		s.Logger.WarnContext(ctx, "progress summary", slog.Any("error", err))
	}

	s.Logger.InfoContext(ctx, "lesson finished",
		slog.Int64("telegram_id", user.TelegramID),
		slog.Uint64("session_id", uint64(st.SessionID)),
		slog.String("status", status),
		slog.Float64("success_rate", rate))
	return comp, nil
}
