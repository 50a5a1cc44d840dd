package session

import (
	"errors"

	"github.com/abhisek/riskbot/internal/difficulty"
	"github.com/abhisek/riskbot/internal/questiongen"
	"github.com/abhisek/riskbot/internal/store"
)

var (
	// ErrSessionExpired means the answered question is no longer the one on
	// screen: the callback is stale or the dialogue context expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoActiveSession means the user has no session to continue.
	ErrNoActiveSession = errors.New("no active session")
)

// Turn is a question presented to the learner.
type Turn struct {
	Question *questiongen.Question
	// Number is the 1-based position of the question in the lesson.
	Number int
	Total  int
	Level  int
	Lesson *store.Lesson
	// Stage and Degraded mirror the generation result for logging.
	Stage    questiongen.Stage
	Degraded bool
}

// Completion is the outcome of a finished lesson.
type Completion struct {
	Answered      int
	Correct       int
	SuccessRate   float64
	Passed        bool
	PassThreshold int
	Level         int
	Unlocked      []string
	Message       string
}

// Outcome is the result of answering or skipping a question.
type Outcome struct {
	Correct  bool
	Skipped  bool
	Feedback string
	// Transition is the difficulty change caused by this answer.
	Transition difficulty.Transition
	Counters   store.SessionCounters
	// Completion is set when this answer finished the lesson.
	Completion *Completion
}

// Finished reports whether the lesson ended with this answer.
func (o *Outcome) Finished() bool { return o.Completion != nil }
