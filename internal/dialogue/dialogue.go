// Package dialogue keeps the short-lived per-user conversation state: the
// question on screen and the session it belongs to. Entries expire after a
// TTL. Locks serializes turns of one user.
package dialogue

import (
	"context"
	"slices"
	"time"

	"github.com/abhisek/riskbot/internal/questiongen"
)

// State is the dialogue context of one user.
type State struct {
	SessionID uint `json:"session_id"`
	TopicID   uint `json:"topic_id,omitempty"`
	LessonID  uint `json:"lesson_id,omitempty"`
	// Topic is the lesson topic title used to focus generation.
	Topic string `json:"topic,omitempty"`

	// Question is the question awaiting an answer, nil between questions.
	Question *questiongen.Question `json:"question,omitempty"`

	// Asked is the number of questions presented in this session.
	Asked int `json:"asked"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	if s.Question != nil {
		q := *s.Question
		q.Options = slices.Clone(s.Question.Options)
		c.Question = &q
	}
	return &c
}

// Store holds dialogue state keyed by Telegram user id.
type Store interface {
	// Get returns the state, or false when absent or expired.
	Get(ctx context.Context, userID int64) (*State, bool, error)
	// Set replaces the state and restarts its TTL.
	Set(ctx context.Context, userID int64, st *State) error
	Delete(ctx context.Context, userID int64) error
}

// Defaults.
const (
	DefaultTTL      = 2 * time.Hour
	DefaultCapacity = 10000
)
