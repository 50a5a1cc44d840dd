package store

import (
	"context"
	"time"
)

// QueryOpts configures list queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  uint      // id > After
	Before uint      // id < Before
	From   time.Time // created_at >= From
	To     time.Time // created_at <= To
}

// TelegramProfile is the identity reported by the chat transport.
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// UserRepo manages learners.
type UserRepo interface {
	// GetOrCreate returns the user for the profile, creating it on first
	// contact. created reports whether a row was inserted.
	GetOrCreate(ctx context.Context, p TelegramProfile) (u *User, created bool, err error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	Get(ctx context.Context, id uint) (*User, error)
	SetDifficulty(ctx context.Context, userID uint, level int) error
	SetNotifications(ctx context.Context, userID uint, enabled bool) error
	Touch(ctx context.Context, userID uint, at time.Time) error
	// Inactive lists users with notifications on whose last activity is
	// before the cutoff.
	Inactive(ctx context.Context, cutoff time.Time) ([]User, error)
}

// SessionRepo manages learning sessions.
type SessionRepo interface {
	// Start pauses any active session of the user and creates a new one.
	Start(ctx context.Context, userID uint, topicID, lessonID *uint) (*LearningSession, error)
	Active(ctx context.Context, userID uint) (*LearningSession, error)
	Get(ctx context.Context, id uint) (*LearningSession, error)
	Complete(ctx context.Context, id uint, at time.Time) error
	Abandon(ctx context.Context, id uint, at time.Time) error
	ListByUser(ctx context.Context, userID uint) ([]LearningSession, error)
}

// AttemptRecord is one answered question with the session counters it
// produces.
type AttemptRecord struct {
	Attempt  QuestionAttempt
	LessonID uint
	// Counters are the session values after this answer.
	Counters SessionCounters
	// NewLevel, when non-zero, is the user's difficulty level after this
	// answer.
	NewLevel int
}

// SessionCounters are the running tallies kept on LearningSession.
type SessionCounters struct {
	TotalQuestionsAnswered int
	CorrectAnswers         int
	CurrentStreak          int
	MaxStreak              int
	ConsecutiveIncorrect   int
}

// AttemptRepo appends attempts.
type AttemptRepo interface {
	// Record inserts the attempt, updates the session counters, applies
	// NewLevel and upserts the lesson progress in one transaction.
	Record(ctx context.Context, rec AttemptRecord) (*UserProgress, error)
	ListByUser(ctx context.Context, userID uint, opts QueryOpts) ([]QuestionAttempt, error)
	ListBySession(ctx context.Context, sessionID uint) ([]QuestionAttempt, error)
	// Daily counts the user's attempts per UTC day for the days days ending
	// on the day of now, oldest first. Days without attempts are included.
	Daily(ctx context.Context, userID uint, now time.Time, days int) ([]DayStats, error)
}

// DayStats counts the attempts of one day.
type DayStats struct {
	Day     time.Time
	Total   int
	Correct int
}

// Accuracy returns the correct attempt percentage.
func (d DayStats) Accuracy() float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.Correct) / float64(d.Total) * 100
}

// ProgressSummary aggregates a user's progress across lessons.
type ProgressSummary struct {
	CompletedLessons int
	NeedsReview      int
	TotalAttempts    int
	CorrectAttempts  int
	StudyTime        time.Duration
	CurrentLevel     int
}

// Accuracy returns the correct attempt percentage.
func (s ProgressSummary) Accuracy() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.CorrectAttempts) / float64(s.TotalAttempts) * 100
}

// LeaderboardEntry is one row of the leaderboard.
type LeaderboardEntry struct {
	Rank             int
	UserID           uint
	Name             string
	Level            int
	CompletedLessons int
	AverageScore     float64
}

// ProgressRepo manages per-lesson progress.
type ProgressRepo interface {
	Get(ctx context.Context, userID, lessonID uint) (*UserProgress, error)
	// Finish sets the final status of a lesson and completes the session in
	// one transaction.
	Finish(ctx context.Context, userID, lessonID, sessionID uint, status string, score float64, at time.Time) (*UserProgress, error)
	ListByUser(ctx context.Context, userID uint) ([]UserProgress, error)
	Summary(ctx context.Context, userID uint) (ProgressSummary, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// CatalogRepo manages topics and lessons.
type CatalogRepo interface {
	UpsertTopic(ctx context.Context, t *Topic) error
	UpsertLesson(ctx context.Context, l *Lesson) error
	Topics(ctx context.Context) ([]Topic, error)
	Topic(ctx context.Context, id uint) (*Topic, error)
	LessonForLevel(ctx context.Context, level int) (*Lesson, error)
	Lesson(ctx context.Context, id uint) (*Lesson, error)
}

// ChatRepo stores assistant chat history.
type ChatRepo interface {
	Append(ctx context.Context, msg *ChatMessage) error
	Recent(ctx context.Context, userID uint, limit int) ([]ChatMessage, error)
	// Rate records a vote on an assistant message of the user. Rating a
	// message twice keeps the last vote.
	Rate(ctx context.Context, userID, messageID uint, helpful bool) error
}

// NotificationRepo manages scheduled notifications.
type NotificationRepo interface {
	Create(ctx context.Context, n *SystemNotification) error
	// Due lists unsent notifications scheduled at or before now, fewest
	// failed attempts first. Rows given up on are excluded.
	Due(ctx context.Context, now time.Time, limit int) ([]SystemNotification, error)
	MarkSent(ctx context.Context, id uint, at time.Time) error
	// MarkFailed counts a failed delivery. giveUp stops further attempts.
	MarkFailed(ctx context.Context, id uint, reason string, giveUp bool) error
	MarkRead(ctx context.Context, id uint, at time.Time) error
	// LastOfType returns the most recent notification of a type for a user.
	LastOfType(ctx context.Context, userID uint, typ string) (*SystemNotification, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
	GetLLMRequest(ctx context.Context, id uint) (*LLMRequestEvent, error)
	UsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	UsageByModel(ctx context.Context) ([]LLMUsage, error)
}

// LLMUsage aggregates LLM requests sharing a purpose or model.
type LLMUsage struct {
	Name         string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// GlobalStats is the aggregate served by the analytics endpoint.
type GlobalStats struct {
	Users          int64   `json:"users"`
	ActiveSessions int64   `json:"active_sessions"`
	Sessions       int64   `json:"sessions"`
	Attempts       int64   `json:"attempts"`
	CorrectRate    float64 `json:"correct_rate"`
	LLMRequests    int64   `json:"llm_requests"`
	FallbackRate   float64 `json:"fallback_rate"`
}

// StatsRepo computes aggregates.
type StatsRepo interface {
	Global(ctx context.Context) (GlobalStats, error)
}
