package store

import "time"

// Session states.
const (
	SessionActive    = "active"
	SessionPaused    = "paused"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

// Progress statuses.
const (
	ProgressNotStarted  = "not_started"
	ProgressInProgress  = "in_progress"
	ProgressCompleted   = "completed"
	ProgressNeedsReview = "needs_review"
)

// Chat message types.
const (
	MessageUser      = "user"
	MessageAssistant = "assistant"
)

// Attempt sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// User is a learner, created on first contact.
type User struct {
	ID                     uint   `gorm:"primaryKey"`
	TelegramID             int64  `gorm:"uniqueIndex;not null"`
	Username               string `gorm:"size:255"`
	FirstName              string `gorm:"size:255"`
	LastName               string `gorm:"size:255"`
	CurrentDifficultyLevel int    `gorm:"not null;default:1"`
	PreferredLanguage      string `gorm:"size:10;not null;default:ru"`
	NotificationsEnabled   bool   `gorm:"not null;default:true"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
	LastActivity           time.Time `gorm:"index"`
}

// DisplayName returns the best human name for the user.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return "Аноним"
	}
}

type Topic struct {
	ID              uint   `gorm:"primaryKey"`
	Title           string `gorm:"size:255;not null"`
	Description     string
	DifficultyLevel int  `gorm:"not null;default:1"`
	OrderIndex      int  `gorm:"not null;default:0"`
	IsActive        bool `gorm:"not null;default:true"`
	CreatedAt       time.Time
	Lessons         []Lesson
}

type Lesson struct {
	ID                       uint   `gorm:"primaryKey"`
	TopicID                  uint   `gorm:"index;not null"`
	Title                    string `gorm:"size:255;not null"`
	Description              string
	Content                  string
	DifficultyLevel          int      `gorm:"not null;default:1"`
	OrderIndex               int      `gorm:"not null;default:0"`
	EstimatedDurationMinutes int      `gorm:"not null;default:15"`
	LearningObjectives       []string `gorm:"serializer:json"`
	IsActive                 bool     `gorm:"not null;default:true"`
	CreatedAt                time.Time
}

// Question is a catalog question. The generation pipeline does not write here.
type Question struct {
	ID              uint   `gorm:"primaryKey"`
	LessonID        uint   `gorm:"index;not null"`
	QuestionText    string `gorm:"not null"`
	QuestionType    string `gorm:"size:50;not null;default:multiple_choice"`
	DifficultyLevel int    `gorm:"not null;default:1"`
	Options         []string `gorm:"serializer:json"`
	CorrectAnswer   int
	Explanation     string
	IsActive        bool `gorm:"not null;default:true"`
	CreatedAt       time.Time
}

type LearningSession struct {
	ID                     uint   `gorm:"primaryKey"`
	UserID                 uint   `gorm:"index;not null"`
	State                  string `gorm:"size:20;index;not null"`
	CurrentTopicID         *uint
	CurrentLessonID        *uint
	TotalQuestionsAnswered int
	CorrectAnswers         int
	CurrentStreak          int
	MaxStreak              int
	ConsecutiveIncorrect   int
	AgentState             map[string]any `gorm:"serializer:json"`
	StartedAt              time.Time
	LastActivityAt         time.Time
	CompletedAt            *time.Time
}

// Duration is the time spent in the session so far.
func (s *LearningSession) Duration() time.Duration {
	end := s.LastActivityAt
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// QuestionAttempt is append-only.
type QuestionAttempt struct {
	ID           uint  `gorm:"primaryKey"`
	UserID       uint  `gorm:"index;not null"`
	QuestionID   *uint `gorm:"index"`
	SessionID    uint  `gorm:"index;not null"`
	QuestionText string
	UserAnswer   string `gorm:"size:50"`
	IsCorrect    bool
	Difficulty   int
	AIFeedback   string
	Source       string `gorm:"size:20"`
	CreatedAt    time.Time `gorm:"index"`
}

type UserProgress struct {
	ID                   uint   `gorm:"primaryKey"`
	UserID               uint   `gorm:"uniqueIndex:idx_user_lesson;not null"`
	LessonID             uint   `gorm:"uniqueIndex:idx_user_lesson;not null"`
	Status               string `gorm:"size:20;not null"`
	CompletionPercentage float64
	TotalAttempts        int
	CorrectAttempts      int
	AverageScore         float64
	FirstAttemptAt       *time.Time
	LastAttemptAt        *time.Time
	CompletedAt          *time.Time
}

type ChatMessage struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index;not null"`
	MessageType     string `gorm:"size:20;not null"`
	Content         string `gorm:"not null"`
	ContextUsed     []string `gorm:"serializer:json"`
	ConfidenceScore float64
	// Helpful is the learner's vote on an assistant message, nil until rated.
	Helpful   *bool
	CreatedAt time.Time `gorm:"index"`
}

type SystemNotification struct {
	ID               uint   `gorm:"primaryKey"`
	UserID           uint   `gorm:"index;not null"`
	NotificationType string `gorm:"size:50;not null"`
	Title            string `gorm:"size:255"`
	Message          string
	IsSent           bool `gorm:"index"`
	IsRead           bool
	ScheduledFor     time.Time `gorm:"index"`
	SentAt           *time.Time
	ReadAt           *time.Time
	// Attempts counts failed deliveries. A row with GaveUp set is never
	// delivered.
	Attempts  int    `gorm:"not null;default:0"`
	LastError string `gorm:"size:500"`
	GaveUp    bool   `gorm:"index;not null;default:false"`
	CreatedAt time.Time
}

// LLMRequestEvent records one provider call.
type LLMRequestEvent struct {
	ID           uint   `gorm:"primaryKey"`
	Provider     string `gorm:"size:50"`
	Model        string `gorm:"size:100;index"`
	Purpose      string `gorm:"size:50;index"`
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
	CreatedAt    time.Time `gorm:"index"`
}

func allModels() []any {
	return []any{
		&User{}, &Topic{}, &Lesson{}, &Question{},
		&LearningSession{}, &QuestionAttempt{}, &UserProgress{},
		&ChatMessage{}, &SystemNotification{}, &LLMRequestEvent{},
	}
}

func (UserProgress) TableName() string    { return "user_progress" }
func (LLMRequestEvent) TableName() string { return "llm_request_events" }
