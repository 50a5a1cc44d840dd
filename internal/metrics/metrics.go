// Package metrics holds the Prometheus collectors and the analytics HTTP
// server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuestionsGenerated counts questions by where they came from: llm or
	// fallback.
	QuestionsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_questions_generated_total",
			Help: "Total number of questions served, by source",
		},
		[]string{"source"},
	)

	// QuestionFallbacks counts fallbacks by the pipeline stage that failed.
	QuestionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_question_fallbacks_total",
			Help: "Total number of fallback questions, by failing stage",
		},
		[]string{"stage"},
	)

	AnswersEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_answers_total",
			Help: "Total number of evaluated answers",
		},
		[]string{"correct"}, // true/false/skipped
	)

	LessonsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_lessons_completed_total",
			Help: "Total number of finished lessons, by outcome",
		},
		[]string{"outcome"}, // completed/needs_review
	)

	DifficultyChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_difficulty_changes_total",
			Help: "Total number of difficulty level changes",
		},
		[]string{"direction"}, // up/down
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_llm_requests_total",
			Help: "Total number of LLM requests",
		},
		[]string{"provider", "purpose", "status"},
	)

	LLMRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_llm_retries_total",
			Help: "LLM requests repeated after a transient error, by error kind",
		},
		[]string{"purpose", "reason"},
	)

	LLMLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskbot_llm_request_duration_seconds",
			Help:    "Time spent waiting for the LLM",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider", "purpose"},
	)

	KnowledgeSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_knowledge_searches_total",
			Help: "Total number of knowledge searches, by cache result",
		},
		[]string{"cache"}, // hit/miss/error
	)

	UpdatesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_telegram_updates_total",
			Help: "Total number of Telegram updates handled",
		},
		[]string{"kind"}, // message/callback/other
	)

	UpdatesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskbot_telegram_updates_in_flight",
			Help: "Current number of updates being handled",
		},
	)

	AssistantFeedback = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskbot_assistant_feedback_total",
			Help: "Learner votes on assistant answers",
		},
		[]string{"vote"},
	)

	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "riskbot_reminders_sent_total",
			Help: "Total number of reminder notifications delivered",
		},
	)
)
