package questiongen

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/riskbot/internal/difficulty"
	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/llm"
	"github.com/abhisek/riskbot/internal/metrics"
)

// Config controls the Generator.
type Config struct {
	// Validators run in order on every candidate; the first failure
	// rejects it.
	Validators []Validator

	// ContextLimit is how many chunks are retrieved.
	ContextLimit int

	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the standard validator chain and limits.
func DefaultConfig() Config {
	return Config{
		Validators:   DefaultValidators(),
		ContextLimit: knowledge.ContextLimit,
		MaxTokens:    1024,
		Temperature:  0.7,
	}
}

// Generator runs the question pipeline.
type Generator struct {
	provider llm.Provider
	search   knowledge.Searcher
	config   Config
	logger   *slog.Logger
}

// New creates a Generator. provider and search may be nil; the missing
// stage then degrades or falls back.
func New(provider llm.Provider, search knowledge.Searcher, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ContextLimit <= 0 {
		cfg.ContextLimit = knowledge.ContextLimit
	}
	return &Generator{provider: provider, search: search, config: cfg, logger: logger}
}

// Generate produces a question for in. It never fails: every error routes
// to the fallback bank and is reported in the Result.
func (g *Generator) Generate(ctx context.Context, in Input) Result {
	in.Difficulty = difficulty.Clamp(in.Difficulty)
	level := in.Difficulty
	log := g.logger.With(slog.Int("difficulty", level))

	query := BuildQuery(level)

	contextText, degraded := g.retrieve(ctx, log, query)

	nonce := uuid.NewString()
	userMsg := buildUserMessage(level, in.Topic, contextText, nonce)

	if g.provider == nil {
		return g.fallback(log, in, StageCallLLM, "no LLM provider configured", degraded)
	}

	resp, err := g.provider.Generate(llm.WithDefaultPurpose(ctx, llm.PurposeQuestion), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		reason := err.Error()
		var to *llm.ErrTimeout
		if errors.As(err, &to) {
			reason = "timeout: " + reason
		}
		return g.fallback(log, in, StageCallLLM, reason, degraded)
	}

	cand, raw := parseCandidate(resp.Text())
	if cand == nil {
		return g.fallback(log, in, StageParseResponse, "no JSON object in response", degraded)
	}

	if err := llm.ValidateJSON(QuestionSchema, raw); err != nil {
		return g.fallback(log, in, StageValidate, err.Error(), degraded)
	}
	if verr := runValidators(g.config.Validators, cand); verr != nil {
		return g.fallback(log, in, StageValidate, verr.Error(), degraded)
	}

	topic := strings.TrimSpace(cand.Topic)
	if topic == "" {
		topic = in.Topic
	}
	if topic == "" {
		topic = DefaultTopic
	}
	q := &Question{
		Token:       newToken(),
		Text:        strings.TrimSpace(cand.Question),
		Options:     trimAll(cand.Options),
		Correct:     int(cand.CorrectAnswer),
		Explanation: strings.TrimSpace(cand.Explanation),
		Difficulty:  level,
		Topic:       topic,
		Source:      SourceLLM,
	}

	metrics.QuestionsGenerated.WithLabelValues(string(SourceLLM)).Inc()
	log.Info("question generated", slog.String("source", string(SourceLLM)), slog.Bool("degraded", degraded))
	return Result{Question: q, Source: SourceLLM, Stage: StageAccept, Degraded: degraded}
}

// retrieve runs RETRIEVE_CONTEXT. An error or empty result degrades to the
// placeholder context.
func (g *Generator) retrieve(ctx context.Context, log *slog.Logger, query string) (string, bool) {
	if g.search == nil {
		return PlaceholderContext, true
	}
	docs, err := g.search.Search(ctx, query, g.config.ContextLimit, nil)
	if err != nil {
		log.Warn("knowledge search failed", slog.String("query", query), slog.Any("error", err))
		return PlaceholderContext, true
	}
	if len(docs) == 0 {
		log.Warn("knowledge search returned nothing", slog.String("query", query))
		return PlaceholderContext, true
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n\n"), false
}

func (g *Generator) fallback(log *slog.Logger, in Input, stage Stage, reason string, degraded bool) Result {
	q := Fallback(in.Difficulty)
	q.Token = newToken()

	metrics.QuestionsGenerated.WithLabelValues(string(SourceFallback)).Inc()
	metrics.QuestionFallbacks.WithLabelValues(string(stage)).Inc()
	log.Warn("using fallback question",
		slog.String("stage", string(stage)),
		slog.String("reason", reason),
		slog.Bool("degraded", degraded))

	return Result{Question: q, Source: SourceFallback, Stage: stage, Reason: reason, Degraded: degraded}
}

// newToken is a short unique id that fits Telegram callback data.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
