// Package assistant answers free-form learner questions from the
// methodology knowledge base, with the LLM phrasing the answer when it is
// available.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/llm"
	"github.com/abhisek/riskbot/internal/metrics"
	"github.com/abhisek/riskbot/internal/questiongen"
	"github.com/abhisek/riskbot/internal/store"
)

// Answer sources.
const (
	SourceLLM       = "llm"
	SourceExcerpt   = "excerpt"
	SourceNoContext = "no_context"
)

// Processor prepares queries. *knowledge.QueryProcessor satisfies it.
type Processor interface {
	Process(ctx context.Context, query string, difficulty int) (*knowledge.QueryResult, error)
}

// Reply is the assistant answer to one question.
type Reply struct {
	Text        string
	Type        string
	Confidence  float64
	Suggestions []string
	Source      string
	// MessageID is the stored assistant message, zero when it was not saved.
	MessageID uint
}

// Service answers learner questions. provider may be nil, in which case
// answers are methodology excerpts.
type Service struct {
	provider llm.Provider
	queries  Processor
	chat     store.ChatRepo
	cfg      Config
	logger   *slog.Logger
}

// NewService creates an assistant.
func NewService(provider llm.Provider, queries Processor, chat store.ChatRepo, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, queries: queries, chat: chat, cfg: cfg, logger: logger}
}

// Ask answers question for user and stores both sides in the chat history.
func (s *Service) Ask(ctx context.Context, user *store.User, question string) (*Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	res, err := s.queries.Process(ctx, question, user.CurrentDifficultyLevel)
	if err != nil {
		return nil, fmt.Errorf("process query: %w", err)
	}

	reply := &Reply{Type: res.Type, Confidence: res.Confidence, Suggestions: res.Suggestions}
	ctxText := contextText(res.Documents, s.cfg.ContextDocs)
	switch {
	case ctxText == "":
		reply.Text = NoContextReply
		reply.Source = SourceNoContext
	default:
		text, ok := s.generate(ctx, user, res.Type, ctxText, question)
		if ok {
			reply.Text = text
			reply.Source = SourceLLM
		} else {
			reply.Text = excerptReply(ctxText, s.cfg.ExcerptChars)
			reply.Source = SourceExcerpt
		}
	}

	s.remember(ctx, user.ID, question, reply, res.Documents)
	return reply, nil
}

// generate asks the LLM for an answer. ok is false when there is no
// provider, the call failed or the reply is too short to show.
func (s *Service) generate(ctx context.Context, user *store.User, queryType, ctxText, question string) (string, bool) {
	if s.provider == nil {
		return "", false
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeAssistant)

	req := llm.Request{
		System:      systemPrompt(queryType),
		Messages:    append(s.history(ctx, user.ID), llm.Message{Role: llm.RoleUser, Content: userPrompt(ctxText, question)}),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "assistant generation failed", slog.Any("error", err))
		return "", false
	}
	text := strings.TrimSpace(string(resp.Content))
	if !questiongen.CheckContentLength(text) {
		s.logger.WarnContext(ctx, "assistant reply too short", slog.Int("chars", len([]rune(text))))
		return "", false
	}
	return text, true
}

// history replays the last HistoryTurns question and answer pairs so
// follow-up questions have context. Messages without a partner are dropped,
// so roles alternate and the replay ends with an assistant message.
func (s *Service) history(ctx context.Context, userID uint) []llm.Message {
	if s.chat == nil || s.cfg.HistoryTurns <= 0 {
		return nil
	}
	// Read extra rows so orphaned messages do not shrink the replay.
	msgs, err := s.chat.Recent(ctx, userID, s.cfg.HistoryTurns*2+2)
	if err != nil {
		s.logger.WarnContext(ctx, "load chat history", slog.Any("error", err))
		return nil
	}
	return pairTurns(msgs, s.cfg.HistoryTurns)
}

func pairTurns(msgs []store.ChatMessage, turns int) []llm.Message {
	var out []llm.Message
	for i := 0; i+1 < len(msgs); i++ {
		q, a := msgs[i], msgs[i+1]
		if q.MessageType != store.MessageUser || a.MessageType != store.MessageAssistant {
			continue
		}
		out = append(out,
			llm.Message{Role: llm.RoleUser, Content: q.Content},
			llm.Message{Role: llm.RoleAssistant, Content: a.Content})
		i++
	}
	if n := turns * 2; len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func (s *Service) remember(ctx context.Context, userID uint, question string, reply *Reply, docs []knowledge.Document) {
	if s.chat == nil {
		return
	}
	used := make([]string, 0, len(docs))
	for _, d := range docs {
		used = append(used, d.ID)
	}
	msgs := []*store.ChatMessage{
		{UserID: userID, MessageType: store.MessageUser, Content: question},
		{UserID: userID, MessageType: store.MessageAssistant, Content: reply.Text, ContextUsed: used, ConfidenceScore: reply.Confidence},
	}
	for _, m := range msgs {
		if err := s.chat.Append(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "save chat message", slog.Any("error", err))
			return
		}
	}
	reply.MessageID = msgs[1].ID
}

// Rate stores the learner's vote on an answer.
func (s *Service) Rate(ctx context.Context, userID, messageID uint, helpful bool) error {
	vote := "no"
	if helpful {
		vote = "yes"
	}
	metrics.AssistantFeedback.WithLabelValues(vote).Inc()
	if s.chat == nil {
		return nil
	}
	if err := s.chat.Rate(ctx, userID, messageID, helpful); err != nil {
		return fmt.Errorf("rate answer: %w", err)
	}
	return nil
}

// History returns the user's recent chat messages, oldest first.
func (s *Service) History(ctx context.Context, userID uint, limit int) ([]store.ChatMessage, error) {
	if s.chat == nil {
		return nil, nil
	}
	return s.chat.Recent(ctx, userID, limit)
}
