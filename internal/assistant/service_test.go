package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/llm"
	"github.com/abhisek/riskbot/internal/store"
)

type fakeProcessor struct {
	res *knowledge.QueryResult
	err error
	got int
}

func (f *fakeProcessor) Process(_ context.Context, _ string, difficulty int) (*knowledge.QueryResult, error) {
	f.got = difficulty
	return f.res, f.err
}

type memChat struct {
	msgs []store.ChatMessage
}

func (m *memChat) Append(_ context.Context, msg *store.ChatMessage) error {
	msg.ID = uint(len(m.msgs) + 1)
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *memChat) Rate(_ context.Context, userID, messageID uint, helpful bool) error {
	for i := range m.msgs {
		if m.msgs[i].ID == messageID && m.msgs[i].UserID == userID {
			m.msgs[i].Helpful = &helpful
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memChat) Recent(_ context.Context, _ uint, limit int) ([]store.ChatMessage, error) {
	if limit > 0 && len(m.msgs) > limit {
		return m.msgs[len(m.msgs)-limit:], nil
	}
	return m.msgs, nil
}

func result() *knowledge.QueryResult {
	return &knowledge.QueryResult{
		Query:      "Что такое RTO?",
		Type:       knowledge.QueryDefinition,
		Confidence: 0.6,
		Documents: []knowledge.Document{
			{ID: "l1-qa", Content: "RTO - целевое время восстановления процесса."},
			{ID: "l2-qa", Content: "MTPD - максимально допустимый период простоя."},
		},
		Suggestions: []string{"Что такое MTPD?"},
	}
}

var user = &store.User{ID: 7, CurrentDifficultyLevel: 3}

const longAnswer = "<b>RTO</b> - это целевое время восстановления критически важного процесса после инцидента."

func TestAskUsesLLM(t *testing.T) {
	proc := &fakeProcessor{res: result()}
	mock := llm.NewMockProvider(llm.MockResponse{Content: []byte(longAnswer)})
	chat := &memChat{}
	svc := NewService(mock, proc, chat, DefaultConfig(), nil)

	r, err := svc.Ask(context.Background(), user, "  Что такое RTO?  ")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if r.Source != SourceLLM || r.Text != longAnswer {
		t.Errorf("reply = %+v", r)
	}
	if proc.got != 3 {
		t.Errorf("processed at difficulty %d, want 3", proc.got)
	}
	if len(mock.Calls) != 1 {
		t.Fatalf("calls = %d", len(mock.Calls))
	}
	req := mock.Calls[0]
	if !strings.Contains(req.System, "четкое определение") {
		t.Errorf("system prompt not tailored: %q", req.System)
	}
	last := req.Messages[len(req.Messages)-1].Content
	if !strings.Contains(last, "RTO - целевое время") || !strings.Contains(last, "Вопрос: Что такое RTO?") {
		t.Errorf("user prompt = %q", last)
	}

	if len(chat.msgs) != 2 {
		t.Fatalf("stored %d messages, want 2", len(chat.msgs))
	}
	if chat.msgs[0].MessageType != store.MessageUser || chat.msgs[1].MessageType != store.MessageAssistant {
		t.Errorf("message types = %s, %s", chat.msgs[0].MessageType, chat.msgs[1].MessageType)
	}
	if got := chat.msgs[1].ContextUsed; len(got) != 2 || got[0] != "l1-qa" {
		t.Errorf("context used = %v", got)
	}
	if chat.msgs[1].ConfidenceScore != 0.6 {
		t.Errorf("confidence = %v", chat.msgs[1].ConfidenceScore)
	}
}

func TestRateAnswer(t *testing.T) {
	chat := &memChat{}
	svc := NewService(nil, &fakeProcessor{res: result()}, chat, DefaultConfig(), nil)

	r, err := svc.Ask(context.Background(), user, "Что такое RTO?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if r.MessageID != chat.msgs[1].ID {
		t.Fatalf("reply message id = %d, want stored answer %d", r.MessageID, chat.msgs[1].ID)
	}
	if err := svc.Rate(context.Background(), user.ID, r.MessageID, true); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if h := chat.msgs[1].Helpful; h == nil || !*h {
		t.Errorf("helpful = %v, want true", h)
	}
	if err := svc.Rate(context.Background(), user.ID, 99, false); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rating an unknown message: err = %v, want ErrNotFound", err)
	}
}

func TestAskFallsBackToExcerpt(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
	}{
		{"no provider", nil},
		{"provider error", llm.NewMockProvider(llm.MockResponse{Err: errors.New("boom")})},
		{"short reply", llm.NewMockProvider(llm.MockResponse{Content: []byte("Да.")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.provider, &fakeProcessor{res: result()}, &memChat{}, DefaultConfig(), nil)
			r, err := svc.Ask(context.Background(), user, "Что такое RTO?")
			if err != nil {
				t.Fatalf("Ask: %v", err)
			}
			if r.Source != SourceExcerpt {
				t.Errorf("source = %s, want excerpt", r.Source)
			}
			if !strings.HasPrefix(r.Text, "📚 <b>Ответ на основе методики банка:</b>") {
				t.Errorf("text = %q", r.Text)
			}
		})
	}
}

func TestAskWithoutContext(t *testing.T) {
	mock := llm.NewMockProvider()
	svc := NewService(mock, &fakeProcessor{res: &knowledge.QueryResult{Type: knowledge.QueryGeneral}}, &memChat{}, DefaultConfig(), nil)

	r, err := svc.Ask(context.Background(), user, "Погода завтра")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if r.Source != SourceNoContext || r.Text != NoContextReply {
		t.Errorf("reply = %+v", r)
	}
	if len(mock.Calls) != 0 {
		t.Error("LLM called without context")
	}
}

func TestAskErrors(t *testing.T) {
	svc := NewService(nil, &fakeProcessor{err: errors.New("index down")}, nil, DefaultConfig(), nil)
	if _, err := svc.Ask(context.Background(), user, "вопрос"); err == nil {
		t.Error("expected processor error")
	}
	if _, err := svc.Ask(context.Background(), user, "   "); err == nil {
		t.Error("expected empty question error")
	}
}

func TestHistoryReplayedToLLM(t *testing.T) {
	chat := &memChat{msgs: []store.ChatMessage{
		{MessageType: store.MessageAssistant, Content: "старый ответ"},
		{MessageType: store.MessageUser, Content: "Что такое RTO?"},
		{MessageType: store.MessageAssistant, Content: "RTO - это..."},
	}}
	mock := llm.NewMockProvider(llm.MockResponse{Content: []byte(longAnswer)})
	svc := NewService(mock, &fakeProcessor{res: result()}, chat, DefaultConfig(), nil)

	if _, err := svc.Ask(context.Background(), user, "А чем оно отличается от MTPD?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	msgs := mock.Calls[0].Messages
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if msgs[0].Role != llm.RoleUser || msgs[1].Role != llm.RoleAssistant {
		t.Errorf("roles = %s, %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestHistoryDropsUnansweredQuestions(t *testing.T) {
	chat := &memChat{msgs: []store.ChatMessage{
		{MessageType: store.MessageUser, Content: "q1"},
		{MessageType: store.MessageAssistant, Content: "a1"},
		{MessageType: store.MessageUser, Content: "без ответа"},
		{MessageType: store.MessageUser, Content: "q2"},
		{MessageType: store.MessageAssistant, Content: "a2"},
		{MessageType: store.MessageUser, Content: "последний без ответа"},
	}}
	tests := []struct {
		turns int
		want  []string
	}{
		{1, []string{"q2", "a2"}},
		{2, []string{"q1", "a1", "q2", "a2"}},
		{5, []string{"q1", "a1", "q2", "a2"}},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.HistoryTurns = tt.turns
		mock := llm.NewMockProvider(llm.MockResponse{Content: []byte(longAnswer)})
		svc := NewService(mock, &fakeProcessor{res: result()}, &memChat{msgs: chat.msgs}, cfg, nil)
		if _, err := svc.Ask(context.Background(), user, "Что такое MTPD?"); err != nil {
			t.Fatalf("Ask: %v", err)
		}

		msgs := mock.Calls[0].Messages
		if len(msgs) != len(tt.want)+1 {
			t.Fatalf("turns=%d: messages = %d, want %d", tt.turns, len(msgs), len(tt.want)+1)
		}
		for i, w := range tt.want {
			if msgs[i].Content != w {
				t.Errorf("turns=%d: message %d = %q, want %q", tt.turns, i, msgs[i].Content, w)
			}
		}
		for i := 1; i < len(msgs); i++ {
			if msgs[i].Role == msgs[i-1].Role {
				t.Errorf("turns=%d: roles repeat at %d", tt.turns, i)
			}
		}
	}
}

func TestExcerptTruncatesRunes(t *testing.T) {
	got := excerptReply(strings.Repeat("я", 900), 800)
	if !strings.Contains(got, strings.Repeat("я", 800)+"...") || strings.Contains(got, strings.Repeat("я", 801)) {
		t.Error("excerpt not truncated at 800 runes")
	}
}

func TestFAQ(t *testing.T) {
	if len(FAQ()) != 5 {
		t.Errorf("FAQ has %d entries", len(FAQ()))
	}
	e, ok := FAQAt(5)
	if !ok || !strings.Contains(e.Answer, "T_R") {
		t.Errorf("FAQAt(5) = %+v, %v", e, ok)
	}
	if _, ok := FAQAt(0); ok {
		t.Error("FAQAt(0) should be out of range")
	}
}
