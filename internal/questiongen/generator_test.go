package questiongen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/llm"
)

const validJSON = `{"question":"Что определяет показатель RTO для критичного процесса?","options":["Целевое время восстановления","Объем потерянных данных","Стоимость простоя","Число сотрудников"],"correct_answer":0,"explanation":"RTO задает время, за которое процесс должен быть восстановлен после сбоя."}`

type stubSearcher struct {
	docs    []knowledge.Document
	err     error
	queries []string
	limits  []int
}

func (s *stubSearcher) Search(_ context.Context, query string, limit int, _ map[string]string) ([]knowledge.Document, error) {
	s.queries = append(s.queries, query)
	s.limits = append(s.limits, limit)
	return s.docs, s.err
}

func methodology() *stubSearcher {
	return &stubSearcher{docs: []knowledge.Document{
		{Content: "RTO устанавливается по результатам BIA."},
		{Content: "MTPD ограничивает допустимый простой."},
	}}
}

// assertUsable checks the VALIDATE contract on a result.
func assertUsable(t *testing.T, r Result, level int) {
	t.Helper()
	q := r.Question
	if q == nil {
		t.Fatal("result has no question")
	}
	if len(q.Options) != OptionCount {
		t.Fatalf("options = %d", len(q.Options))
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		t.Fatalf("correct index %d out of bounds", q.Correct)
	}
	if strings.TrimSpace(q.Explanation) == "" {
		t.Fatal("empty explanation")
	}
	if q.Difficulty != level {
		t.Fatalf("difficulty = %d, want %d", q.Difficulty, level)
	}
	if q.Token == "" || q.Source != r.Source {
		t.Fatalf("token %q source %q/%q", q.Token, q.Source, r.Source)
	}
}

func TestGenerate_Accept(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockText("Вот вопрос:\n```json\n" + validJSON + "\n```"))
	search := methodology()
	gen := New(mock, search, DefaultConfig(), nil)

	r := gen.Generate(context.Background(), Input{Difficulty: 3, Topic: "Показатели восстановления"})
	assertUsable(t, r, 3)

	if r.Source != SourceLLM || r.Stage != StageAccept || r.Degraded {
		t.Fatalf("result = %+v", r)
	}
	if r.Question.Topic != "Показатели восстановления" {
		t.Errorf("topic = %q", r.Question.Topic)
	}
	if r.Question.CorrectOption() != "Целевое время восстановления" {
		t.Errorf("correct option = %q", r.Question.CorrectOption())
	}

	if search.queries[0] != "банковские риски анализ оценка" || search.limits[0] != 3 {
		t.Errorf("query = %q limit %d", search.queries[0], search.limits[0])
	}

	call, _ := mock.LastCall()
	if call.Schema != nil {
		t.Error("question request must not set a schema")
	}
	msg := call.Messages[0].Content
	for _, want := range []string{"Уровень сложности: 3 (Продвинутый)", "Показатели восстановления, анализ", "RTO устанавливается по результатам BIA.\n\nMTPD"} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q:\n%s", want, msg)
		}
	}
}

func TestGenerate_DefaultTopic(t *testing.T) {
	gen := New(llm.NewMockProvider(llm.MockText(validJSON)), methodology(), DefaultConfig(), nil)
	r := gen.Generate(context.Background(), Input{Difficulty: 1})
	if r.Question.Topic != DefaultTopic {
		t.Fatalf("topic = %q", r.Question.Topic)
	}
}

// The LLM returns the literal string "not json".
func TestGenerate_NotJSONFallsBack(t *testing.T) {
	gen := New(llm.NewMockProvider(llm.MockText("not json")), methodology(), DefaultConfig(), nil)

	for level := 1; level <= 5; level++ {
		r := gen.Generate(context.Background(), Input{Difficulty: level})
		if r.Source != SourceFallback || r.Stage != StageCallLLM && r.Stage != StageParseResponse {
			t.Fatalf("level %d: result = %+v", level, r)
		}
		assertUsable(t, r, level)
	}
}

func TestGenerate_FallbackStages(t *testing.T) {
	tests := []struct {
		name  string
		resp  llm.MockResponse
		stage Stage
	}{
		{"provider error", llm.MockError(&llm.ErrProviderUnavailable{Err: errors.New("connection refused")}), StageCallLLM},
		{"timeout", llm.MockError(&llm.ErrTimeout{After: time.Minute, Err: context.DeadlineExceeded}), StageCallLLM},
		{"garbage", llm.MockText("not json"), StageParseResponse},
		{"broken json", llm.MockText(`{"question": "Что`), StageParseResponse},
		{"schema type", llm.MockText(`{"question":"Что такое RTO в банке?","options":["a","b","c","d"],"correct_answer":1.5,"explanation":"Время восстановления процесса."}`), StageValidate},
		{"missing field", llm.MockText(`{"question":"Что такое RTO в банке?","options":["a","b","c","d"],"correct_answer":1}`), StageValidate},
		{"three options", llm.MockText(`{"question":"Что такое RTO в банке?","options":["a","b","c"],"correct_answer":1,"explanation":"Время восстановления процесса."}`), StageValidate},
		{"index out of range", llm.MockText(`{"question":"Что такое RTO в банке?","options":["a","b","c","d"],"correct_answer":4,"explanation":"Время восстановления процесса."}`), StageValidate},
		{"short question", llm.MockText(`{"question":"RTO?","options":["a","b","c","d"],"correct_answer":0,"explanation":"Время восстановления процесса."}`), StageValidate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := New(llm.NewMockProvider(tt.resp), methodology(), DefaultConfig(), nil)
			r := gen.Generate(context.Background(), Input{Difficulty: 2})
			if r.Source != SourceFallback {
				t.Fatalf("source = %q", r.Source)
			}
			if r.Stage != tt.stage {
				t.Fatalf("stage = %q, want %q (reason %s)", r.Stage, tt.stage, r.Reason)
			}
			if r.Reason == "" {
				t.Error("fallback without reason")
			}
			assertUsable(t, r, 2)
		})
	}
}

func TestGenerate_RetrievalDegrades(t *testing.T) {
	for name, search := range map[string]*stubSearcher{
		"empty": {},
		"error": {err: errors.New("vector store offline")},
	} {
		t.Run(name, func(t *testing.T) {
			mock := llm.NewMockProvider(llm.MockText(validJSON))
			r := New(mock, search, DefaultConfig(), nil).Generate(context.Background(), Input{Difficulty: 1})
			if r.Source != SourceLLM || !r.Degraded {
				t.Fatalf("result = %+v", r)
			}
			call, _ := mock.LastCall()
			if !strings.Contains(call.Messages[0].Content, PlaceholderContext) {
				t.Error("prompt should carry the placeholder context")
			}
		})
	}
}

func TestGenerate_NilProvider(t *testing.T) {
	r := New(nil, nil, DefaultConfig(), nil).Generate(context.Background(), Input{Difficulty: 4})
	if r.Source != SourceFallback || r.Stage != StageCallLLM {
		t.Fatalf("result = %+v", r)
	}
	assertUsable(t, r, 4)
}

func TestGenerate_FallbackUsesClampedLevel(t *testing.T) {
	r := New(nil, nil, DefaultConfig(), nil).Generate(context.Background(), Input{Difficulty: 9})
	assertUsable(t, r, 5)
	found := false
	for _, e := range bank[5] {
		if e.text == r.Question.Text {
			found = true
		}
	}
	if !found {
		t.Fatalf("fallback %q is not from the level 5 bank", r.Question.Text)
	}
}

func TestGenerate_ContextTruncated(t *testing.T) {
	long := strings.Repeat("я", 4000)
	mock := llm.NewMockProvider(llm.MockText(validJSON))
	search := &stubSearcher{docs: []knowledge.Document{{Content: long}}}
	New(mock, search, DefaultConfig(), nil).Generate(context.Background(), Input{Difficulty: 1})

	call, _ := mock.LastCall()
	prompt := call.Messages[0].Content
	_, section, ok := strings.Cut(prompt, "Контекст из методики:\n")
	if !ok {
		t.Fatal("prompt has no context section")
	}
	section, _, ok = strings.Cut(section, "\n\nФормат ответа")
	if !ok {
		t.Fatal("prompt has no answer format section")
	}
	if n := utf8.RuneCountInString(section); n != MaxContextChars {
		t.Fatalf("context runes = %d, want %d", n, MaxContextChars)
	}
	if strings.Trim(section, "я") != "" {
		t.Error("context section should hold only the methodology text")
	}
}

func TestGenerate_NonceVaries(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockText(validJSON), llm.MockText(validJSON))
	gen := New(mock, methodology(), DefaultConfig(), nil)
	a := gen.Generate(context.Background(), Input{Difficulty: 1})
	b := gen.Generate(context.Background(), Input{Difficulty: 1})

	if mock.Calls[0].Messages[0].Content == mock.Calls[1].Messages[0].Content {
		t.Error("prompts should differ by nonce")
	}
	if a.Question.Token == b.Question.Token {
		t.Error("tokens should be unique")
	}
}

// An accepted question answered with its own index evaluates as correct.
func TestAcceptedQuestionRoundTrip(t *testing.T) {
	gen := New(llm.NewMockProvider(llm.MockText(validJSON)), methodology(), DefaultConfig(), nil)
	q := gen.Generate(context.Background(), Input{Difficulty: 2}).Question
	if !Evaluate(ParseAnswer(string(rune('0'+q.Correct))), q.Correct) {
		t.Fatal("own correct index should evaluate as correct")
	}
}
