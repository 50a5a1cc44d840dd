package llm_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/riskbot/internal/llm"
	"github.com/abhisek/riskbot/internal/questiongen"
)

func TestValidateJSON_QuestionSchema(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{
			name:  "complete question",
			raw:   `{"question":"Что такое RTO?","options":["a","b","c","d"],"correct_answer":2,"explanation":"Время восстановления"}`,
			valid: true,
		},
		{
			name:  "optional topic",
			raw:   `{"question":"Что такое MTPD?","options":["a","b","c","d"],"correct_answer":0,"explanation":"Период простоя","topic":"Показатели"}`,
			valid: true,
		},
		{
			name: "fractional correct_answer",
			raw:  `{"question":"Что такое RTO?","options":["a","b","c","d"],"correct_answer":1.5,"explanation":"x"}`,
		},
		{
			name: "string correct_answer",
			raw:  `{"question":"Что такое RTO?","options":["a","b","c","d"],"correct_answer":"B","explanation":"x"}`,
		},
		{
			name: "missing explanation",
			raw:  `{"question":"Что такое RTO?","options":["a","b","c","d"],"correct_answer":0}`,
		},
		{
			name: "options not strings",
			raw:  `{"question":"Что такое RTO?","options":[1,2,3,4],"correct_answer":0,"explanation":"x"}`,
		},
		{
			name: "truncated JSON",
			raw:  `{"question":"Что такое RTO?","options":["a","b"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := llm.ValidateJSON(questiongen.QuestionSchema, json.RawMessage(tt.raw))
			if tt.valid {
				if err != nil {
					t.Fatalf("expected valid, got: %v", err)
				}
				return
			}
			var inv *llm.ErrInvalidResponse
			if !errors.As(err, &inv) {
				t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
			}
			if string(inv.Content) != tt.raw {
				t.Errorf("content = %s, want the raw response", inv.Content)
			}
		})
	}
}

func TestValidateJSON_NilSchema(t *testing.T) {
	if err := llm.ValidateJSON(nil, json.RawMessage(`Обычный текст ответа ассистента`)); err != nil {
		t.Fatalf("free text without a schema should pass, got: %v", err)
	}
}

func TestValidateJSON_SchemasCachedByName(t *testing.T) {
	level := func(maximum int) *llm.Schema {
		return &llm.Schema{
			Name: "difficulty-level",
			Definition: map[string]any{
				"type":       "object",
				"properties": map[string]any{"level": map[string]any{"type": "integer", "maximum": maximum}},
			},
		}
	}
	if err := llm.ValidateJSON(level(5), json.RawMessage(`{"level":5}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The compiled schema is reused by name, so a changed definition under
	// the same name still validates against the first one.
	if err := llm.ValidateJSON(level(3), json.RawMessage(`{"level":5}`)); err != nil {
		t.Fatalf("cached schema should be used, got: %v", err)
	}
	if err := llm.ValidateJSON(level(5), json.RawMessage(`{"level":6}`)); err == nil {
		t.Fatal("level above maximum should fail")
	}
}
