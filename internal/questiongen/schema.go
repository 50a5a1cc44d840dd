package questiongen

import "github.com/abhisek/riskbot/internal/llm"

// QuestionSchema is the JSON contract requested from the LLM. It checks
// shape and types; lengths and counts are left to the validator chain.
var QuestionSchema = &llm.Schema{
	Name:        "risk-question",
	Description: "A multiple-choice question on bank business-continuity risk",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question shown to the learner, in Russian",
			},
			"options": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Exactly 4 answer options",
			},
			"correct_answer": map[string]any{
				"type":        "integer",
				"description": "Zero-based index of the correct option",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Why the correct option is right",
			},
			"topic": map[string]any{
				"type": "string",
			},
		},
		"required": []any{"question", "options", "correct_answer", "explanation"},
	},
}
