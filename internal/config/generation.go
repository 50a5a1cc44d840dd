package config

import (
	"github.com/abhisek/riskbot/internal/assistant"
	"github.com/abhisek/riskbot/internal/questiongen"
)

// QuestionConfig returns the question pipeline settings with the
// configured sampling and retrieval limits.
func (c *Config) QuestionConfig() questiongen.Config {
	q := questiongen.DefaultConfig()
	q.MaxTokens = c.LLM.MaxTokens
	q.Temperature = c.LLM.Temperature
	q.ContextLimit = c.Knowledge.TopK
	return q
}

// AssistantConfig returns the assistant settings. Temperature is capped at
// the assistant default.
func (c *Config) AssistantConfig() assistant.Config {
	a := assistant.DefaultConfig()
	a.MaxTokens = c.LLM.MaxTokens
	a.Temperature = min(c.LLM.Temperature, a.Temperature)
	a.ContextDocs = c.Knowledge.TopK
	return a
}
