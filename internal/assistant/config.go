package assistant

// Config holds the assistant generation settings.
type Config struct {
	MaxTokens   int
	Temperature float64
	// ContextDocs is how many retrieved documents go into the prompt.
	ContextDocs int
	// ExcerptChars bounds the methodology excerpt used when the LLM fails.
	ExcerptChars int
	// HistoryTurns is how many earlier question and answer pairs are
	// replayed to the LLM.
	HistoryTurns int
}

// DefaultConfig returns the defaults for answering learner questions.
func DefaultConfig() Config {
	return Config{
		MaxTokens:    1024,
		Temperature:  0.5,
		ContextDocs:  3,
		ExcerptChars: 800,
		HistoryTurns: 2,
	}
}
