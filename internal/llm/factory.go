package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// NewProvider creates the configured Provider wrapped with middleware:
// caller → timeout → retry → logging → base.
func NewProvider(ctx context.Context, cfg Config, events EventRecorder, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := newBaseProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	if cfg.Provider == ProviderMock {
		return base, nil
	}

	logged := WithLogging(base, cfg.Provider, events, logger)
	retried := logged
	if cfg.Retry.MaxAttempts > 1 {
		retried = WithRetry(logged, cfg.Retry)
	}
	return WithTimeout(retried, cfg.Timeout), nil
}

func newBaseProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI)
	case ProviderLMStudio:
		return NewLocalProvider(cfg.LMStudio)
	case ProviderOllama:
		return NewLocalProvider(cfg.Ollama)
	case ProviderAzure:
		return NewAzureProvider(cfg.Azure)
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.Anthropic)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		return NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
