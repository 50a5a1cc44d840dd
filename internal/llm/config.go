package llm

import (
	"fmt"
	"time"
)

// Provider names accepted by NewProvider.
const (
	ProviderOpenAI     = "openai"
	ProviderLMStudio   = "lm_studio"
	ProviderOllama     = "ollama"
	ProviderAzure      = "azure"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM backend to use.
	Provider string

	OpenAI     OpenAIConfig
	LMStudio   LocalConfig
	Ollama     LocalConfig
	Azure      AzureConfig
	Anthropic  AnthropicConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds a single Generate call including retries.
	// Allowed range: 30s to 120s.
	Timeout time.Duration
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for compatible APIs.
}

// LocalConfig describes a local OpenAI-compatible server (LM Studio, Ollama).
type LocalConfig struct {
	URL    string
	Model  string
	APIKey string // Most local servers accept any non-empty key.
}

// AzureConfig holds Azure OpenAI configuration.
type AzureConfig struct {
	APIKey     string
	Endpoint   string
	APIVersion string // Default: "2024-02-15-preview"
	Deployment string
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.0-flash-exp"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures retry behavior for transient failures.
// MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// Timeout bounds.
const (
	MinTimeout = 30 * time.Second
	MaxTimeout = 120 * time.Second
)

// DefaultConfig returns a Config targeting a local LM Studio server.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderLMStudio,
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		LMStudio: LocalConfig{
			URL:    "http://localhost:1234/v1",
			Model:  "qwen2.5-7b-instruct",
			APIKey: "lm-studio",
		},
		Ollama: LocalConfig{
			URL:   "http://localhost:11434/v1",
			Model: "llama3.1",
		},
		Azure: AzureConfig{
			APIVersion: "2024-02-15-preview",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-exp",
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// Validate checks that the selected provider has what it needs to connect
// and that the timeout is within bounds.
func (c Config) Validate() error {
	if c.Provider != ProviderMock && (c.Timeout < MinTimeout || c.Timeout > MaxTimeout) {
		return fmt.Errorf("llm timeout must be between %s and %s, got %s", MinTimeout, MaxTimeout, c.Timeout)
	}

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderLMStudio:
		if c.LMStudio.URL == "" {
			return fmt.Errorf("LM_STUDIO_URL is required for the lm_studio provider")
		}
	case ProviderOllama:
		if c.Ollama.URL == "" {
			return fmt.Errorf("OLLAMA_URL is required for the ollama provider")
		}
	case ProviderAzure:
		if c.Azure.APIKey == "" || c.Azure.Endpoint == "" || c.Azure.Deployment == "" {
			return fmt.Errorf("AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_DEPLOYMENT_NAME are required for the azure provider")
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case ProviderMock:
		// No credentials needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
