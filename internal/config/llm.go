package config

import "github.com/abhisek/riskbot/internal/llm"

// LLMConfig converts the llm section into the provider configuration.
func (c *Config) LLMConfig() llm.Config {
	l := c.LLM
	return llm.Config{
		Provider: l.Provider,
		OpenAI: llm.OpenAIConfig{
			APIKey:  l.OpenAI.APIKey,
			Model:   l.OpenAI.Model,
			BaseURL: l.OpenAI.BaseURL,
		},
		LMStudio: llm.LocalConfig{
			URL:    l.LMStudio.URL,
			Model:  l.LMStudio.Model,
			APIKey: l.LMStudio.APIKey,
		},
		Ollama: llm.LocalConfig{
			URL:   l.Ollama.URL,
			Model: l.Ollama.Model,
		},
		Azure: llm.AzureConfig{
			APIKey:     l.Azure.APIKey,
			Endpoint:   l.Azure.Endpoint,
			APIVersion: l.Azure.APIVersion,
			Deployment: l.Azure.Deployment,
		},
		Anthropic:  llm.AnthropicConfig{APIKey: l.Anthropic.APIKey, Model: l.Anthropic.Model},
		Gemini:     llm.GeminiConfig{APIKey: l.Gemini.APIKey, Model: l.Gemini.Model},
		OpenRouter: llm.OpenRouterConfig{APIKey: l.OpenRouter.APIKey, Model: l.OpenRouter.Model, BaseURL: l.OpenRouter.BaseURL},
		Retry: llm.RetryConfig{
			MaxAttempts: l.Retry.MaxAttempts,
			InitialWait: l.Retry.InitialWait,
			MaxWait:     l.Retry.MaxWait,
			Multiplier:  l.Retry.Multiplier,
		},
		Timeout: l.Timeout,
	}
}
