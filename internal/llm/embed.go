package llm

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// EmbedFunc turns text into a normalized embedding vector. It has the same
// shape as chromem.EmbeddingFunc.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Embedding providers.
const (
	EmbedOpenAI   = "openai"
	EmbedLMStudio = "lm_studio"
	EmbedOllama   = "ollama"
	EmbedGemini   = "gemini"
	EmbedHash     = "hash"
)

// HashDimensions is the vector size of the local hashing embedder.
const HashDimensions = 512

// NewEmbedFunc builds the embedding function for provider, reusing the
// credentials of the LLM config.
func NewEmbedFunc(ctx context.Context, provider, model string, cfg Config) (EmbedFunc, error) {
	switch provider {
	case EmbedOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, errors.New("openai embeddings need OPENAI_API_KEY")
		}
		config := openai.DefaultConfig(cfg.OpenAI.APIKey)
		if cfg.OpenAI.BaseURL != "" {
			config.BaseURL = cfg.OpenAI.BaseURL
		}
		return OpenAIEmbedder(openai.NewClientWithConfig(config), orDefault(model, string(openai.SmallEmbedding3))), nil
	case EmbedLMStudio, EmbedOllama:
		local := cfg.LMStudio
		if provider == EmbedOllama {
			local = cfg.Ollama
		}
		p, err := NewLocalProvider(local)
		if err != nil {
			return nil, err
		}
		return OpenAIEmbedder(p.Client(), orDefault(model, "nomic-embed-text")), nil
	case EmbedGemini:
		p, err := NewGeminiProvider(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return GeminiEmbedder(p.Client(), orDefault(model, "text-embedding-004")), nil
	case EmbedHash, "":
		return HashEmbedder(HashDimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", provider)
	}
}

// OpenAIEmbedder embeds through the OpenAI embeddings endpoint of any
// compatible server.
func OpenAIEmbedder(client *openai.Client, model string) EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(model),
		})
		if err != nil {
			return nil, mapOpenAIError(err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, &ErrInvalidResponse{Err: errors.New("empty embedding")}
		}
		return normalize(resp.Data[0].Embedding), nil
	}
}

// GeminiEmbedder embeds through the Gemini embedContent API.
func GeminiEmbedder(client *genai.Client, model string) EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.Models.EmbedContent(ctx, model, genai.Text(text), nil)
		if err != nil {
			return nil, mapGeminiError(err)
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return nil, &ErrInvalidResponse{Err: errors.New("empty embedding")}
		}
		return normalize(resp.Embeddings[0].Values), nil
	}
}

// HashEmbedder is a deterministic bag-of-words embedder for offline use and
// tests. Each lower-cased token and token bigram is hashed into one of dims
// buckets.
func HashEmbedder(dims int) EmbedFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dims)
		tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		add := func(s string, w float32) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(s))
			vec[h.Sum32()%uint32(dims)] += w
		}
		for i, tok := range tokens {
			add(tok, 1)
			if i > 0 {
				add(tokens[i-1]+" "+tok, 0.5)
			}
		}
		if len(tokens) == 0 {
			vec[0] = 1
		}
		return normalize(vec), nil
	}
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
