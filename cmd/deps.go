package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/riskbot/internal/dialogue"
	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/llm"
	"github.com/abhisek/riskbot/internal/store"
)

func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Database.URL, store.Options{Logger: logger, Verbose: cfg.IsDev()})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// openProvider builds the configured LLM provider. A provider that cannot
// be built is reported and nil is returned: questions then come from the
// fallback bank and the assistant answers with methodology excerpts.
func openProvider(ctx context.Context, events llm.EventRecorder) llm.Provider {
	provider, err := llm.NewProvider(ctx, cfg.LLMConfig(), events, logger)
	if err != nil {
		logger.WarnContext(ctx, "LLM provider not configured, AI features degraded",
			slog.String("provider", cfg.LLM.Provider), slog.Any("error", err))
		return nil
	}
	return provider
}

func openKnowledge(ctx context.Context) (*knowledge.Store, error) {
	embed, err := llm.NewEmbedFunc(ctx, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.LLMConfig())
	if err != nil {
		return nil, fmt.Errorf("embedding function: %w", err)
	}
	kb, err := knowledge.Open(knowledge.Options{
		Path:       cfg.Knowledge.VectorStorePath,
		Collection: cfg.Knowledge.Collection,
		Embed:      embed,
		Splitter:   knowledge.NewSplitter(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap),
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	return kb, nil
}

// openDialogue returns the configured dialogue context store and its
// closer.
func openDialogue(ctx context.Context) (dialogue.Store, func() error, error) {
	dc := cfg.Dialogue
	if dc.Backend == "redis" {
		rs, err := dialogue.NewRedisStore(ctx, dc.RedisURL, dc.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis dialogue store: %w", err)
		}
		return rs, rs.Close, nil
	}
	return dialogue.NewMemoryStore(dc.Capacity, dc.TTL), func() error { return nil }, nil
}
