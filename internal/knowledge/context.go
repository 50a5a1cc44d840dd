package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// ContextLimit is how many chunks back a generated question or answer.
const ContextLimit = 3

// Base adds prompt-oriented helpers on top of a Searcher.
type Base struct {
	search Searcher
	limit  int
	logger *slog.Logger
}

// NewBase returns a Base reading through s.
func NewBase(s Searcher, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{search: s, limit: ContextLimit, logger: logger}
}

// WithLimit sets how many chunks back a context. n <= 0 keeps the default.
func (b *Base) WithLimit(n int) *Base {
	if n > 0 {
		b.limit = n
	}
	return b
}

// Search passes through to the underlying Searcher.
func (b *Base) Search(ctx context.Context, query string, limit int, filter map[string]string) ([]Document, error) {
	return b.search.Search(ctx, query, limit, filter)
}

// ContextForQuestion builds prompt context for question. It prefers chunks
// tagged with difficulty and falls back to an unfiltered search. A zero
// difficulty skips the filtered pass.
func (b *Base) ContextForQuestion(ctx context.Context, question string, difficulty int) (string, []Document, error) {
	var (
		docs []Document
		err  error
	)
	if difficulty > 0 {
		docs, err = b.search.Search(ctx, question, b.limit, map[string]string{MetaDifficulty: strconv.Itoa(difficulty)})
		if err != nil {
			return "", nil, err
		}
	}
	if len(docs) == 0 {
		docs, err = b.search.Search(ctx, question, b.limit, nil)
		if err != nil {
			return "", nil, err
		}
	}

	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content+"\n("+sourceLine(d.Metadata)+")")
	}
	text := strings.Join(parts, "\n\n---\n\n")
	b.logger.DebugContext(ctx, "built question context",
		slog.Int("documents", len(docs)),
		slog.Int("chars", len([]rune(text))))
	return text, docs, nil
}

func sourceLine(meta map[string]string) string {
	source := meta[MetaSource]
	if source == "" {
		source = "Неизвестно"
	}
	line := "Источник: " + source
	if t := meta[MetaTopic]; t != "" {
		line += ", Тема: " + t
	}
	if d := meta[MetaDifficulty]; d != "" {
		line += ", Уровень: " + d
	}
	return line
}

// RelatedQuestions returns up to limit stored questions similar to
// question, excluding question itself and duplicates.
func (b *Base) RelatedQuestions(ctx context.Context, question string, limit int) ([]string, error) {
	docs, err := b.search.Search(ctx, question, limit, map[string]string{MetaType: TypeQuestion})
	if err != nil {
		return nil, fmt.Errorf("related questions: %w", err)
	}
	seen := map[string]bool{}
	var out []string
	for _, d := range docs {
		text, ok := strings.CutPrefix(d.Content, "Вопрос: ")
		if !ok || text == question || seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
