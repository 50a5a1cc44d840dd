package knowledge

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Query types.
const (
	QueryDefinition  = "definition"
	QueryInstruction = "instruction"
	QueryExplanation = "explanation"
	QueryCalculation = "calculation"
	QueryExample     = "example"
	QueryQuestion    = "question"
	QueryGeneral     = "general"
)

// classifiers are checked in order; the first match wins.
var classifiers = []struct {
	kind  string
	words []string
}{
	{QueryDefinition, []string{"что такое", "что означает", "определение"}},
	{QueryInstruction, []string{"как", "каким образом", "способ"}},
	{QueryExplanation, []string{"почему", "зачем", "причина"}},
	{QueryCalculation, []string{"рассчитать", "формула", "расчет"}},
	{QueryExample, []string{"пример", "сценарий", "случай"}},
}

// NormalizeQuery lower-cases, collapses whitespace and trims trailing
// punctuation.
func NormalizeQuery(q string) string {
	q = strings.Join(strings.Fields(strings.ToLower(q)), " ")
	return strings.TrimRight(q, ".,!?;:")
}

// ClassifyQuery assigns a coarse intent from keywords.
func ClassifyQuery(q string) string {
	lower := strings.ToLower(q)
	for _, c := range classifiers {
		for _, w := range c.words {
			if strings.Contains(lower, w) {
				return c.kind
			}
		}
	}
	if strings.HasSuffix(strings.TrimSpace(lower), "?") {
		return QueryQuestion
	}
	return QueryGeneral
}

// Confidence scores a result set: the hit count relative to five, plus a
// bonus for qa_pair and methodology documents, capped at 1.
func Confidence(docs []Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	c := min(float64(len(docs))/5.0, 1.0)
	for _, d := range docs {
		if d.Metadata[MetaType] == TypeQAPair {
			c += 0.1
		}
		if d.Metadata[MetaSource] == SourceMethodology {
			c += 0.05
		}
	}
	return min(c, 1.0)
}

// QueryResult is the processed view of a learner question.
type QueryResult struct {
	Query      string
	Normalized string
	Type       string
	Context    string
	Documents  []Document
	Confidence float64
	// Suggestions are related stored questions.
	Suggestions []string
}

// QueryProcessor prepares learner questions for the assistant.
type QueryProcessor struct {
	base  *Base
	cache *lru.Cache[string, *QueryResult]
}

// NewQueryProcessor memoizes up to size processed queries.
func NewQueryProcessor(base *Base, size int) (*QueryProcessor, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *QueryResult](size)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &QueryProcessor{base: base, cache: c}, nil
}

// Process classifies query and gathers context, documents and suggestions.
func (p *QueryProcessor) Process(ctx context.Context, query string, difficulty int) (*QueryResult, error) {
	normalized := NormalizeQuery(query)
	key := fmt.Sprintf("%s|%d", normalized, difficulty)
	if r, ok := p.cache.Get(key); ok {
		return r, nil
	}

	text, _, err := p.base.ContextForQuestion(ctx, query, difficulty)
	if err != nil {
		return nil, err
	}
	docs, err := p.base.Search(ctx, query, 5, nil)
	if err != nil {
		return nil, err
	}
	related, err := p.base.RelatedQuestions(ctx, query, 3)
	if err != nil {
		return nil, err
	}

	r := &QueryResult{
		Query:       query,
		Normalized:  normalized,
		Type:        ClassifyQuery(query),
		Context:     text,
		Documents:   docs,
		Confidence:  Confidence(docs),
		Suggestions: related,
	}
	p.cache.Add(key, r)
	return r, nil
}

// Purge empties the processed-query cache.
func (p *QueryProcessor) Purge() { p.cache.Purge() }
