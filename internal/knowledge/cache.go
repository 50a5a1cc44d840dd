package knowledge

import (
	"context"
	"fmt"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/abhisek/riskbot/internal/metrics"
)

// DefaultCacheSize bounds the query cache.
const DefaultCacheSize = 256

// CachedSearcher memoizes successful searches in a bounded LRU keyed on the
// normalized query, limit and filter. Errors are never cached.
type CachedSearcher struct {
	inner Searcher
	cache *lru.Cache[string, []Document]
}

// NewCachedSearcher wraps inner with an LRU of the given capacity.
func NewCachedSearcher(inner Searcher, size int) (*CachedSearcher, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, []Document](size)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &CachedSearcher{inner: inner, cache: c}, nil
}

func (c *CachedSearcher) Search(ctx context.Context, query string, limit int, filter map[string]string) ([]Document, error) {
	key := cacheKey(query, limit, filter)
	if docs, ok := c.cache.Get(key); ok {
		metrics.KnowledgeSearches.WithLabelValues("hit").Inc()
		return slices.Clone(docs), nil
	}
	metrics.KnowledgeSearches.WithLabelValues("miss").Inc()

	docs, err := c.inner.Search(ctx, query, limit, filter)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, slices.Clone(docs))
	return docs, nil
}

// Len returns the number of cached queries.
func (c *CachedSearcher) Len() int { return c.cache.Len() }

// Purge empties the cache. Call it after re-ingestion.
func (c *CachedSearcher) Purge() { c.cache.Purge() }

func cacheKey(query string, limit int, filter map[string]string) string {
	var b strings.Builder
	b.WriteString(NormalizeQuery(query))
	fmt.Fprintf(&b, "|%d", limit)
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, filter[k])
	}
	return b.String()
}
