package knowledge

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type countingSearcher struct {
	calls int
	docs  []Document
	err   error
}

func (c *countingSearcher) Search(_ context.Context, query string, limit int, filter map[string]string) ([]Document, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.docs, nil
}

func TestCachedSearcher_HitsStoreOnce(t *testing.T) {
	inner := &countingSearcher{docs: []Document{{Content: "RTO"}}}
	c, err := NewCachedSearcher(inner, 4)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, q := range []string{"Что такое RTO?", "что   такое rto", "ЧТО ТАКОЕ RTO!"} {
		docs, err := c.Search(ctx, q, 3, map[string]string{"b": "2", "a": "1"})
		if err != nil || len(docs) != 1 {
			t.Fatalf("Search(%q) = %v, %v", q, docs, err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner called %d times, want 1", inner.calls)
	}

	// A different limit or filter is a different key.
	c.Search(ctx, "что такое rto", 5, nil)
	c.Search(ctx, "что такое rto", 3, map[string]string{"a": "1"})
	if inner.calls != 3 {
		t.Fatalf("inner called %d times, want 3", inner.calls)
	}
}

func TestCachedSearcher_NeverExceedsCapacity(t *testing.T) {
	inner := &countingSearcher{}
	c, _ := NewCachedSearcher(inner, 3)
	for i := 0; i < 20; i++ {
		c.Search(context.Background(), fmt.Sprintf("запрос %d", i), 3, nil)
		if c.Len() > 3 {
			t.Fatalf("cache size %d exceeds capacity", c.Len())
		}
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}

	// The oldest entries were evicted.
	before := inner.calls
	c.Search(context.Background(), "запрос 0", 3, nil)
	if inner.calls != before+1 {
		t.Fatal("evicted query should reach the store")
	}
}

func TestCachedSearcher_ErrorsNotCached(t *testing.T) {
	inner := &countingSearcher{err: errors.New("vector store offline")}
	c, _ := NewCachedSearcher(inner, 4)

	if _, err := c.Search(context.Background(), "RTO", 3, nil); err == nil {
		t.Fatal("expected error")
	}
	inner.err = nil
	if _, err := c.Search(context.Background(), "RTO", 3, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner called %d times, want 2", inner.calls)
	}
}

func TestCachedSearcher_Purge(t *testing.T) {
	inner := &countingSearcher{}
	c, _ := NewCachedSearcher(inner, 4)
	c.Search(context.Background(), "RTO", 3, nil)
	c.Purge()
	c.Search(context.Background(), "RTO", 3, nil)
	if inner.calls != 2 {
		t.Fatalf("inner called %d times after purge, want 2", inner.calls)
	}
}
