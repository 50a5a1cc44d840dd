package dialogue

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is an in-process Store bounded by capacity and TTL.
type MemoryStore struct {
	lru *expirable.LRU[int64, *State]
}

// NewMemoryStore creates a MemoryStore. Non-positive arguments use the
// defaults.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{lru: expirable.NewLRU[int64, *State](capacity, nil, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (*State, bool, error) {
	st, ok := m.lru.Get(userID)
	if !ok {
		return nil, false, nil
	}
	return st.Clone(), true, nil
}

func (m *MemoryStore) Set(_ context.Context, userID int64, st *State) error {
	c := st.Clone()
	c.UpdatedAt = time.Now()
	m.lru.Add(userID, c)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.lru.Remove(userID)
	return nil
}

// Len returns the number of live entries.
func (m *MemoryStore) Len() int { return m.lru.Len() }
