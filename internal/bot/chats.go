package bot

import (
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	chatStateCapacity = 10000
	chatStateTTL      = 30 * time.Minute
)

// chatState is the assistant side of a conversation: whether the next text
// is a methodology search and the questions suggested with the last answer.
type chatState struct {
	searching   bool
	suggestions []string
}

// chatStates keeps chatState per Telegram user. Entries expire so stale
// suggestion buttons stop working.
type chatStates struct {
	mu  sync.Mutex
	lru *expirable.LRU[int64, chatState]
}

func newChatStates() *chatStates {
	return &chatStates{lru: expirable.NewLRU[int64, chatState](chatStateCapacity, nil, chatStateTTL)}
}

func (c *chatStates) update(id int64, fn func(*chatState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, _ := c.lru.Get(id)
	fn(&st)
	if !st.searching && len(st.suggestions) == 0 {
		c.lru.Remove(id)
		return
	}
	c.lru.Add(id, st)
}

func (c *chatStates) startSearch(id int64) {
	c.update(id, func(st *chatState) { st.searching = true })
}

func (c *chatStates) cancelSearch(id int64) {
	c.update(id, func(st *chatState) { st.searching = false })
}

// takeSearch reports whether a search was pending and clears it.
func (c *chatStates) takeSearch(id int64) bool {
	var pending bool
	c.update(id, func(st *chatState) {
		pending = st.searching
		st.searching = false
	})
	return pending
}

func (c *chatStates) setSuggestions(id int64, s []string) {
	c.update(id, func(st *chatState) { st.suggestions = slices.Clone(s) })
}

// suggestion returns the i-th suggestion, counted from 1.
func (c *chatStates) suggestion(id int64, i int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.lru.Get(id)
	if !ok || i < 1 || i > len(st.suggestions) {
		return "", false
	}
	return st.suggestions[i-1], true
}
