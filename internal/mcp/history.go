package mcp

import (
	"sync"
	"time"
)

// DefaultHistorySize is how many invocations a Toolbox remembers.
const DefaultHistorySize = 200

// Invocation is one finished tool call.
type Invocation struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
}

// History keeps the most recent invocations in a fixed-size ring.
type History struct {
	mu    sync.Mutex
	items []Invocation
	next  int
	count int
}

// NewHistory returns a ring holding size entries (DefaultHistorySize when
// size <= 0).
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{items: make([]Invocation, size)}
}

// Add records inv, overwriting the oldest entry when full.
func (h *History) Add(inv Invocation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.next] = inv
	h.next = (h.next + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Tail returns up to n entries, oldest first.
func (h *History) Tail(n int) []Invocation {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || h.count == 0 {
		return nil
	}
	if n > h.count {
		n = h.count
	}

	start := (h.next - n + len(h.items)) % len(h.items)
	out := make([]Invocation, n)
	for i := 0; i < n; i++ {
		out[i] = h.items[(start+i)%len(h.items)]
	}
	return out
}
