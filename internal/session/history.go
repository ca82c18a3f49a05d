package session

import (
	"sync"
	"time"
)

// HistoryEntry records one executed command.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"` // ISO-8601
	Command   string `json:"command"`
}

// History is a bounded in-memory command log. Once the cap is exceeded
// the oldest entry is evicted. Lifetime is the process lifetime; there
// is no persistence across restarts.
type History struct {
	mu      sync.Mutex
	cap     int
	entries []HistoryEntry
}

// NewHistory creates a History holding at most cap entries.
func NewHistory(cap int) *History {
	if cap < 1 {
		cap = 1
	}
	return &History{cap: cap}
}

// Add appends an entry stamped with the current time.
func (h *History) Add(command string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, HistoryEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Command:   command,
	})
	if len(h.entries) > h.cap {
		h.entries = h.entries[1:]
	}
}

// Recent returns up to n of the newest entries, oldest first.
// n <= 0 returns everything.
func (h *History) Recent(n int) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]HistoryEntry, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
