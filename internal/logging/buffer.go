package logging

import (
	"sync"
	"time"
)

// LogEntry is one structured log line as stored for replay and as
// published on the event bus.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer holds the most recent log entries for history replay on the
// log stream endpoint. Safe for concurrent use.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	count   int
}

// NewRingBuffer creates a ring buffer holding up to capacity entries.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		entries: make([]LogEntry, capacity),
	}
}

// Write stores an entry, evicting the oldest once the buffer is full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = entry
	rb.next = (rb.next + 1) % len(rb.entries)
	if rb.count < len(rb.entries) {
		rb.count++
	}
}

// ReadAll returns the stored entries oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}

	out := make([]LogEntry, rb.count)
	if rb.count < len(rb.entries) {
		copy(out, rb.entries[:rb.count])
		return out
	}
	// Full buffer wraps: the oldest entry sits at the write cursor.
	n := copy(out, rb.entries[rb.next:])
	copy(out[n:], rb.entries[:rb.next])
	return out
}

// Count returns how many entries are stored.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
