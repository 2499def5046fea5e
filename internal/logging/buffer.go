package logging

import (
	"sort"
	"sync"
	"time"
)

// LogEntry is one record as kept in the ring buffer and served by the API.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent log entries. Sequence numbers start at 1
// and never repeat, so readers can resume with Since.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int // slot the next write goes to
	full    bool
	seq     uint64
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write stores entry, evicting the oldest when full, and returns the
// sequence number assigned to it.
func (rb *RingBuffer) Write(entry LogEntry) uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.seq++
	entry.Seq = rb.seq
	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
	return rb.seq
}

// ReadAll returns all entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.ordered()
}

func (rb *RingBuffer) ordered() []LogEntry {
	if !rb.full {
		if rb.next == 0 {
			return nil
		}
		return append([]LogEntry(nil), rb.entries[:rb.next]...)
	}
	out := make([]LogEntry, 0, len(rb.entries))
	out = append(out, rb.entries[rb.next:]...)
	return append(out, rb.entries[:rb.next]...)
}

// Count returns the number of entries held.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}

// Since returns the entries with a sequence number above seq, oldest first.
func (rb *RingBuffer) Since(seq uint64) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	all := rb.ordered()
	i := sort.Search(len(all), func(i int) bool { return all[i].Seq > seq })
	if i == len(all) {
		return nil
	}
	return all[i:]
}
