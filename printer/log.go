package printer

import (
	"sync"
	"time"
)

// PrintStatus is the outcome recorded for one print attempt.
type PrintStatus string

const (
	PrintPending PrintStatus = "pending"
	PrintSuccess PrintStatus = "success"
	PrintFailed  PrintStatus = "failed"
)

// LogEntry is one observational record of a print attempt. It carries no
// invariants that affect task state.
type LogEntry struct {
	TaskID string      `json:"taskId"`
	Title  string      `json:"title"`
	At     time.Time   `json:"at"`
	Status PrintStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// Log is a bounded ring of the most recent print attempts.
type Log struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1
	}
	return &Log{entries: make([]LogEntry, capacity)}
}

// Append records an entry, evicting the oldest once the ring is full.
func (l *Log) Append(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = e
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
}

// Entries returns the recorded attempts, newest first.
func (l *Log) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	size := l.next
	if l.full {
		size = len(l.entries)
	}
	out := make([]LogEntry, 0, size)
	for i := 1; i <= size; i++ {
		idx := l.next - i
		if idx < 0 {
			idx += len(l.entries)
		}
		out = append(out, l.entries[idx])
	}
	return out
}
