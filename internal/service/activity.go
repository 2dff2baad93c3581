package service

import (
	"sync"
	"time"

	"github.com/iconidentify/groupgrab/internal/domain"
)

const defaultActivitySize = 500

// ActivityEntry is one finished URL as seen by the pipeline.
type ActivityEntry struct {
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
	domain.URLOutcome
}

// ActivityLog keeps the most recent URL outcomes in a ring buffer.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []ActivityEntry
	head    int // next write position
	count   int
	seq     uint64
	now     func() time.Time
}

// NewActivityLog creates a log holding up to size entries.
func NewActivityLog(size int) *ActivityLog {
	if size <= 0 {
		size = defaultActivitySize
	}
	return &ActivityLog{
		entries: make([]ActivityEntry, size),
		now:     time.Now,
	}
}

// Add appends an outcome, overwriting the oldest entry when full.
func (l *ActivityLog) Add(out domain.URLOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.entries[l.head] = ActivityEntry{Seq: l.seq, Time: l.now(), URLOutcome: out}
	l.head = (l.head + 1) % len(l.entries)
	if l.count < len(l.entries) {
		l.count++
	}
}

// Recent returns up to limit entries, newest first. An empty state matches
// every entry.
func (l *ActivityLog) Recent(limit int, state domain.URLState) []ActivityEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > l.count {
		limit = l.count
	}
	out := make([]ActivityEntry, 0, limit)
	for i := 0; i < l.count && len(out) < limit; i++ {
		// Read backwards from head-1
		idx := (l.head - 1 - i + len(l.entries)) % len(l.entries)
		e := l.entries[idx]
		if state != "" && e.State != state {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the number of buffered entries.
func (l *ActivityLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}
