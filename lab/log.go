package lab

import (
	"fmt"
	"sync"
	"time"
)

// EntryKind tags a log entry.
type EntryKind int

const (
	EntryInfo EntryKind = iota
	EntryError
	EntrySuccess
	EntryAdvice
	EntryUser
	EntryCancelled
)

func (k EntryKind) String() string {
	switch k {
	case EntryInfo:
		return "info"
	case EntryError:
		return "error"
	case EntrySuccess:
		return "success"
	case EntryAdvice:
		return "advice"
	case EntryUser:
		return "user"
	case EntryCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("entry(%d)", int(k))
	}
}

// Entry is one line of the session log.
type Entry struct {
	// Seq is 1-based and strictly increasing.
	Seq  int
	Time time.Time
	Kind EntryKind
	// Session is the ID of the session that produced the entry, or 0 for
	// entries outside any run such as compile errors and chat.
	Session int
	Message string
}

// Log is an append-only, concurrency-safe list of entries kept in arrival
// order.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append adds an entry and returns it with its sequence number set.
func (l *Log) Append(kind EntryKind, session int, message string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := Entry{
		Seq:     len(l.entries) + 1,
		Time:    l.now(),
		Kind:    kind,
		Session: session,
		Message: message,
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Entries returns a copy of every entry.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Since returns the entries whose Seq is greater than seq.
func (l *Log) Since(seq int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq < 0 {
		seq = 0
	}
	if seq >= len(l.entries) {
		return nil
	}
	return append([]Entry(nil), l.entries[seq:]...)
}

// Session returns the entries produced by one session.
func (l *Log) Session(id int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, entry := range l.entries {
		if entry.Session == id {
			out = append(out, entry)
		}
	}
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
