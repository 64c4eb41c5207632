package state

import (
	"sync"

	"github.com/roach88/grove/internal/event"
)

// Memo holds an event log and caches its derived snapshot until the log
// changes.
//
// Thread-safety: Memo is safe for concurrent use via internal mutex.
type Memo struct {
	mu      sync.Mutex
	events  []event.Event
	version uint64

	cached        *Snapshot
	cachedVersion uint64
}

// NewMemo creates a memo over a copy of events.
func NewMemo(events []event.Event) *Memo {
	m := &Memo{}
	m.Reset(events)
	return m
}

// Reset replaces the log and invalidates the cached snapshot.
func (m *Memo) Reset(events []event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append([]event.Event(nil), events...)
	m.version++
}

// Append adds events to the log and invalidates the cached snapshot.
func (m *Memo) Append(events ...event.Event) {
	if len(events) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, events...)
	m.version++
}

// Events returns a copy of the log.
func (m *Memo) Events() []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]event.Event(nil), m.events...)
}

// Version increases on every change to the log.
func (m *Memo) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.version
}

// Snapshot returns a copy of the derived snapshot, deriving it first if the
// log changed since the last call.
func (m *Memo) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached == nil || m.cachedVersion != m.version {
		m.cached = Derive(m.events)
		m.cachedVersion = m.version
	}
	return m.cached.Clone()
}
