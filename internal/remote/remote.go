// Package remote defines the record store the sync reconciler talks to.
//
// A remote store holds one row per event per user. Backends differ in how
// they detect a repeated client_id, but all of them report it as
// ErrDuplicate so callers can treat the write as already done.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrDuplicate is returned by Insert when the user already has a record with
// the same client_id.
var ErrDuplicate = errors.New("remote: record already exists")

// Record is one stored event.
type Record struct {
	// ID is assigned by the store on insert.
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Type   string `json:"type"`

	// Payload is the event as JSON. Older clients omit type and timestamp
	// from it and rely on the Type and ClientTimestamp columns.
	Payload json.RawMessage `json:"payload"`

	ClientID        string `json:"client_id,omitempty"`
	ClientTimestamp string `json:"client_timestamp"`

	// CreatedAt is assigned by the store on insert, at microsecond precision.
	CreatedAt time.Time `json:"created_at"`
}

// Query selects a user's records. A zero After selects all of them;
// otherwise only records created strictly after it.
type Query struct {
	UserID string
	After  time.Time
}

// Store is a user-scoped record store.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	// Select returns matching records ordered by CreatedAt, then ID.
	Select(ctx context.Context, q Query) ([]Record, error)
	DeleteAll(ctx context.Context, userID string) error
	Close() error
}

// Stamper hands out strictly increasing creation times at microsecond
// precision, so records inserted within one microsecond still order.
//
// Thread-safety: Stamper is safe for concurrent use via internal mutex.
type Stamper struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewStamper creates a stamper reading from now, or time.Now when nil.
func NewStamper(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

// Next returns the next creation time.
func (s *Stamper) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}
