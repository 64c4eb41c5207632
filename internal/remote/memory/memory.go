// Package memory is an in-process remote.Store for tests and local demos.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/grove/internal/remote"
)

var _ remote.Store = (*Store)(nil)

// Store keeps records in insertion order, which is also created_at order.
//
// Thread-safety: Store is safe for concurrent use via internal mutex.
type Store struct {
	mu      sync.Mutex
	records []remote.Record
	stamper *remote.Stamper
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the source of created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.stamper = remote.NewStamper(now)
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{stamper: remote.NewStamper(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Insert(_ context.Context, rec remote.Record) (remote.Record, error) {
	if rec.UserID == "" {
		return remote.Record{}, fmt.Errorf("insert record: missing user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ClientID != "" {
		for _, existing := range s.records {
			if existing.UserID == rec.UserID && existing.ClientID == rec.ClientID {
				return remote.Record{}, remote.ErrDuplicate
			}
		}
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = s.stamper.Next()
	rec.Payload = slices.Clone(rec.Payload)
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *Store) Select(_ context.Context, q remote.Query) ([]remote.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []remote.Record
	for _, rec := range s.records {
		if rec.UserID != q.UserID {
			continue
		}
		if !q.After.IsZero() && !rec.CreatedAt.After(q.After) {
			continue
		}
		rec.Payload = slices.Clone(rec.Payload)
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) DeleteAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = slices.DeleteFunc(s.records, func(r remote.Record) bool {
		return r.UserID == userID
	})
	return nil
}

// Len returns the number of stored records across all users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) Close() error {
	return nil
}
