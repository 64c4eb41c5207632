// Package remotetest is a behavior suite every remote.Store backend must pass.
package remotetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grove/internal/remote"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) remote.Store

// Run exercises the remote.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("insert assigns id and created_at", func(t *testing.T) {
		s := open(t, newStore)

		got, err := s.Insert(context.Background(), record("u1", "c1"))
		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)
		assert.False(t, got.CreatedAt.IsZero())
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, "c1", got.ClientID)
		assert.JSONEq(t, string(record("u1", "c1").Payload), string(got.Payload))
	})

	t.Run("duplicate client id", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		_, err := s.Insert(ctx, record("u1", "c1"))
		require.NoError(t, err)

		_, err = s.Insert(ctx, record("u1", "c1"))
		require.ErrorIs(t, err, remote.ErrDuplicate)

		_, err = s.Insert(ctx, record("u2", "c1"))
		require.NoError(t, err, "client ids are scoped per user")
	})

	t.Run("records without client id never collide", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		_, err := s.Insert(ctx, record("u1", ""))
		require.NoError(t, err)
		_, err = s.Insert(ctx, record("u1", ""))
		require.NoError(t, err)

		got, err := s.Select(ctx, remote.Query{UserID: "u1"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("select is user scoped and ordered", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		for _, id := range []string{"a", "b", "c"} {
			_, err := s.Insert(ctx, record("u1", id))
			require.NoError(t, err)
		}
		_, err := s.Insert(ctx, record("u2", "x"))
		require.NoError(t, err)

		got, err := s.Select(ctx, remote.Query{UserID: "u1"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"a", "b", "c"}, clientIDs(got))
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i].CreatedAt.After(got[i-1].CreatedAt))
		}
	})

	t.Run("select after is exclusive", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		first, err := s.Insert(ctx, record("u1", "a"))
		require.NoError(t, err)
		_, err = s.Insert(ctx, record("u1", "b"))
		require.NoError(t, err)

		got, err := s.Select(ctx, remote.Query{UserID: "u1", After: first.CreatedAt})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, clientIDs(got))
	})

	t.Run("advancing cursor sees every concurrent insert", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		const writers, perWriter = 8, 25
		errs := make(chan error, writers)
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					if _, err := s.Insert(ctx, record("u1", fmt.Sprintf("w%d-%d", w, i))); err != nil {
						errs <- err
						return
					}
				}
			}(w)
		}
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		// Pull the way an incremental sync does: strictly after the newest
		// created_at seen so far.
		seen := make(map[string]bool)
		var cursor time.Time
		pull := func() {
			got, err := s.Select(ctx, remote.Query{UserID: "u1", After: cursor})
			require.NoError(t, err)
			for _, rec := range got {
				seen[rec.ClientID] = true
				if rec.CreatedAt.After(cursor) {
					cursor = rec.CreatedAt
				}
			}
		}
		for running := true; running; {
			select {
			case <-done:
				running = false
			default:
				pull()
			}
		}
		pull()

		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		assert.Len(t, seen, writers*perWriter)
	})

	t.Run("delete all", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		_, err := s.Insert(ctx, record("u1", "a"))
		require.NoError(t, err)
		_, err = s.Insert(ctx, record("u2", "b"))
		require.NoError(t, err)

		require.NoError(t, s.DeleteAll(ctx, "u1"))

		got, err := s.Select(ctx, remote.Query{UserID: "u1"})
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.Select(ctx, remote.Query{UserID: "u2"})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		_, err = s.Insert(ctx, record("u1", "a"))
		require.NoError(t, err, "client id is free again after delete")
	})
}

func open(t *testing.T, newStore Factory) remote.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(userID, clientID string) remote.Record {
	payload, _ := json.Marshal(map[string]any{
		"type":      "sun_shone",
		"timestamp": "2026-01-05T07:00:00.000Z",
		"twigId":    "t1",
		"twigLabel": "Health",
		"content":   "week " + clientID,
	})
	return remote.Record{
		UserID:          userID,
		Type:            "sun_shone",
		Payload:         payload,
		ClientID:        clientID,
		ClientTimestamp: time.Date(2026, time.January, 5, 7, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func clientIDs(recs []remote.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ClientID
	}
	return out
}
