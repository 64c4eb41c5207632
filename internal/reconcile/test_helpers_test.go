package reconcile

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/grove/internal/auth"
	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/remote"
	"github.com/roach88/grove/internal/remote/memory"
	"github.com/roach88/grove/internal/store"
	"github.com/roach88/grove/internal/testutil"
)

const testUser = "user-1"

var t0 = time.Date(2026, time.January, 5, 7, 0, 0, 0, time.UTC)

var signedIn = auth.StaticProvider{Identity: &auth.Identity{UserID: testUser}}

func plant(ts time.Time, sproutID string) event.Event {
	return event.New(ts, event.SproutPlanted{
		SproutID:    sproutID,
		TwigID:      "twig-1",
		Title:       "sprout " + sproutID,
		Season:      event.Season1M,
		Environment: event.EnvFirm,
		SoilCost:    5,
	})
}

func water(ts time.Time, sproutID string) event.Event {
	return event.New(ts, event.SproutWatered{SproutID: sproutID, Content: "check-in"})
}

// fakeRemote wraps the in-memory store with failure injection and call
// counting.
type fakeRemote struct {
	*memory.Store

	mu        sync.Mutex
	insertErr error
	selectErr error
	deleteErr error
	inserts   int
	selects   int

	// When block is non-nil, Select signals entered and waits for block
	// to close.
	block   chan struct{}
	entered chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{Store: memory.New()}
}

func (f *fakeRemote) Insert(ctx context.Context, rec remote.Record) (remote.Record, error) {
	f.mu.Lock()
	f.inserts++
	err := f.insertErr
	f.mu.Unlock()
	if err != nil {
		return remote.Record{}, err
	}
	return f.Store.Insert(ctx, rec)
}

func (f *fakeRemote) Select(ctx context.Context, q remote.Query) ([]remote.Record, error) {
	f.mu.Lock()
	f.selects++
	err := f.selectErr
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if block != nil {
		entered <- struct{}{}
		<-block
	}
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return f.Store.Select(ctx, q)
}

func (f *fakeRemote) DeleteAll(ctx context.Context, userID string) error {
	f.mu.Lock()
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.DeleteAll(ctx, userID)
}

func (f *fakeRemote) setInsertErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertErr = err
}

func (f *fakeRemote) counts() (inserts, selects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts, f.selects
}

// seedRemote inserts e as if another device had pushed it.
func seedRemote(t *testing.T, rs remote.Store, e event.Event) {
	t.Helper()
	rec, err := ToRecord(testUser, e)
	require.NoError(t, err)
	_, err = rs.Insert(context.Background(), rec)
	require.NoError(t, err)
}

func newTestReconciler(t *testing.T, rs remote.Store, provider auth.Provider, opts ...Option) (*Reconciler, *store.Memory) {
	t.Helper()
	kv := store.NewMemory()
	clock := testutil.NewClock(t0)
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(clock.Now),
		WithIDGenerator(testutil.NewSequenceGenerator("c")),
	}
	r := New(kv, rs, provider, append(base, opts...)...)
	return r, kv
}

// stampedRemote serves records with caller-chosen created_at values, so a
// test can make a record visible after a newer one was already pulled.
type stampedRemote struct {
	mu   sync.Mutex
	recs []remote.Record
}

func (s *stampedRemote) commit(t *testing.T, e event.Event, createdAt time.Time) {
	t.Helper()
	rec, err := ToRecord(testUser, e)
	require.NoError(t, err)
	rec.ID = e.ClientID
	rec.CreatedAt = createdAt

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
}

func (s *stampedRemote) Insert(context.Context, remote.Record) (remote.Record, error) {
	return remote.Record{}, remote.ErrDuplicate
}

func (s *stampedRemote) Select(_ context.Context, q remote.Query) ([]remote.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []remote.Record
	for _, rec := range s.recs {
		if rec.UserID == q.UserID && (q.After.IsZero() || rec.CreatedAt.After(q.After)) {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b remote.Record) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *stampedRemote) DeleteAll(context.Context, string) error { return nil }

func (s *stampedRemote) Close() error { return nil }

func loadLog(t *testing.T, r *Reconciler) []event.Event {
	t.Helper()
	events, err := r.LoadLog(context.Background())
	require.NoError(t, err)
	return events
}

func pendingCount(t *testing.T, r *Reconciler) int {
	t.Helper()
	n, err := r.PendingCount(context.Background())
	require.NoError(t, err)
	return n
}

func clientIDs(events []event.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ClientID
	}
	return ids
}
