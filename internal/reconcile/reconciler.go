// Package reconcile keeps the local event log consistent with a remote
// record store.
//
// The Reconciler is the only writer of the persisted local layout (log,
// pending set, cache cursor). Every remote failure is reported through a
// result struct; no method returns a remote error as a Go error.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/grove/internal/auth"
	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/remote"
	"github.com/roach88/grove/internal/state"
	"github.com/roach88/grove/internal/store"
)

// Mode is the kind of pull a sync performed.
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeFull        Mode = "full"
)

// Status is the outcome of a sync.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// PushResult reports a single push. An empty Error means the remote holds
// the event.
type PushResult struct {
	Error string `json:"error,omitempty"`
}

// OK reports whether the push succeeded.
func (r PushResult) OK() bool { return r.Error == "" }

// AppendResult is the locally accepted event and the outcome of its
// optimistic push.
type AppendResult struct {
	Event event.Event `json:"event"`
	Push  PushResult  `json:"push"`
}

// SyncResult reports one sync attempt. Concurrent SmartSync callers share
// the same *SyncResult. Pulled counts the server's events on a full sync
// and the events new to the local log on an incremental one.
type SyncResult struct {
	Mode        Mode      `json:"mode"`
	Status      Status    `json:"status"`
	Pulled      int       `json:"pulled"`
	Pushed      int       `json:"pushed"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// DeleteResult reports a delete-all. An empty Error means success.
type DeleteResult struct {
	Error string `json:"error,omitempty"`
}

const flightKey = "sync"

// DefaultPullOverlap is how far before the cursor an incremental pull
// starts. Records that commit late, after a newer created_at was already
// seen, fall inside it; the overlap they re-pull is dropped by event key.
const DefaultPullOverlap = 2 * time.Minute

// Reconciler pushes locally accepted events, pulls remote ones and merges
// them into the local log.
//
// Thread-safety: Reconciler is safe for concurrent use. SmartSync calls
// that overlap share one attempt; sync and delete-all never interleave.
type Reconciler struct {
	local    store.KV
	remote   remote.Store
	provider auth.Provider

	logger *slog.Logger
	now    func() time.Time
	ids    event.IDGenerator
	memo   *state.Memo

	overlap time.Duration

	// mu guards read-modify-write cycles on the local layout.
	mu sync.Mutex
	// opMu serializes sync and delete-all attempts.
	opMu   sync.Mutex
	flight singleflight.Group
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the source of SyncResult.CompletedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator sets the generator for missing client ids.
func WithIDGenerator(ids event.IDGenerator) Option {
	return func(r *Reconciler) {
		if ids != nil {
			r.ids = ids
		}
	}
}

// WithPullOverlap sets how far incremental pulls reach back past the
// cursor. Zero pulls strictly after it.
func WithPullOverlap(d time.Duration) Option {
	return func(r *Reconciler) {
		if d >= 0 {
			r.overlap = d
		}
	}
}

// WithMemo shares a memo that is reset whenever the local log changes.
func WithMemo(memo *state.Memo) Option {
	return func(r *Reconciler) {
		if memo != nil {
			r.memo = memo
		}
	}
}

// New creates a reconciler. A nil remote or provider makes every sync
// operation report SYNC_UNAVAILABLE; local appends still work.
func New(local store.KV, rs remote.Store, provider auth.Provider, opts ...Option) *Reconciler {
	r := &Reconciler{
		local:    local,
		remote:   rs,
		provider: provider,
		logger:   slog.Default(),
		now:      time.Now,
		ids:      event.UUIDv7Generator{},
		memo:     state.NewMemo(nil),
		overlap:  DefaultPullOverlap,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Memo returns the memo mirroring the local log.
func (r *Reconciler) Memo() *state.Memo {
	return r.memo
}

// LoadLog reads the local log and refreshes the memo from it.
func (r *Reconciler) LoadLog(ctx context.Context) ([]event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	events, err := r.loadEvents(ctx)
	if err != nil {
		return nil, err
	}
	r.memo.Reset(events)
	return events, nil
}

// PendingCount returns how many events await remote confirmation.
func (r *Reconciler) PendingCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.loadPending(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending.ids), nil
}

// LastSync returns the created_at of the newest record seen by a
// successful sync, or the zero time.
func (r *Reconciler) LastSync(ctx context.Context) (time.Time, error) {
	c, err := r.loadCursor(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return c.lastSync, nil
}

// AppendEvent accepts an event into the local log and pushes it.
//
// A missing client id is generated. The returned error is non-nil only when
// the event is invalid or the local store fails; a failed push is reported
// in AppendResult.Push and the event stays pending.
func (r *Reconciler) AppendEvent(ctx context.Context, e event.Event) (AppendResult, error) {
	if e.ClientID == "" {
		e = e.WithClientID(r.ids.Generate())
	}
	if err := event.Validate(e); err != nil {
		return AppendResult{}, err
	}
	if err := r.appendLocal(ctx, e); err != nil {
		return AppendResult{}, err
	}
	r.logger.Debug("appended event", "client_id", e.ClientID, "type", e.Type())

	return AppendResult{Event: e, Push: r.PushEvent(ctx, e)}, nil
}

func (r *Reconciler) appendLocal(ctx context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	events, err := r.loadEvents(ctx)
	if err != nil {
		return err
	}
	pending, err := r.loadPending(ctx)
	if err != nil {
		return err
	}

	events = append(events, e)
	pending.add(e.ClientID)

	logData, err := encodeEvents(events)
	if err != nil {
		return err
	}
	pendingData, err := encodePending(pending)
	if err != nil {
		return err
	}
	if err := r.local.SetMany(ctx, map[string][]byte{
		KeyEvents:  logData,
		KeyPending: pendingData,
	}); err != nil {
		return fmt.Errorf("write local log: %w", err)
	}

	r.memo.Reset(events)
	return nil
}

// PushEvent writes one event to the remote. The event's client id is marked
// pending before the attempt and cleared once the remote confirms it,
// including when the remote already had it.
func (r *Reconciler) PushEvent(ctx context.Context, e event.Event) PushResult {
	id, err := r.identity(ctx)
	if err != nil {
		r.logger.Debug("push skipped", "client_id", e.ClientID, "error", err)
		return PushResult{Error: err.Error()}
	}

	if e.ClientID != "" {
		if err := r.markPending(ctx, e.ClientID); err != nil {
			return PushResult{Error: err.Error()}
		}
	}
	if err := r.push(ctx, id.UserID, e); err != nil {
		return PushResult{Error: err.Error()}
	}
	return PushResult{}
}

func (r *Reconciler) push(ctx context.Context, userID string, e event.Event) error {
	rec, err := ToRecord(userID, e)
	if err != nil {
		return &SyncError{Code: ErrCodeRemoteRetryable, Message: "build record", Err: err}
	}

	_, err = r.remote.Insert(ctx, rec)
	switch {
	case err == nil:
	case errors.Is(err, remote.ErrDuplicate):
		dup := &SyncError{Code: ErrCodeDuplicateWrite, Message: "remote already has event", Err: err}
		r.logger.Debug("push treated as success", "client_id", e.ClientID, "error", dup)
	default:
		r.logger.Warn("push failed, event stays pending", "client_id", e.ClientID, "error", err)
		return &SyncError{Code: ErrCodeRemoteRetryable, Message: "push event " + e.ClientID, Err: err}
	}

	if e.ClientID == "" {
		return nil
	}
	return r.confirm(ctx, e.ClientID)
}

func (r *Reconciler) markPending(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.loadPending(ctx)
	if err != nil {
		return err
	}
	if !pending.add(clientID) {
		return nil
	}
	return r.savePending(ctx, pending)
}

func (r *Reconciler) confirm(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.loadPending(ctx)
	if err != nil {
		return err
	}
	if !pending.remove(clientID) {
		return nil
	}
	return r.savePending(ctx, pending)
}

// SmartSync retries pending pushes, pulls remote events and merges them into
// the local log. If a sync is already running the caller waits for it and
// receives the same result. A started sync is not cancelled by its caller's
// context.
func (r *Reconciler) SmartSync(ctx context.Context) *SyncResult {
	detached := context.WithoutCancel(ctx)
	v, _, _ := r.flight.Do(flightKey, func() (any, error) {
		r.opMu.Lock()
		defer r.opMu.Unlock()
		return r.sync(detached), nil
	})
	return v.(*SyncResult)
}

func (r *Reconciler) sync(ctx context.Context) *SyncResult {
	res := &SyncResult{Mode: ModeFull}

	cur, err := r.loadCursor(ctx)
	if err != nil {
		return r.fail(res, err)
	}
	if cur.incremental() {
		res.Mode = ModeIncremental
	}

	id, err := r.identity(ctx)
	if err != nil {
		return r.fail(res, err)
	}

	pushed, err := r.retryPending(ctx, id.UserID)
	res.Pushed = pushed
	if err != nil {
		return r.fail(res, err)
	}

	q := remote.Query{UserID: id.UserID}
	if res.Mode == ModeIncremental {
		q.After = cur.lastSync.Add(-r.overlap)
	}
	recs, err := r.remote.Select(ctx, q)
	if err != nil {
		return r.fail(res, &SyncError{Code: ErrCodePullFailed, Message: "pull events", Err: err})
	}

	pulled, latest := r.decodeRecords(recs)
	added, err := r.commit(ctx, res.Mode, pulled, latest, cur.lastSync)
	if err != nil {
		return r.fail(res, err)
	}

	res.Status = StatusSuccess
	res.Pulled = added
	res.CompletedAt = r.now()
	r.logger.Info("sync complete", "mode", res.Mode, "pulled", res.Pulled, "pushed", res.Pushed)
	return res
}

func (r *Reconciler) fail(res *SyncResult, err error) *SyncResult {
	res.Status = StatusError
	res.Error = err.Error()
	res.CompletedAt = r.now()
	r.logger.Warn("sync failed", "mode", res.Mode, "error", err)
	return res
}

// retryPending pushes every pending event still in the local log, in log
// order. Remote failures leave the event pending and do not stop the sync.
func (r *Reconciler) retryPending(ctx context.Context, userID string) (int, error) {
	toPush, err := r.pendingEvents(ctx)
	if err != nil {
		return 0, err
	}

	pushed := 0
	for _, e := range toPush {
		if err := r.push(ctx, userID, e); err != nil {
			if IsRetryable(err) {
				continue
			}
			return pushed, err
		}
		pushed++
	}
	return pushed, nil
}

// pendingEvents returns the local events whose client ids are pending, and
// drops pending ids that no longer have a local event.
func (r *Reconciler) pendingEvents(ctx context.Context) ([]event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	events, err := r.loadEvents(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := r.loadPending(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(events))
	var out []event.Event
	for _, e := range events {
		if e.ClientID == "" || !pending.has(e.ClientID) || present[e.ClientID] {
			continue
		}
		present[e.ClientID] = true
		out = append(out, e)
	}

	stale := false
	for _, id := range append([]string(nil), pending.ids...) {
		if !present[id] {
			pending.remove(id)
			stale = true
			r.logger.Debug("dropping pending id with no local event", "client_id", id)
		}
	}
	if stale {
		if err := r.savePending(ctx, pending); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeRecords converts pulled records, skipping ones that do not validate.
// latest is the newest created_at among all records, valid or not.
func (r *Reconciler) decodeRecords(recs []remote.Record) ([]event.Event, time.Time) {
	var latest time.Time
	events := make([]event.Event, 0, len(recs))
	for _, rec := range recs {
		if rec.CreatedAt.After(latest) {
			latest = rec.CreatedAt
		}
		e, err := FromRecord(rec)
		if err != nil {
			r.logger.Debug("skipping invalid remote record", "id", rec.ID, "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, latest
}

// commit replaces or extends the local log with pulled events and advances
// the cursor in one atomic write. It returns the pulled-count for the mode.
func (r *Reconciler) commit(ctx context.Context, mode Mode, pulled []event.Event, latest, prev time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.loadEvents(ctx)
	if err != nil {
		return 0, err
	}

	var merged []event.Event
	added := len(pulled)
	if mode == ModeFull {
		pending, err := r.loadPending(ctx)
		if err != nil {
			return 0, err
		}
		merged = mergeFull(pulled, current, pending)
	} else {
		merged = mergeIncremental(current, pulled)
		added = len(merged) - len(current)
	}

	logData, err := encodeEvents(merged)
	if err != nil {
		return 0, err
	}
	entries := map[string][]byte{
		KeyEvents:       logData,
		KeyCacheVersion: []byte(CacheVersion),
	}
	if latest.After(prev) {
		entries[KeyLastSync] = []byte(latest.UTC().Format(time.RFC3339Nano))
	}
	if err := r.local.SetMany(ctx, entries); err != nil {
		return 0, fmt.Errorf("write merged log: %w", err)
	}

	r.memo.Reset(merged)
	return added, nil
}

// mergeFull takes the server's events as truth and keeps local events that
// are still pending and absent from the server.
func mergeFull(server, local []event.Event, pending *pendingSet) []event.Event {
	onServer := make(map[string]bool, len(server))
	for _, e := range server {
		if e.ClientID != "" {
			onServer[e.ClientID] = true
		}
	}

	merged := append(make([]event.Event, 0, len(server)), server...)
	for _, e := range local {
		if e.ClientID == "" || !pending.has(e.ClientID) || onServer[e.ClientID] {
			continue
		}
		onServer[e.ClientID] = true
		merged = append(merged, e)
	}
	return merged
}

// mergeIncremental appends pulled events whose identity is not already in
// the local log.
func mergeIncremental(local, pulled []event.Event) []event.Event {
	known := make(map[string]bool, len(local)+len(pulled))
	for _, e := range local {
		known[event.Key(e)] = true
	}

	merged := append(make([]event.Event, 0, len(local)+len(pulled)), local...)
	for _, e := range pulled {
		key := event.Key(e)
		if known[key] {
			continue
		}
		known[key] = true
		merged = append(merged, e)
	}
	return merged
}

// DeleteAllEvents removes the user's remote events, then empties the local
// log and pending set and clears the cursor.
func (r *Reconciler) DeleteAllEvents(ctx context.Context) DeleteResult {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	id, err := r.identity(ctx)
	if err != nil {
		return DeleteResult{Error: err.Error()}
	}

	if err := r.remote.DeleteAll(ctx, id.UserID); err != nil {
		serr := &SyncError{Code: ErrCodeRemoteRetryable, Message: "delete remote events", Err: err}
		r.logger.Warn("delete all failed", "error", err)
		return DeleteResult{Error: serr.Error()}
	}

	if err := r.clearLocal(ctx); err != nil {
		return DeleteResult{Error: err.Error()}
	}
	r.logger.Info("deleted all events", "user_id", id.UserID)
	return DeleteResult{}
}

func (r *Reconciler) clearLocal(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.local.SetMany(ctx, map[string][]byte{
		KeyEvents:  []byte("[]"),
		KeyPending: []byte("[]"),
	}); err != nil {
		return fmt.Errorf("clear local log: %w", err)
	}
	if err := r.local.Remove(ctx, KeyCacheVersion, KeyLastSync); err != nil {
		return fmt.Errorf("clear sync cursor: %w", err)
	}
	r.memo.Reset(nil)
	return nil
}

func (r *Reconciler) identity(ctx context.Context) (*auth.Identity, error) {
	if r.remote == nil {
		return nil, unavailable("no remote store configured", nil)
	}
	if r.provider == nil {
		return nil, unavailable("no auth provider configured", nil)
	}
	id, err := r.provider.CurrentUser(ctx)
	if err != nil {
		return nil, unavailable("check signed-in user", err)
	}
	if id == nil || id.UserID == "" {
		return nil, unavailable("not signed in", nil)
	}
	return id, nil
}
