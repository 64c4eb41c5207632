package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/grove/internal/event"
)

// Keys of the persisted local layout. Each is independently readable.
const (
	KeyEvents       = "grove.events"
	KeyPending      = "grove.pending"
	KeyCacheVersion = "grove.cache_version"
	KeyLastSync     = "grove.last_sync"
)

// CacheVersion tags the local cache format. Changing it makes the next
// sync a full one.
const CacheVersion = "1"

// cursor records what the last successful sync saw.
type cursor struct {
	version  string
	lastSync time.Time
}

// incremental reports whether a sync may pull only what is new.
func (c cursor) incremental() bool {
	return c.version == CacheVersion && !c.lastSync.IsZero()
}

// loadEvents reads the local log. Entries that no longer validate are
// dropped rather than failing the whole load.
func (r *Reconciler) loadEvents(ctx context.Context) ([]event.Event, error) {
	data, ok, err := r.local.Get(ctx, KeyEvents)
	if err != nil {
		return nil, fmt.Errorf("read local log: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode local log: %w", err)
	}

	events := make([]event.Event, 0, len(raw))
	for i, item := range raw {
		e, err := event.Parse(item)
		if err != nil {
			r.logger.Debug("dropping invalid local event", "index", i, "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func encodeEvents(events []event.Event) ([]byte, error) {
	if events == nil {
		events = []event.Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode local log: %w", err)
	}
	return data, nil
}

// pendingSet is the ordered set of client ids awaiting remote confirmation.
type pendingSet struct {
	ids []string
}

func (p *pendingSet) has(id string) bool {
	for _, existing := range p.ids {
		if existing == id {
			return true
		}
	}
	return false
}

func (p *pendingSet) add(id string) bool {
	if id == "" || p.has(id) {
		return false
	}
	p.ids = append(p.ids, id)
	return true
}

func (p *pendingSet) remove(id string) bool {
	for i, existing := range p.ids {
		if existing == id {
			p.ids = append(p.ids[:i], p.ids[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Reconciler) loadPending(ctx context.Context) (*pendingSet, error) {
	data, ok, err := r.local.Get(ctx, KeyPending)
	if err != nil {
		return nil, fmt.Errorf("read pending set: %w", err)
	}
	p := &pendingSet{}
	if !ok || len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p.ids); err != nil {
		return nil, fmt.Errorf("decode pending set: %w", err)
	}
	return p, nil
}

func encodePending(p *pendingSet) ([]byte, error) {
	ids := p.ids
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode pending set: %w", err)
	}
	return data, nil
}

func (r *Reconciler) savePending(ctx context.Context, p *pendingSet) error {
	data, err := encodePending(p)
	if err != nil {
		return err
	}
	if err := r.local.Set(ctx, KeyPending, data); err != nil {
		return fmt.Errorf("write pending set: %w", err)
	}
	return nil
}

func (r *Reconciler) loadCursor(ctx context.Context) (cursor, error) {
	var c cursor

	version, ok, err := r.local.Get(ctx, KeyCacheVersion)
	if err != nil {
		return c, fmt.Errorf("read cache version: %w", err)
	}
	if ok {
		c.version = string(version)
	}

	last, ok, err := r.local.Get(ctx, KeyLastSync)
	if err != nil {
		return c, fmt.Errorf("read last sync: %w", err)
	}
	if ok && len(last) > 0 {
		t, err := time.Parse(time.RFC3339Nano, string(last))
		if err != nil {
			r.logger.Warn("ignoring unreadable sync cursor", "value", string(last), "error", err)
		} else {
			c.lastSync = t.UTC()
		}
	}
	return c, nil
}
