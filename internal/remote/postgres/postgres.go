// Package postgres is a remote.Store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/grove/internal/remote"
)

var _ remote.Store = (*Client)(nil)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type Client struct {
	pool *pgxpool.Pool
}

// New connects to dsn and ensures the events table exists.
func New(ctx context.Context, dsn string) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	c := &Client{pool: pool}
	if err := c.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// EnsureSchema creates the events table and its indexes. It is idempotent.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS events (
    id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id          TEXT NOT NULL,
    type             TEXT NOT NULL,
    payload          JSONB NOT NULL,
    client_id        TEXT,
    client_timestamp TEXT NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_user_client
    ON events (user_id, client_id) WHERE client_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_events_user_created
    ON events (user_id, created_at);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// Insert takes a per-user advisory lock for the length of its transaction.
// created_at is read after the lock is granted, so a user's rows commit in
// created_at order and an incremental reader never skips one.
func (c *Client) Insert(ctx context.Context, rec remote.Record) (remote.Record, error) {
	if rec.UserID == "" {
		return remote.Record{}, fmt.Errorf("inserting record: missing user id")
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return remote.Record{}, fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.UserID); err != nil {
		return remote.Record{}, fmt.Errorf("locking user %s: %w", rec.UserID, err)
	}

	query := `
INSERT INTO events (user_id, type, payload, client_id, client_timestamp, created_at)
VALUES ($1, $2, $3::jsonb, NULLIF($4, ''), $5, clock_timestamp())
RETURNING id::text, payload::text, created_at
`
	var payload string
	err = tx.QueryRow(ctx, query,
		rec.UserID,
		rec.Type,
		string(rec.Payload),
		rec.ClientID,
		rec.ClientTimestamp,
	).Scan(&rec.ID, &payload, &rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return remote.Record{}, remote.ErrDuplicate
		}
		return remote.Record{}, fmt.Errorf("inserting record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return remote.Record{}, fmt.Errorf("committing insert: %w", err)
	}

	rec.Payload = []byte(payload)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (c *Client) Select(ctx context.Context, q remote.Query) ([]remote.Record, error) {
	query := `
SELECT id::text, user_id, type, payload::text, COALESCE(client_id, ''), client_timestamp, created_at
FROM events
WHERE user_id = $1
  AND ($2::timestamptz IS NULL OR created_at > $2)
ORDER BY created_at ASC, id ASC
`
	var after *time.Time
	if !q.After.IsZero() {
		after = &q.After
	}

	rows, err := c.pool.Query(ctx, query, q.UserID, after)
	if err != nil {
		return nil, fmt.Errorf("selecting records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (remote.Record, error) {
		var (
			rec     remote.Record
			payload string
		)
		err := row.Scan(&rec.ID, &rec.UserID, &rec.Type, &payload, &rec.ClientID, &rec.ClientTimestamp, &rec.CreatedAt)
		rec.Payload = []byte(payload)
		rec.CreatedAt = rec.CreatedAt.UTC()
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning records: %w", err)
	}
	return records, nil
}

func (c *Client) DeleteAll(ctx context.Context, userID string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM events WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}
