// Package sqlite is a remote.Store on an embedded SQLite database, for
// self-hosted sync servers that do not run a separate database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/roach88/grove/internal/remote"
)

var _ remote.Store = (*Client)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    type             TEXT NOT NULL,
    payload          TEXT NOT NULL,
    client_id        TEXT,
    client_timestamp TEXT NOT NULL,
    created_at       INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_user_client
    ON events (user_id, client_id) WHERE client_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_events_user_created
    ON events (user_id, created_at);
`

type Client struct {
	db *sql.DB

	// writeMu holds stamp and INSERT together, so rows become visible in
	// created_at order and a reader's cursor never passes an unwritten row.
	writeMu sync.Mutex
	stamper *remote.Stamper
}

// New opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway store.
func New(ctx context.Context, path string) (*Client, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA journal_mode = WAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Client{db: db, stamper: remote.NewStamper(nil)}, nil
}

// ensureSchema runs each DDL statement in one transaction.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Insert(ctx context.Context, rec remote.Record) (remote.Record, error) {
	if rec.UserID == "" {
		return remote.Record{}, fmt.Errorf("inserting record: missing user id")
	}

	rec.ID = uuid.NewString()

	var clientID any
	if rec.ClientID != "" {
		clientID = rec.ClientID
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	rec.CreatedAt = c.stamper.Next()
	res, err := c.db.ExecContext(ctx, `
INSERT INTO events (id, user_id, type, payload, client_id, client_timestamp, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING
`,
		rec.ID,
		rec.UserID,
		rec.Type,
		string(rec.Payload),
		clientID,
		rec.ClientTimestamp,
		rec.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return remote.Record{}, fmt.Errorf("inserting record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return remote.Record{}, fmt.Errorf("inserting record: %w", err)
	}
	if n == 0 {
		return remote.Record{}, remote.ErrDuplicate
	}
	return rec, nil
}

func (c *Client) Select(ctx context.Context, q remote.Query) ([]remote.Record, error) {
	query := `
SELECT id, user_id, type, payload, COALESCE(client_id, ''), client_timestamp, created_at
FROM events
WHERE user_id = ?
  AND created_at > ?
ORDER BY created_at ASC, id ASC
`
	after := int64(-1)
	if !q.After.IsZero() {
		after = q.After.UnixMicro()
	}

	rows, err := c.db.QueryContext(ctx, query, q.UserID, after)
	if err != nil {
		return nil, fmt.Errorf("selecting records: %w", err)
	}
	defer rows.Close()

	var out []remote.Record
	for rows.Next() {
		var (
			rec       remote.Record
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &payload, &rec.ClientID, &rec.ClientTimestamp, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Payload = []byte(payload)
		rec.CreatedAt = time.UnixMicro(createdAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteAll(ctx context.Context, userID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM events WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}
