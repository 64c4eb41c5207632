// Package couch is a remote.Store on CouchDB.
//
// Each record is one document whose id embeds the user and client ids, so a
// repeated client_id is rejected by CouchDB itself with 409 Conflict.
package couch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
	"github.com/google/uuid"

	"github.com/roach88/grove/internal/remote"
)

var _ remote.Store = (*Client)(nil)

// pageSize bounds each Mango query; CouchDB defaults to 25 rows otherwise.
const pageSize = 500

type Client struct {
	client *kivik.Client
	dbName string

	// writeMu holds stamp and Put together so this client's documents land
	// in created_at order. Writers in other processes are not covered; the
	// reconciler's pull overlap absorbs those.
	writeMu sync.Mutex
	stamper *remote.Stamper
}

// New connects to the CouchDB server at url, creating dbName and its
// query index if they do not exist.
func New(ctx context.Context, url, dbName string) (*Client, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("connecting to couchdb: %w", err)
	}

	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("checking database existence: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, dbName); err != nil {
			client.Close()
			return nil, fmt.Errorf("creating database: %w", err)
		}
	}

	index := map[string]interface{}{
		"fields": []string{"user_id", "created_at"},
	}
	if err := client.DB(dbName).CreateIndex(ctx, "grove", "user-created", index); err != nil {
		client.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	return &Client{client: client, dbName: dbName, stamper: remote.NewStamper(nil)}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// document is the stored shape. created_at is Unix microseconds so Mango
// range queries compare numerically.
type document struct {
	DocID           string          `json:"_id,omitempty"`
	Rev             string          `json:"_rev,omitempty"`
	Kind            string          `json:"kind"`
	RecordID        string          `json:"record_id"`
	UserID          string          `json:"user_id"`
	Type            string          `json:"type"`
	Payload         json.RawMessage `json:"payload"`
	ClientID        string          `json:"client_id,omitempty"`
	ClientTimestamp string          `json:"client_timestamp"`
	CreatedAt       int64           `json:"created_at"`
}

const kindEvent = "event"

func docID(userID, clientID string) string {
	return fmt.Sprintf("event:%s:%s", userID, clientID)
}

func (c *Client) Insert(ctx context.Context, rec remote.Record) (remote.Record, error) {
	if rec.UserID == "" {
		return remote.Record{}, fmt.Errorf("failed to insert record: missing user id")
	}

	rec.ID = uuid.NewString()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	rec.CreatedAt = c.stamper.Next()
	key := rec.ClientID
	if key == "" {
		key = "id-" + rec.ID
	}

	doc := document{
		Kind:            kindEvent,
		RecordID:        rec.ID,
		UserID:          rec.UserID,
		Type:            rec.Type,
		Payload:         rec.Payload,
		ClientID:        rec.ClientID,
		ClientTimestamp: rec.ClientTimestamp,
		CreatedAt:       rec.CreatedAt.UnixMicro(),
	}

	db := c.client.DB(c.dbName)
	if _, err := db.Put(ctx, docID(rec.UserID, key), doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return remote.Record{}, remote.ErrDuplicate
		}
		return remote.Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	return rec, nil
}

func (c *Client) Select(ctx context.Context, q remote.Query) ([]remote.Record, error) {
	after := int64(-1)
	if !q.After.IsZero() {
		after = q.After.UnixMicro()
	}

	var out []remote.Record
	for {
		docs, err := c.find(ctx, q.UserID, after)
		if err != nil {
			return nil, fmt.Errorf("failed to select records: %w", err)
		}
		for _, d := range docs {
			out = append(out, remote.Record{
				ID:              d.RecordID,
				UserID:          d.UserID,
				Type:            d.Type,
				Payload:         d.Payload,
				ClientID:        d.ClientID,
				ClientTimestamp: d.ClientTimestamp,
				CreatedAt:       time.UnixMicro(d.CreatedAt).UTC(),
			})
		}
		if len(docs) < pageSize {
			return out, nil
		}
		after = docs[len(docs)-1].CreatedAt
	}
}

func (c *Client) find(ctx context.Context, userID string, after int64) ([]document, error) {
	db := c.client.DB(c.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"user_id":    userID,
			"kind":       kindEvent,
			"created_at": map[string]interface{}{"$gt": after},
		},
		"sort": []map[string]string{
			{"user_id": "asc"},
			{"created_at": "asc"},
		},
		"limit": pageSize,
	}

	rows := db.Find(ctx, query)
	defer rows.Close()

	var docs []document
	for rows.Next() {
		var d document
		if err := rows.ScanDoc(&d); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) DeleteAll(ctx context.Context, userID string) error {
	db := c.client.DB(c.dbName)

	for {
		docs, err := c.find(ctx, userID, -1)
		if err != nil {
			return fmt.Errorf("failed to list records for delete: %w", err)
		}
		for _, d := range docs {
			if _, err := db.Delete(ctx, d.DocID, d.Rev); err != nil && kivik.HTTPStatus(err) != http.StatusNotFound {
				return fmt.Errorf("failed to delete record: %w", err)
			}
		}
		if len(docs) < pageSize {
			return nil
		}
	}
}
