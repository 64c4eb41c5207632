package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/grove/internal/auth"
	"github.com/roach88/grove/internal/remote"
)

var _ remote.Store = (*Client)(nil)

// StatusError is a non-success response from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is a remote.Store backed by a grove server. The user is taken from
// the bearer token, so the UserID fields of records and queries are not sent.
type Client struct {
	baseURL string
	tokens  auth.TokenSource
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default client (30 second timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, tokens auth.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Insert(ctx context.Context, rec remote.Record) (remote.Record, error) {
	body, err := json.Marshal(insertRequest{
		Type:            rec.Type,
		Payload:         rec.Payload,
		ClientID:        rec.ClientID,
		ClientTimestamp: rec.ClientTimestamp,
	})
	if err != nil {
		return remote.Record{}, fmt.Errorf("encode record: %w", err)
	}

	var out remote.Record
	err = c.do(ctx, http.MethodPost, "/api/v1/events", bytes.NewReader(body), &out)
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
		return remote.Record{}, remote.ErrDuplicate
	}
	if err != nil {
		return remote.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return out, nil
}

func (c *Client) Select(ctx context.Context, q remote.Query) ([]remote.Record, error) {
	path := "/api/v1/events"
	if !q.After.IsZero() {
		path += "?after=" + url.QueryEscape(q.After.UTC().Format(time.RFC3339Nano))
	}

	var out listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	return out.Records, nil
}

func (c *Client) DeleteAll(ctx context.Context, _ string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/v1/events", nil, nil); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &StatusError{StatusCode: resp.StatusCode, Message: "undecodable response"}
	}
	if resp.StatusCode >= 400 || !env.Success {
		return &StatusError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
