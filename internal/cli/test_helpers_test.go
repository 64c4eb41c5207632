package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grove/internal/testutil"
)

const testSecret = "cli-test-secret"

// t0 is a Monday, one hour after the daily reset.
var t0 = time.Date(2026, time.January, 5, 7, 0, 0, 0, time.UTC)

var groveEnv = []string{
	"GROVE_DB_PATH", "GROVE_REMOTE_DRIVER", "GROVE_REMOTE_DSN", "GROVE_REMOTE_DATABASE",
	"GROVE_AUTH_SECRET", "GROVE_SERVER_ADDR", "GROVE_TOKEN_TTL",
}

// newTestOptions isolates a command run from the host: a temp database, no
// config or .env file, UTC days and a fixed clock.
func newTestOptions(t *testing.T) *RootOptions {
	t.Helper()
	for _, key := range groveEnv {
		t.Setenv(key, "")
	}
	t.Setenv("GROVE_TIMEZONE", "UTC")
	t.Setenv("GROVE_AUTH_SECRET", testSecret)

	return &RootOptions{
		Format:     "text",
		ConfigPath: writeConfig(t, ""),
		Database:   filepath.Join(t.TempDir(), "grove.db"),
		Now:        testutil.NewClock(t0).Now,
		IDs:        testutil.NewSequenceGenerator("c"),
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grove.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes a command built by newCmd and returns its stdout.
func run(t *testing.T, opts *RootOptions, newCmd func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	t.Helper()
	return runContext(t, context.Background(), opts, newCmd, args...)
}

func runContext(t *testing.T, ctx context.Context, opts *RootOptions, newCmd func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newCmd(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// mustRun fails the test if the command errors.
func mustRun(t *testing.T, opts *RootOptions, newCmd func(*RootOptions) *cobra.Command, args ...string) string {
	t.Helper()
	out, err := run(t, opts, newCmd, args...)
	require.NoError(t, err, out)
	return out
}

// decodeData unmarshals the data field of a JSON Response into v and
// returns the response status.
func decodeData(t *testing.T, out string, v any) string {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil {
		require.NoError(t, json.Unmarshal(resp.Data, v), out)
	}
	return resp.Status
}

// asJSON runs fn with the output format switched to JSON.
func asJSON(opts *RootOptions, fn func()) {
	prev := opts.Format
	opts.Format = "json"
	defer func() { opts.Format = prev }()
	fn()
}
