package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"GROVE_DB_PATH", "GROVE_REMOTE_DRIVER", "GROVE_REMOTE_DSN", "GROVE_REMOTE_DATABASE",
	"GROVE_AUTH_SECRET", "GROVE_SERVER_ADDR", "GROVE_TIMEZONE", "GROVE_TOKEN_TTL",
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.SyncEnabled())
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "grove.yaml", `
local:
  db_path: /tmp/grove-test.db
remote:
  driver: Postgres
  dsn: postgres://localhost/grove
auth:
  secret: s3cret
  token_ttl: 12h
server:
  addr: 127.0.0.1:9000
timezone: America/New_York
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/grove-test.db", cfg.Local.DBPath)
	assert.Equal(t, DriverPostgres, cfg.Remote.Driver)
	assert.Equal(t, "postgres://localhost/grove", cfg.Remote.DSN)
	assert.Equal(t, "grove", cfg.Remote.Database, "unset keys keep defaults")
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.SyncEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "grove.yaml", "server:\n  addr: :1111\nauth:\n  secret: from-file\n")
	envFile := writeFile(t, ".env", "GROVE_SERVER_ADDR=:2222\nGROVE_AUTH_SECRET=from-dotenv\n")
	t.Setenv("GROVE_AUTH_SECRET", "from-env")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, ":2222", cfg.Server.Addr, ".env beats the file")
	assert.Equal(t, "from-env", cfg.Auth.Secret, "environment beats .env")
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)

	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown driver", yaml: "remote:\n  driver: redis\n", wantErr: `unknown remote driver "redis"`},
		{name: "dsn required", yaml: "remote:\n  driver: couch\n", wantErr: "remote dsn is required for driver couch"},
		{name: "couch database required", yaml: "remote:\n  driver: couch\n  dsn: http://localhost:5984\n  database: \"\"\n", wantErr: "remote database is required"},
		{name: "empty db path", yaml: "local:\n  db_path: \" \"\n", wantErr: "local db_path is required"},
		{name: "bad timezone", yaml: "timezone: Mars/Olympus\n", wantErr: "invalid timezone"},
		{name: "bad yaml", yaml: "local: [", wantErr: "loading config"},
		{name: "bad ttl env", env: map[string]string{"GROVE_TOKEN_TTL": "soon"}, wantErr: "invalid GROVE_TOKEN_TTL"},
		{name: "non-positive ttl", yaml: "auth:\n  token_ttl: 0s\n", wantErr: "token_ttl must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, "grove.yaml", tt.yaml)

			_, err := Load(path, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
