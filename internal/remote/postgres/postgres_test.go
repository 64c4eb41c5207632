package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/grove/internal/remote"
	"github.com/roach88/grove/internal/remote/remotetest"
)

// Set GROVE_TEST_POSTGRES_DSN to run against a disposable database.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("GROVE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GROVE_TEST_POSTGRES_DSN not set")
	}

	remotetest.Run(t, func(t *testing.T) remote.Store {
		ctx := context.Background()
		c, err := New(ctx, dsn)
		require.NoError(t, err)
		_, err = c.pool.Exec(ctx, `TRUNCATE events`)
		require.NoError(t, err)
		return c
	})
}
