package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kvImplementations runs a test against both KV implementations.
func kvImplementations(t *testing.T, fn func(t *testing.T, kv KV)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, createTestStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
}

func TestKV_GetMissing(t *testing.T) {
	kvImplementations(t, func(t *testing.T, kv KV) {
		v, ok, err := kv.Get(context.Background(), "nope")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})
}

func TestKV_SetGetOverwrite(t *testing.T) {
	kvImplementations(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, "grove.events", []byte(`[1]`)))
		require.NoError(t, kv.Set(ctx, "grove.events", []byte(`[1,2]`)))

		v, ok, err := kv.Get(ctx, "grove.events")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte(`[1,2]`), v)
	})
}

func TestKV_EmptyValueIsPresent(t *testing.T) {
	kvImplementations(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		require.NoError(t, kv.Set(ctx, "k", nil))

		v, ok, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, v)
	})
}

func TestKV_SetManyAndRemove(t *testing.T) {
	kvImplementations(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		require.NoError(t, kv.SetMany(ctx, map[string][]byte{
			"a": []byte("1"),
			"b": []byte("2"),
			"c": []byte("3"),
		}))
		require.NoError(t, kv.Remove(ctx, "a", "c", "missing"))

		_, ok, err := kv.Get(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)

		v, ok, err := kv.Get(ctx, "b")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("2"), v)
	})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	in := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", in))
	in[0] = 'x'

	out, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	out[1] = 'y'

	again, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "grove.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "grove.last_sync", []byte("2026-01-05T07:00:00.000Z")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, "grove.last_sync")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-01-05T07:00:00.000Z", string(v))
}

func TestStore_RecordsUpdateTime(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	fixed := time.Date(2026, time.January, 5, 7, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Set(ctx, "k", []byte("v")))

	var updated int64
	require.NoError(t, s.db.QueryRow(`SELECT updated_at FROM kv WHERE key = 'k'`).Scan(&updated))
	assert.Equal(t, fixed.UnixMilli(), updated)
}

func TestStore_SetManyCanceledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SetMany(ctx, map[string][]byte{"a": []byte("1")})
	require.Error(t, err)

	_, ok, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
