package sqlite

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dokon/internal/kv"
	"dokon/internal/log"
)

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "data", "dokon.db"), log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.Get(ctx, "products")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "products", []byte(`[{"id":"a"}]`)))
	got, err := s.Get(ctx, "products")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))

	require.NoError(t, s.Set(ctx, "products", []byte(`[]`)))
	got, err = s.Get(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dokon.db")

	s, err := Open(path, log.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "rate", []byte("12000")))
	require.NoError(t, s.Close())

	// migrations are idempotent on an existing file
	s, err = Open(path, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	got, err := s.Get(ctx, "rate")
	require.NoError(t, err)
	assert.Equal(t, "12000", string(got))
}

func TestStoreSetAfterCloseFails(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "dokon.db"), log.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.Set(context.Background(), "rate", []byte("1")))
}

func TestOpenLogsAsStorage(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Component: log.ComponentApp, Output: &buf})
	path := filepath.Join(t.TempDir(), "dokon.db")

	s, err := Open(path, logger)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "rate", []byte("12000")))
	require.NoError(t, s.Close())

	out := buf.String()
	assert.Contains(t, out, "component=storage")
	assert.Contains(t, out, `msg="Applied migrations"`)
	assert.Contains(t, out, "key=rate")

	buf.Reset()
	s, err = Open(path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	assert.Contains(t, buf.String(), `msg="Schema up to date"`)
}
