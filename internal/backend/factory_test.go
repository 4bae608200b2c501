package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/config"
	"atelier/internal/core"
)

func TestCreateBackend_Memory(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.Nil(t, res.Ledger)
	require.NoError(t, res.Backend.Ping(ctx))

	c, err := res.Backend.CreateClient(ctx, core.Client{Name: "Cohen"})
	require.NoError(t, err)
	assert.Positive(t, c.ID)
}

func TestCreateBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "atelier.db")

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: dbPath})
	require.NoError(t, err)
	defer res.Cleanup()

	require.NotNil(t, res.Ledger)
	require.NoError(t, res.Backend.Ping(ctx))

	pending, err := res.Ledger.PendingLedgerEntries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreateBackend_Invalid(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "sheets"})
	assert.Error(t, err)

	_, err = NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.ErrorContains(t, err, "SQLITE_DB_PATH is required")
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/a.db"})
	require.NoError(t, err)
	assert.Equal(t, Config{Type: SQLiteBackend, SQLiteDBPath: "/tmp/a.db"}, cfg)

	cfg, err = FromAppConfig(&config.Config{DataBackend: " Memory "})
	require.NoError(t, err)
	assert.Equal(t, MemoryBackend, cfg.Type)

	_, err = FromAppConfig(&config.Config{DataBackend: "postgres"})
	assert.ErrorContains(t, err, "want one of: sqlite, memory")

	_, err = FromAppConfig(nil)
	assert.Error(t, err)

	assert.Equal(t, []string{"sqlite", "memory"}, TypeNames())
}

func TestBackendTypeCapabilities(t *testing.T) {
	assert.True(t, SQLiteBackend.TracksLedger())
	assert.True(t, SQLiteBackend.Persistent())
	assert.False(t, MemoryBackend.TracksLedger())
	assert.False(t, MemoryBackend.Persistent())
	assert.False(t, BackendType("sheets").IsValid())
}
