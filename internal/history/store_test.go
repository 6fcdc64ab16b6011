package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrison/verigate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), ".verigate", "history.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, dbPath)
	assert.Equal(t, dbPath, store.Path())
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, &Attempt{FilePath: "a.swift", Status: models.StatusSuccess}))
	require.NoError(t, store.Close())

	store, err = NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	attempts, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)
	failed := &Attempt{
		FilePath:    "App/View.swift",
		Status:      models.StatusFailed,
		CountBefore: 1,
		CountAfter:  2,
		Diagnostic:  "error: syntax",
		ExitCode:    65,
		DurationMs:  4200,
		CreatedAt:   created,
	}
	require.NoError(t, store.Record(ctx, failed))
	assert.NotZero(t, failed.ID)

	success := &Attempt{FilePath: "App/View.swift", Status: models.StatusSuccess, CountBefore: 2, Token: "PASS_0A1B2C3D"}
	require.NoError(t, store.Record(ctx, success))
	assert.False(t, success.CreatedAt.IsZero(), "CreatedAt defaults to now")

	require.NoError(t, store.Record(ctx, &Attempt{FilePath: "Other.swift", Status: models.StatusHalt, TimedOut: true}))

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Other.swift", all[0].FilePath, "most recent first")
	assert.True(t, all[0].TimedOut)

	byFile, err := store.List(ctx, Filter{FilePath: "App/View.swift"})
	require.NoError(t, err)
	require.Len(t, byFile, 2)
	assert.Equal(t, "PASS_0A1B2C3D", byFile[0].Token)

	got := byFile[1]
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 1, got.CountBefore)
	assert.Equal(t, 2, got.CountAfter)
	assert.Equal(t, "error: syntax", got.Diagnostic)
	assert.Equal(t, 65, got.ExitCode)
	assert.Equal(t, int64(4200), got.DurationMs)
	assert.True(t, created.Equal(got.CreatedAt))

	limited, err := store.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	halts, err := store.List(ctx, Filter{Status: models.StatusHalt})
	require.NoError(t, err)
	assert.Len(t, halts, 1)
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	for _, status := range []models.Status{models.StatusFailed, models.StatusFailed, models.StatusSuccess, models.StatusError} {
		require.NoError(t, store.Record(ctx, &Attempt{FilePath: "x", Status: status}))
	}

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int{
		models.StatusFailed:  2,
		models.StatusSuccess: 1,
		models.StatusError:   1,
	}, counts)
}

func TestRecordCanceledContext(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Record(ctx, &Attempt{FilePath: "x", Status: models.StatusError})
	assert.Error(t, err)
}
