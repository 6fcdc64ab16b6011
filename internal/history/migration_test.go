package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMigrations(t *testing.T) {
	store := setupTestStore(t)

	versions, err := store.GetAppliedVersions()
	require.NoError(t, err)
	require.Len(t, versions, len(migrations))
	for i, v := range versions {
		assert.Equal(t, migrations[i].Version, v.Version)
	}
}

func TestApplyMigrations_Idempotency(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.ApplyMigrations(ctx))
	require.NoError(t, store.ApplyMigrations(ctx))

	versions, err := store.GetAppliedVersions()
	require.NoError(t, err)
	assert.Len(t, versions, len(migrations))
}

func TestAddColumnIfNotExists(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	tx, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	// exit_code exists after migration 2
	require.NoError(t, addColumnIfNotExistsTx(ctx, tx, "attempts", "exit_code", "INTEGER NOT NULL DEFAULT 0"))
	require.NoError(t, addColumnIfNotExistsTx(ctx, tx, "attempts", "note", "TEXT"))
	require.NoError(t, addColumnIfNotExistsTx(ctx, tx, "attempts", "note", "TEXT"))

	_, err = tx.ExecContext(ctx, `SELECT note FROM attempts`)
	assert.NoError(t, err)
}
