package lifecycle

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/store"
)

func TestOnItemDeleted(t *testing.T) {
	c, database := newTestCoordinator(t)
	ctx := context.Background()

	owner := mustActor(t, database, "Owner")
	requester := mustActor(t, database, "Requester")
	item := mustItem(t, c, owner, "Gloves")
	claim := mustClaim(t, c, requester, item.ID)

	var removed int64
	err := store.WithTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		removed, err = c.Cascade().OnItemDeleted(ctx, tx, item.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err := store.GetClaim(ctx, database, claim.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = c.Cascade().OnItemDeleted(ctx, database, item.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOnUserDeleted(t *testing.T) {
	c, database := newTestCoordinator(t)
	ctx := context.Background()

	u := mustActor(t, database, "Gone")
	other := mustActor(t, database, "Other")
	item := mustItem(t, c, u, "Gone's hat")
	mustClaim(t, c, other, item.ID)

	var res UserCascade
	err := store.WithTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		res, err = c.Cascade().OnUserDeleted(ctx, tx, u.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, UserCascade{Claims: 1, Items: 1}, res)

	var items, claims int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&items))
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM claims`).Scan(&claims))
	assert.Zero(t, items)
	assert.Zero(t, claims)
}

func TestReconcileSweepsOrphans(t *testing.T) {
	c, database := newTestCoordinator(t)
	ctx := context.Background()

	gone := mustActor(t, database, "Gone")
	stay := mustActor(t, database, "Stay")
	requester := mustActor(t, database, "Requester")

	orphanItem := mustItem(t, c, gone, "orphan")
	keptItem := mustItem(t, c, stay, "kept")
	mustClaim(t, c, requester, orphanItem.ID)
	mustClaim(t, c, gone, keptItem.ID)
	keptClaim := mustClaim(t, c, requester, keptItem.ID)

	// Leave the state a crash between cascade steps could produce.
	_, err := database.Exec(`PRAGMA foreign_keys = OFF`)
	require.NoError(t, err)
	_, err = database.Exec(`DELETE FROM users WHERE id = ?`, gone.ID)
	require.NoError(t, err)
	_, err = database.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)

	report, err := c.Cascade().Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Claims: 2, Items: 1}, report)

	got, err := store.GetClaim(ctx, database, keptClaim.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	again, err := c.Cascade().Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{}, again)
}
