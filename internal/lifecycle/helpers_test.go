package lifecycle

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	return New(database), database
}

func mustActor(t *testing.T, database *sql.DB, name string) model.Actor {
	t.Helper()
	email := strings.ToLower(name) + "@campus.test"
	u, err := store.CreateUser(context.Background(), database, name, email, "hash")
	require.NoError(t, err)
	return model.Actor{ID: u.ID, Email: u.Email}
}

func mustItem(t *testing.T, c *Coordinator, owner model.Actor, title string) *model.Item {
	t.Helper()
	item, err := c.CreateItem(context.Background(), owner, model.NewItem{
		Title:       title,
		Description: "description of " + title,
		Category:    "Accessories",
		Location:    "Main library",
		EventDate:   "2026-10-01",
	})
	require.NoError(t, err)
	return item
}

func mustClaim(t *testing.T, c *Coordinator, requester model.Actor, itemID int64) *model.Claim {
	t.Helper()
	claim, err := c.SubmitClaim(context.Background(), requester, itemID, "I think this is mine")
	require.NoError(t, err)
	return claim
}

func itemClaims(t *testing.T, database *sql.DB, itemID int64) []model.Claim {
	t.Helper()
	rows, err := database.Query(
		`SELECT id, item_id, requester_id, status FROM claims WHERE item_id = ? ORDER BY id`, itemID)
	require.NoError(t, err)
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var cl model.Claim
		require.NoError(t, rows.Scan(&cl.ID, &cl.ItemID, &cl.RequesterID, &cl.Status))
		claims = append(claims, cl)
	}
	require.NoError(t, rows.Err())
	return claims
}

func requireKind(t *testing.T, want Kind, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, KindOf(err), "error: %v", err)
}

func ptr[T any](v T) *T {
	return &v
}
