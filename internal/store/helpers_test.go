package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/erazemk/najdeno/internal/model"
)

func mustUser(t *testing.T, db *sql.DB, name string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, name, strings.ToLower(name)+"@campus.test", "hash")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

func mustItem(t *testing.T, db *sql.DB, ownerID int64, title string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), db, ownerID, model.NewItem{
		Title:       title,
		Description: "description of " + title,
		Category:    "Electronics",
		Location:    "Library",
		EventDate:   "2026-10-01",
	})
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", title, err)
	}
	return item
}

func mustClaim(t *testing.T, db *sql.DB, itemID, requesterID int64) *model.Claim {
	t.Helper()
	c, err := CreateClaim(context.Background(), db, itemID, requesterID, "I think this is mine")
	if err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	return c
}
