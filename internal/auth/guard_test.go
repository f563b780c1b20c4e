package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/store"
)

func TestResolveActor(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	g := &Guard{DB: database, Secret: "secret"}

	user, err := store.CreateUser(ctx, database, "Ana", "ana@campus.test", "hash")
	if err != nil {
		t.Fatal(err)
	}
	token, _ := GenerateToken(g.Secret, user.ID, user.Email)

	actor, claims, err := g.ResolveActor(ctx, "Bearer "+token)
	if err != nil {
		t.Fatalf("ResolveActor: %v", err)
	}
	if actor.ID != user.ID || actor.Email != user.Email {
		t.Errorf("unexpected actor %+v", actor)
	}

	// Revoked token is rejected.
	if err := store.RevokeToken(ctx, database, claims.ID, claims.ExpiresAt.Time); err != nil {
		t.Fatal(err)
	}
	if _, _, err := g.ResolveActor(ctx, "Bearer "+token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for revoked token, got %v", err)
	}
}

func TestResolveActorRejects(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	g := &Guard{DB: database, Secret: "secret"}

	ghost, _ := GenerateToken(g.Secret, 42, "ghost@campus.test")
	foreign, _ := GenerateToken("other-secret", 1, "a@campus.test")

	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"no bearer prefix", ghost},
		{"bearer without token", "Bearer "},
		{"garbage", "Bearer abc.def.ghi"},
		{"wrong secret", "Bearer " + foreign},
		{"deleted user", "Bearer " + ghost},
	}

	for _, tt := range tests {
		if _, _, err := g.ResolveActor(ctx, tt.header); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("%s: expected ErrUnauthenticated, got %v", tt.name, err)
		}
	}
}
