package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// ErrUnauthenticated is returned when a request carries no usable credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// Guard resolves the acting user from a bearer credential.
type Guard struct {
	DB     *sql.DB
	Secret string
}

// ResolveActor validates an Authorization header value and returns the
// actor it identifies along with the token claims. A missing, malformed,
// expired or revoked token, or one whose user no longer exists, yields
// ErrUnauthenticated. Any other error is a storage failure.
func (g *Guard) ResolveActor(ctx context.Context, header string) (model.Actor, *Claims, error) {
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return model.Actor{}, nil, ErrUnauthenticated
	}

	claims, err := ValidateToken(g.Secret, tokenStr)
	if err != nil {
		return model.Actor{}, nil, ErrUnauthenticated
	}

	revoked, err := store.IsTokenRevoked(ctx, g.DB, claims.ID)
	if err != nil {
		return model.Actor{}, nil, fmt.Errorf("checking revocation: %w", err)
	}
	if revoked {
		return model.Actor{}, nil, ErrUnauthenticated
	}

	user, err := store.GetUser(ctx, g.DB, claims.UserID)
	if err != nil {
		return model.Actor{}, nil, fmt.Errorf("loading actor: %w", err)
	}
	if user == nil {
		return model.Actor{}, nil, ErrUnauthenticated
	}

	return model.Actor{ID: user.ID, Email: user.Email}, claims, nil
}
