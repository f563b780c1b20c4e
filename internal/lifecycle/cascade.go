package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/najdeno/internal/store"
)

// Cascade removes records that depend on a deleted item or user. Deletions
// run inside the caller's transaction in dependency order: claims, then
// items, then the user.
type Cascade struct {
	db *sql.DB
}

// NewCascade returns a cascade engine backed by db.
func NewCascade(db *sql.DB) *Cascade {
	return &Cascade{db: db}
}

// OnItemDeleted deletes the item and every claim referencing it. It returns
// the number of claims removed, or store.ErrNotFound if the item is missing.
func (c *Cascade) OnItemDeleted(ctx context.Context, tx store.DBTX, itemID int64) (int64, error) {
	claims, err := store.DeleteClaimsByItem(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}
	if err := store.DeleteItem(ctx, tx, itemID); err != nil {
		return 0, err
	}
	return claims, nil
}

// UserCascade counts what a user deletion removed.
type UserCascade struct {
	Claims int64
	Items  int64
}

// OnUserDeleted deletes the user, their items, the claims they submitted
// and the claims on their items.
func (c *Cascade) OnUserDeleted(ctx context.Context, tx store.DBTX, userID int64) (UserCascade, error) {
	var res UserCascade
	var err error
	if res.Claims, err = store.DeleteClaimsForUser(ctx, tx, userID); err != nil {
		return res, err
	}
	if res.Items, err = store.DeleteItemsByOwner(ctx, tx, userID); err != nil {
		return res, err
	}
	if err := store.DeleteUser(ctx, tx, userID); err != nil {
		return res, err
	}
	return res, nil
}

// ReconcileReport counts the orphans removed by Reconcile.
type ReconcileReport struct {
	Claims int64
	Items  int64
}

// Reconcile removes claims and items whose parents no longer exist. Claims
// are swept first since an orphaned item may still have claims.
func (c *Cascade) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	err := store.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var err error
		if report.Claims, err = store.DeleteOrphanClaims(ctx, tx); err != nil {
			return err
		}
		if report.Items, err = store.DeleteOrphanItems(ctx, tx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("reconciling: %w", err)
	}

	if report.Claims > 0 || report.Items > 0 {
		slog.Warn("removed orphaned records", "claims", report.Claims, "items", report.Items)
	}
	return report, nil
}
