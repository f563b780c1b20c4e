package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Retry policy for writes that lose a lock race inside SQLite.
const (
	maxAttempts  = 5
	retryBackoff = 20 * time.Millisecond
)

// Coordinator applies every state change to items and claims and decides
// who may make it.
type Coordinator struct {
	db      *sql.DB
	cascade *Cascade
	locks   *itemLocks
}

// New returns a coordinator backed by db.
func New(db *sql.DB) *Coordinator {
	return &Coordinator{
		db:      db,
		cascade: NewCascade(db),
		locks:   newItemLocks(),
	}
}

// Cascade returns the coordinator's cascade engine.
func (c *Coordinator) Cascade() *Cascade {
	return c.cascade
}

// run executes fn, retrying while the database is busy. Every attempt
// re-reads its preconditions. Errors that are not already classified are
// logged and reported as store failures.
func (c *Coordinator) run(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !store.IsBusy(err) || attempt == maxAttempts {
			break
		}
		slog.Warn("database busy, retrying", "op", op, "attempt", attempt)
		select {
		case <-ctx.Done():
			return StoreFailure(op, ctx.Err())
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return StoreFailure(op, err)
}

// tx runs fn in a transaction with the retry policy of run.
func (c *Coordinator) tx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	return c.run(ctx, op, func() error {
		return store.WithTx(ctx, c.db, fn)
	})
}

func cleanMessage(message string) (string, error) {
	m := model.ClaimMessage{Message: strings.TrimSpace(message)}
	if err := model.Validate(m); err != nil {
		return "", validation(err)
	}
	return m.Message, nil
}

// SubmitClaim files a pending claim by actor on another user's item.
func (c *Coordinator) SubmitClaim(ctx context.Context, actor model.Actor, itemID int64, message string) (*model.Claim, error) {
	var claim *model.Claim
	err := c.tx(ctx, "submit claim", func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound("item")
		}

		msg, verr := cleanMessage(message)
		if verr != nil {
			return verr
		}

		if item.OwnerID == actor.ID {
			return invalidOperation("you cannot claim your own item")
		}
		if item.Status == model.ItemStatusRecovered {
			return invalidOperation("item has already been recovered")
		}

		existing, err := store.FindClaim(ctx, tx, itemID, actor.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return invalidOperation("you have already claimed this item")
		}

		claim, err = store.CreateClaim(ctx, tx, itemID, actor.ID, msg)
		if errors.Is(err, store.ErrDuplicate) {
			return invalidOperation("you have already claimed this item")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("claim submitted", "claim", claim.ID, "item", itemID, "actor", actor.ID)
	return claim, nil
}

// GetClaim returns a claim visible to its requester and to the item's owner.
func (c *Coordinator) GetClaim(ctx context.Context, actor model.Actor, claimID int64) (*model.Claim, error) {
	var claim *model.Claim
	err := c.run(ctx, "get claim", func() error {
		var err error
		claim, err = store.GetClaim(ctx, c.db, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return notFound("claim")
		}

		claim.Item, err = store.GetItem(ctx, c.db, claim.ItemID)
		if err != nil {
			return err
		}
		if claim.Item == nil {
			return notFound("claim")
		}

		if claim.RequesterID != actor.ID && claim.Item.OwnerID != actor.ID {
			return forbidden("you may not view this claim")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// UpdateClaimMessage replaces the message of a pending claim. Only the
// requester may edit it.
func (c *Coordinator) UpdateClaimMessage(ctx context.Context, actor model.Actor, claimID int64, message string) (*model.Claim, error) {
	var claim *model.Claim
	err := c.tx(ctx, "update claim message", func(tx *sql.Tx) error {
		var err error
		claim, err = store.GetClaim(ctx, tx, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return notFound("claim")
		}
		if claim.RequesterID != actor.ID {
			return forbidden("only the requester may edit this claim")
		}
		if claim.Status != model.ClaimStatusPending {
			return invalidOperation("claim has already been resolved")
		}

		msg, verr := cleanMessage(message)
		if verr != nil {
			return verr
		}

		// Conditional on the claim still being pending.
		err = store.UpdateClaimMessage(ctx, tx, claimID, msg)
		if errors.Is(err, store.ErrNotFound) {
			return invalidOperation("claim has already been resolved")
		}
		if err != nil {
			return err
		}
		claim.Message = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// DecideClaim lets the item's owner accept or reject a pending claim.
// Accepting marks the item recovered and rejects every other pending claim
// on it in the same transaction.
func (c *Coordinator) DecideClaim(ctx context.Context, actor model.Actor, claimID int64, decision string) (*model.Claim, error) {
	// Look up the item to lock; everything is re-checked under the lock.
	var itemID int64
	err := c.run(ctx, "decide claim", func() error {
		claim, err := store.GetClaim(ctx, c.db, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return notFound("claim")
		}
		itemID = claim.ItemID
		return nil
	})
	if err != nil {
		return nil, err
	}

	unlock := c.locks.lock(itemID)
	defer unlock()

	var claim *model.Claim
	var rejected int64
	err = c.tx(ctx, "decide claim", func(tx *sql.Tx) error {
		var err error
		claim, err = store.GetClaim(ctx, tx, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return notFound("claim")
		}

		item, err := store.GetItem(ctx, tx, claim.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound("claim")
		}
		if item.OwnerID != actor.ID {
			return forbidden("only the item's owner may decide this claim")
		}
		if !model.IsDecision(decision) {
			return NewError(KindValidation, "status must be one of: %s, %s", model.ClaimStatusAccepted, model.ClaimStatusRejected)
		}
		if claim.Status != model.ClaimStatusPending {
			return invalidOperation("claim has already been resolved")
		}

		if decision == model.ClaimStatusRejected {
			err := store.SetClaimStatus(ctx, tx, claimID, model.ClaimStatusPending, model.ClaimStatusRejected)
			if errors.Is(err, store.ErrNotFound) {
				return invalidOperation("claim has already been resolved")
			}
			if err != nil {
				return err
			}
			claim.Status = model.ClaimStatusRejected
			return nil
		}

		// Compare-and-swap on the item status: only one accept per item.
		err = store.MarkItemRecovered(ctx, tx, item.ID)
		if errors.Is(err, store.ErrNotFound) {
			return invalidOperation("item has already been recovered")
		}
		if err != nil {
			return err
		}

		err = store.SetClaimStatus(ctx, tx, claimID, model.ClaimStatusPending, model.ClaimStatusAccepted)
		if errors.Is(err, store.ErrNotFound) {
			return invalidOperation("claim has already been resolved")
		}
		if errors.Is(err, store.ErrDuplicate) {
			return invalidOperation("item already has an accepted claim")
		}
		if err != nil {
			return err
		}

		rejected, err = store.RejectPendingClaims(ctx, tx, item.ID, claimID)
		if err != nil {
			return err
		}
		claim.Status = model.ClaimStatusAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	if claim.Status == model.ClaimStatusAccepted {
		slog.Info("claim accepted", "claim", claimID, "item", itemID, "actor", actor.ID, "rejected", rejected)
	} else {
		slog.Info("claim rejected", "claim", claimID, "item", itemID, "actor", actor.ID)
	}
	return claim, nil
}

// CancelClaim deletes a claim on behalf of its requester, whatever its status.
func (c *Coordinator) CancelClaim(ctx context.Context, actor model.Actor, claimID int64) error {
	err := c.tx(ctx, "cancel claim", func(tx *sql.Tx) error {
		claim, err := store.GetClaim(ctx, tx, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return notFound("claim")
		}
		if claim.RequesterID != actor.ID {
			return forbidden("only the requester may cancel this claim")
		}

		err = store.DeleteClaim(ctx, tx, claimID)
		if errors.Is(err, store.ErrNotFound) {
			return notFound("claim")
		}
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("claim cancelled", "claim", claimID, "actor", actor.ID)
	return nil
}

// ListClaimsForActor returns the claims actor submitted and the claims
// received on actor's items, each newest first.
func (c *Coordinator) ListClaimsForActor(ctx context.Context, actor model.Actor) (*model.ClaimLists, error) {
	lists := &model.ClaimLists{}
	err := c.run(ctx, "list claims", func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			lists.Submitted, err = store.ListClaimsByRequester(gctx, c.db, actor.ID)
			return err
		})
		g.Go(func() error {
			var err error
			lists.Received, err = store.ListClaimsOnOwnedItems(gctx, c.db, actor.ID)
			return err
		})
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	if lists.Submitted == nil {
		lists.Submitted = []model.Claim{}
	}
	if lists.Received == nil {
		lists.Received = []model.Claim{}
	}
	return lists, nil
}

// CreateItem reports a lost or found item owned by actor.
func (c *Coordinator) CreateItem(ctx context.Context, actor model.Actor, n model.NewItem) (*model.Item, error) {
	n.TrimSpace()
	if err := model.Validate(n); err != nil {
		return nil, validation(err)
	}

	var item *model.Item
	err := c.run(ctx, "create item", func() error {
		var err error
		item, err = store.CreateItem(ctx, c.db, actor.ID, n)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("item created", "item", item.ID, "status", item.Status, "actor", actor.ID)
	return item, nil
}

// UpdateItem applies an owner's patch to an item. The owner may switch an
// item between lost and found; recovered is reserved for claim acceptance
// and is final.
func (c *Coordinator) UpdateItem(ctx context.Context, actor model.Actor, itemID int64, patch model.ItemPatch) (*model.Item, error) {
	var item *model.Item
	err := c.tx(ctx, "update item", func(tx *sql.Tx) error {
		var err error
		item, err = store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound("item")
		}
		if item.OwnerID != actor.ID {
			return forbidden("only the owner may edit this item")
		}
		patch.TrimSpace()
		if err := model.Validate(patch); err != nil {
			return validation(err)
		}
		if patch.Status != nil {
			if *patch.Status == model.ItemStatusRecovered {
				return invalidOperation("an item becomes recovered only by accepting a claim")
			}
			if item.Status == model.ItemStatusRecovered {
				return invalidOperation("a recovered item's status cannot change")
			}
		}

		expected := item.Status
		patch.Apply(item)

		// Conditional on the status read above.
		err = store.UpdateItem(ctx, tx, item, expected)
		if errors.Is(err, store.ErrNotFound) {
			return invalidOperation("item changed while being edited")
		}
		if err != nil {
			return err
		}

		item, err = store.GetItem(ctx, tx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("item updated", "item", itemID, "actor", actor.ID)
	return item, nil
}

// ImagePath is where an item's photo is served.
func ImagePath(itemID int64) string {
	return fmt.Sprintf("/api/items/%d/image", itemID)
}

// SetItemImage processes and stores an item's photo. Only the owner may
// set it.
func (c *Coordinator) SetItemImage(ctx context.Context, actor model.Actor, itemID int64, r io.Reader) (*model.Item, error) {
	if err := c.requireOwner(ctx, actor, itemID, "set item image"); err != nil {
		return nil, err
	}

	photo, err := imaging.Process(r)
	if errors.Is(err, imaging.ErrInvalidImage) {
		return nil, validation(err)
	}
	if err != nil {
		return nil, NewError(KindValidation, "could not read image")
	}

	var item *model.Item
	err = c.tx(ctx, "set item image", func(tx *sql.Tx) error {
		current, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound("item")
		}
		if current.OwnerID != actor.ID {
			return forbidden("only the owner may edit this item")
		}
		if err := store.SetItemImage(ctx, tx, itemID, photo.Data, photo.MIME, ImagePath(itemID)); err != nil {
			return err
		}
		item, err = store.GetItem(ctx, tx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("item image set", "item", itemID, "bytes", len(photo.Data), "actor", actor.ID)
	return item, nil
}

func (c *Coordinator) requireOwner(ctx context.Context, actor model.Actor, itemID int64, op string) error {
	return c.run(ctx, op, func() error {
		item, err := store.GetItem(ctx, c.db, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound("item")
		}
		if item.OwnerID != actor.ID {
			return forbidden("only the owner may edit this item")
		}
		return nil
	})
}

// DeleteItem deletes an owner's item together with its claims.
func (c *Coordinator) DeleteItem(ctx context.Context, actor model.Actor, itemID int64) error {
	var claims int64
	err := c.tx(ctx, "delete item", func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound("item")
		}
		if item.OwnerID != actor.ID {
			return forbidden("only the owner may delete this item")
		}

		claims, err = c.cascade.OnItemDeleted(ctx, tx, itemID)
		if errors.Is(err, store.ErrNotFound) {
			return notFound("item")
		}
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("item deleted", "item", itemID, "claims", claims, "actor", actor.ID)
	return nil
}

// DeleteUser deletes the actor's own account with everything that
// references it.
func (c *Coordinator) DeleteUser(ctx context.Context, actor model.Actor, userID int64) error {
	if actor.ID != userID {
		return forbidden("you may only delete your own account")
	}

	var res UserCascade
	err := c.tx(ctx, "delete user", func(tx *sql.Tx) error {
		user, err := store.GetUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return notFound("user")
		}

		res, err = c.cascade.OnUserDeleted(ctx, tx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return notFound("user")
		}
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("user deleted", "user", userID, "items", res.Items, "claims", res.Claims)
	return nil
}
