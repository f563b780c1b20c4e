package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

func TestCreateClaimDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := mustUser(t, database, "Owner")
	requester := mustUser(t, database, "Requester")
	item := mustItem(t, database, owner.ID, "Wallet")

	claim := mustClaim(t, database, item.ID, requester.ID)
	if claim.Status != model.ClaimStatusPending {
		t.Errorf("expected pending, got %q", claim.Status)
	}

	_, err := CreateClaim(ctx, database, item.ID, requester.ID, "again")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	found, err := FindClaim(ctx, database, item.ID, requester.ID)
	if err != nil || found == nil || found.ID != claim.ID {
		t.Errorf("FindClaim: got %+v, %v", found, err)
	}
}

func TestSetClaimStatusCompareAndSwap(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := mustUser(t, database, "Owner")
	requester := mustUser(t, database, "Requester")
	item := mustItem(t, database, owner.ID, "Wallet")
	claim := mustClaim(t, database, item.ID, requester.ID)

	if err := SetClaimStatus(ctx, database, claim.ID, model.ClaimStatusPending, model.ClaimStatusRejected); err != nil {
		t.Fatalf("SetClaimStatus: %v", err)
	}
	err := SetClaimStatus(ctx, database, claim.ID, model.ClaimStatusPending, model.ClaimStatusAccepted)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-pending claim, got %v", err)
	}
}

func TestUpdateClaimMessageOnlyPending(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := mustUser(t, database, "Owner")
	requester := mustUser(t, database, "Requester")
	item := mustItem(t, database, owner.ID, "Wallet")
	claim := mustClaim(t, database, item.ID, requester.ID)

	if err := UpdateClaimMessage(ctx, database, claim.ID, "brown leather"); err != nil {
		t.Fatalf("UpdateClaimMessage: %v", err)
	}
	SetClaimStatus(ctx, database, claim.ID, model.ClaimStatusPending, model.ClaimStatusRejected)

	if err := UpdateClaimMessage(ctx, database, claim.ID, "edited"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for resolved claim, got %v", err)
	}
	got, _ := GetClaim(ctx, database, claim.ID)
	if got.Message != "brown leather" {
		t.Errorf("message changed on resolved claim: %q", got.Message)
	}
}

func TestRejectPendingClaims(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := mustUser(t, database, "Owner")
	a := mustUser(t, database, "A")
	b := mustUser(t, database, "B")
	c := mustUser(t, database, "C")
	item := mustItem(t, database, owner.ID, "Phone")

	keep := mustClaim(t, database, item.ID, a.ID)
	mustClaim(t, database, item.ID, b.ID)
	rejected := mustClaim(t, database, item.ID, c.ID)
	SetClaimStatus(ctx, database, rejected.ID, model.ClaimStatusPending, model.ClaimStatusRejected)

	n, err := RejectPendingClaims(ctx, database, item.ID, keep.ID)
	if err != nil {
		t.Fatalf("RejectPendingClaims: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 claim rejected, got %d", n)
	}

	kept, _ := GetClaim(ctx, database, keep.ID)
	if kept.Status != model.ClaimStatusPending {
		t.Errorf("kept claim changed: %q", kept.Status)
	}
}

func TestListClaimsJoins(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := mustUser(t, database, "Owner")
	requester := mustUser(t, database, "Requester")
	mine := mustItem(t, database, owner.ID, "Owner's scarf")
	theirs := mustItem(t, database, requester.ID, "Requester's cap")

	mustClaim(t, database, mine.ID, requester.ID)
	mustClaim(t, database, theirs.ID, owner.ID)

	submitted, err := ListClaimsByRequester(ctx, database, requester.ID)
	if err != nil {
		t.Fatalf("ListClaimsByRequester: %v", err)
	}
	if len(submitted) != 1 || submitted[0].Item == nil || submitted[0].Item.Title != "Owner's scarf" {
		t.Fatalf("unexpected submitted claims: %+v", submitted)
	}
	if submitted[0].Requester != nil {
		t.Error("submitted claims should not carry the requester profile")
	}

	received, err := ListClaimsOnOwnedItems(ctx, database, owner.ID)
	if err != nil {
		t.Fatalf("ListClaimsOnOwnedItems: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 received claim, got %d", len(received))
	}
	if received[0].Requester == nil || received[0].Requester.Name != "Requester" {
		t.Errorf("expected requester profile, got %+v", received[0].Requester)
	}
	if received[0].Item.Owner == nil || received[0].Item.Owner.ID != owner.ID {
		t.Errorf("expected item owner to be joined, got %+v", received[0].Item.Owner)
	}
}

func TestDeleteClaimsForUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u := mustUser(t, database, "U")
	other := mustUser(t, database, "Other")
	third := mustUser(t, database, "Third")
	uItem := mustItem(t, database, u.ID, "u item")
	otherItem := mustItem(t, database, other.ID, "other item")

	mustClaim(t, database, otherItem.ID, u.ID) // submitted by U
	mustClaim(t, database, uItem.ID, other.ID) // on U's item
	keep := mustClaim(t, database, otherItem.ID, third.ID)

	n, err := DeleteClaimsForUser(ctx, database, u.ID)
	if err != nil {
		t.Fatalf("DeleteClaimsForUser: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 claims deleted, got %d", n)
	}
	if got, _ := GetClaim(ctx, database, keep.ID); got == nil {
		t.Error("unrelated claim was deleted")
	}
}

func TestDeleteClaimsForUserManyItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u := mustUser(t, database, "Hoarder")
	other := mustUser(t, database, "Other")

	// More items than SQLite allows bound variables in one statement.
	_, err := database.ExecContext(ctx,
		`WITH RECURSIVE n(i) AS (SELECT 1 UNION ALL SELECT i + 1 FROM n WHERE i < 33000)
		 INSERT INTO items (title, description, category, location, event_date, owner_id)
		 SELECT 'item ' || i, 'bulk', 'Misc', 'Depot', '2026-10-01', ? FROM n`,
		u.ID,
	)
	if err != nil {
		t.Fatalf("inserting items: %v", err)
	}

	var last int64
	if err := database.QueryRow(`SELECT MAX(id) FROM items WHERE owner_id = ?`, u.ID).Scan(&last); err != nil {
		t.Fatalf("reading last item: %v", err)
	}
	mustClaim(t, database, last, other.ID)

	n, err := DeleteClaimsForUser(ctx, database, u.ID)
	if err != nil {
		t.Fatalf("DeleteClaimsForUser: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 claim deleted, got %d", n)
	}
}

func TestDeleteOrphans(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := mustUser(t, database, "Owner")
	requester := mustUser(t, database, "Requester")
	item := mustItem(t, database, owner.ID, "Orphaned")
	mustClaim(t, database, item.ID, requester.ID)
	kept := mustItem(t, database, requester.ID, "Kept")

	// Simulate an interrupted non-transactional cascade.
	if _, err := database.Exec(`PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatal(err)
	}
	if _, err := database.Exec(`DELETE FROM users WHERE id = ?`, owner.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := database.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		t.Fatal(err)
	}

	// Claims go first: the item still exists but its owner does not.
	n, err := DeleteOrphanClaims(ctx, database)
	if err != nil {
		t.Fatalf("DeleteOrphanClaims: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 orphan claim, got %d", n)
	}

	n, err = DeleteOrphanItems(ctx, database)
	if err != nil {
		t.Fatalf("DeleteOrphanItems: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 orphan item, got %d", n)
	}

	if got, _ := GetItem(ctx, database, kept.ID); got == nil {
		t.Error("item with a live owner was deleted")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := mustUser(t, database, "Owner")
	boom := errors.New("boom")

	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		if _, err := CreateItem(ctx, tx, owner.ID, model.NewItem{
			Title: "t", Description: "d", Category: "c", Location: "l", EventDate: "2026-01-01",
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	_, total, _ := ListItems(ctx, database, model.ItemFilter{})
	if total != 0 {
		t.Errorf("expected rollback, found %d items", total)
	}
}
