package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

const claimColumns = `c.id, c.item_id, c.requester_id, c.message, c.status, c.created_at`

func scanClaim(s scanner) (*model.Claim, error) {
	c := &model.Claim{}
	if err := s.Scan(&c.ID, &c.ItemID, &c.RequesterID, &c.Message, &c.Status, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateClaim creates a pending claim. Returns ErrDuplicate if the requester
// already has a claim on the item.
func CreateClaim(ctx context.Context, db DBTX, itemID, requesterID int64, message string) (*model.Claim, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO claims (item_id, requester_id, message, status) VALUES (?, ?, ?, ?)`,
		itemID, requesterID, message, model.ClaimStatusPending,
	)
	if isUnique(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting claim id: %w", err)
	}

	return GetClaim(ctx, db, id)
}

// GetClaim returns a claim by ID.
func GetClaim(ctx context.Context, db DBTX, id int64) (*model.Claim, error) {
	c, err := scanClaim(db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims c WHERE c.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// FindClaim returns the requester's claim on an item, if any.
func FindClaim(ctx context.Context, db DBTX, itemID, requesterID int64) (*model.Claim, error) {
	c, err := scanClaim(db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims c WHERE c.item_id = ? AND c.requester_id = ?`,
		itemID, requesterID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding claim: %w", err)
	}
	return c, nil
}

// ListClaimsByRequester returns the claims a user submitted, newest first,
// each with its item attached.
func ListClaimsByRequester(ctx context.Context, db DBTX, requesterID int64) ([]model.Claim, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+claimColumns+`, `+itemColumns+`
		 FROM claims c
		 JOIN items i ON i.id = c.item_id
		 LEFT JOIN users u ON u.id = i.owner_id
		 WHERE c.requester_id = ?
		 ORDER BY c.created_at DESC, c.id DESC`, requesterID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing submitted claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaimWithItem(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("scanning submitted claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// ListClaimsOnOwnedItems returns the claims received on items owned by
// ownerID, newest first, each with its item and requester attached.
func ListClaimsOnOwnedItems(ctx context.Context, db DBTX, ownerID int64) ([]model.Claim, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+claimColumns+`, `+itemColumns+`, r.id, r.name, r.email
		 FROM claims c
		 JOIN items i ON i.id = c.item_id
		 LEFT JOIN users u ON u.id = i.owner_id
		 JOIN users r ON r.id = c.requester_id
		 WHERE i.owner_id = ?
		 ORDER BY c.created_at DESC, c.id DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing received claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		requester := &model.PublicUser{}
		c, err := scanClaimWithItem(rows, requester)
		if err != nil {
			return nil, fmt.Errorf("scanning received claim: %w", err)
		}
		c.Requester = requester
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// scanClaimWithItem scans claimColumns followed by itemColumns and, if
// requester is non-nil, the requester's id, name and email.
func scanClaimWithItem(rows *sql.Rows, requester *model.PublicUser) (*model.Claim, error) {
	c := &model.Claim{}
	item := &model.Item{}
	var ownerID sql.NullInt64
	var ownerName, ownerEmail sql.NullString

	dest := []any{
		&c.ID, &c.ItemID, &c.RequesterID, &c.Message, &c.Status, &c.CreatedAt,
		&item.ID, &item.Title, &item.Description, &item.Category, &item.Location, &item.EventDate,
		&item.ImageURL, &item.Status, &item.OwnerID, &item.CreatedAt, &item.UpdatedAt,
		&ownerID, &ownerName, &ownerEmail,
	}
	if requester != nil {
		dest = append(dest, &requester.ID, &requester.Name, &requester.Email)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	if ownerID.Valid {
		item.Owner = &model.PublicUser{ID: ownerID.Int64, Name: ownerName.String, Email: ownerEmail.String}
	}
	c.Item = item
	return c, nil
}

// UpdateClaimMessage replaces the message of a pending claim. Returns
// ErrNotFound if the claim is missing or no longer pending.
func UpdateClaimMessage(ctx context.Context, db DBTX, id int64, message string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE claims SET message = ? WHERE id = ? AND status = ?`,
		message, id, model.ClaimStatusPending,
	)
	if err != nil {
		return fmt.Errorf("updating claim message: %w", err)
	}
	return affected(result)
}

// SetClaimStatus moves a claim from one status to another. Returns
// ErrNotFound if the claim is missing or not in the from status.
func SetClaimStatus(ctx context.Context, db DBTX, id int64, from, to string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE claims SET status = ? WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if isUnique(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("setting claim status: %w", err)
	}
	return affected(result)
}

// RejectPendingClaims rejects every pending claim on an item except keepID.
func RejectPendingClaims(ctx context.Context, db DBTX, itemID, keepID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE claims SET status = ? WHERE item_id = ? AND id != ? AND status = ?`,
		model.ClaimStatusRejected, itemID, keepID, model.ClaimStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("rejecting pending claims: %w", err)
	}
	return result.RowsAffected()
}

// DeleteClaim removes a claim.
func DeleteClaim(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM claims WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting claim: %w", err)
	}
	return affected(result)
}

// DeleteClaimsByItem removes every claim on an item.
func DeleteClaimsByItem(ctx context.Context, db DBTX, itemID int64) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM claims WHERE item_id = ?`, itemID)
	if err != nil {
		return 0, fmt.Errorf("deleting item claims: %w", err)
	}
	return result.RowsAffected()
}

// DeleteClaimsForUser removes claims submitted by userID and claims on any
// item userID owns.
func DeleteClaimsForUser(ctx context.Context, db DBTX, userID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM claims
		 WHERE requester_id = ?
		    OR item_id IN (SELECT id FROM items WHERE owner_id = ?)`,
		userID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting user claims: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOrphanClaims removes claims whose requester, item, or item owner no
// longer exists. Run it before DeleteOrphanItems.
func DeleteOrphanClaims(ctx context.Context, db DBTX) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM claims
		 WHERE NOT EXISTS (
		         SELECT 1 FROM items i JOIN users o ON o.id = i.owner_id
		         WHERE i.id = claims.item_id)
		    OR NOT EXISTS (SELECT 1 FROM users u WHERE u.id = claims.requester_id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting orphan claims: %w", err)
	}
	return result.RowsAffected()
}
