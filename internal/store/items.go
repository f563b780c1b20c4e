package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
)

// itemColumns selects an item aliased as i joined with its owner aliased as u.
const itemColumns = `i.id, i.title, i.description, i.category, i.location, i.event_date,
	i.image_url, i.status, i.owner_id, i.created_at, i.updated_at,
	u.id, u.name, u.email`

// scanItem scans itemColumns. The owner is left nil if the join found no user.
func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var ownerID sql.NullInt64
	var ownerName, ownerEmail sql.NullString
	err := s.Scan(&item.ID, &item.Title, &item.Description, &item.Category, &item.Location, &item.EventDate,
		&item.ImageURL, &item.Status, &item.OwnerID, &item.CreatedAt, &item.UpdatedAt,
		&ownerID, &ownerName, &ownerEmail)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		item.Owner = &model.PublicUser{ID: ownerID.Int64, Name: ownerName.String, Email: ownerEmail.String}
	}
	return item, nil
}

// CreateItem creates a new item owned by ownerID.
func CreateItem(ctx context.Context, db DBTX, ownerID int64, n model.NewItem) (*model.Item, error) {
	status := n.Status
	if status == "" {
		status = model.ItemStatusLost
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (title, description, category, location, event_date, status, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.Title, n.Description, n.Category, n.Location, n.EventDate, status, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID with its owner's profile.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+`
		 FROM items i LEFT JOIN users u ON u.id = i.owner_id
		 WHERE i.id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns one page of items matching the filter, newest first,
// and the total number of matches.
func ListItems(ctx context.Context, db DBTX, f model.ItemFilter) ([]model.Item, int, error) {
	f.Normalize()

	where := []string{"1=1"}
	var args []any

	if f.Search != "" {
		where = append(where, `i.title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}
	if f.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "i.category = ?")
		args = append(args, f.Category)
	}
	if f.OwnerID > 0 {
		where = append(where, "i.owner_id = ?")
		args = append(args, f.OwnerID)
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items i WHERE `+cond, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+`
		 FROM items i LEFT JOIN users u ON u.id = i.owner_id
		 WHERE `+cond+`
		 ORDER BY i.created_at DESC, i.id DESC
		 LIMIT ? OFFSET ?`,
		append(args, f.Limit, (f.Page-1)*f.Limit)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, total, rows.Err()
}

// UpdateItem writes the mutable fields of item, provided its stored status
// still equals expectedStatus. Returns ErrNotFound if the item is gone or
// its status changed in the meantime.
func UpdateItem(ctx context.Context, db DBTX, item *model.Item, expectedStatus string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, category = ?, location = ?, event_date = ?,
		        image_url = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		item.Title, item.Description, item.Category, item.Location, item.EventDate,
		item.ImageURL, item.Status, item.ID, expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return affected(result)
}

// MarkItemRecovered sets the item's status to recovered unless it already is.
// Returns ErrNotFound if the item is missing or was already recovered.
func MarkItemRecovered(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status != ?`,
		model.ItemStatusRecovered, id, model.ItemStatusRecovered,
	)
	if err != nil {
		return fmt.Errorf("marking item recovered: %w", err)
	}
	return affected(result)
}

// DeleteItem removes an item. Its claims must be deleted first.
func DeleteItem(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return affected(result)
}

// DeleteItemsByOwner removes every item owned by ownerID.
func DeleteItemsByOwner(ctx context.Context, db DBTX, ownerID int64) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("deleting owned items: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOrphanItems removes items whose owner no longer exists.
func DeleteOrphanItems(ctx context.Context, db DBTX) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM items WHERE NOT EXISTS (SELECT 1 FROM users u WHERE u.id = items.owner_id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting orphan items: %w", err)
	}
	return result.RowsAffected()
}

// SetItemImage stores an item's image data and the URL it is served from.
func SetItemImage(ctx context.Context, db DBTX, id int64, image []byte, mime, url string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		image, mime, url, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return affected(result)
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db DBTX, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// escapeLike escapes LIKE wildcards so the search matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
