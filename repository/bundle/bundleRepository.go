package bundlerepo

import (
	"context"
	"database/sql"

	"rentloop/model"
)

type Repo interface {
	Create(ctx context.Context, tx *sql.Tx, b *model.Bundle) error
	ByID(ctx context.Context, id int64) (*model.Bundle, error)
	List(ctx context.Context, activeOnly bool) ([]model.Bundle, error)

	// ForUpdate locks the bundle row for booking creation.
	ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Bundle, error)
	IncrementBookings(ctx context.Context, tx *sql.Tx, id int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Create(ctx context.Context, tx *sql.Tx, b *model.Bundle) error {
	const q = `
INSERT INTO bundles (creator_id, name, description, discount_percent, is_active)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, created_at`
	if err := tx.QueryRowContext(ctx, q,
		b.CreatorID, b.Name, b.Description, b.DiscountPercent, b.IsActive,
	).Scan(&b.ID, &b.CreatedAt); err != nil {
		return err
	}
	const qi = `INSERT INTO bundle_items (bundle_id, item_id, quantity) VALUES ($1,$2,$3)`
	for _, bi := range b.Items {
		if _, err := tx.ExecContext(ctx, qi, b.ID, bi.ItemID, bi.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Bundle, error) {
	const q = `
SELECT id, creator_id, name, description, discount_percent, is_active,
       total_bookings, created_at
FROM bundles
WHERE id=$1`
	var b model.Bundle
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.CreatorID, &b.Name, &b.Description, &b.DiscountPercent,
		&b.IsActive, &b.TotalBookings, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return &b, nil
}

func (r *repo) ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Bundle, error) {
	const q = `
SELECT id, creator_id, name, description, discount_percent, is_active,
       total_bookings, created_at
FROM bundles
WHERE id=$1
FOR UPDATE`
	var b model.Bundle
	if err := tx.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.CreatorID, &b.Name, &b.Description, &b.DiscountPercent,
		&b.IsActive, &b.TotalBookings, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	const qi = `SELECT item_id, quantity FROM bundle_items WHERE bundle_id=$1 ORDER BY item_id`
	rows, err := tx.QueryContext(ctx, qi, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var bi model.BundleItem
		if err := rows.Scan(&bi.ItemID, &bi.Quantity); err != nil {
			return nil, err
		}
		b.Items = append(b.Items, bi)
	}
	return &b, rows.Err()
}

func (r *repo) List(ctx context.Context, activeOnly bool) ([]model.Bundle, error) {
	q := `
SELECT id, creator_id, name, description, discount_percent, is_active,
       total_bookings, created_at
FROM bundles`
	if activeOnly {
		q += ` WHERE is_active = TRUE`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Bundle
	for rows.Next() {
		var b model.Bundle
		if err := rows.Scan(
			&b.ID, &b.CreatorID, &b.Name, &b.Description, &b.DiscountPercent,
			&b.IsActive, &b.TotalBookings, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) IncrementBookings(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE bundles SET total_bookings = total_bookings + 1 WHERE id=$1`, id)
	return err
}

func (r *repo) items(ctx context.Context, bundleID int64) ([]model.BundleItem, error) {
	const q = `SELECT item_id, quantity FROM bundle_items WHERE bundle_id=$1 ORDER BY item_id`
	rows, err := r.db.QueryContext(ctx, q, bundleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BundleItem
	for rows.Next() {
		var bi model.BundleItem
		if err := rows.Scan(&bi.ItemID, &bi.Quantity); err != nil {
			return nil, err
		}
		out = append(out, bi)
	}
	return out, rows.Err()
}
