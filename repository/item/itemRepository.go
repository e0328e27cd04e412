package itemrepo

import (
	"context"
	"database/sql"
	"strconv"

	"rentloop/model"

	"github.com/shopspring/decimal"
)

// SearchFilter narrows the candidate set before distance is computed.
type SearchFilter struct {
	Category      model.Category
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	AvailableOnly bool
}

type Repo interface {
	Create(ctx context.Context, it *model.Item) error
	Update(ctx context.Context, it *model.Item) error
	Delete(ctx context.Context, id int64) error
	ByID(ctx context.Context, id int64) (*model.Item, error)
	List(ctx context.Context, f SearchFilter) ([]model.Item, error)
	SetAvailability(ctx context.Context, id int64, available bool) error

	// ForUpdate locks the item row; booking creation takes this lock
	// before the overlap check so concurrent creations serialize.
	ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error)
	IncrementRentals(ctx context.Context, tx *sql.Tx, id int64) error

	RatingForUpdate(ctx context.Context, tx *sql.Tx, id int64) (avg float64, count int64, err error)
	UpdateRating(ctx context.Context, tx *sql.Tx, id int64, avg float64, count int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const itemCols = `id, owner_id, title, description, category, price_per_hour,
       price_per_day, deposit, address_text, lat, lng, photo_url,
       is_available, carbon_offset_kg, total_rentals, rating_avg,
       total_ratings, created_at`

func scanItem(row *sql.Row) (*model.Item, error) {
	var it model.Item
	var perDay decimal.NullDecimal
	err := row.Scan(
		&it.ID, &it.OwnerID, &it.Title, &it.Description, &it.Category,
		&it.PricePerHour, &perDay, &it.Deposit, &it.AddressText, &it.Lat,
		&it.Lng, &it.PhotoURL, &it.IsAvailable, &it.CarbonOffsetKg,
		&it.TotalRentals, &it.RatingAvg, &it.TotalRatings, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if perDay.Valid {
		it.PricePerDay = &perDay.Decimal
	}
	return &it, nil
}

func (r *repo) Create(ctx context.Context, it *model.Item) error {
	const q = `
INSERT INTO items (owner_id, title, description, category, price_per_hour,
                   price_per_day, deposit, address_text, lat, lng, photo_url,
                   is_available, carbon_offset_kg)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id, created_at`
	var perDay decimal.NullDecimal
	if it.PricePerDay != nil {
		perDay = decimal.NullDecimal{Decimal: *it.PricePerDay, Valid: true}
	}
	return r.db.QueryRowContext(ctx, q,
		it.OwnerID, it.Title, it.Description, it.Category, it.PricePerHour,
		perDay, it.Deposit, it.AddressText, it.Lat, it.Lng, it.PhotoURL,
		it.IsAvailable, it.CarbonOffsetKg,
	).Scan(&it.ID, &it.CreatedAt)
}

func (r *repo) Update(ctx context.Context, it *model.Item) error {
	const q = `
UPDATE items
SET title=$2, description=$3, category=$4, price_per_hour=$5,
    price_per_day=$6, deposit=$7, address_text=$8, lat=$9, lng=$10,
    photo_url=$11, is_available=$12, carbon_offset_kg=$13
WHERE id=$1`
	var perDay decimal.NullDecimal
	if it.PricePerDay != nil {
		perDay = decimal.NullDecimal{Decimal: *it.PricePerDay, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		it.ID, it.Title, it.Description, it.Category, it.PricePerHour,
		perDay, it.Deposit, it.AddressText, it.Lat, it.Lng, it.PhotoURL,
		it.IsAvailable, it.CarbonOffsetKg,
	)
	return err
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id=$1`, id)
	return err
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Item, error) {
	return scanItem(r.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id=$1`, id))
}

func (r *repo) ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error) {
	return scanItem(tx.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id=$1 FOR UPDATE`, id))
}

func (r *repo) List(ctx context.Context, f SearchFilter) ([]model.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items WHERE 1=1`
	args := []any{}
	if f.AvailableOnly {
		q += ` AND is_available = TRUE`
	}
	if f.Category != "" {
		args = append(args, f.Category)
		q += ` AND category = $` + itoa(len(args))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		q += ` AND price_per_hour >= $` + itoa(len(args))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		q += ` AND price_per_hour <= $` + itoa(len(args))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var it model.Item
		var perDay decimal.NullDecimal
		if err := rows.Scan(
			&it.ID, &it.OwnerID, &it.Title, &it.Description, &it.Category,
			&it.PricePerHour, &perDay, &it.Deposit, &it.AddressText, &it.Lat,
			&it.Lng, &it.PhotoURL, &it.IsAvailable, &it.CarbonOffsetKg,
			&it.TotalRentals, &it.RatingAvg, &it.TotalRatings, &it.CreatedAt,
		); err != nil {
			return nil, err
		}
		if perDay.Valid {
			it.PricePerDay = &perDay.Decimal
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repo) SetAvailability(ctx context.Context, id int64, available bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE items SET is_available=$2 WHERE id=$1`, id, available)
	return err
}

func (r *repo) IncrementRentals(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE items SET total_rentals = total_rentals + 1 WHERE id=$1`, id)
	return err
}

func (r *repo) RatingForUpdate(ctx context.Context, tx *sql.Tx, id int64) (float64, int64, error) {
	const q = `SELECT rating_avg, total_ratings FROM items WHERE id=$1 FOR UPDATE`
	var avg float64
	var count int64
	err := tx.QueryRowContext(ctx, q, id).Scan(&avg, &count)
	return avg, count, err
}

func (r *repo) UpdateRating(ctx context.Context, tx *sql.Tx, id int64, avg float64, count int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE items SET rating_avg=$2, total_ratings=$3 WHERE id=$1`, id, avg, count)
	return err
}

func itoa(n int) string { return strconv.Itoa(n) }
