package reviewrepo

import (
	"context"
	"database/sql"
	"errors"

	"rentloop/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate maps the (booking, reviewer, reviewee) unique constraint.
var ErrDuplicate = errors.New("review already exists for this booking pairing")

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, rv *model.Review) error
	ListForItem(ctx context.Context, itemID int64) ([]model.Review, error)
	ListForUser(ctx context.Context, revieweeID int64) ([]model.Review, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, rv *model.Review) error {
	const q = `
INSERT INTO reviews (booking_id, reviewer_id, reviewee_id, item_id, stars,
                     review_text, photo_urls, video_url, is_verified)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id, created_at`
	var itemID sql.NullInt64
	if rv.ItemID != nil {
		itemID = sql.NullInt64{Int64: *rv.ItemID, Valid: true}
	}
	err := tx.QueryRowContext(ctx, q,
		rv.BookingID, rv.ReviewerID, rv.RevieweeID, itemID, rv.Stars,
		rv.Text, joinURLs(rv.PhotoURLs), rv.VideoURL, rv.IsVerified,
	).Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *repo) ListForItem(ctx context.Context, itemID int64) ([]model.Review, error) {
	const q = `
SELECT id, booking_id, reviewer_id, reviewee_id, item_id, stars, review_text,
       photo_urls, video_url, is_verified, flagged, created_at
FROM reviews
WHERE item_id=$1
ORDER BY created_at DESC`
	return r.list(ctx, q, itemID)
}

func (r *repo) ListForUser(ctx context.Context, revieweeID int64) ([]model.Review, error) {
	const q = `
SELECT id, booking_id, reviewer_id, reviewee_id, item_id, stars, review_text,
       photo_urls, video_url, is_verified, flagged, created_at
FROM reviews
WHERE reviewee_id=$1
ORDER BY created_at DESC`
	return r.list(ctx, q, revieweeID)
}

func (r *repo) list(ctx context.Context, q string, arg any) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var rv model.Review
		var itemID sql.NullInt64
		var photos sql.NullString
		if err := rows.Scan(&rv.ID, &rv.BookingID, &rv.ReviewerID, &rv.RevieweeID,
			&itemID, &rv.Stars, &rv.Text, &photos, &rv.VideoURL,
			&rv.IsVerified, &rv.Flagged, &rv.CreatedAt); err != nil {
			return nil, err
		}
		if itemID.Valid {
			rv.ItemID = &itemID.Int64
		}
		rv.PhotoURLs = splitURLs(photos.String)
		out = append(out, rv)
	}
	return out, rows.Err()
}
