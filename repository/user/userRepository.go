package userrepo

import (
	"context"
	"database/sql"

	"rentloop/model"
)

type Repo interface {
	ByID(ctx context.Context, id int64) (*model.User, error)

	// AddCO2Saved bumps the renter's CO2 counter when a rental completes.
	AddCO2Saved(ctx context.Context, tx *sql.Tx, userID int64, kg int64) error

	// RatingForUpdate and UpdateRating are the two halves of the rolling
	// average read-modify-write; callers hold them inside one tx.
	RatingForUpdate(ctx context.Context, tx *sql.Tx, userID int64) (avg float64, count int64, err error)
	UpdateRating(ctx context.Context, tx *sql.Tx, userID int64, avg float64, count int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) ByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `
SELECT id, first_name, last_name, email, username, password_hash, phone,
       rating_avg, total_ratings, co2_saved_kg, created_at
FROM users
WHERE id=$1`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PasswordHash,
		&u.Phone, &u.RatingAvg, &u.TotalRatings, &u.CO2SavedKg, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) AddCO2Saved(ctx context.Context, tx *sql.Tx, userID int64, kg int64) error {
	const q = `
UPDATE users
SET co2_saved_kg = co2_saved_kg + $2
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, userID, kg)
	return err
}

func (r *repo) RatingForUpdate(ctx context.Context, tx *sql.Tx, userID int64) (float64, int64, error) {
	const q = `
SELECT rating_avg, total_ratings
FROM users
WHERE id=$1
FOR UPDATE`
	var avg float64
	var count int64
	err := tx.QueryRowContext(ctx, q, userID).Scan(&avg, &count)
	return avg, count, err
}

func (r *repo) UpdateRating(ctx context.Context, tx *sql.Tx, userID int64, avg float64, count int64) error {
	const q = `
UPDATE users
SET rating_avg=$2, total_ratings=$3
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, userID, avg, count)
	return err
}
