package authrepo

import (
	"context"
	"database/sql"

	"rentloop/model"
)

type Repo interface {
	Create(ctx context.Context, tx *sql.Tx, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Create(ctx context.Context, tx *sql.Tx, u *model.User) error {
	const q = `
INSERT INTO users (first_name, last_name, email, username, password_hash, phone)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at`
	return tx.QueryRowContext(ctx, q,
		u.FirstName, u.LastName, u.Email, u.Username, u.PasswordHash, u.Phone,
	).Scan(&u.ID, &u.CreatedAt)
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
SELECT id, first_name, last_name, email, username, password_hash, phone,
       rating_avg, total_ratings, co2_saved_kg, created_at
FROM users
WHERE email=$1`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PasswordHash,
		&u.Phone, &u.RatingAvg, &u.TotalRatings, &u.CO2SavedKg, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
