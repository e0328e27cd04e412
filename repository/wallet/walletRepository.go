package walletrepo

import (
	"context"
	"database/sql"

	"rentloop/model"

	"github.com/shopspring/decimal"
)

type Repo interface {
	CreateForUser(ctx context.Context, tx *sql.Tx, userID int64) error
	ByUserID(ctx context.Context, userID int64) (*model.Wallet, error)

	// ForUpdate locks the wallet row; every balance or point mutation
	// goes through this lock so concurrent settlements serialize.
	ForUpdate(ctx context.Context, tx *sql.Tx, userID int64) (*model.Wallet, error)
	UpdateBalances(ctx context.Context, tx *sql.Tx, walletID int64, balance decimal.Decimal, points int64, lifetime decimal.Decimal) error

	// InsertTransaction appends one audit row. There is no update or
	// delete path for wallet_transactions.
	InsertTransaction(ctx context.Context, tx *sql.Tx, wt *model.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID int64) ([]model.WalletTransaction, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const walletCols = `id, user_id, balance, reward_points, lifetime_earned, created_at, updated_at`

func (r *repo) CreateForUser(ctx context.Context, tx *sql.Tx, userID int64) error {
	const q = `INSERT INTO wallets (user_id) VALUES ($1)`
	_, err := tx.ExecContext(ctx, q, userID)
	return err
}

func (r *repo) ByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+walletCols+` FROM wallets WHERE user_id=$1`, userID)
	return scanWallet(row)
}

func (r *repo) ForUpdate(ctx context.Context, tx *sql.Tx, userID int64) (*model.Wallet, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+walletCols+` FROM wallets WHERE user_id=$1 FOR UPDATE`, userID)
	return scanWallet(row)
}

func scanWallet(row *sql.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.RewardPoints,
		&w.LifetimeEarned, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repo) UpdateBalances(ctx context.Context, tx *sql.Tx, walletID int64, balance decimal.Decimal, points int64, lifetime decimal.Decimal) error {
	const q = `
UPDATE wallets
SET balance=$2, reward_points=$3, lifetime_earned=$4, updated_at=NOW()
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, walletID, balance, points, lifetime)
	return err
}

func (r *repo) InsertTransaction(ctx context.Context, tx *sql.Tx, wt *model.WalletTransaction) error {
	const q = `
INSERT INTO wallet_transactions (wallet_id, amount, transaction_type, booking_id,
                                 description, balance_after)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at`
	var bookingID sql.NullInt64
	if wt.BookingID != nil {
		bookingID = sql.NullInt64{Int64: *wt.BookingID, Valid: true}
	}
	return tx.QueryRowContext(ctx, q,
		wt.WalletID, wt.Amount, wt.Type, bookingID, wt.Description, wt.BalanceAfter,
	).Scan(&wt.ID, &wt.CreatedAt)
}

func (r *repo) ListTransactions(ctx context.Context, walletID int64) ([]model.WalletTransaction, error) {
	const q = `
SELECT id, wallet_id, amount, transaction_type, booking_id, description,
       balance_after, created_at
FROM wallet_transactions
WHERE wallet_id=$1
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WalletTransaction
	for rows.Next() {
		var wt model.WalletTransaction
		var bookingID sql.NullInt64
		if err := rows.Scan(&wt.ID, &wt.WalletID, &wt.Amount, &wt.Type,
			&bookingID, &wt.Description, &wt.BalanceAfter, &wt.CreatedAt); err != nil {
			return nil, err
		}
		if bookingID.Valid {
			wt.BookingID = &bookingID.Int64
		}
		out = append(out, wt)
	}
	return out, rows.Err()
}
