package walletsvc

import (
	"context"
	"database/sql"
	"errors"

	"rentloop/model"
	"rentloop/util/database"

	"github.com/shopspring/decimal"
)

type ErrCode string

const (
	ErrInsufficientFunds  ErrCode = "INSUFFICIENT_FUNDS"
	ErrInsufficientPoints ErrCode = "INSUFFICIENT_POINTS"
	ErrWalletNotFound     ErrCode = "WALLET_NOT_FOUND"
	ErrBadAmount          ErrCode = "BAD_AMOUNT"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Point multipliers and redemption rate. 100 points redeem for $1.00.
const (
	renterPointsPerDollar = 10
	ownerPointsPerDollar  = 50
	minRedeemPoints       = 100
	pointsPerDollar       = 100
)

// Tier thresholds against lifetime earnings.
var (
	tierBronze = decimal.NewFromInt(100)
	tierSilver = decimal.NewFromInt(500)
	tierGold   = decimal.NewFromInt(1000)
)

type Repo interface {
	CreateForUser(ctx context.Context, tx *sql.Tx, userID int64) error
	ByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	ForUpdate(ctx context.Context, tx *sql.Tx, userID int64) (*model.Wallet, error)
	UpdateBalances(ctx context.Context, tx *sql.Tx, walletID int64, balance decimal.Decimal, points int64, lifetime decimal.Decimal) error
	InsertTransaction(ctx context.Context, tx *sql.Tx, wt *model.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID int64) ([]model.WalletTransaction, error)
}

type Overview struct {
	Wallet *model.Wallet `json:"wallet"`
	Tier   model.Tier    `json:"tier"`
}

type Redeemed struct {
	Credit          decimal.Decimal `json:"credit"`
	RemainingPoints int64           `json:"remaining_points"`
	Balance         decimal.Decimal `json:"balance"`
}

type Service interface {
	Overview(ctx context.Context, userID int64) (*Overview, error)
	Transactions(ctx context.Context, userID int64) ([]model.WalletTransaction, error)
	RedeemPoints(ctx context.Context, userID int64, points int64) (*Redeemed, error)

	// Settle credits both parties for a completed booking. It runs inside
	// the caller's transaction so a failure rolls the completion back.
	// Invoked exactly once, from the booking Complete transition.
	Settle(ctx context.Context, tx *sql.Tx, b *model.Booking, ownerID int64) (renterPoints, ownerPoints int64, err error)

	// Deduct is a checked debit: it fails with INSUFFICIENT_FUNDS and
	// leaves the balance untouched rather than overdrawing.
	Deduct(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, bookingID *int64, txType model.TransactionType, description string) error

	// Refund reverses an earlier Deduct: the amount goes back on the
	// balance and a compensating positive row lands in the ledger.
	// Lifetime earnings and points are untouched.
	Refund(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, bookingID *int64, txType model.TransactionType, description string) error
}

type service struct {
	txr database.TxRunner
	r   Repo
}

func New(txr database.TxRunner, r Repo) Service { return &service{txr: txr, r: r} }

// TierFor derives the tier from lifetime earnings. Never stored.
func TierFor(lifetimeEarned decimal.Decimal) model.Tier {
	switch {
	case lifetimeEarned.GreaterThanOrEqual(tierGold):
		return model.TierGold
	case lifetimeEarned.GreaterThanOrEqual(tierSilver):
		return model.TierSilver
	case lifetimeEarned.GreaterThanOrEqual(tierBronze):
		return model.TierBronze
	default:
		return model.TierStarter
	}
}

// RenterPoints is floor(total * 10).
func RenterPoints(totalPrice decimal.Decimal) int64 {
	return totalPrice.Mul(decimal.NewFromInt(renterPointsPerDollar)).Floor().IntPart()
}

// OwnerPoints is floor(earnings * 50), where earnings are net of the
// wallet credit the renter applied.
func OwnerPoints(ownerEarnings decimal.Decimal) int64 {
	return ownerEarnings.Mul(decimal.NewFromInt(ownerPointsPerDollar)).Floor().IntPart()
}

func (s *service) Overview(ctx context.Context, userID int64) (*Overview, error) {
	w, err := s.r.ByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrWalletNotFound)
		}
		return nil, err
	}
	return &Overview{Wallet: w, Tier: TierFor(w.LifetimeEarned)}, nil
}

func (s *service) Transactions(ctx context.Context, userID int64) ([]model.WalletTransaction, error) {
	w, err := s.r.ByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrWalletNotFound)
		}
		return nil, err
	}
	return s.r.ListTransactions(ctx, w.ID)
}

func (s *service) RedeemPoints(ctx context.Context, userID int64, points int64) (*Redeemed, error) {
	if points < minRedeemPoints {
		return nil, makeErr(ErrInsufficientPoints)
	}

	var out *Redeemed
	err := s.txr.WithTx(ctx, func(tx *sql.Tx) error {
		w, err := s.r.ForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrWalletNotFound)
			}
			return err
		}
		if w.RewardPoints < points {
			return makeErr(ErrInsufficientPoints)
		}

		credit := decimal.NewFromInt(points).Div(decimal.NewFromInt(pointsPerDollar))
		newBalance := w.Balance.Add(credit)
		newPoints := w.RewardPoints - points

		if err := s.r.UpdateBalances(ctx, tx, w.ID, newBalance, newPoints, w.LifetimeEarned); err != nil {
			return err
		}
		if err := s.r.InsertTransaction(ctx, tx, &model.WalletTransaction{
			WalletID:     w.ID,
			Amount:       credit,
			Type:         model.TxRewardRedemption,
			Description:  "Reward points redeemed",
			BalanceAfter: newBalance,
		}); err != nil {
			return err
		}
		out = &Redeemed{Credit: credit, RemainingPoints: newPoints, Balance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Settle(ctx context.Context, tx *sql.Tx, b *model.Booking, ownerID int64) (int64, int64, error) {
	renterPoints := RenterPoints(b.TotalPrice)
	ownerEarnings := b.TotalPrice.Sub(b.WalletCreditUsed)
	ownerPoints := OwnerPoints(ownerEarnings)

	// Both wallets lock in ascending user id order; crossed
	// completions over the same pair then queue instead of
	// deadlocking.
	lockOrder := []int64{b.RenterID, ownerID}
	if ownerID < b.RenterID {
		lockOrder[0], lockOrder[1] = ownerID, b.RenterID
	}
	locked := make(map[int64]*model.Wallet, 2)
	for _, uid := range lockOrder {
		w, err := s.r.ForUpdate(ctx, tx, uid)
		if err != nil {
			return 0, 0, err
		}
		locked[uid] = w
	}

	// Renter side: points only, no balance movement, no audit row.
	rw := locked[b.RenterID]
	if err := s.r.UpdateBalances(ctx, tx, rw.ID, rw.Balance, rw.RewardPoints+renterPoints, rw.LifetimeEarned); err != nil {
		return 0, 0, err
	}

	// Owner side: points, earnings, and gross lifetime counter.
	ow := locked[ownerID]
	newBalance := ow.Balance.Add(ownerEarnings)
	newLifetime := ow.LifetimeEarned.Add(b.TotalPrice)
	if err := s.r.UpdateBalances(ctx, tx, ow.ID, newBalance, ow.RewardPoints+ownerPoints, newLifetime); err != nil {
		return 0, 0, err
	}
	if err := s.r.InsertTransaction(ctx, tx, &model.WalletTransaction{
		WalletID:     ow.ID,
		Amount:       ownerEarnings,
		Type:         model.TxRentalEarning,
		BookingID:    &b.ID,
		Description:  "Rental earning for booking " + b.Code,
		BalanceAfter: newBalance,
	}); err != nil {
		return 0, 0, err
	}

	return renterPoints, ownerPoints, nil
}

func (s *service) Deduct(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, bookingID *int64, txType model.TransactionType, description string) error {
	if amount.Sign() <= 0 {
		return makeErr(ErrBadAmount)
	}
	w, err := s.r.ForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrWalletNotFound)
		}
		return err
	}
	if w.Balance.LessThan(amount) {
		return makeErr(ErrInsufficientFunds)
	}
	newBalance := w.Balance.Sub(amount)
	if err := s.r.UpdateBalances(ctx, tx, w.ID, newBalance, w.RewardPoints, w.LifetimeEarned); err != nil {
		return err
	}
	return s.r.InsertTransaction(ctx, tx, &model.WalletTransaction{
		WalletID:     w.ID,
		Amount:       amount.Neg(),
		Type:         txType,
		BookingID:    bookingID,
		Description:  description,
		BalanceAfter: newBalance,
	})
}

func (s *service) Refund(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, bookingID *int64, txType model.TransactionType, description string) error {
	if amount.Sign() <= 0 {
		return makeErr(ErrBadAmount)
	}
	w, err := s.r.ForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrWalletNotFound)
		}
		return err
	}
	newBalance := w.Balance.Add(amount)
	if err := s.r.UpdateBalances(ctx, tx, w.ID, newBalance, w.RewardPoints, w.LifetimeEarned); err != nil {
		return err
	}
	return s.r.InsertTransaction(ctx, tx, &model.WalletTransaction{
		WalletID:     w.ID,
		Amount:       amount,
		Type:         txType,
		BookingID:    bookingID,
		Description:  description,
		BalanceAfter: newBalance,
	})
}
