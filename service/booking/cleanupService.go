package bookingsvc

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rentloop/model"
	"rentloop/util/database"
)

type Cleaner interface {
	// ReleaseExpired cancels pending bookings whose start time has
	// already passed; nobody can accept a rental that never began.
	// Any wallet credit taken at creation goes back to the renter.
	ReleaseExpired(ctx context.Context) (int64, error)
}

type cleaner struct {
	txr    database.TxRunner
	r      Repo
	ledger Settler
	now    func() time.Time
}

func NewCleaner(txr database.TxRunner, r Repo, ledger Settler) Cleaner {
	return &cleaner{txr: txr, r: r, ledger: ledger, now: time.Now}
}

// ReleaseExpired cancels each stale booking in its own transaction:
// the cancellation and the credit refund commit together, and one bad
// row does not hold up the rest of the sweep.
func (c *cleaner) ReleaseExpired(ctx context.Context) (int64, error) {
	now := c.now().UTC()
	ids, err := c.r.ListExpiredPending(ctx, now)
	if err != nil {
		return 0, err
	}

	var released int64
	for _, id := range ids {
		err := c.txr.WithTx(ctx, func(tx *sql.Tx) error {
			b, err := c.r.ForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil
				}
				return err
			}
			// The booking may have moved on between the listing and
			// the lock; only still-stale pending rows are touched.
			if b.Status != model.BookingPending || !b.StartTime.Before(now) {
				return nil
			}
			if err := c.r.UpdateStatus(ctx, tx, b.ID, model.BookingCancelled); err != nil {
				return err
			}
			if err := c.returnCredit(ctx, tx, b); err != nil {
				return err
			}
			released++
			return nil
		})
		if err != nil {
			return released, err
		}
	}
	return released, nil
}

func (c *cleaner) returnCredit(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if b.WalletCreditUsed.Sign() <= 0 {
		return nil
	}
	return c.ledger.Refund(ctx, tx, b.RenterID, b.WalletCreditUsed, &b.ID,
		model.TxRentalPayment, "Wallet credit returned for booking "+b.Code)
}
