package bookingrepo

import (
	"context"
	"database/sql"
	"time"

	"rentloop/model"
)

type Repo interface {
	// Insert writes the booking row. Callers hold the item (or bundle)
	// row lock for the duration of the surrounding tx.
	Insert(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	InsertItems(ctx context.Context, tx *sql.Tx, bookingID int64, items []model.BookingItem) error

	CodeExists(ctx context.Context, tx *sql.Tx, code string) (bool, error)

	// HasOverlap runs the half-open interval test against bookings of the
	// item in a blocking status: existing.start < end AND existing.end > start.
	HasOverlap(ctx context.Context, tx *sql.Tx, itemID int64, start, end time.Time) (bool, error)

	ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status model.BookingStatus) error
	MarkCompleted(ctx context.Context, tx *sql.Tx, id int64, returnedAt time.Time) error

	ByID(ctx context.Context, id int64) (*model.Booking, error)
	ByCode(ctx context.Context, code string) (*model.Booking, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Booking, error)

	// ListExpiredPending returns ids of pending bookings whose start
	// time has already passed. The sweep locks and cancels each row
	// in its own transaction.
	ListExpiredPending(ctx context.Context, now time.Time) ([]int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const bookingCols = `id, booking_code, renter_id, item_id, bundle_id, start_time,
       end_time, actual_return_time, total_price, deposit_amount,
       wallet_credit_used, late_fee, reward_points_earned, status,
       condition_at_pickup, condition_at_return, damage_reported,
       created_at, updated_at`

func scanBooking(scan func(dest ...any) error) (*model.Booking, error) {
	var b model.Booking
	var itemID, bundleID sql.NullInt64
	var returned sql.NullTime
	err := scan(
		&b.ID, &b.Code, &b.RenterID, &itemID, &bundleID, &b.StartTime,
		&b.EndTime, &returned, &b.TotalPrice, &b.DepositAmount,
		&b.WalletCreditUsed, &b.LateFee, &b.RewardPointsEarned, &b.Status,
		&b.ConditionAtPickup, &b.ConditionAtReturn, &b.DamageReported,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	switch {
	case itemID.Valid:
		b.Target = model.ItemTarget(itemID.Int64)
	case bundleID.Valid:
		b.Target = model.BundleTarget(bundleID.Int64)
	}
	if returned.Valid {
		b.ActualReturnTime = &returned.Time
	}
	return &b, nil
}

func targetColumns(t model.BookingTarget) (itemID, bundleID sql.NullInt64) {
	switch t.Kind {
	case model.TargetItem:
		itemID = sql.NullInt64{Int64: t.ID, Valid: true}
	case model.TargetBundle:
		bundleID = sql.NullInt64{Int64: t.ID, Valid: true}
	}
	return
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	itemID, bundleID := targetColumns(b.Target)
	const q = `
INSERT INTO bookings (booking_code, renter_id, item_id, bundle_id, start_time,
                      end_time, total_price, deposit_amount, wallet_credit_used,
                      reward_points_earned, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id, created_at, updated_at`
	return tx.QueryRowContext(ctx, q,
		b.Code, b.RenterID, itemID, bundleID, b.StartTime, b.EndTime,
		b.TotalPrice, b.DepositAmount, b.WalletCreditUsed,
		b.RewardPointsEarned, b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *repo) InsertItems(ctx context.Context, tx *sql.Tx, bookingID int64, items []model.BookingItem) error {
	const q = `
INSERT INTO booking_items (booking_id, item_id, unit_price, quantity)
VALUES ($1,$2,$3,$4)`
	for _, bi := range items {
		if _, err := tx.ExecContext(ctx, q, bookingID, bi.ItemID, bi.UnitPrice, bi.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) CodeExists(ctx context.Context, tx *sql.Tx, code string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM bookings WHERE booking_code=$1)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, code).Scan(&exists)
	return exists, err
}

func (r *repo) HasOverlap(ctx context.Context, tx *sql.Tx, itemID int64, start, end time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1
	FROM bookings b
	LEFT JOIN booking_items bi ON bi.booking_id = b.id
	WHERE (b.item_id = $1 OR bi.item_id = $1)
	  AND b.status IN ('pending','accepted','active')
	  AND b.start_time < $3
	  AND b.end_time > $2
)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, itemID, start, end).Scan(&exists)
	return exists, err
}

func (r *repo) ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id=$1 FOR UPDATE`, id)
	return scanBooking(row.Scan)
}

func (r *repo) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status model.BookingStatus) error {
	const q = `UPDATE bookings SET status=$2, updated_at=NOW() WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id, status)
	return err
}

func (r *repo) MarkCompleted(ctx context.Context, tx *sql.Tx, id int64, returnedAt time.Time) error {
	const q = `
UPDATE bookings
SET status='completed', actual_return_time=$2, updated_at=NOW()
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id, returnedAt)
	return err
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id=$1`, id)
	b, err := scanBooking(row.Scan)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, b)
}

func (r *repo) ByCode(ctx context.Context, code string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingCols+` FROM bookings WHERE booking_code=$1`, code)
	b, err := scanBooking(row.Scan)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, b)
}

// ListForUser returns bookings where the user is the renter, the item
// owner, or the bundle creator.
func (r *repo) ListForUser(ctx context.Context, userID int64) ([]model.Booking, error) {
	const q = `
SELECT ` + bookingCols + `
FROM bookings b
WHERE b.renter_id = $1
   OR b.item_id IN (SELECT id FROM items WHERE owner_id = $1)
   OR b.bundle_id IN (SELECT id FROM bundles WHERE creator_id = $1)
ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *repo) ListExpiredPending(ctx context.Context, now time.Time) ([]int64, error) {
	const q = `
SELECT id FROM bookings
WHERE status='pending' AND start_time < $1
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repo) attachItems(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	if b.Target.Kind != model.TargetBundle {
		return b, nil
	}
	const q = `
SELECT item_id, unit_price, quantity
FROM booking_items
WHERE booking_id=$1
ORDER BY item_id`
	rows, err := r.db.QueryContext(ctx, q, b.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var bi model.BookingItem
		if err := rows.Scan(&bi.ItemID, &bi.UnitPrice, &bi.Quantity); err != nil {
			return nil, err
		}
		b.Items = append(b.Items, bi)
	}
	return b, rows.Err()
}
