package bookingsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentloop/model"
	"rentloop/util/database"
	"rentloop/util/random"

	"github.com/shopspring/decimal"
)

type ErrCode string

const (
	ErrNotFoundOrUnavailable ErrCode = "NOT_FOUND_OR_UNAVAILABLE"
	ErrSelfBooking           ErrCode = "SELF_BOOKING"
	ErrInvalidTimeRange      ErrCode = "INVALID_TIME_RANGE"
	ErrPastStartTime         ErrCode = "PAST_START_TIME"
	ErrSlotConflict          ErrCode = "SLOT_CONFLICT"
	ErrForbidden             ErrCode = "FORBIDDEN"
	ErrInvalidTransition     ErrCode = "INVALID_STATE_TRANSITION"
	ErrNotFound              ErrCode = "NOT_FOUND"
	ErrBadCredit             ErrCode = "BAD_WALLET_CREDIT"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// TransitionError reports a status-machine violation without mutating.
type TransitionError struct {
	Current   model.BookingStatus
	Attempted model.BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.Current, e.Attempted)
}
func (e *TransitionError) Code() ErrCode { return ErrInvalidTransition }

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

const bookingCodeLength = 6

type ItemRepo interface {
	ByID(ctx context.Context, id int64) (*model.Item, error)
	ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error)
	IncrementRentals(ctx context.Context, tx *sql.Tx, id int64) error
}

type BundleRepo interface {
	ByID(ctx context.Context, id int64) (*model.Bundle, error)
	ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Bundle, error)
	IncrementBookings(ctx context.Context, tx *sql.Tx, id int64) error
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	InsertItems(ctx context.Context, tx *sql.Tx, bookingID int64, items []model.BookingItem) error
	CodeExists(ctx context.Context, tx *sql.Tx, code string) (bool, error)
	HasOverlap(ctx context.Context, tx *sql.Tx, itemID int64, start, end time.Time) (bool, error)
	ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status model.BookingStatus) error
	MarkCompleted(ctx context.Context, tx *sql.Tx, id int64, returnedAt time.Time) error
	ByID(ctx context.Context, id int64) (*model.Booking, error)
	ByCode(ctx context.Context, code string) (*model.Booking, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Booking, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]int64, error)
}

type UserRepo interface {
	AddCO2Saved(ctx context.Context, tx *sql.Tx, userID int64, kg int64) error
}

// Settler is the ledger boundary. All three calls run inside the
// booking engine's transaction so ledger state never diverges from
// booking status. Refund compensates a Deduct when a booking dies
// before completion.
type Settler interface {
	Settle(ctx context.Context, tx *sql.Tx, b *model.Booking, ownerID int64) (renterPoints, ownerPoints int64, err error)
	Deduct(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, bookingID *int64, txType model.TransactionType, description string) error
	Refund(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, bookingID *int64, txType model.TransactionType, description string) error
}

type CreateReq struct {
	Target       model.BookingTarget
	Start        time.Time
	End          time.Time
	WalletCredit decimal.Decimal
}

type Completed struct {
	Booking      *model.Booking `json:"booking"`
	RenterPoints int64          `json:"renter_points"`
	OwnerPoints  int64          `json:"owner_points"`
}

type Service interface {
	Create(ctx context.Context, renterID int64, req CreateReq) (*model.Booking, error)
	Accept(ctx context.Context, actorID, bookingID int64) (*model.Booking, error)
	Reject(ctx context.Context, actorID, bookingID int64) (*model.Booking, error)
	Activate(ctx context.Context, actorID, bookingID int64) (*model.Booking, error)
	Complete(ctx context.Context, actorID, bookingID int64) (*Completed, error)
	Dispute(ctx context.Context, actorID, bookingID int64) (*model.Booking, error)

	Get(ctx context.Context, userID, bookingID int64) (*model.Booking, error)
	GetByCode(ctx context.Context, userID int64, code string) (*model.Booking, error)
	MyBookings(ctx context.Context, userID int64) ([]model.Booking, error)
}

type service struct {
	txr     database.TxRunner
	items   ItemRepo
	bundles BundleRepo
	r       Repo
	users   UserRepo
	ledger  Settler
	now     func() time.Time
}

func New(txr database.TxRunner, items ItemRepo, bundles BundleRepo, r Repo, users UserRepo, ledger Settler) Service {
	return &service{
		txr:     txr,
		items:   items,
		bundles: bundles,
		r:       r,
		users:   users,
		ledger:  ledger,
		now:     time.Now,
	}
}

// PriceFor picks the cheaper of hourly and daily pricing for the window.
func PriceFor(pricePerHour decimal.Decimal, pricePerDay *decimal.Decimal, start, end time.Time) decimal.Decimal {
	hours := decimal.NewFromFloat(end.Sub(start).Hours())
	total := pricePerHour.Mul(hours)
	if pricePerDay != nil {
		daily := pricePerDay.Mul(hours.Div(decimal.NewFromInt(24)))
		if daily.LessThan(total) {
			total = daily
		}
	}
	return total.Round(2)
}

// checkWindow runs after the target's availability and ownership
// checks; an unavailable item wins over a bad time range.
func (s *service) checkWindow(start, end time.Time) error {
	if !start.Before(end) {
		return makeErr(ErrInvalidTimeRange)
	}
	if start.Before(s.now()) {
		return makeErr(ErrPastStartTime)
	}
	return nil
}

func (s *service) Create(ctx context.Context, renterID int64, req CreateReq) (*model.Booking, error) {
	var out *model.Booking
	err := s.txr.WithTx(ctx, func(tx *sql.Tx) error {
		b := &model.Booking{
			RenterID:         renterID,
			Target:           req.Target,
			StartTime:        req.Start,
			EndTime:          req.End,
			WalletCreditUsed: req.WalletCredit,
			Status:           model.BookingPending,
		}

		var bookingItems []model.BookingItem
		switch req.Target.Kind {
		case model.TargetItem:
			// Item row lock serializes concurrent creations: the overlap
			// check and the insert form one critical section per item.
			it, err := s.items.ForUpdate(ctx, tx, req.Target.ID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return makeErr(ErrNotFoundOrUnavailable)
				}
				return err
			}
			if !it.IsAvailable {
				return makeErr(ErrNotFoundOrUnavailable)
			}
			if it.OwnerID == renterID {
				return makeErr(ErrSelfBooking)
			}
			if err := s.checkWindow(req.Start, req.End); err != nil {
				return err
			}
			conflict, err := s.r.HasOverlap(ctx, tx, it.ID, req.Start, req.End)
			if err != nil {
				return err
			}
			if conflict {
				return makeErr(ErrSlotConflict)
			}
			b.TotalPrice = PriceFor(it.PricePerHour, it.PricePerDay, req.Start, req.End)
			b.DepositAmount = it.Deposit

		case model.TargetBundle:
			bu, err := s.bundles.ForUpdate(ctx, tx, req.Target.ID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return makeErr(ErrNotFoundOrUnavailable)
				}
				return err
			}
			if !bu.IsActive {
				return makeErr(ErrNotFoundOrUnavailable)
			}
			if bu.CreatorID == renterID {
				return makeErr(ErrSelfBooking)
			}
			if err := s.checkWindow(req.Start, req.End); err != nil {
				return err
			}

			hourlySum := decimal.Zero
			deposit := decimal.Zero
			for _, bi := range bu.Items {
				it, err := s.items.ForUpdate(ctx, tx, bi.ItemID)
				if err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						return makeErr(ErrNotFoundOrUnavailable)
					}
					return err
				}
				if !it.IsAvailable {
					return makeErr(ErrNotFoundOrUnavailable)
				}
				conflict, err := s.r.HasOverlap(ctx, tx, it.ID, req.Start, req.End)
				if err != nil {
					return err
				}
				if conflict {
					return makeErr(ErrSlotConflict)
				}
				qty := decimal.NewFromInt(int64(bi.Quantity))
				hourlySum = hourlySum.Add(it.PricePerHour.Mul(qty))
				deposit = deposit.Add(it.Deposit.Mul(qty))
				bookingItems = append(bookingItems, model.BookingItem{
					ItemID:    it.ID,
					UnitPrice: it.PricePerHour,
					Quantity:  bi.Quantity,
				})
			}

			hours := decimal.NewFromFloat(req.End.Sub(req.Start).Hours())
			gross := hourlySum.Mul(hours)
			discount := gross.Mul(decimal.NewFromInt(int64(bu.DiscountPercent))).Div(decimal.NewFromInt(100))
			b.TotalPrice = gross.Sub(discount).Round(2)
			b.DepositAmount = deposit

		default:
			return makeErr(ErrNotFoundOrUnavailable)
		}

		if req.WalletCredit.Sign() < 0 || req.WalletCredit.GreaterThan(b.TotalPrice) {
			return makeErr(ErrBadCredit)
		}
		b.RewardPointsEarned = renterPoints(b.TotalPrice)

		code, err := s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}
		b.Code = code

		if err := s.r.Insert(ctx, tx, b); err != nil {
			return err
		}
		if len(bookingItems) > 0 {
			if err := s.r.InsertItems(ctx, tx, b.ID, bookingItems); err != nil {
				return err
			}
			b.Items = bookingItems
		}

		if b.WalletCreditUsed.Sign() > 0 {
			if err := s.ledger.Deduct(ctx, tx, renterID, b.WalletCreditUsed, &b.ID,
				model.TxRentalPayment, "Wallet credit applied to booking "+b.Code); err != nil {
				return err
			}
		}

		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// uniqueCode generates a 6-character code and retries on collision.
// Collisions are astronomically rare but the loop keeps the uniqueness
// guarantee unconditional.
func (s *service) uniqueCode(ctx context.Context, tx *sql.Tx) (string, error) {
	for {
		code := random.Code(bookingCodeLength)
		exists, err := s.r.CodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

func renterPoints(total decimal.Decimal) int64 {
	return total.Mul(decimal.NewFromInt(10)).Floor().IntPart()
}

// ownerAndCarbon resolves the counterparty and the CO2 estimate for a
// booking's target, locking the target rows.
func (s *service) ownerAndCarbon(ctx context.Context, tx *sql.Tx, b *model.Booking) (ownerID int64, carbonKg int64, err error) {
	switch b.Target.Kind {
	case model.TargetItem:
		it, err := s.items.ForUpdate(ctx, tx, b.Target.ID)
		if err != nil {
			return 0, 0, err
		}
		return it.OwnerID, it.CarbonOffsetKg, nil
	case model.TargetBundle:
		bu, err := s.bundles.ForUpdate(ctx, tx, b.Target.ID)
		if err != nil {
			return 0, 0, err
		}
		var kg int64
		for _, bi := range bu.Items {
			it, err := s.items.ForUpdate(ctx, tx, bi.ItemID)
			if err != nil {
				return 0, 0, err
			}
			kg += it.CarbonOffsetKg * int64(bi.Quantity)
		}
		return bu.CreatorID, kg, nil
	}
	return 0, 0, makeErr(ErrNotFound)
}

type transition struct {
	from      model.BookingStatus
	to        model.BookingStatus
	ownerOnly bool
	// returnCredit gives the renter's wallet credit back; set on the
	// transitions that kill a booking before it can settle.
	returnCredit bool
}

// returnCredit reverses the rental_payment debit taken at creation.
// No-op for bookings that used no credit.
func (s *service) returnCredit(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if b.WalletCreditUsed.Sign() <= 0 {
		return nil
	}
	return s.ledger.Refund(ctx, tx, b.RenterID, b.WalletCreditUsed, &b.ID,
		model.TxRentalPayment, "Wallet credit returned for booking "+b.Code)
}

func (s *service) transition(ctx context.Context, actorID, bookingID int64, tr transition) (*model.Booking, error) {
	var out *model.Booking
	err := s.txr.WithTx(ctx, func(tx *sql.Tx) error {
		b, err := s.r.ForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		ownerID, _, err := s.ownerAndCarbon(ctx, tx, b)
		if err != nil {
			return err
		}
		if tr.ownerOnly {
			if actorID != ownerID {
				return makeErr(ErrForbidden)
			}
		} else if actorID != ownerID && actorID != b.RenterID {
			return makeErr(ErrForbidden)
		}
		if b.Status != tr.from {
			return &TransitionError{Current: b.Status, Attempted: tr.to}
		}
		if err := s.r.UpdateStatus(ctx, tx, b.ID, tr.to); err != nil {
			return err
		}
		if tr.returnCredit {
			if err := s.returnCredit(ctx, tx, b); err != nil {
				return err
			}
		}
		b.Status = tr.to
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Accept(ctx context.Context, actorID, bookingID int64) (*model.Booking, error) {
	return s.transition(ctx, actorID, bookingID, transition{
		from: model.BookingPending, to: model.BookingAccepted, ownerOnly: true,
	})
}

func (s *service) Reject(ctx context.Context, actorID, bookingID int64) (*model.Booking, error) {
	return s.transition(ctx, actorID, bookingID, transition{
		from: model.BookingPending, to: model.BookingCancelled, ownerOnly: true,
		returnCredit: true,
	})
}

func (s *service) Activate(ctx context.Context, actorID, bookingID int64) (*model.Booking, error) {
	return s.transition(ctx, actorID, bookingID, transition{
		from: model.BookingAccepted, to: model.BookingActive,
	})
}

// Complete closes an active booking: return time stamped, ledger settled,
// rental counters and the renter's CO2 counter bumped. One transaction;
// a settlement failure rolls the status change back.
func (s *service) Complete(ctx context.Context, actorID, bookingID int64) (*Completed, error) {
	var out *Completed
	err := s.txr.WithTx(ctx, func(tx *sql.Tx) error {
		b, err := s.r.ForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		ownerID, carbonKg, err := s.ownerAndCarbon(ctx, tx, b)
		if err != nil {
			return err
		}
		if actorID != ownerID {
			return makeErr(ErrForbidden)
		}
		if b.Status != model.BookingActive {
			return &TransitionError{Current: b.Status, Attempted: model.BookingCompleted}
		}

		returnedAt := s.now()
		if err := s.r.MarkCompleted(ctx, tx, b.ID, returnedAt); err != nil {
			return err
		}
		b.Status = model.BookingCompleted
		b.ActualReturnTime = &returnedAt

		renterPts, ownerPts, err := s.ledger.Settle(ctx, tx, b, ownerID)
		if err != nil {
			return err
		}

		switch b.Target.Kind {
		case model.TargetItem:
			if err := s.items.IncrementRentals(ctx, tx, b.Target.ID); err != nil {
				return err
			}
		case model.TargetBundle:
			if err := s.bundles.IncrementBookings(ctx, tx, b.Target.ID); err != nil {
				return err
			}
			for _, bi := range b.Items {
				if err := s.items.IncrementRentals(ctx, tx, bi.ItemID); err != nil {
					return err
				}
			}
		}
		if err := s.users.AddCO2Saved(ctx, tx, b.RenterID, carbonKg); err != nil {
			return err
		}

		out = &Completed{Booking: b, RenterPoints: renterPts, OwnerPoints: ownerPts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Dispute can be raised by either participant from any non-terminal
// status. It is terminal for the engine; resolution is administrative.
func (s *service) Dispute(ctx context.Context, actorID, bookingID int64) (*model.Booking, error) {
	var out *model.Booking
	err := s.txr.WithTx(ctx, func(tx *sql.Tx) error {
		b, err := s.r.ForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		ownerID, _, err := s.ownerAndCarbon(ctx, tx, b)
		if err != nil {
			return err
		}
		if actorID != ownerID && actorID != b.RenterID {
			return makeErr(ErrForbidden)
		}
		switch b.Status {
		case model.BookingPending, model.BookingAccepted, model.BookingActive:
		default:
			return &TransitionError{Current: b.Status, Attempted: model.BookingDisputed}
		}
		if err := s.r.UpdateStatus(ctx, tx, b.ID, model.BookingDisputed); err != nil {
			return err
		}
		if err := s.returnCredit(ctx, tx, b); err != nil {
			return err
		}
		b.Status = model.BookingDisputed
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, bookingID int64) (*model.Booking, error) {
	b, err := s.r.ByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return s.guardParticipant(ctx, userID, b)
}

func (s *service) GetByCode(ctx context.Context, userID int64, code string) (*model.Booking, error) {
	b, err := s.r.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return s.guardParticipant(ctx, userID, b)
}

func (s *service) guardParticipant(ctx context.Context, userID int64, b *model.Booking) (*model.Booking, error) {
	if b.RenterID == userID {
		return b, nil
	}
	switch b.Target.Kind {
	case model.TargetItem:
		it, err := s.items.ByID(ctx, b.Target.ID)
		if err != nil {
			return nil, err
		}
		if it.OwnerID == userID {
			return b, nil
		}
	case model.TargetBundle:
		bu, err := s.bundles.ByID(ctx, b.Target.ID)
		if err != nil {
			return nil, err
		}
		if bu.CreatorID == userID {
			return b, nil
		}
	}
	return nil, makeErr(ErrForbidden)
}

func (s *service) MyBookings(ctx context.Context, userID int64) ([]model.Booking, error) {
	return s.r.ListForUser(ctx, userID)
}
