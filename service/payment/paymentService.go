package paymentsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rentloop/model"
	paymentrepo "rentloop/repository/payment"
)

type ErrCode string

const (
	ErrNotFound      ErrCode = "NOT_FOUND"
	ErrForbidden     ErrCode = "FORBIDDEN"
	ErrNoDeposit     ErrCode = "NO_DEPOSIT"
	ErrBadState      ErrCode = "BAD_STATE"
	ErrNotConfigured ErrCode = "PAYMENTS_NOT_CONFIGURED"
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

type BookingRepo interface {
	ByID(ctx context.Context, id int64) (*model.Booking, error)
}

type DepositIntent struct {
	BookingCode  string `json:"booking_code"`
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

type Service interface {
	// DepositIntent opens a card hold for the booking's deposit. Only the
	// renter may open one, and only before the rental ends.
	DepositIntent(ctx context.Context, renterID, bookingID int64) (*DepositIntent, error)
}

type service struct {
	gateway  paymentrepo.Repo
	bookings BookingRepo
}

func New(gateway paymentrepo.Repo, bookings BookingRepo) Service {
	return &service{gateway: gateway, bookings: bookings}
}

func (s *service) DepositIntent(ctx context.Context, renterID, bookingID int64) (*DepositIntent, error) {
	if s.gateway == nil {
		return nil, makeErr(ErrNotConfigured)
	}
	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if b.RenterID != renterID {
		return nil, makeErr(ErrForbidden)
	}
	switch b.Status {
	case model.BookingPending, model.BookingAccepted:
	default:
		return nil, makeErr(ErrBadState)
	}
	if b.DepositAmount.Sign() <= 0 {
		return nil, makeErr(ErrNoDeposit)
	}

	resp, err := s.gateway.CreatePaymentIntent(paymentrepo.CreateIntentReq{
		Amount:      b.DepositAmount,
		Description: fmt.Sprintf("Deposit hold for booking %s", b.Code),
	})
	if err != nil {
		return nil, err
	}
	return &DepositIntent{BookingCode: b.Code, IntentID: resp.IntentID, ClientSecret: resp.ClientSecret}, nil
}
