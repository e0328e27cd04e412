package paymentsvc_test

import (
	"context"
	"testing"

	"rentloop/model"
	paymentrepo "rentloop/repository/payment"
	paymentsvc "rentloop/service/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type gatewayMock struct {
	calls []paymentrepo.CreateIntentReq
}

func (m *gatewayMock) CreatePaymentIntent(req paymentrepo.CreateIntentReq) (*paymentrepo.CreateIntentResp, error) {
	m.calls = append(m.calls, req)
	return &paymentrepo.CreateIntentResp{IntentID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

type bookingsMock struct {
	b *model.Booking
}

func (m *bookingsMock) ByID(ctx context.Context, id int64) (*model.Booking, error) {
	return m.b, nil
}

func pendingBooking() *model.Booking {
	return &model.Booking{
		ID:            101,
		Code:          "AB12CD",
		RenterID:      3,
		Status:        model.BookingPending,
		DepositAmount: decimal.NewFromInt(20),
	}
}

func TestDepositIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("renter only", func(t *testing.T) {
		s := paymentsvc.New(&gatewayMock{}, &bookingsMock{b: pendingBooking()})
		_, err := s.DepositIntent(ctx, 99, 101)
		require.Equal(t, paymentsvc.ErrForbidden, paymentsvc.Code(err))
	})

	t.Run("only before the rental starts", func(t *testing.T) {
		b := pendingBooking()
		b.Status = model.BookingActive
		s := paymentsvc.New(&gatewayMock{}, &bookingsMock{b: b})
		_, err := s.DepositIntent(ctx, 3, 101)
		require.Equal(t, paymentsvc.ErrBadState, paymentsvc.Code(err))
	})

	t.Run("no deposit", func(t *testing.T) {
		b := pendingBooking()
		b.DepositAmount = decimal.Zero
		s := paymentsvc.New(&gatewayMock{}, &bookingsMock{b: b})
		_, err := s.DepositIntent(ctx, 3, 101)
		require.Equal(t, paymentsvc.ErrNoDeposit, paymentsvc.Code(err))
	})

	t.Run("gateway not configured", func(t *testing.T) {
		s := paymentsvc.New(nil, &bookingsMock{b: pendingBooking()})
		_, err := s.DepositIntent(ctx, 3, 101)
		require.Equal(t, paymentsvc.ErrNotConfigured, paymentsvc.Code(err))
	})

	t.Run("success", func(t *testing.T) {
		gw := &gatewayMock{}
		s := paymentsvc.New(gw, &bookingsMock{b: pendingBooking()})

		out, err := s.DepositIntent(ctx, 3, 101)
		require.NoError(t, err)
		require.Equal(t, "AB12CD", out.BookingCode)
		require.Equal(t, "pi_123", out.IntentID)
		require.Len(t, gw.calls, 1)
		require.True(t, gw.calls[0].Amount.Equal(decimal.NewFromInt(20)))
	})
}
