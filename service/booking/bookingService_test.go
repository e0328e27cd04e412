package bookingsvc_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"rentloop/model"
	bookingsvc "rentloop/service/booking"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// passRunner substitutes a real transaction with a nil one; the mocks
// below never touch the *sql.Tx.
type passRunner struct{}

func (passRunner) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type itemRepoMock struct {
	byIDFn      func(ctx context.Context, id int64) (*model.Item, error)
	forUpdateFn func(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error)
	increments  []int64
}

func (m *itemRepoMock) ByID(ctx context.Context, id int64) (*model.Item, error) {
	return m.byIDFn(ctx, id)
}
func (m *itemRepoMock) ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error) {
	return m.forUpdateFn(ctx, tx, id)
}
func (m *itemRepoMock) IncrementRentals(ctx context.Context, tx *sql.Tx, id int64) error {
	m.increments = append(m.increments, id)
	return nil
}

type bundleRepoMock struct {
	byIDFn      func(ctx context.Context, id int64) (*model.Bundle, error)
	forUpdateFn func(ctx context.Context, tx *sql.Tx, id int64) (*model.Bundle, error)
	increments  []int64
}

func (m *bundleRepoMock) ByID(ctx context.Context, id int64) (*model.Bundle, error) {
	return m.byIDFn(ctx, id)
}
func (m *bundleRepoMock) ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Bundle, error) {
	return m.forUpdateFn(ctx, tx, id)
}
func (m *bundleRepoMock) IncrementBookings(ctx context.Context, tx *sql.Tx, id int64) error {
	m.increments = append(m.increments, id)
	return nil
}

type repoMock struct {
	inserted      *model.Booking
	insertedItems []model.BookingItem
	codeExistsFn  func(code string) (bool, error)
	hasOverlapFn  func(itemID int64, start, end time.Time) (bool, error)
	forUpdateFn   func(id int64) (*model.Booking, error)
	byIDFn        func(id int64) (*model.Booking, error)
	byCodeFn      func(code string) (*model.Booking, error)
	expiredIDs    []int64
	statusUpdates []model.BookingStatus
	completedAt   *time.Time
}

func (m *repoMock) Insert(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	b.ID = 101
	m.inserted = b
	return nil
}
func (m *repoMock) InsertItems(ctx context.Context, tx *sql.Tx, bookingID int64, items []model.BookingItem) error {
	m.insertedItems = items
	return nil
}
func (m *repoMock) CodeExists(ctx context.Context, tx *sql.Tx, code string) (bool, error) {
	if m.codeExistsFn == nil {
		return false, nil
	}
	return m.codeExistsFn(code)
}
func (m *repoMock) HasOverlap(ctx context.Context, tx *sql.Tx, itemID int64, start, end time.Time) (bool, error) {
	if m.hasOverlapFn == nil {
		return false, nil
	}
	return m.hasOverlapFn(itemID, start, end)
}
func (m *repoMock) ForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Booking, error) {
	return m.forUpdateFn(id)
}
func (m *repoMock) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status model.BookingStatus) error {
	m.statusUpdates = append(m.statusUpdates, status)
	return nil
}
func (m *repoMock) MarkCompleted(ctx context.Context, tx *sql.Tx, id int64, returnedAt time.Time) error {
	m.completedAt = &returnedAt
	return nil
}
func (m *repoMock) ByID(ctx context.Context, id int64) (*model.Booking, error) { return m.byIDFn(id) }
func (m *repoMock) ByCode(ctx context.Context, code string) (*model.Booking, error) {
	return m.byCodeFn(code)
}
func (m *repoMock) ListForUser(ctx context.Context, userID int64) ([]model.Booking, error) {
	return nil, nil
}
func (m *repoMock) ListExpiredPending(ctx context.Context, now time.Time) ([]int64, error) {
	return m.expiredIDs, nil
}

type userRepoMock struct {
	co2 map[int64]int64
}

func (m *userRepoMock) AddCO2Saved(ctx context.Context, tx *sql.Tx, userID int64, kg int64) error {
	if m.co2 == nil {
		m.co2 = map[int64]int64{}
	}
	m.co2[userID] += kg
	return nil
}

type settlerMock struct {
	settleCalls int
	settleErr   error
	deducts     []decimal.Decimal
	deductErr   error
	refunds     []decimal.Decimal
	refundErr   error
}

func (m *settlerMock) Settle(ctx context.Context, tx *sql.Tx, b *model.Booking, ownerID int64) (int64, int64, error) {
	m.settleCalls++
	if m.settleErr != nil {
		return 0, 0, m.settleErr
	}
	return 62, 312, nil
}
func (m *settlerMock) Deduct(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, bookingID *int64, txType model.TransactionType, description string) error {
	if m.deductErr != nil {
		return m.deductErr
	}
	m.deducts = append(m.deducts, amount)
	return nil
}
func (m *settlerMock) Refund(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, bookingID *int64, txType model.TransactionType, description string) error {
	if m.refundErr != nil {
		return m.refundErr
	}
	m.refunds = append(m.refunds, amount)
	return nil
}

const (
	ownerID  = int64(2)
	renterID = int64(3)
)

func driverItem() *model.Item {
	perDay := decimal.NewFromInt(50)
	return &model.Item{
		ID:             1,
		OwnerID:        ownerID,
		Title:          "Cordless drill",
		PricePerHour:   decimal.NewFromInt(10),
		PricePerDay:    &perDay,
		Deposit:        decimal.NewFromInt(20),
		IsAvailable:    true,
		CarbonOffsetKg: 5,
	}
}

func newEngine(items *itemRepoMock, bundles *bundleRepoMock, r *repoMock, users *userRepoMock, ledger *settlerMock) bookingsvc.Service {
	if items == nil {
		items = &itemRepoMock{
			byIDFn:      func(ctx context.Context, id int64) (*model.Item, error) { return driverItem(), nil },
			forUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error) { return driverItem(), nil },
		}
	}
	if bundles == nil {
		bundles = &bundleRepoMock{}
	}
	if users == nil {
		users = &userRepoMock{}
	}
	if ledger == nil {
		ledger = &settlerMock{}
	}
	return bookingsvc.New(passRunner{}, items, bundles, r, users, ledger)
}

func window(t *testing.T, hours int) (time.Time, time.Time) {
	t.Helper()
	start := time.Now().Add(2 * time.Hour).Truncate(time.Minute)
	return start, start.Add(time.Duration(hours) * time.Hour)
}

func TestPriceFor(t *testing.T) {
	hourly := decimal.NewFromInt(10)
	daily := decimal.NewFromInt(50)
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	// 3 hours: hourly would be 30.00, the daily pro-rate 6.25 wins.
	got := bookingsvc.PriceFor(hourly, &daily, base, base.Add(3*time.Hour))
	require.True(t, got.Equal(decimal.RequireFromString("6.25")), "got %s", got)

	// cheap hourly, expensive daily: hourly wins
	cheap := decimal.NewFromInt(1)
	steep := decimal.NewFromInt(100)
	got = bookingsvc.PriceFor(cheap, &steep, base, base.Add(2*time.Hour))
	require.True(t, got.Equal(decimal.NewFromInt(2)), "got %s", got)

	// no daily price at all
	got = bookingsvc.PriceFor(hourly, nil, base, base.Add(3*time.Hour))
	require.True(t, got.Equal(decimal.NewFromInt(30)), "got %s", got)
}

func TestCreate_TimeValidation(t *testing.T) {
	s := newEngine(nil, nil, &repoMock{}, nil, nil)
	ctx := context.Background()
	start, end := window(t, 3)

	_, err := s.Create(ctx, renterID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1), Start: end, End: start,
	})
	require.Equal(t, bookingsvc.ErrInvalidTimeRange, bookingsvc.Code(err))

	_, err = s.Create(ctx, renterID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1),
		Start:  time.Now().Add(-time.Hour),
		End:    time.Now().Add(time.Hour),
	})
	require.Equal(t, bookingsvc.ErrPastStartTime, bookingsvc.Code(err))
}

func TestCreate_AvailabilityCheckedBeforeTimes(t *testing.T) {
	items := &itemRepoMock{
		forUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error) {
			it := driverItem()
			it.IsAvailable = false
			return it, nil
		},
	}
	s := newEngine(items, nil, &repoMock{}, nil, nil)

	// unavailable item and a past start: availability wins
	_, err := s.Create(context.Background(), renterID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1),
		Start:  time.Now().Add(-time.Hour),
		End:    time.Now().Add(time.Hour),
	})
	require.Equal(t, bookingsvc.ErrNotFoundOrUnavailable, bookingsvc.Code(err))
}

func TestCreate_SelfBookingCheckedBeforeTimes(t *testing.T) {
	s := newEngine(nil, nil, &repoMock{}, nil, nil)
	start, end := window(t, 3)

	// owner booking their own item with a reversed range: the
	// self-booking check runs first
	_, err := s.Create(context.Background(), ownerID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1), Start: end, End: start,
	})
	require.Equal(t, bookingsvc.ErrSelfBooking, bookingsvc.Code(err))
}

func TestCreate_SelfBooking(t *testing.T) {
	s := newEngine(nil, nil, &repoMock{}, nil, nil)
	start, end := window(t, 3)

	_, err := s.Create(context.Background(), ownerID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1), Start: start, End: end,
	})
	require.Equal(t, bookingsvc.ErrSelfBooking, bookingsvc.Code(err))
}

func TestCreate_Unavailable(t *testing.T) {
	items := &itemRepoMock{
		forUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error) {
			it := driverItem()
			it.IsAvailable = false
			return it, nil
		},
	}
	s := newEngine(items, nil, &repoMock{}, nil, nil)
	start, end := window(t, 3)

	_, err := s.Create(context.Background(), renterID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1), Start: start, End: end,
	})
	require.Equal(t, bookingsvc.ErrNotFoundOrUnavailable, bookingsvc.Code(err))
}

func TestCreate_SlotConflict(t *testing.T) {
	r := &repoMock{
		hasOverlapFn: func(itemID int64, start, end time.Time) (bool, error) { return true, nil },
	}
	s := newEngine(nil, nil, r, nil, nil)
	start, end := window(t, 3)

	_, err := s.Create(context.Background(), renterID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1), Start: start, End: end,
	})
	require.Equal(t, bookingsvc.ErrSlotConflict, bookingsvc.Code(err))
	require.Nil(t, r.inserted, "conflicting booking must not be written")
}

func TestCreate_Success(t *testing.T) {
	r := &repoMock{}
	ledger := &settlerMock{}
	s := newEngine(nil, nil, r, nil, ledger)
	start, end := window(t, 3)

	b, err := s.Create(context.Background(), renterID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1), Start: start, End: end,
	})
	require.NoError(t, err)
	require.Len(t, b.Code, 6)
	require.Equal(t, model.BookingPending, b.Status)
	// 3h of $10/h vs the $50/day pro-rate: 6.25 wins
	require.True(t, b.TotalPrice.Equal(decimal.RequireFromString("6.25")), "got %s", b.TotalPrice)
	require.True(t, b.DepositAmount.Equal(decimal.NewFromInt(20)))
	require.Equal(t, int64(62), b.RewardPointsEarned)
	require.Empty(t, ledger.deducts, "no wallet credit requested")
}

func TestCreate_WalletCredit(t *testing.T) {
	r := &repoMock{}
	ledger := &settlerMock{}
	s := newEngine(nil, nil, r, nil, ledger)
	start, end := window(t, 3)

	// more credit than the total
	_, err := s.Create(context.Background(), renterID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1), Start: start, End: end,
		WalletCredit: decimal.NewFromInt(100),
	})
	require.Equal(t, bookingsvc.ErrBadCredit, bookingsvc.Code(err))

	credit := decimal.RequireFromString("2.00")
	b, err := s.Create(context.Background(), renterID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1), Start: start, End: end,
		WalletCredit: credit,
	})
	require.NoError(t, err)
	require.True(t, b.WalletCreditUsed.Equal(credit))
	require.Len(t, ledger.deducts, 1)
	require.True(t, ledger.deducts[0].Equal(credit))
}

func TestCreate_CodeCollisionRetries(t *testing.T) {
	calls := 0
	r := &repoMock{
		codeExistsFn: func(code string) (bool, error) {
			calls++
			return calls == 1, nil
		},
	}
	s := newEngine(nil, nil, r, nil, nil)
	start, end := window(t, 3)

	b, err := s.Create(context.Background(), renterID, bookingsvc.CreateReq{
		Target: model.ItemTarget(1), Start: start, End: end,
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, b.Code, 6)
}

func TestCreate_Bundle(t *testing.T) {
	perDay := decimal.NewFromInt(50)
	tentByID := map[int64]*model.Item{
		10: {ID: 10, OwnerID: ownerID, PricePerHour: decimal.NewFromInt(5), PricePerDay: &perDay, Deposit: decimal.NewFromInt(10), IsAvailable: true},
		11: {ID: 11, OwnerID: ownerID, PricePerHour: decimal.NewFromInt(10), Deposit: decimal.NewFromInt(5), IsAvailable: true},
	}
	items := &itemRepoMock{
		forUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error) {
			return tentByID[id], nil
		},
	}
	bundles := &bundleRepoMock{
		forUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Bundle, error) {
			return &model.Bundle{
				ID: 7, CreatorID: ownerID, DiscountPercent: 10, IsActive: true,
				Items: []model.BundleItem{{ItemID: 10, Quantity: 1}, {ItemID: 11, Quantity: 2}},
			}, nil
		},
	}
	r := &repoMock{}
	s := newEngine(items, bundles, r, nil, nil)
	start, end := window(t, 2)

	b, err := s.Create(context.Background(), renterID, bookingsvc.CreateReq{
		Target: model.BundleTarget(7), Start: start, End: end,
	})
	require.NoError(t, err)
	// hourly sum 5 + 2*10 = 25, 2h gross 50, minus 10% = 45.00
	require.True(t, b.TotalPrice.Equal(decimal.NewFromInt(45)), "got %s", b.TotalPrice)
	// deposits: 10 + 2*5 = 20
	require.True(t, b.DepositAmount.Equal(decimal.NewFromInt(20)))
	require.Len(t, r.insertedItems, 2)
}

func activeBooking() *model.Booking {
	return &model.Booking{
		ID:         101,
		Code:       "AB12CD",
		RenterID:   renterID,
		Target:     model.ItemTarget(1),
		Status:     model.BookingActive,
		TotalPrice: decimal.RequireFromString("6.25"),
	}
}

func TestTransitions(t *testing.T) {
	type verb func(s bookingsvc.Service, actorID, id int64) error

	accept := func(s bookingsvc.Service, a, id int64) error { _, err := s.Accept(context.Background(), a, id); return err }
	reject := func(s bookingsvc.Service, a, id int64) error { _, err := s.Reject(context.Background(), a, id); return err }
	activate := func(s bookingsvc.Service, a, id int64) error { _, err := s.Activate(context.Background(), a, id); return err }

	cases := []struct {
		name   string
		from   model.BookingStatus
		actor  int64
		do     verb
		want   bookingsvc.ErrCode
		status model.BookingStatus
	}{
		{"accept by owner", model.BookingPending, ownerID, accept, "", model.BookingAccepted},
		{"accept by renter forbidden", model.BookingPending, renterID, accept, bookingsvc.ErrForbidden, ""},
		{"accept from accepted", model.BookingAccepted, ownerID, accept, bookingsvc.ErrInvalidTransition, ""},
		{"accept from cancelled", model.BookingCancelled, ownerID, accept, bookingsvc.ErrInvalidTransition, ""},
		{"reject by owner", model.BookingPending, ownerID, reject, "", model.BookingCancelled},
		{"reject from active", model.BookingActive, ownerID, reject, bookingsvc.ErrInvalidTransition, ""},
		{"activate by renter", model.BookingAccepted, renterID, activate, "", model.BookingActive},
		{"activate by owner", model.BookingAccepted, ownerID, activate, "", model.BookingActive},
		{"activate by stranger", model.BookingAccepted, int64(99), activate, bookingsvc.ErrForbidden, ""},
		{"activate from pending", model.BookingPending, renterID, activate, bookingsvc.ErrInvalidTransition, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := activeBooking()
			b.Status = tc.from
			r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
			s := newEngine(nil, nil, r, nil, nil)

			err := tc.do(s, tc.actor, b.ID)
			if tc.want == "" {
				require.NoError(t, err)
				require.Equal(t, []model.BookingStatus{tc.status}, r.statusUpdates)
			} else {
				require.Equal(t, tc.want, bookingsvc.Code(err))
				require.Empty(t, r.statusUpdates, "failed transition must not write")
			}
		})
	}
}

func TestComplete_SettlesOnce(t *testing.T) {
	b := activeBooking()
	r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
	items := &itemRepoMock{
		byIDFn:      func(ctx context.Context, id int64) (*model.Item, error) { return driverItem(), nil },
		forUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error) { return driverItem(), nil },
	}
	users := &userRepoMock{}
	ledger := &settlerMock{}
	s := newEngine(items, nil, r, users, ledger)

	out, err := s.Complete(context.Background(), ownerID, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingCompleted, out.Booking.Status)
	require.NotNil(t, out.Booking.ActualReturnTime)
	require.Equal(t, int64(62), out.RenterPoints)
	require.Equal(t, int64(312), out.OwnerPoints)
	require.Equal(t, 1, ledger.settleCalls)
	require.Equal(t, []int64{1}, items.increments)
	require.Equal(t, int64(5), users.co2[renterID])

	// booking is now completed; a second complete must not settle again
	_, err = s.Complete(context.Background(), ownerID, b.ID)
	require.Equal(t, bookingsvc.ErrInvalidTransition, bookingsvc.Code(err))
	require.Equal(t, 1, ledger.settleCalls)
}

func TestComplete_OnlyOwner(t *testing.T) {
	b := activeBooking()
	r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
	s := newEngine(nil, nil, r, nil, nil)

	_, err := s.Complete(context.Background(), renterID, b.ID)
	require.Equal(t, bookingsvc.ErrForbidden, bookingsvc.Code(err))
}

func TestComplete_SettlementFailurePropagates(t *testing.T) {
	b := activeBooking()
	r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
	ledger := &settlerMock{settleErr: errors.New("wallet row missing")}
	s := newEngine(nil, nil, r, nil, ledger)

	_, err := s.Complete(context.Background(), ownerID, b.ID)
	require.Error(t, err)
}

func TestDispute(t *testing.T) {
	for _, from := range []model.BookingStatus{model.BookingPending, model.BookingAccepted, model.BookingActive} {
		b := activeBooking()
		b.Status = from
		r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
		s := newEngine(nil, nil, r, nil, nil)

		got, err := s.Dispute(context.Background(), renterID, b.ID)
		require.NoError(t, err, "from %s", from)
		require.Equal(t, model.BookingDisputed, got.Status)
	}

	b := activeBooking()
	b.Status = model.BookingCompleted
	r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
	s := newEngine(nil, nil, r, nil, nil)
	_, err := s.Dispute(context.Background(), ownerID, b.ID)
	require.Equal(t, bookingsvc.ErrInvalidTransition, bookingsvc.Code(err))
}

func TestReject_ReturnsWalletCredit(t *testing.T) {
	b := activeBooking()
	b.Status = model.BookingPending
	b.WalletCreditUsed = decimal.RequireFromString("2.00")
	r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
	ledger := &settlerMock{}
	s := newEngine(nil, nil, r, nil, ledger)

	got, err := s.Reject(context.Background(), ownerID, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingCancelled, got.Status)
	require.Len(t, ledger.refunds, 1)
	require.True(t, ledger.refunds[0].Equal(decimal.RequireFromString("2.00")))
}

func TestReject_NoCreditNoRefund(t *testing.T) {
	b := activeBooking()
	b.Status = model.BookingPending
	r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
	ledger := &settlerMock{}
	s := newEngine(nil, nil, r, nil, ledger)

	_, err := s.Reject(context.Background(), ownerID, b.ID)
	require.NoError(t, err)
	require.Empty(t, ledger.refunds)
}

func TestReject_RefundFailurePropagates(t *testing.T) {
	b := activeBooking()
	b.Status = model.BookingPending
	b.WalletCreditUsed = decimal.RequireFromString("2.00")
	r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
	ledger := &settlerMock{refundErr: errors.New("wallet row missing")}
	s := newEngine(nil, nil, r, nil, ledger)

	_, err := s.Reject(context.Background(), ownerID, b.ID)
	require.Error(t, err)
}

func TestDispute_ReturnsWalletCredit(t *testing.T) {
	b := activeBooking()
	b.WalletCreditUsed = decimal.RequireFromString("1.50")
	r := &repoMock{forUpdateFn: func(id int64) (*model.Booking, error) { return b, nil }}
	ledger := &settlerMock{}
	s := newEngine(nil, nil, r, nil, ledger)

	got, err := s.Dispute(context.Background(), renterID, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingDisputed, got.Status)
	require.Len(t, ledger.refunds, 1)
	require.True(t, ledger.refunds[0].Equal(decimal.RequireFromString("1.50")))
}

func TestGet_ParticipantsOnly(t *testing.T) {
	b := activeBooking()
	r := &repoMock{byIDFn: func(id int64) (*model.Booking, error) { return b, nil }}
	s := newEngine(nil, nil, r, nil, nil)
	ctx := context.Background()

	for _, uid := range []int64{renterID, ownerID} {
		got, err := s.Get(ctx, uid, b.ID)
		require.NoError(t, err)
		require.Equal(t, b.Code, got.Code)
	}

	_, err := s.Get(ctx, 99, b.ID)
	require.Equal(t, bookingsvc.ErrForbidden, bookingsvc.Code(err))
}
