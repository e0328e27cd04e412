// model/booking.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingDisputed  BookingStatus = "disputed"
)

type TargetKind string

const (
	TargetItem   TargetKind = "item"
	TargetBundle TargetKind = "bundle"
)

// BookingTarget names the one thing a booking reserves: an item or a
// bundle, never both.
type BookingTarget struct {
	Kind TargetKind `json:"kind"`
	ID   int64      `json:"id"`
}

func ItemTarget(id int64) BookingTarget   { return BookingTarget{Kind: TargetItem, ID: id} }
func BundleTarget(id int64) BookingTarget { return BookingTarget{Kind: TargetBundle, ID: id} }

type Booking struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"booking_code"`
	RenterID           int64           `json:"renter_id"`
	Target             BookingTarget   `json:"target"`
	StartTime          time.Time       `json:"start_time"`
	EndTime            time.Time       `json:"end_time"`
	ActualReturnTime   *time.Time      `json:"actual_return_time,omitempty"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	DepositAmount      decimal.Decimal `json:"deposit_amount"`
	WalletCreditUsed   decimal.Decimal `json:"wallet_credit_used"`
	LateFee            decimal.Decimal `json:"late_fee"`
	RewardPointsEarned int64           `json:"reward_points_earned"`
	Status             BookingStatus   `json:"status"`
	ConditionAtPickup  string          `json:"condition_at_pickup,omitempty"`
	ConditionAtReturn  string          `json:"condition_at_return,omitempty"`
	DamageReported     bool            `json:"damage_reported"`
	Items              []BookingItem   `json:"items,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// BookingItem snapshots one item of a bundle booking with the unit price
// at booking time. (booking_id, item_id) is unique.
type BookingItem struct {
	ItemID    int64           `json:"item_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// DurationHours is the booked window length in hours.
func (b *Booking) DurationHours() float64 {
	return b.EndTime.Sub(b.StartTime).Hours()
}

// IsOverdue reports whether an active booking has run past its end time
// without being returned.
func (b *Booking) IsOverdue(now time.Time) bool {
	return b.Status == BookingActive && now.After(b.EndTime) && b.ActualReturnTime == nil
}
