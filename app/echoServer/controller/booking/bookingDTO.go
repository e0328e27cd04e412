package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateBookingReq struct {
	// Exactly one of item_id and bundle_id must be set.
	ItemID       *int64          `json:"item_id,omitempty"`
	BundleID     *int64          `json:"bundle_id,omitempty"`
	StartTime    time.Time       `json:"start_time" validate:"required"`
	EndTime      time.Time       `json:"end_time" validate:"required"`
	WalletCredit decimal.Decimal `json:"wallet_credit"`
}
