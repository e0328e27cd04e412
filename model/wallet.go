// model/wallet.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Balance        decimal.Decimal `json:"balance"`
	RewardPoints   int64           `json:"reward_points"`
	LifetimeEarned decimal.Decimal `json:"lifetime_earned"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Tier string

const (
	TierStarter Tier = "Starter"
	TierBronze  Tier = "Bronze"
	TierSilver  Tier = "Silver"
	TierGold    Tier = "Gold"
)

type TransactionType string

const (
	TxRentalEarning    TransactionType = "rental_earning"
	TxRentalPayment    TransactionType = "rental_payment"
	TxRewardRedemption TransactionType = "reward_redemption"
	TxReferralBonus    TransactionType = "referral_bonus"
	TxDepositHold      TransactionType = "deposit_hold"
	TxDepositRefund    TransactionType = "deposit_refund"
	TxPlatformFee      TransactionType = "platform_fee"
)

// WalletTransaction is one append-only audit row. Rows are never updated
// or deleted; corrections get a new row of the opposite sign.
type WalletTransaction struct {
	ID           int64           `json:"id"`
	WalletID     int64           `json:"wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Type         TransactionType `json:"type"`
	BookingID    *int64          `json:"booking_id,omitempty"`
	Description  string          `json:"description,omitempty"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
