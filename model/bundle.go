// model/bundle.go
package model

import "time"

// Bundle is a discounted set of items rented together.
// DiscountPercent is bounded 5-50.
type Bundle struct {
	ID              int64        `json:"id"`
	CreatorID       int64        `json:"creator_id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	DiscountPercent int          `json:"discount_percent"`
	IsActive        bool         `json:"is_active"`
	TotalBookings   int64        `json:"total_bookings"`
	Items           []BundleItem `json:"items,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// BundleItem pins one item and a quantity inside a bundle.
// (bundle_id, item_id) is unique.
type BundleItem struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}
