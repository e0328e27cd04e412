package item

import (
	"github.com/shopspring/decimal"
)

type UpsertItemReq struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Description    string           `json:"description"`
	Category       string           `json:"category" validate:"required"`
	PricePerHour   decimal.Decimal  `json:"price_per_hour" validate:"required"`
	PricePerDay    *decimal.Decimal `json:"price_per_day,omitempty"`
	Deposit        decimal.Decimal  `json:"deposit_amount"`
	AddressText    string           `json:"address" validate:"required"`
	Lat            *float64         `json:"lat,omitempty"`
	Lng            *float64         `json:"lng,omitempty"`
	PhotoURL       string           `json:"photo_url"`
	CarbonOffsetKg int64            `json:"carbon_offset_kg"`
}

type AvailabilityReq struct {
	Available *bool `json:"available" validate:"required"`
}
