// model/item.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryTools       Category = "tools"
	CategoryElectronics Category = "electronics"
	CategoryCamera      Category = "camera"
	CategorySports      Category = "sports"
	CategoryKitchen     Category = "kitchen"
	CategoryParty       Category = "party"
	CategoryFurniture   Category = "furniture"
	CategoryBooks       Category = "books"
	CategoryOther       Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryTools, CategoryElectronics, CategoryCamera, CategorySports,
		CategoryKitchen, CategoryParty, CategoryFurniture, CategoryBooks, CategoryOther:
		return true
	}
	return false
}

type Item struct {
	ID             int64            `json:"id"`
	OwnerID        int64            `json:"owner_id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Category       Category         `json:"category"`
	PricePerHour   decimal.Decimal  `json:"price_per_hour"`
	PricePerDay    *decimal.Decimal `json:"price_per_day,omitempty"`
	Deposit        decimal.Decimal  `json:"deposit"`
	AddressText    string           `json:"address_text"`
	Lat            float64          `json:"lat"`
	Lng            float64          `json:"lng"`
	PhotoURL       string           `json:"photo_url,omitempty"`
	IsAvailable    bool             `json:"is_available"`
	CarbonOffsetKg int64            `json:"carbon_offset_kg"`
	TotalRentals   int64            `json:"total_rentals"`
	RatingAvg      float64          `json:"rating_avg"`
	TotalRatings   int64            `json:"total_ratings"`
	CreatedAt      time.Time        `json:"created_at"`
}
