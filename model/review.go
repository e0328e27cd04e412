// model/review.go
package model

import "time"

type Review struct {
	ID         int64     `json:"id"`
	BookingID  int64     `json:"booking_id"`
	ReviewerID int64     `json:"reviewer_id"`
	RevieweeID int64     `json:"reviewee_id"`
	ItemID     *int64    `json:"item_id,omitempty"`
	Stars      int       `json:"stars"`
	Text       string    `json:"text,omitempty"`
	PhotoURLs  []string  `json:"photo_urls,omitempty"`
	VideoURL   string    `json:"video_url,omitempty"`
	IsVerified bool      `json:"is_verified"`
	Flagged    bool      `json:"flagged"`
	CreatedAt  time.Time `json:"created_at"`
}
