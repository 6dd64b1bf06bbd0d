package models

import "time"

type DealStatus string

const (
	DealStatusActive    DealStatus = "active"
	DealStatusExpired   DealStatus = "expired"
	DealStatusSoldOut   DealStatus = "sold_out"
	DealStatusCancelled DealStatus = "cancelled"
)

type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Deal is a discounted, time-limited offer tied to a store.
type Deal struct {
	ID              string     `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Category        string     `json:"category" db:"category"`
	DiscountRate    float64    `json:"discount_rate" db:"discount_rate"` // 0-100
	OriginalPrice   float64    `json:"original_price" db:"original_price"`
	DiscountedPrice float64    `json:"discounted_price" db:"discounted_price"`
	StoreID         string     `json:"store_id" db:"store_id"`
	Location        *GeoPoint  `json:"location,omitempty"`
	Status          DealStatus `json:"status" db:"status"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

type ScoredDeal struct {
	Deal      Deal           `json:"deal"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// ScoreBreakdown holds the weighted contribution of each composite score term.
type ScoreBreakdown struct {
	CategoryPreference float64 `json:"category_preference"`
	Discount           float64 `json:"discount"`
	CategoryHistory    float64 `json:"category_history"`
	StoreHistory       float64 `json:"store_history"`
}

type FeedResponse struct {
	UserID      string       `json:"user_id"`
	Deals       []ScoredDeal `json:"deals"`
	Personal    bool         `json:"personalized"`
	GeneratedAt time.Time    `json:"generated_at"`
}
