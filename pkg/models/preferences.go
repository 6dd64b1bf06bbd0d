package models

import (
	"math"
	"time"
)

type CategoryScore struct {
	Category string  `json:"category" validate:"required,max=64"`
	Score    float64 `json:"score" validate:"gte=0"`
}

type SavedLocation struct {
	Name        string   `json:"name" validate:"required,max=64"`
	Coordinates GeoPoint `json:"coordinates"`
}

// Customization carries the user's hard filters. Nil fields mean "no constraint".
type Customization struct {
	MaxPrice        *float64 `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	MinDiscountRate *float64 `json:"min_discount_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	MaxDistance     *float64 `json:"max_distance,omitempty" validate:"omitempty,gte=0"`
	UseLocation     bool     `json:"use_location"`
}

func (c *Customization) MaxPriceOrInf() float64 {
	if c == nil || c.MaxPrice == nil {
		return math.Inf(1)
	}
	return *c.MaxPrice
}

func (c *Customization) MinDiscountRateOrZero() float64 {
	if c == nil || c.MinDiscountRate == nil {
		return 0
	}
	return *c.MinDiscountRate
}

type PurchasePatterns struct {
	FavoriteCategories []string  `json:"favorite_categories"`
	FavoriteStores     []string  `json:"favorite_stores"`
	PeakHours          []int     `json:"peak_hours"`
	AverageOrderValue  float64   `json:"average_order_value"`
	LastAnalyzed       time.Time `json:"last_analyzed"`
}

type UserPreferences struct {
	UserID           string            `json:"user_id" db:"user_id"`
	Categories       []CategoryScore   `json:"categories" db:"categories"`
	Locations        []SavedLocation   `json:"locations" db:"locations"`
	Customization    *Customization    `json:"customization,omitempty" db:"customization"`
	PurchasePatterns *PurchasePatterns `json:"purchase_patterns,omitempty" db:"purchase_patterns"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
}

type PreferencesUpdateRequest struct {
	Categories    []CategoryScore `json:"categories" validate:"omitempty,max=50,dive"`
	Locations     []SavedLocation `json:"locations" validate:"omitempty,max=10,dive"`
	Customization *Customization  `json:"customization,omitempty"`
}
