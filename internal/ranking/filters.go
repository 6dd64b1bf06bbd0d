package ranking

import (
	"math"

	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// Filters are the hard candidate filters taken from a user's customization.
// MaxPrice is +Inf when the user set no price bound.
type Filters struct {
	MinDiscountRate float64
	MaxPrice        float64
}

func ResolveFilters(prefs *models.UserPreferences) Filters {
	if prefs == nil {
		return Filters{MaxPrice: math.Inf(1)}
	}
	return Filters{
		MinDiscountRate: prefs.Customization.MinDiscountRateOrZero(),
		MaxPrice:        prefs.Customization.MaxPriceOrInf(),
	}
}
