// Package ranking orders candidate deals for a single user with a weighted
// composite score. The engine is pure and safe for concurrent use.
package ranking

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/seokjun4321/ReValue-sub000/internal/geo"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// TopCategoryCount is how many preferred categories earn a preference bonus.
const TopCategoryCount = 3

// Weights scale each composite score term. All weights must be non-negative.
type Weights struct {
	CategoryPreference float64 `mapstructure:"category_preference"`
	Discount           float64 `mapstructure:"discount"`
	CategoryHistory    float64 `mapstructure:"category_history"`
	StoreHistory       float64 `mapstructure:"store_history"`
}

func DefaultWeights() Weights {
	return Weights{
		CategoryPreference: 2.0,
		Discount:           1.0,
		CategoryHistory:    0.5,
		StoreHistory:       1.0,
	}
}

func (w Weights) vector() []float64 {
	return []float64{w.CategoryPreference, w.Discount, w.CategoryHistory, w.StoreHistory}
}

type Engine struct {
	weights []float64
}

func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights.vector()}
}

// Rank returns the candidates that survive the distance filter, stably
// ordered by composite score descending. The input slice is not modified.
func (e *Engine) Rank(candidates []models.Deal, prefs *models.UserPreferences, history *models.PurchaseHistory) []models.Deal {
	scored := e.RankScored(candidates, prefs, history)
	deals := make([]models.Deal, len(scored))
	for i, sd := range scored {
		deals[i] = sd.Deal
	}
	return deals
}

// RankScored is Rank with the score and its per-term breakdown attached.
func (e *Engine) RankScored(candidates []models.Deal, prefs *models.UserPreferences, history *models.PurchaseHistory) []models.ScoredDeal {
	eligible := FilterByDistance(candidates, prefs)
	idx := newUserIndex(prefs, history)

	scored := make([]models.ScoredDeal, len(eligible))
	for i, deal := range eligible {
		score, breakdown := e.score(deal, idx)
		scored[i] = models.ScoredDeal{Deal: deal, Score: score, Breakdown: breakdown}
	}

	// Equal scores keep their input order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// Score computes the composite score of a single deal.
func (e *Engine) Score(deal models.Deal, prefs *models.UserPreferences, history *models.PurchaseHistory) float64 {
	score, _ := e.score(deal, newUserIndex(prefs, history))
	return score
}

// userIndex holds one user's preference ranks and category order counts
// keyed by normalized category, so stored keys match deal categories
// regardless of case or Unicode form.
type userIndex struct {
	preferred      map[string]int
	categoryOrders map[string]int
	history        *models.PurchaseHistory
}

func newUserIndex(prefs *models.UserPreferences, history *models.PurchaseHistory) userIndex {
	idx := userIndex{
		preferred: categoryRanks(TopCategories(prefs, TopCategoryCount)),
		history:   history,
	}
	if history != nil {
		idx.categoryOrders = make(map[string]int, len(history.CategoryStats))
		for category, stat := range history.CategoryStats {
			idx.categoryOrders[NormalizeCategory(category)] += stat.OrderCount
		}
	}
	return idx
}

func (e *Engine) score(deal models.Deal, idx userIndex) (float64, models.ScoreBreakdown) {
	category := NormalizeCategory(deal.Category)
	features := []float64{
		preferencePoints(category, idx.preferred),
		deal.DiscountRate / 100,
		float64(idx.categoryOrders[category]),
		float64(idx.history.StoreOrders(deal.StoreID)),
	}

	breakdown := models.ScoreBreakdown{
		CategoryPreference: features[0] * e.weights[0],
		Discount:           features[1] * e.weights[1],
		CategoryHistory:    features[2] * e.weights[2],
		StoreHistory:       features[3] * e.weights[3],
	}

	return floats.Dot(features, e.weights), breakdown
}

// preferencePoints is (TopCategoryCount - rank) for a preferred category, else 0.
func preferencePoints(category string, preferred map[string]int) float64 {
	rank, ok := preferred[category]
	if !ok {
		return 0
	}
	return float64(TopCategoryCount - rank)
}

// TopCategories returns up to n categories ordered by score descending.
// Ties keep the order in which the user listed them.
func TopCategories(prefs *models.UserPreferences, n int) []string {
	if prefs == nil || len(prefs.Categories) == 0 || n <= 0 {
		return nil
	}

	sorted := make([]models.CategoryScore, len(prefs.Categories))
	copy(sorted, prefs.Categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}

	top := make([]string, len(sorted))
	for i, cs := range sorted {
		top[i] = cs.Category
	}
	return top
}

func categoryRanks(top []string) map[string]int {
	ranks := make(map[string]int, len(top))
	for i, category := range top {
		category = NormalizeCategory(category)
		if _, seen := ranks[category]; !seen {
			ranks[category] = i
		}
	}
	return ranks
}

// FilterByDistance keeps deals within MaxDistance of at least one saved
// location. It is a no-op unless location filtering is enabled, the user has
// saved locations and a maximum distance is set. Deals without coordinates
// are dropped while the filter is active.
func FilterByDistance(candidates []models.Deal, prefs *models.UserPreferences) []models.Deal {
	if !distanceFilterActive(prefs) {
		out := make([]models.Deal, len(candidates))
		copy(out, candidates)
		return out
	}

	maxDistance := *prefs.Customization.MaxDistance
	out := make([]models.Deal, 0, len(candidates))
	for _, deal := range candidates {
		if deal.Location != nil && withinAny(*deal.Location, prefs.Locations, maxDistance) {
			out = append(out, deal)
		}
	}
	return out
}

func distanceFilterActive(prefs *models.UserPreferences) bool {
	return prefs != nil &&
		prefs.Customization != nil &&
		prefs.Customization.UseLocation &&
		prefs.Customization.MaxDistance != nil &&
		len(prefs.Locations) > 0
}

func withinAny(point models.GeoPoint, locations []models.SavedLocation, maxDistance float64) bool {
	for _, loc := range locations {
		d := geo.DistanceKm(loc.Coordinates.Latitude, loc.Coordinates.Longitude, point.Latitude, point.Longitude)
		if d <= maxDistance {
			return true
		}
	}
	return false
}
