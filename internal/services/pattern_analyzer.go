package services

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

const (
	favoriteCategoryCount = 3
	favoriteStoreCount    = 5
	peakHourCount         = 3
)

// PatternAnalyzer derives purchase patterns from history and writes them onto
// the user's preferences. It runs in batch, never inline with ranking.
type PatternAnalyzer struct {
	loader      *PreferenceLoader
	preferences PreferenceRepository
	history     HistoryRepository
	logger      *logrus.Logger
	metrics     *Metrics
	now         func() time.Time
}

func NewPatternAnalyzer(loader *PreferenceLoader, preferences PreferenceRepository, history HistoryRepository, logger *logrus.Logger, metrics *Metrics) *PatternAnalyzer {
	return &PatternAnalyzer{
		loader:      loader,
		preferences: preferences,
		history:     history,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// AnalyzePatterns returns (nil, nil) without writing when the user has no
// history or no preferences document.
func (a *PatternAnalyzer) AnalyzePatterns(ctx context.Context, userID string) (*models.PurchasePatterns, error) {
	history, err := a.loader.LoadPurchaseHistory(ctx, userID)
	if err != nil {
		a.metrics.PatternAnalyses.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load purchase history: %w", err)
	}
	prefs, err := a.loader.LoadPreferences(ctx, userID)
	if err != nil {
		a.metrics.PatternAnalyses.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if history == nil || prefs == nil {
		a.metrics.PatternAnalyses.WithLabelValues("skipped").Inc()
		return nil, nil
	}

	patterns := DerivePatterns(history, a.now())
	if err := a.preferences.UpdatePurchasePatterns(ctx, userID, patterns); err != nil {
		a.metrics.PatternAnalyses.WithLabelValues("error").Inc()
		a.metrics.storeFailure("update_purchase_patterns")
		return nil, fmt.Errorf("failed to save purchase patterns: %w", err)
	}

	a.metrics.PatternAnalyses.WithLabelValues("updated").Inc()
	a.logger.WithFields(logrus.Fields{
		"user_id":             userID,
		"favorite_categories": patterns.FavoriteCategories,
		"peak_hours":          patterns.PeakHours,
	}).Debug("Purchase patterns updated")

	return patterns, nil
}

// AnalyzeAll runs AnalyzePatterns for every user with history. One user's
// failure does not stop the batch.
func (a *PatternAnalyzer) AnalyzeAll(ctx context.Context) error {
	userIDs, err := a.history.ListUserIDs(ctx)
	if err != nil {
		a.metrics.storeFailure("list_history_users")
		return fmt.Errorf("failed to list users: %w", err)
	}

	var updated, failed int
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		patterns, err := a.AnalyzePatterns(ctx, userID)
		if err != nil {
			failed++
			a.logger.WithError(err).WithField("user_id", userID).Warn("Pattern analysis failed")
			continue
		}
		if patterns != nil {
			updated++
		}
	}

	a.logger.WithFields(logrus.Fields{
		"users":   len(userIDs),
		"updated": updated,
		"failed":  failed,
	}).Info("Purchase pattern analysis completed")

	return nil
}

// DerivePatterns picks the top categories, stores and hours by order count.
// Ties go to the smaller key. Entries with no orders are never favorites.
func DerivePatterns(history *models.PurchaseHistory, now time.Time) *models.PurchasePatterns {
	categoryCounts := make(map[string]int, len(history.CategoryStats))
	for category, stat := range history.CategoryStats {
		categoryCounts[category] = stat.OrderCount
	}
	storeCounts := make(map[string]int, len(history.StoreStats))
	for storeID, stat := range history.StoreStats {
		storeCounts[storeID] = stat.OrderCount
	}

	return &models.PurchasePatterns{
		FavoriteCategories: topKeys(categoryCounts, favoriteCategoryCount),
		FavoriteStores:     topKeys(storeCounts, favoriteStoreCount),
		PeakHours:          topKeys(history.TimeStats.Hourly, peakHourCount),
		AverageOrderValue:  history.Stats.AverageOrderValue,
		LastAnalyzed:       now,
	}
}

func topKeys[K cmp.Ordered](counts map[K]int, n int) []K {
	keys := make([]K, 0, len(counts))
	for k, count := range counts {
		if count > 0 {
			keys = append(keys, k)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		ci, cj := counts[keys[i]], counts[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})

	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
