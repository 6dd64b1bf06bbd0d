package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/config"
	"github.com/seokjun4321/ReValue-sub000/internal/ranking"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

const defaultActiveRecommendationLimit = 50

// PersonalizationService builds a user's ranked deal feed and turns it into
// stored recommendations. It never fails a feed: every missing or unreadable
// input falls back to its neutral default.
type PersonalizationService struct {
	cfg             config.RecommendationConfig
	loader          *PreferenceLoader
	preferences     PreferenceRepository
	fetcher         *CandidateFetcher
	engine          *ranking.Engine
	recommendations RecommendationRepository
	logger          *logrus.Logger
	metrics         *Metrics
	now             func() time.Time
}

func NewPersonalizationService(
	cfg config.RecommendationConfig,
	loader *PreferenceLoader,
	preferences PreferenceRepository,
	fetcher *CandidateFetcher,
	engine *ranking.Engine,
	recommendations RecommendationRepository,
	logger *logrus.Logger,
	metrics *Metrics,
) *PersonalizationService {
	return &PersonalizationService{
		cfg:             cfg,
		loader:          loader,
		preferences:     preferences,
		fetcher:         fetcher,
		engine:          engine,
		recommendations: recommendations,
		logger:          logger,
		metrics:         metrics,
		now:             time.Now,
	}
}

// GetFeed returns the user's ranked deals. A positive limit truncates the list.
func (s *PersonalizationService) GetFeed(ctx context.Context, userID string, limit int) *models.FeedResponse {
	timer := prometheus.NewTimer(s.metrics.FeedLatency)
	defer timer.ObserveDuration()

	prefs, history, scored := s.personalize(ctx, userID)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	personalized := prefs != nil || history != nil
	s.metrics.FeedRequests.WithLabelValues(strconv.FormatBool(personalized)).Inc()

	return &models.FeedResponse{
		UserID:      userID,
		Deals:       scored,
		Personal:    personalized,
		GeneratedAt: s.now(),
	}
}

// GenerateRecommendations persists the top of the user's feed as
// recommendations. A failed write is logged and the generated list is still
// returned.
func (s *PersonalizationService) GenerateRecommendations(ctx context.Context, userID string) []models.AIRecommendation {
	_, _, scored := s.personalize(ctx, userID)

	n := min(len(scored), s.cfg.MaxGenerated)
	now := s.now()

	recs := make([]models.AIRecommendation, 0, n)
	for _, sd := range scored[:n] {
		recs = append(recs, models.AIRecommendation{
			ID:       uuid.New(),
			UserID:   userID,
			Type:     models.RecommendationTypeDeal,
			Score:    sd.Score,
			Reason:   recommendationReason(sd),
			TargetID: sd.Deal.ID,
			Category: sd.Deal.Category,
			BasedOn: models.BasedOn{
				PurchaseHistory: sd.Breakdown.CategoryHistory+sd.Breakdown.StoreHistory > 0,
				Preferences:     sd.Breakdown.CategoryPreference > 0,
			},
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.RecommendationTTL),
		})
	}

	if err := s.recommendations.InsertBatch(ctx, recs); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"count":   len(recs),
		}).Error("Failed to persist recommendations")
		s.metrics.storeFailure("insert_recommendations")
	} else {
		s.metrics.RecommendationsGenerated.Add(float64(len(recs)))
	}

	return recs
}

// ActiveRecommendations lists the user's recommendations that have not expired.
func (s *PersonalizationService) ActiveRecommendations(ctx context.Context, userID string, limit int) ([]models.AIRecommendation, error) {
	if limit <= 0 {
		limit = defaultActiveRecommendationLimit
	}
	recs, err := s.recommendations.ListActive(ctx, userID, s.now(), limit)
	if err != nil {
		s.metrics.storeFailure("list_recommendations")
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return recs, nil
}

// personalize loads preferences and history concurrently, then fetches
// candidates with the filters the preferences resolve to and ranks them.
func (s *PersonalizationService) personalize(ctx context.Context, userID string) (*models.UserPreferences, *models.PurchaseHistory, []models.ScoredDeal) {
	var (
		wg           sync.WaitGroup
		prefs        *models.UserPreferences
		history      *models.PurchaseHistory
		prefsMissing bool
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		p, err := s.loader.LoadPreferences(ctx, userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load preferences, ranking without them")
			s.metrics.storeFailure("load_preferences")
			return
		}
		prefs = p
		prefsMissing = p == nil
	}()
	go func() {
		defer wg.Done()
		h, err := s.loader.LoadPurchaseHistory(ctx, userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load purchase history, ranking without it")
			s.metrics.storeFailure("load_history")
			return
		}
		history = h
	}()
	wg.Wait()

	if prefsMissing {
		s.createDefaultPreferences(ctx, userID)
	}

	candidates := s.fetcher.FetchCandidates(ctx, ranking.ResolveFilters(prefs))
	scored := s.engine.RankScored(candidates, prefs, history)

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"candidates":  len(candidates),
		"ranked":      len(scored),
		"preferences": prefs != nil,
		"history":     history != nil,
	}).Debug("Personalized feed ranked")

	return prefs, history, scored
}

// The new document is not used for this request; the user is still ranked
// as having no preferences.
func (s *PersonalizationService) createDefaultPreferences(ctx context.Context, userID string) {
	created, err := s.preferences.CreateDefault(ctx, userID, s.now())
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to create default preferences")
		s.metrics.storeFailure("create_default_preferences")
		return
	}
	if created {
		s.logger.WithField("user_id", userID).Info("Created default preferences")
	}
}

// recommendationReason names the term that contributed most to the score.
func recommendationReason(sd models.ScoredDeal) string {
	b := sd.Breakdown
	switch {
	case b.CategoryPreference > 0 && b.CategoryPreference >= max(b.StoreHistory, b.CategoryHistory, b.Discount):
		return fmt.Sprintf("Matches your favorite category %s", sd.Deal.Category)
	case b.StoreHistory > 0 && b.StoreHistory >= max(b.CategoryHistory, b.Discount):
		return "From a store you have ordered from before"
	case b.CategoryHistory > 0 && b.CategoryHistory >= b.Discount:
		return fmt.Sprintf("You often order %s", sd.Deal.Category)
	default:
		return fmt.Sprintf("%.0f%% off", sd.Deal.DiscountRate)
	}
}
