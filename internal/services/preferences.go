package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/ranking"
	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// ErrInvalidPreferences wraps every rejection of a preference update.
var ErrInvalidPreferences = errors.New("invalid preferences")

// PreferenceService validates and stores preference documents. Scores,
// prices and distances are checked here so the ranking path never has to.
type PreferenceService struct {
	preferences PreferenceRepository
	validator   *validator.Validate
	logger      *logrus.Logger
	metrics     *Metrics
	now         func() time.Time
}

func NewPreferenceService(preferences PreferenceRepository, logger *logrus.Logger, metrics *Metrics) *PreferenceService {
	return &PreferenceService{
		preferences: preferences,
		validator:   validator.New(),
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// GetPreferences returns store.ErrNotFound when the user has no document.
func (s *PreferenceService) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	prefs, err := s.preferences.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.metrics.storeFailure("get_preferences")
		}
		return nil, err
	}
	return prefs, nil
}

// UpdatePreferences replaces the user's categories, locations and
// customization. Derived purchase patterns and the creation time are kept.
func (s *PreferenceService) UpdatePreferences(ctx context.Context, userID string, req *models.PreferencesUpdateRequest) (*models.UserPreferences, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidPreferences)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreferences, err)
	}

	now := s.now()
	prefs := &models.UserPreferences{
		UserID:        userID,
		Categories:    normalizeCategoryScores(req.Categories),
		Locations:     req.Locations,
		Customization: req.Customization,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	existing, err := s.preferences.Get(ctx, userID)
	switch {
	case err == nil:
		prefs.CreatedAt = existing.CreatedAt
		prefs.PurchasePatterns = existing.PurchasePatterns
	case !errors.Is(err, store.ErrNotFound):
		s.metrics.storeFailure("get_preferences")
		return nil, fmt.Errorf("failed to read current preferences: %w", err)
	}

	if err := s.preferences.Upsert(ctx, prefs); err != nil {
		s.metrics.storeFailure("upsert_preferences")
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"categories": len(prefs.Categories),
		"locations":  len(prefs.Locations),
	}).Info("Preferences updated")

	return prefs, nil
}

// normalizeCategoryScores folds category keys and drops later duplicates.
func normalizeCategoryScores(in []models.CategoryScore) []models.CategoryScore {
	out := make([]models.CategoryScore, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, cs := range in {
		key := ranking.NormalizeCategory(cs.Category)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.CategoryScore{Category: key, Score: cs.Score})
	}
	return out
}
