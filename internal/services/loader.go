package services

import (
	"context"
	"errors"

	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// PreferenceLoader reads a user's preference and history documents straight
// from the store. Absence is reported as (nil, nil).
type PreferenceLoader struct {
	preferences PreferenceRepository
	history     HistoryRepository
}

func NewPreferenceLoader(preferences PreferenceRepository, history HistoryRepository) *PreferenceLoader {
	return &PreferenceLoader{
		preferences: preferences,
		history:     history,
	}
}

func (l *PreferenceLoader) LoadPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	prefs, err := l.preferences.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return prefs, err
}

func (l *PreferenceLoader) LoadPurchaseHistory(ctx context.Context, userID string) (*models.PurchaseHistory, error) {
	history, err := l.history.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return history, err
}
