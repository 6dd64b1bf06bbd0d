package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

type PreferenceStore struct {
	db Querier
}

func NewPreferenceStore(db Querier) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Get returns ErrNotFound when the user has no preferences document.
func (s *PreferenceStore) Get(ctx context.Context, userID string) (*models.UserPreferences, error) {
	query := `
		SELECT user_id, categories, locations, customization, purchase_patterns, created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1`

	var (
		prefs                                   models.UserPreferences
		categoriesJSON, locationsJSON           []byte
		customizationJSON, purchasePatternsJSON []byte
	)

	err := s.db.QueryRow(ctx, query, userID).Scan(
		&prefs.UserID,
		&categoriesJSON,
		&locationsJSON,
		&customizationJSON,
		&purchasePatternsJSON,
		&prefs.CreatedAt,
		&prefs.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}

	if err := unmarshalOptional(categoriesJSON, &prefs.Categories); err != nil {
		return nil, fmt.Errorf("invalid categories document: %w", err)
	}
	if err := unmarshalOptional(locationsJSON, &prefs.Locations); err != nil {
		return nil, fmt.Errorf("invalid locations document: %w", err)
	}
	if len(customizationJSON) > 0 && string(customizationJSON) != "null" {
		prefs.Customization = &models.Customization{}
		if err := json.Unmarshal(customizationJSON, prefs.Customization); err != nil {
			return nil, fmt.Errorf("invalid customization document: %w", err)
		}
	}
	if len(purchasePatternsJSON) > 0 && string(purchasePatternsJSON) != "null" {
		prefs.PurchasePatterns = &models.PurchasePatterns{}
		if err := json.Unmarshal(purchasePatternsJSON, prefs.PurchasePatterns); err != nil {
			return nil, fmt.Errorf("invalid purchase patterns document: %w", err)
		}
	}

	return &prefs, nil
}

// Upsert writes the user-editable fields. Purchase patterns are left untouched.
func (s *PreferenceStore) Upsert(ctx context.Context, prefs *models.UserPreferences) error {
	categoriesJSON, err := json.Marshal(nonNilCategories(prefs.Categories))
	if err != nil {
		return err
	}
	locationsJSON, err := json.Marshal(nonNilLocations(prefs.Locations))
	if err != nil {
		return err
	}
	var customizationJSON []byte
	if prefs.Customization != nil {
		if customizationJSON, err = json.Marshal(prefs.Customization); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO user_preferences (user_id, categories, locations, customization, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			categories = EXCLUDED.categories,
			locations = EXCLUDED.locations,
			customization = EXCLUDED.customization,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.Exec(ctx, query, prefs.UserID, categoriesJSON, locationsJSON, customizationJSON, prefs.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}

// CreateDefault inserts an empty document unless one exists. It reports
// whether a row was created.
func (s *PreferenceStore) CreateDefault(ctx context.Context, userID string, now time.Time) (bool, error) {
	query := `
		INSERT INTO user_preferences (user_id, categories, locations, created_at, updated_at)
		VALUES ($1, '[]', '[]', $2, $2)
		ON CONFLICT (user_id) DO NOTHING`

	tag, err := s.db.Exec(ctx, query, userID, now)
	if err != nil {
		return false, fmt.Errorf("failed to create default preferences: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PreferenceStore) UpdatePurchasePatterns(ctx context.Context, userID string, patterns *models.PurchasePatterns) error {
	patternsJSON, err := json.Marshal(patterns)
	if err != nil {
		return err
	}

	query := `
		UPDATE user_preferences
		SET purchase_patterns = $2, updated_at = $3
		WHERE user_id = $1`

	tag, err := s.db.Exec(ctx, query, userID, patternsJSON, patterns.LastAnalyzed)
	if err != nil {
		return fmt.Errorf("failed to update purchase patterns: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func unmarshalOptional(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func nonNilCategories(c []models.CategoryScore) []models.CategoryScore {
	if c == nil {
		return []models.CategoryScore{}
	}
	return c
}

func nonNilLocations(l []models.SavedLocation) []models.SavedLocation {
	if l == nil {
		return []models.SavedLocation{}
	}
	return l
}
