package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

func newTestPreferenceService() (*PreferenceService, *MockPreferenceRepository) {
	repo := new(MockPreferenceRepository)
	service := NewPreferenceService(repo, testLogger(), testMetrics())
	service.now = func() time.Time { return fixedNow }
	return service, repo
}

func TestUpdatePreferences_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  *models.PreferencesUpdateRequest
	}{
		{"nil request", nil},
		{"negative category score", &models.PreferencesUpdateRequest{
			Categories: []models.CategoryScore{{Category: "food", Score: -1}},
		}},
		{"empty category", &models.PreferencesUpdateRequest{
			Categories: []models.CategoryScore{{Category: "", Score: 1}},
		}},
		{"negative max distance", &models.PreferencesUpdateRequest{
			Customization: &models.Customization{MaxDistance: floatPtr(-1)},
		}},
		{"negative max price", &models.PreferencesUpdateRequest{
			Customization: &models.Customization{MaxPrice: floatPtr(-100)},
		}},
		{"discount above 100", &models.PreferencesUpdateRequest{
			Customization: &models.Customization{MinDiscountRate: floatPtr(120)},
		}},
		{"latitude out of range", &models.PreferencesUpdateRequest{
			Locations: []models.SavedLocation{{Name: "home", Coordinates: models.GeoPoint{Latitude: 91}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo := newTestPreferenceService()

			_, err := service.UpdatePreferences(context.Background(), "user-1", tt.req)

			assert.ErrorIs(t, err, ErrInvalidPreferences)
			repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdatePreferences_NormalizesAndKeepsDerivedFields(t *testing.T) {
	service, repo := newTestPreferenceService()

	created := fixedNow.Add(-30 * 24 * time.Hour)
	patterns := &models.PurchasePatterns{FavoriteCategories: []string{"bakery"}}
	repo.On("Get", mock.Anything, "user-1").Return(&models.UserPreferences{
		UserID:           "user-1",
		PurchasePatterns: patterns,
		CreatedAt:        created,
	}, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	prefs, err := service.UpdatePreferences(context.Background(), "user-1", &models.PreferencesUpdateRequest{
		Categories: []models.CategoryScore{
			{Category: "  Korean   Food ", Score: 5},
			{Category: "korean food", Score: 1},
			{Category: "ＢＡＫＥＲＹ", Score: 3},
		},
		Customization: &models.Customization{MaxDistance: floatPtr(3), UseLocation: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.CategoryScore{
		{Category: "korean food", Score: 5},
		{Category: "bakery", Score: 3},
	}, prefs.Categories)
	assert.Equal(t, created, prefs.CreatedAt)
	assert.Equal(t, fixedNow, prefs.UpdatedAt)
	assert.Same(t, patterns, prefs.PurchasePatterns)
	repo.AssertCalled(t, "Upsert", mock.Anything, prefs)
}

func TestUpdatePreferences_NewDocument(t *testing.T) {
	service, repo := newTestPreferenceService()

	repo.On("Get", mock.Anything, "user-1").Return(nil, store.ErrNotFound)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	prefs, err := service.UpdatePreferences(context.Background(), "user-1", &models.PreferencesUpdateRequest{})
	require.NoError(t, err)

	assert.Equal(t, fixedNow, prefs.CreatedAt)
	assert.Nil(t, prefs.PurchasePatterns)
	assert.Empty(t, prefs.Categories)
}

func TestUpdatePreferences_StoreErrors(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		service, repo := newTestPreferenceService()
		repo.On("Get", mock.Anything, "user-1").Return(nil, errors.New("timeout"))

		_, err := service.UpdatePreferences(context.Background(), "user-1", &models.PreferencesUpdateRequest{})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidPreferences)
	})

	t.Run("write", func(t *testing.T) {
		service, repo := newTestPreferenceService()
		repo.On("Get", mock.Anything, "user-1").Return(nil, store.ErrNotFound)
		repo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("timeout"))

		_, err := service.UpdatePreferences(context.Background(), "user-1", &models.PreferencesUpdateRequest{})
		assert.ErrorContains(t, err, "failed to save preferences")
	})
}

func TestGetPreferences(t *testing.T) {
	service, repo := newTestPreferenceService()
	repo.On("Get", mock.Anything, "user-1").Return(&models.UserPreferences{UserID: "user-1"}, nil)
	repo.On("Get", mock.Anything, "user-2").Return(nil, store.ErrNotFound)

	prefs, err := service.GetPreferences(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", prefs.UserID)

	_, err = service.GetPreferences(context.Background(), "user-2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
