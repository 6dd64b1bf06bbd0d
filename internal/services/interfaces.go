package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// DealReader reads candidate deals.
type DealReader interface {
	ListActive(ctx context.Context, q store.CandidateQuery) ([]models.Deal, error)
}

// PreferenceRepository persists preference documents.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*models.UserPreferences, error)
	Upsert(ctx context.Context, prefs *models.UserPreferences) error
	CreateDefault(ctx context.Context, userID string, now time.Time) (bool, error)
	UpdatePurchasePatterns(ctx context.Context, userID string, patterns *models.PurchasePatterns) error
}

// HistoryRepository persists purchase history aggregates.
type HistoryRepository interface {
	Get(ctx context.Context, userID string) (*models.PurchaseHistory, error)
	ListUserIDs(ctx context.Context) ([]string, error)
	ApplyOrder(ctx context.Context, orderID, userID string, now time.Time, mutate func(*models.PurchaseHistory)) (bool, error)
}

// RecommendationRepository persists generated recommendations and their outcomes.
type RecommendationRepository interface {
	InsertBatch(ctx context.Context, recs []models.AIRecommendation) error
	ListActive(ctx context.Context, userID string, now time.Time, limit int) ([]models.AIRecommendation, error)
	SetOutcome(ctx context.Context, id uuid.UUID, ownerID string, action models.TrackAction, at time.Time) (*store.OutcomeTarget, error)
}

// OutcomeSink receives recommendation outcomes after they are stored.
// The Kafka message bus and the interaction graph both implement it.
type OutcomeSink interface {
	RecordOutcome(ctx context.Context, event models.RecommendationOutcomeEvent) error
}

// FeedServiceInterface is what the HTTP layer needs from personalization.
type FeedServiceInterface interface {
	GetFeed(ctx context.Context, userID string, limit int) *models.FeedResponse
	GenerateRecommendations(ctx context.Context, userID string) []models.AIRecommendation
	ActiveRecommendations(ctx context.Context, userID string, limit int) ([]models.AIRecommendation, error)
}

// PreferenceServiceInterface reads and updates preferences over HTTP.
type PreferenceServiceInterface interface {
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, req *models.PreferencesUpdateRequest) (*models.UserPreferences, error)
}

// TrackerInterface records click and purchase outcomes.
type TrackerInterface interface {
	TrackRecommendation(ctx context.Context, recommendationID uuid.UUID, action models.TrackAction)
	TrackUserRecommendation(ctx context.Context, userID string, recommendationID uuid.UUID, action models.TrackAction) error
}

// PatternAnalyzerInterface derives purchase patterns for one user.
type PatternAnalyzerInterface interface {
	AnalyzePatterns(ctx context.Context, userID string) (*models.PurchasePatterns, error)
}
