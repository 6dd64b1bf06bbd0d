package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func floatPtr(f float64) *float64 {
	return &f
}

type MockDealReader struct {
	mock.Mock
}

func (m *MockDealReader) ListActive(ctx context.Context, q store.CandidateQuery) ([]models.Deal, error) {
	args := m.Called(ctx, q)
	deals, _ := args.Get(0).([]models.Deal)
	return deals, args.Error(1)
}

type MockPreferenceRepository struct {
	mock.Mock
}

func (m *MockPreferenceRepository) Get(ctx context.Context, userID string) (*models.UserPreferences, error) {
	args := m.Called(ctx, userID)
	prefs, _ := args.Get(0).(*models.UserPreferences)
	return prefs, args.Error(1)
}

func (m *MockPreferenceRepository) Upsert(ctx context.Context, prefs *models.UserPreferences) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

func (m *MockPreferenceRepository) CreateDefault(ctx context.Context, userID string, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockPreferenceRepository) UpdatePurchasePatterns(ctx context.Context, userID string, patterns *models.PurchasePatterns) error {
	args := m.Called(ctx, userID, patterns)
	return args.Error(0)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Get(ctx context.Context, userID string) (*models.PurchaseHistory, error) {
	args := m.Called(ctx, userID)
	history, _ := args.Get(0).(*models.PurchaseHistory)
	return history, args.Error(1)
}

func (m *MockHistoryRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	userIDs, _ := args.Get(0).([]string)
	return userIDs, args.Error(1)
}

func (m *MockHistoryRepository) ApplyOrder(ctx context.Context, orderID, userID string, now time.Time, mutate func(*models.PurchaseHistory)) (bool, error) {
	args := m.Called(ctx, orderID, userID, now, mutate)
	return args.Bool(0), args.Error(1)
}

type MockRecommendationRepository struct {
	mock.Mock
}

func (m *MockRecommendationRepository) InsertBatch(ctx context.Context, recs []models.AIRecommendation) error {
	args := m.Called(ctx, recs)
	return args.Error(0)
}

func (m *MockRecommendationRepository) ListActive(ctx context.Context, userID string, now time.Time, limit int) ([]models.AIRecommendation, error) {
	args := m.Called(ctx, userID, now, limit)
	recs, _ := args.Get(0).([]models.AIRecommendation)
	return recs, args.Error(1)
}

func (m *MockRecommendationRepository) SetOutcome(ctx context.Context, id uuid.UUID, ownerID string, action models.TrackAction, at time.Time) (*store.OutcomeTarget, error) {
	args := m.Called(ctx, id, ownerID, action, at)
	target, _ := args.Get(0).(*store.OutcomeTarget)
	return target, args.Error(1)
}

type MockOutcomeSink struct {
	mock.Mock
}

func (m *MockOutcomeSink) RecordOutcome(ctx context.Context, event models.RecommendationOutcomeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// memoryRecommendations keeps recommendations in a map so tests can observe
// how outcomes overwrite each other.
type memoryRecommendations struct {
	mu   sync.Mutex
	recs map[uuid.UUID]*models.AIRecommendation
}

func newMemoryRecommendations(recs ...models.AIRecommendation) *memoryRecommendations {
	m := &memoryRecommendations{recs: make(map[uuid.UUID]*models.AIRecommendation)}
	for i := range recs {
		rec := recs[i]
		m.recs[rec.ID] = &rec
	}
	return m
}

func (m *memoryRecommendations) InsertBatch(_ context.Context, recs []models.AIRecommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range recs {
		rec := recs[i]
		m.recs[rec.ID] = &rec
	}
	return nil
}

func (m *memoryRecommendations) ListActive(_ context.Context, userID string, now time.Time, limit int) ([]models.AIRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AIRecommendation
	for _, rec := range m.recs {
		if rec.UserID == userID && !rec.Expired(now) && len(out) < limit {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memoryRecommendations) SetOutcome(_ context.Context, id uuid.UUID, ownerID string, action models.TrackAction, at time.Time) (*store.OutcomeTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok || (ownerID != "" && rec.UserID != ownerID) {
		return nil, store.ErrNotFound
	}
	stamp := at
	switch action {
	case models.TrackActionClick:
		rec.ClickedAt = &stamp
	case models.TrackActionPurchase:
		rec.PurchasedAt = &stamp
	}
	return &store.OutcomeTarget{UserID: rec.UserID, TargetID: rec.TargetID}, nil
}

func (m *memoryRecommendations) get(id uuid.UUID) models.AIRecommendation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.recs[id]
}
