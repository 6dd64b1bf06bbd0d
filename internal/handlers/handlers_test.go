package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/seokjun4321/ReValue-sub000/internal/services"
	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type MockFeedService struct {
	mock.Mock
}

func (m *MockFeedService) GetFeed(ctx context.Context, userID string, limit int) *models.FeedResponse {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).(*models.FeedResponse)
}

func (m *MockFeedService) GenerateRecommendations(ctx context.Context, userID string) []models.AIRecommendation {
	args := m.Called(ctx, userID)
	recs, _ := args.Get(0).([]models.AIRecommendation)
	return recs
}

func (m *MockFeedService) ActiveRecommendations(ctx context.Context, userID string, limit int) ([]models.AIRecommendation, error) {
	args := m.Called(ctx, userID, limit)
	recs, _ := args.Get(0).([]models.AIRecommendation)
	return recs, args.Error(1)
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) TrackRecommendation(ctx context.Context, recommendationID uuid.UUID, action models.TrackAction) {
	m.Called(ctx, recommendationID, action)
}

func (m *MockTracker) TrackUserRecommendation(ctx context.Context, userID string, recommendationID uuid.UUID, action models.TrackAction) error {
	args := m.Called(ctx, userID, recommendationID, action)
	return args.Error(0)
}

type MockPreferenceService struct {
	mock.Mock
}

func (m *MockPreferenceService) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	args := m.Called(ctx, userID)
	prefs, _ := args.Get(0).(*models.UserPreferences)
	return prefs, args.Error(1)
}

func (m *MockPreferenceService) UpdatePreferences(ctx context.Context, userID string, req *models.PreferencesUpdateRequest) (*models.UserPreferences, error) {
	args := m.Called(ctx, userID, req)
	prefs, _ := args.Get(0).(*models.UserPreferences)
	return prefs, args.Error(1)
}

type MockPatternAnalyzer struct {
	mock.Mock
}

func (m *MockPatternAnalyzer) AnalyzePatterns(ctx context.Context, userID string) (*models.PurchasePatterns, error) {
	args := m.Called(ctx, userID)
	patterns, _ := args.Get(0).(*models.PurchasePatterns)
	return patterns, args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) IssueToken(ctx context.Context, apiKey, userID string) (*models.AuthResponse, error) {
	args := m.Called(ctx, apiKey, userID)
	resp, _ := args.Get(0).(*models.AuthResponse)
	return resp, args.Error(1)
}

type stubHealth struct {
	status string
}

func (s stubHealth) CheckHealth(context.Context) *services.HealthStatus {
	return &services.HealthStatus{Status: s.status, Services: map[string]string{}}
}

func serve(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, _ := json.Marshal(b)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestFeedHandler_Get(t *testing.T) {
	feedService := new(MockFeedService)
	handler := NewFeedHandler(testLogger(), feedService)

	router := gin.New()
	router.GET("/users/:userId/feed", handler.Get)

	feed := &models.FeedResponse{
		UserID:   "user-1",
		Deals:    []models.ScoredDeal{{Deal: models.Deal{ID: "A"}, Score: 6.5}},
		Personal: true,
	}
	feedService.On("GetFeed", mock.Anything, "user-1", 0).Return(feed).Once()
	feedService.On("GetFeed", mock.Anything, "user-1", 5).Return(feed).Once()

	for _, path := range []string{"/users/user-1/feed", "/users/user-1/feed?limit=5"} {
		w := serve(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)

		var resp models.FeedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "A", resp.Deals[0].Deal.ID)
		assert.True(t, resp.Personal)
	}
	feedService.AssertExpectations(t)
}

func newRecommendationRouter(feedService *MockFeedService, tracker *MockTracker) *gin.Engine {
	handler := NewRecommendationHandler(testLogger(), feedService, tracker)
	router := gin.New()
	router.POST("/users/:userId/recommendations", handler.Generate)
	router.GET("/users/:userId/recommendations", handler.List)
	router.POST("/recommendations/:id/track", handler.Track)
	return router
}

// newTrackRouter serves Track as the given authenticated caller.
func newTrackRouter(tracker *MockTracker, userID, role string) *gin.Engine {
	handler := NewRecommendationHandler(testLogger(), new(MockFeedService), tracker)
	router := gin.New()
	router.POST("/recommendations/:id/track", func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}, handler.Track)
	return router
}

func TestRecommendationHandler_Generate(t *testing.T) {
	feedService := new(MockFeedService)
	router := newRecommendationRouter(feedService, new(MockTracker))

	recs := []models.AIRecommendation{{ID: uuid.New(), UserID: "user-1", TargetID: "A", Type: models.RecommendationTypeDeal}}
	feedService.On("GenerateRecommendations", mock.Anything, "user-1").Return(recs)

	w := serve(router, http.MethodPost, "/users/user-1/recommendations", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.RecommendationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, recs[0].ID, resp.Recommendations[0].ID)
}

func TestRecommendationHandler_List(t *testing.T) {
	feedService := new(MockFeedService)
	router := newRecommendationRouter(feedService, new(MockTracker))

	feedService.On("ActiveRecommendations", mock.Anything, "user-1", 0).Return(nil, nil)
	feedService.On("ActiveRecommendations", mock.Anything, "user-2", 0).Return(nil, errors.New("timeout"))

	w := serve(router, http.MethodGet, "/users/user-1/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"recommendations":[]`)

	w = serve(router, http.MethodGet, "/users/user-2/recommendations", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "RECOMMENDATION_LIST_FAILED", errorCode(t, w))
}

func TestRecommendationHandler_Track(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
		wantAction models.TrackAction
	}{
		{"click", fmt.Sprintf("/recommendations/%s/track", id), models.TrackRequest{Action: models.TrackActionClick}, http.StatusAccepted, models.TrackActionClick},
		{"purchase", fmt.Sprintf("/recommendations/%s/track", id), models.TrackRequest{Action: models.TrackActionPurchase}, http.StatusAccepted, models.TrackActionPurchase},
		{"unknown action", fmt.Sprintf("/recommendations/%s/track", id), `{"action":"view"}`, http.StatusBadRequest, ""},
		{"malformed body", fmt.Sprintf("/recommendations/%s/track", id), `{`, http.StatusBadRequest, ""},
		{"bad id", "/recommendations/123/track", models.TrackRequest{Action: models.TrackActionClick}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := new(MockTracker)
			tracker.On("TrackRecommendation", mock.Anything, id, mock.Anything).Return()
			router := newTrackRouter(tracker, "svc-1", models.RoleService)

			w := serve(router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantAction != "" {
				tracker.AssertCalled(t, "TrackRecommendation", mock.Anything, id, tt.wantAction)
			} else {
				tracker.AssertNotCalled(t, "TrackRecommendation", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRecommendationHandler_Track_BuyerOwnership(t *testing.T) {
	id := uuid.New()
	path := fmt.Sprintf("/recommendations/%s/track", id)
	body := models.TrackRequest{Action: models.TrackActionClick}

	t.Run("own recommendation", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("TrackUserRecommendation", mock.Anything, "user-1", id, models.TrackActionClick).Return(nil)

		w := serve(newTrackRouter(tracker, "user-1", models.RoleBuyer), http.MethodPost, path, body)
		assert.Equal(t, http.StatusAccepted, w.Code)
		tracker.AssertExpectations(t)
		tracker.AssertNotCalled(t, "TrackRecommendation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("another user's recommendation", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("TrackUserRecommendation", mock.Anything, "user-2", id, models.TrackActionClick).Return(store.ErrNotFound)

		w := serve(newTrackRouter(tracker, "user-2", models.RoleBuyer), http.MethodPost, path, body)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "RECOMMENDATION_NOT_FOUND", errorCode(t, w))
		tracker.AssertNotCalled(t, "TrackRecommendation", mock.Anything, mock.Anything, mock.Anything)
	})
}

func newPreferenceRouter(service *MockPreferenceService) *gin.Engine {
	handler := NewPreferenceHandler(testLogger(), service)
	router := gin.New()
	router.GET("/users/:userId/preferences", handler.Get)
	router.PUT("/users/:userId/preferences", handler.Update)
	return router
}

func TestPreferenceHandler_Get(t *testing.T) {
	service := new(MockPreferenceService)
	router := newPreferenceRouter(service)

	service.On("GetPreferences", mock.Anything, "user-1").Return(&models.UserPreferences{UserID: "user-1"}, nil)
	service.On("GetPreferences", mock.Anything, "user-2").Return(nil, store.ErrNotFound)
	service.On("GetPreferences", mock.Anything, "user-3").Return(nil, errors.New("timeout"))

	w := serve(router, http.MethodGet, "/users/user-1/preferences", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/users/user-2/preferences", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PREFERENCES_NOT_FOUND", errorCode(t, w))

	w = serve(router, http.MethodGet, "/users/user-3/preferences", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPreferenceHandler_Update(t *testing.T) {
	service := new(MockPreferenceService)
	router := newPreferenceRouter(service)

	valid := &models.PreferencesUpdateRequest{
		Categories: []models.CategoryScore{{Category: "food", Score: 3}},
	}
	service.On("UpdatePreferences", mock.Anything, "user-1", valid).
		Return(&models.UserPreferences{UserID: "user-1", Categories: valid.Categories, UpdatedAt: time.Now()}, nil)
	service.On("UpdatePreferences", mock.Anything, "user-2", mock.Anything).
		Return(nil, fmt.Errorf("%w: score must be non-negative", services.ErrInvalidPreferences))

	w := serve(router, http.MethodPut, "/users/user-1/preferences", valid)
	require.Equal(t, http.StatusOK, w.Code)
	var prefs models.UserPreferences
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefs))
	assert.Equal(t, valid.Categories, prefs.Categories)

	w = serve(router, http.MethodPut, "/users/user-2/preferences", valid)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PREFERENCES", errorCode(t, w))

	w = serve(router, http.MethodPut, "/users/user-1/preferences", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandler_AnalyzePatterns(t *testing.T) {
	analyzer := new(MockPatternAnalyzer)
	handler := NewAdminHandler(testLogger(), analyzer)
	router := gin.New()
	router.POST("/admin/patterns/:userId/analyze", handler.AnalyzePatterns)

	analyzer.On("AnalyzePatterns", mock.Anything, "user-1").Return(&models.PurchasePatterns{FavoriteCategories: []string{"food"}}, nil)
	analyzer.On("AnalyzePatterns", mock.Anything, "user-2").Return(nil, nil)
	analyzer.On("AnalyzePatterns", mock.Anything, "user-3").Return(nil, errors.New("timeout"))

	w := serve(router, http.MethodPost, "/admin/patterns/user-1/analyze", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"updated"`)

	w = serve(router, http.MethodPost, "/admin/patterns/user-2/analyze", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"skipped"`)

	w = serve(router, http.MethodPost, "/admin/patterns/user-3/analyze", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandler_IssueToken(t *testing.T) {
	issuer := new(MockTokenIssuer)
	handler := NewAuthHandler(testLogger(), issuer)
	router := gin.New()
	router.POST("/auth/token", handler.IssueToken)

	issuer.On("IssueToken", mock.Anything, "good-key", "user-1").
		Return(&models.AuthResponse{Token: "jwt", Role: models.RoleBuyer}, nil)
	issuer.On("IssueToken", mock.Anything, "bad-key", "user-1").
		Return(nil, services.ErrInvalidAPIKey)

	w := serve(router, http.MethodPost, "/auth/token", models.AuthRequest{APIKey: "good-key", UserID: "user-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"jwt"`)

	w = serve(router, http.MethodPost, "/auth/token", models.AuthRequest{APIKey: "bad-key", UserID: "user-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, http.MethodPost, "/auth/token", models.AuthRequest{APIKey: "good-key"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthHandler_Check(t *testing.T) {
	tests := map[string]int{
		services.StatusHealthy:   http.StatusOK,
		services.StatusDegraded:  http.StatusOK,
		services.StatusUnhealthy: http.StatusServiceUnavailable,
	}

	for status, want := range tests {
		router := gin.New()
		router.GET("/health", NewHealthHandler(testLogger(), stubHealth{status: status}).Check)

		w := serve(router, http.MethodGet, "/health", nil)
		assert.Equal(t, want, w.Code, status)
	}
}
