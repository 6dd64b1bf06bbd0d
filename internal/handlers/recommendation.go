package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/middleware"
	"github.com/seokjun4321/ReValue-sub000/internal/services"
	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

type RecommendationHandler struct {
	logger      *logrus.Logger
	feedService services.FeedServiceInterface
	tracker     services.TrackerInterface
}

func NewRecommendationHandler(
	logger *logrus.Logger,
	feedService services.FeedServiceInterface,
	tracker services.TrackerInterface,
) *RecommendationHandler {
	return &RecommendationHandler{
		logger:      logger,
		feedService: feedService,
		tracker:     tracker,
	}
}

func (h *RecommendationHandler) Generate(c *gin.Context) {
	userID := c.Param("userId")
	recs := h.feedService.GenerateRecommendations(c.Request.Context(), userID)

	c.JSON(http.StatusCreated, models.RecommendationListResponse{
		UserID:          userID,
		Recommendations: recs,
		GeneratedAt:     time.Now().UTC(),
	})
}

func (h *RecommendationHandler) List(c *gin.Context) {
	userID := c.Param("userId")
	recs, err := h.feedService.ActiveRecommendations(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to list recommendations")
		internalError(c, "RECOMMENDATION_LIST_FAILED", "Failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []models.AIRecommendation{}
	}

	c.JSON(http.StatusOK, models.RecommendationListResponse{
		UserID:          userID,
		Recommendations: recs,
		GeneratedAt:     time.Now().UTC(),
	})
}

// Track records a click or purchase. Buyers may only track their own
// recommendations; anything else is reported as not found. Tracking is
// otherwise best effort, so the response is 202 even when the store write
// failed.
func (h *RecommendationHandler) Track(c *gin.Context) {
	recommendationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_RECOMMENDATION_ID", "Invalid recommendation ID format")
		return
	}

	var req models.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Action.Valid() {
		respondError(c, http.StatusBadRequest, "INVALID_ACTION", "Action must be one of: click, purchase")
		return
	}

	userID, role := middleware.GetUserFromContext(c)
	if role == models.RoleService {
		h.tracker.TrackRecommendation(c.Request.Context(), recommendationID, req.Action)
	} else if err := h.tracker.TrackUserRecommendation(c.Request.Context(), userID, recommendationID, req.Action); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "RECOMMENDATION_NOT_FOUND", "Recommendation not found")
			return
		}
		internalError(c, "TRACKING_FAILED", "Failed to track recommendation")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":            "accepted",
		"recommendation_id": recommendationID,
		"action":            req.Action,
	})
}
