package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/services"
)

type FeedHandler struct {
	logger      *logrus.Logger
	feedService services.FeedServiceInterface
}

func NewFeedHandler(logger *logrus.Logger, feedService services.FeedServiceInterface) *FeedHandler {
	return &FeedHandler{
		logger:      logger,
		feedService: feedService,
	}
}

// Get returns the user's personalized feed. It always answers 200; a user
// with no data gets deals ordered by discount.
func (h *FeedHandler) Get(c *gin.Context) {
	userID := c.Param("userId")
	feed := h.feedService.GetFeed(c.Request.Context(), userID, queryLimit(c))
	c.JSON(http.StatusOK, feed)
}

// queryLimit returns the positive ?limit value, or 0 for no limit.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
