package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/services"
)

type AdminHandler struct {
	logger   *logrus.Logger
	analyzer services.PatternAnalyzerInterface
}

func NewAdminHandler(logger *logrus.Logger, analyzer services.PatternAnalyzerInterface) *AdminHandler {
	return &AdminHandler{
		logger:   logger,
		analyzer: analyzer,
	}
}

// AnalyzePatterns recomputes one user's purchase patterns on demand.
func (h *AdminHandler) AnalyzePatterns(c *gin.Context) {
	userID := c.Param("userId")

	patterns, err := h.analyzer.AnalyzePatterns(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Pattern analysis failed")
		internalError(c, "PATTERN_ANALYSIS_FAILED", "Failed to analyze purchase patterns")
		return
	}
	if patterns == nil {
		c.JSON(http.StatusOK, gin.H{
			"user_id": userID,
			"status":  "skipped",
			"reason":  "user has no purchase history or preferences",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"status":   "updated",
		"patterns": patterns,
	})
}
