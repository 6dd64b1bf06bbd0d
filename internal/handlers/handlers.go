package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Auth           *AuthHandler
	Feed           *FeedHandler
	Recommendation *RecommendationHandler
	Preference     *PreferenceHandler
	Admin          *AdminHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Auth:           NewAuthHandler(logger, services.Auth),
		Feed:           NewFeedHandler(logger, services.Personalization),
		Recommendation: NewRecommendationHandler(logger, services.Personalization, services.Tracker),
		Preference:     NewPreferenceHandler(logger, services.Preferences),
		Admin:          NewAdminHandler(logger, services.PatternAnalyzer),
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func internalError(c *gin.Context, code, message string) {
	respondError(c, http.StatusInternalServerError, code, message)
}
