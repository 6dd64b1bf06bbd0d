package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/services"
	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

type PreferenceHandler struct {
	logger            *logrus.Logger
	preferenceService services.PreferenceServiceInterface
}

func NewPreferenceHandler(logger *logrus.Logger, preferenceService services.PreferenceServiceInterface) *PreferenceHandler {
	return &PreferenceHandler{
		logger:            logger,
		preferenceService: preferenceService,
	}
}

func (h *PreferenceHandler) Get(c *gin.Context) {
	userID := c.Param("userId")

	prefs, err := h.preferenceService.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "PREFERENCES_NOT_FOUND", "User has no saved preferences")
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to get preferences")
		internalError(c, "PREFERENCES_READ_FAILED", "Failed to read preferences")
		return
	}

	c.JSON(http.StatusOK, prefs)
}

func (h *PreferenceHandler) Update(c *gin.Context) {
	userID := c.Param("userId")

	var req models.PreferencesUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}

	prefs, err := h.preferenceService.UpdatePreferences(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPreferences) {
			respondError(c, http.StatusBadRequest, "INVALID_PREFERENCES", err.Error())
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to update preferences")
		internalError(c, "PREFERENCES_UPDATE_FAILED", "Failed to update preferences")
		return
	}

	c.JSON(http.StatusOK, prefs)
}
