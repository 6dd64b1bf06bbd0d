package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/services"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

type TokenIssuer interface {
	IssueToken(ctx context.Context, apiKey, userID string) (*models.AuthResponse, error)
}

type AuthHandler struct {
	logger    *logrus.Logger
	issuer    TokenIssuer
	validator *validator.Validate
}

func NewAuthHandler(logger *logrus.Logger, issuer TokenIssuer) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		issuer:    issuer,
		validator: validator.New(),
	}
}

// IssueToken exchanges an API key for a user-scoped bearer token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.issuer.IssueToken(c.Request.Context(), req.APIKey, req.UserID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAPIKey) {
			respondError(c, http.StatusUnauthorized, "INVALID_API_KEY", "Invalid API key")
			return
		}
		h.logger.WithError(err).Error("Failed to issue token")
		internalError(c, "TOKEN_ISSUE_FAILED", "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, resp)
}
