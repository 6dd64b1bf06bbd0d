package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/services"
)

type HealthChecker interface {
	CheckHealth(ctx context.Context) *services.HealthStatus
}

type HealthHandler struct {
	logger        *logrus.Logger
	healthService HealthChecker
}

func NewHealthHandler(logger *logrus.Logger, healthService HealthChecker) *HealthHandler {
	return &HealthHandler{
		logger:        logger,
		healthService: healthService,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := h.healthService.CheckHealth(c.Request.Context())

	var httpStatus int
	switch status.Status {
	case services.StatusHealthy, services.StatusDegraded:
		httpStatus = http.StatusOK
	case services.StatusUnhealthy:
		httpStatus = http.StatusServiceUnavailable
	default:
		httpStatus = http.StatusInternalServerError
	}

	c.JSON(httpStatus, status)
}
