package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

const (
	contextUserID = "user_id"
	contextRole   = "role"
)

// TokenValidator is satisfied by services.AuthService.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error)
}

func Auth(validator TokenValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "MISSING_AUTHORIZATION", "Authorization header is required")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || scheme != "Bearer" || token == "" {
			abortWithError(c, http.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT", "Authorization header must be in format 'Bearer <token>'")
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.WithError(err).Warn("Invalid JWT token")
			abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextRole, claims.Role)
		c.Next()
	}
}

// RequireSelfOrService lets a buyer reach only their own :param routes.
// Service tokens may act for any user.
func RequireSelfOrService(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role := GetUserFromContext(c)
		if role == models.RoleService || (userID != "" && userID == c.Param(param)) {
			c.Next()
			return
		}
		abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Access to another user's data is not allowed")
	}
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, current := GetUserFromContext(c); current != role {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Insufficient role for this operation")
			return
		}
		c.Next()
	}
}

// GetUserFromContext returns the authenticated user id and role, or empty
// strings when the request was not authenticated.
func GetUserFromContext(c *gin.Context) (string, string) {
	return c.GetString(contextUserID), c.GetString(contextRole)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
