package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleBuyer   = "buyer"
	RoleService = "service"
)

type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"` // buyer, service
	jwt.RegisteredClaims
}

type AuthRequest struct {
	APIKey string `json:"api_key" validate:"required"`
	UserID string `json:"user_id" validate:"required,max=128"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}
