package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/config"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

var (
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrSessionNotFound = errors.New("session not found or expired")
)

const tokenIssuer = "revalue-personalization"

type AuthService struct {
	config      config.AuthConfig
	logger      *logrus.Logger
	redisClient *redis.Client
	jwtSecret   []byte
	now         func() time.Time
}

func NewAuthService(cfg config.AuthConfig, logger *logrus.Logger, redisClient *redis.Client) *AuthService {
	return &AuthService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		jwtSecret:   []byte(cfg.JWTSecret),
		now:         time.Now,
	}
}

// IssueToken exchanges an API key for a token scoped to userID. The key
// decides the role.
func (s *AuthService) IssueToken(ctx context.Context, apiKey, userID string) (*models.AuthResponse, error) {
	role, err := s.ValidateAPIKey(apiKey)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.config.TokenTTL)
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	// Store token in Redis for session management
	if err := s.redisClient.Set(ctx, sessionKey(userID), tokenString, s.config.TokenTTL).Err(); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to store session in Redis")
	}

	return &models.AuthResponse{
		Token:     tokenString,
		ExpiresAt: expiresAt,
		Role:      role,
	}, nil
}

// ValidateToken checks the signature and expiry, then the Redis session.
// An unreachable Redis does not reject an otherwise valid token.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token claims")
	}

	exists, err := s.redisClient.Exists(ctx, sessionKey(claims.UserID)).Result()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to check session in Redis")
	} else if exists == 0 {
		return nil, ErrSessionNotFound
	}

	return claims, nil
}

func (s *AuthService) RevokeToken(ctx context.Context, userID string) error {
	if err := s.redisClient.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// ValidateAPIKey returns the role configured for apiKey.
func (s *AuthService) ValidateAPIKey(apiKey string) (string, error) {
	role, ok := s.config.APIKeys[apiKey]
	if !ok || apiKey == "" {
		return "", ErrInvalidAPIKey
	}
	switch role {
	case models.RoleBuyer, models.RoleService:
		return role, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidAPIKey, role)
	}
}

func sessionKey(userID string) string {
	return "session:" + userID
}
