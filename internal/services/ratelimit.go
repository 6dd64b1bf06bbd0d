package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/config"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// RateLimitService keeps a sliding window of request timestamps per user in
// a Redis sorted set.
type RateLimitService struct {
	config      config.RateLimitConfig
	logger      *logrus.Logger
	redisClient *redis.Client
	now         func() time.Time
}

func NewRateLimitService(cfg config.RateLimitConfig, logger *logrus.Logger, redisClient *redis.Client) *RateLimitService {
	return &RateLimitService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		now:         time.Now,
	}
}

// CheckLimit records one request and reports what is left in the window.
// When Redis is down the request is allowed.
func (s *RateLimitService) CheckLimit(ctx context.Context, userID, role string) *models.RateLimitInfo {
	limit := s.LimitForRole(role)
	window := s.config.Window

	key := fmt.Sprintf("rate_limit:user:%s", userID)
	now := s.now()
	windowStart := now.Add(-window)
	resetTime := now.Add(window).Unix()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipe := s.redisClient.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to execute rate limit pipeline")
		return &models.RateLimitInfo{
			Limit:     limit,
			Remaining: limit - 1,
			ResetTime: resetTime,
		}
	}

	// The count excludes the request just added.
	remaining := limit - int(countCmd.Val()) - 1
	if remaining < -1 {
		remaining = -1
	}

	return &models.RateLimitInfo{
		Limit:     limit,
		Remaining: remaining,
		ResetTime: resetTime,
	}
}

// IsAllowed reports whether the request fits in the window. The returned
// info never shows a negative remaining count.
func (s *RateLimitService) IsAllowed(ctx context.Context, userID, role string) (bool, *models.RateLimitInfo) {
	info := s.CheckLimit(ctx, userID, role)
	allowed := info.Remaining >= 0
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	return allowed, info
}

func (s *RateLimitService) LimitForRole(role string) int {
	if role == models.RoleService {
		return s.config.Service
	}
	return s.config.Default
}
