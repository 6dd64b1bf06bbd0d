package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seokjun4321/ReValue-sub000/internal/ranking"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 20, cfg.Recommendation.CandidateLimit)
	assert.Equal(t, 10, cfg.Recommendation.MaxGenerated)
	assert.Equal(t, 24*time.Hour, cfg.Recommendation.RecommendationTTL)
	assert.Equal(t, ranking.DefaultWeights(), cfg.Recommendation.Weights)
	assert.Equal(t, "orders-completed", cfg.Kafka.Topics.OrdersCompleted)
	assert.Equal(t, "orders-completed-dlq", cfg.Kafka.Topics.OrdersCompletedDLQ)
	assert.Equal(t, "recommendation-outcomes", cfg.Kafka.Topics.RecommendationOutcomes)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.PatternAnalysis)
	assert.Empty(t, cfg.Neo4j.URL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("RECOMMENDATION_CANDIDATE_LIMIT", "5")
	t.Setenv("RECOMMENDATION_WEIGHTS_STORE_HISTORY", "2.5")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Recommendation.CandidateLimit)
	assert.Equal(t, 2.5, cfg.Recommendation.Weights.StoreHistory)
	assert.Equal(t, "9000", cfg.Server.Port)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("RECOMMENDATION_CANDIDATE_LIMIT", "0")

	_, err := Load()
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Recommendation: RecommendationConfig{
			CandidateLimit:    20,
			MaxGenerated:      10,
			RecommendationTTL: 24 * time.Hour,
			Weights:           ranking.DefaultWeights(),
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			PatternAnalysis: "0 3 * * *",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"negative weight", func(c *Config) { c.Recommendation.Weights.Discount = -1 }, true},
		{"zero candidate limit", func(c *Config) { c.Recommendation.CandidateLimit = 0 }, true},
		{"zero max generated", func(c *Config) { c.Recommendation.MaxGenerated = 0 }, true},
		{"zero ttl", func(c *Config) { c.Recommendation.RecommendationTTL = 0 }, true},
		{"bad cron", func(c *Config) { c.Scheduler.PatternAnalysis = "every night" }, true},
		{"bad cron while disabled", func(c *Config) {
			c.Scheduler.Enabled = false
			c.Scheduler.PatternAnalysis = "every night"
		}, false},
		{"zero weights", func(c *Config) { c.Recommendation.Weights = ranking.Weights{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
