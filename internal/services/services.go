package services

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/config"
	"github.com/seokjun4321/ReValue-sub000/internal/database"
	"github.com/seokjun4321/ReValue-sub000/internal/graph"
	"github.com/seokjun4321/ReValue-sub000/internal/messaging"
	"github.com/seokjun4321/ReValue-sub000/internal/ranking"
	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/internal/validation"
)

type Services struct {
	Auth            *AuthService
	Health          *HealthService
	RateLimit       *RateLimitService
	MessageBus      *messaging.MessageBus
	Validator       *validation.SchemaValidator
	Personalization *PersonalizationService
	Preferences     *PreferenceService
	Tracker         *Tracker
	PatternAnalyzer *PatternAnalyzer
	OrderIngestion  *OrderIngestionService
	Metrics         *Metrics
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) (*Services, error) {
	metrics := NewMetrics(reg)

	validator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load JSON schemas: %w", err)
	}

	messageBus, err := messaging.NewMessageBus(cfg, logger)
	if err != nil {
		return nil, err
	}
	messageBus.SetValidator(func(raw []byte) error {
		return validator.Validate(validation.SchemaOrderCompleted, raw).Err()
	})

	dealStore := store.NewDealStore(db.PG)
	preferenceStore := store.NewPreferenceStore(db.PG)
	historyStore := store.NewHistoryStore(db.PG)
	recommendationStore := store.NewRecommendationStore(db.PG)

	loader := NewPreferenceLoader(preferenceStore, historyStore)
	fetcher := NewCandidateFetcher(dealStore, cfg.Recommendation.CandidateLimit, logger, metrics)
	engine := ranking.NewEngine(cfg.Recommendation.Weights)

	sinks := []OutcomeSink{messageBus}
	if db.Neo4j != nil {
		sinks = append(sinks, graph.NewOutcomeRecorder(db.Neo4j, logger))
	}

	health := NewHealthService(logger, db, reg)
	health.SetConsumerStats(messageBus.GetMetrics)

	return &Services{
		Auth:      NewAuthService(cfg.Auth, logger, db.Redis),
		Health:    health,
		RateLimit: NewRateLimitService(cfg.Auth.RateLimit, logger, db.Redis),

		MessageBus: messageBus,
		Validator:  validator,

		Personalization: NewPersonalizationService(
			cfg.Recommendation, loader, preferenceStore, fetcher, engine, recommendationStore, logger, metrics,
		),
		Preferences:     NewPreferenceService(preferenceStore, logger, metrics),
		Tracker:         NewTracker(recommendationStore, logger, metrics, sinks...),
		PatternAnalyzer: NewPatternAnalyzer(loader, preferenceStore, historyStore, logger, metrics),
		OrderIngestion:  NewOrderIngestionService(historyStore, logger, metrics),
		Metrics:         metrics,
	}, nil
}
