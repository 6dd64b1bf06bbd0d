package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the personalization service's Prometheus collectors.
type Metrics struct {
	FeedLatency              prometheus.Histogram
	FeedRequests             *prometheus.CounterVec
	StoreFailures            *prometheus.CounterVec
	RecommendationsGenerated prometheus.Counter
	TrackedOutcomes          *prometheus.CounterVec
	PatternAnalyses          *prometheus.CounterVec
	OrdersIngested           *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FeedLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "revalue_feed_latency_seconds",
			Help:    "Personalized feed latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}),

		FeedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "revalue_feed_requests_total",
			Help: "Feed requests by personalization state",
		}, []string{"personalized"}),

		StoreFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "revalue_store_failures_total",
			Help: "Store operations that failed and were degraded",
		}, []string{"operation"}),

		RecommendationsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "revalue_recommendations_generated_total",
			Help: "Recommendations generated and persisted",
		}),

		TrackedOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "revalue_recommendation_outcomes_total",
			Help: "Tracked recommendation outcomes by action and result",
		}, []string{"action", "result"}),

		PatternAnalyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "revalue_pattern_analyses_total",
			Help: "Purchase pattern analyses by result",
		}, []string{"result"}),

		OrdersIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "revalue_orders_ingested_total",
			Help: "Completed orders applied to purchase history by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) storeFailure(operation string) {
	m.StoreFailures.WithLabelValues(operation).Inc()
}
