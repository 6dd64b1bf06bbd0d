package services

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/database"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthService struct {
	logger      *logrus.Logger
	critical    map[string]HealthCheck
	nonCritical map[string]HealthCheck
	timeout     time.Duration
	consumer    func() map[string]interface{}

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
	systemMetrics     *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
	Latency     time.Duration     `json:"latency,omitempty"`

	Consumer map[string]interface{} `json:"order_consumer,omitempty"`
}

// NewHealthService checks PostgreSQL and Redis as critical dependencies and
// Neo4j, when configured, as non-critical.
func NewHealthService(logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) *HealthService {
	critical := map[string]HealthCheck{
		"postgresql": func(ctx context.Context) error { return db.PG.Ping(ctx) },
		"redis":      func(ctx context.Context) error { return db.Redis.Ping(ctx).Err() },
	}
	nonCritical := map[string]HealthCheck{}
	if db.Neo4j != nil {
		nonCritical["neo4j"] = db.Neo4j.VerifyConnectivity
	}
	return newHealthService(logger, critical, nonCritical, reg)
}

func newHealthService(logger *logrus.Logger, critical, nonCritical map[string]HealthCheck, reg prometheus.Registerer) *HealthService {
	factory := promauto.With(reg)

	return &HealthService{
		logger:      logger,
		critical:    critical,
		nonCritical: nonCritical,
		timeout:     5 * time.Second,

		healthCheckStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "health_check_status",
			Help: "Health check status (1 = healthy, 0 = unhealthy)",
		}, []string{"service"}),

		lastHealthCheck: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "health_check_timestamp",
			Help: "Timestamp of last health check",
		}, []string{"service"}),

		systemMetrics: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "system_info",
			Help: "System information metrics",
		}, []string{"metric_type"}),
	}
}

// SetConsumerStats adds the order consumer's statistics (lag, offset,
// errors) to every health report.
func (s *HealthService) SetConsumerStats(stats func() map[string]interface{}) {
	s.consumer = stats
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		Timestamp: start,
		Services:  make(map[string]string),
	}

	status.Critical = s.runChecks(ctx, s.critical, status.Services, logrus.ErrorLevel)
	status.NonCritical = s.runChecks(ctx, s.nonCritical, status.Services, logrus.WarnLevel)

	switch {
	case len(status.Critical) > 0:
		status.Status = StatusUnhealthy
	case len(status.NonCritical) > 0:
		status.Status = StatusDegraded
	default:
		status.Status = StatusHealthy
	}

	if s.consumer != nil {
		status.Consumer = s.consumer()
	}

	status.Latency = time.Since(start)
	return status
}

// runChecks returns the sorted names of the checks that failed.
func (s *HealthService) runChecks(ctx context.Context, checks map[string]HealthCheck, results map[string]string, level logrus.Level) []string {
	var failed []string
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := check(checkCtx)
		cancel()

		if err != nil {
			results[name] = StatusUnhealthy
			failed = append(failed, name)
			s.logger.WithError(err).WithField("service", name).Log(level, "Dependency is unhealthy")
			s.UpdateHealthMetrics(name, false)
			continue
		}
		results[name] = StatusHealthy
		s.UpdateHealthMetrics(name, true)
	}
	sort.Strings(failed)
	return failed
}

// CollectSystemMetrics samples runtime statistics until ctx is cancelled.
func (s *HealthService) CollectSystemMetrics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var memStats runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runtime.ReadMemStats(&memStats)
			s.systemMetrics.WithLabelValues("memory_alloc_bytes").Set(float64(memStats.Alloc))
			s.systemMetrics.WithLabelValues("memory_sys_bytes").Set(float64(memStats.Sys))
			s.systemMetrics.WithLabelValues("goroutines_count").Set(float64(runtime.NumGoroutine()))
			s.systemMetrics.WithLabelValues("gc_runs_total").Set(float64(memStats.NumGC))
		}
	}
}

func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
