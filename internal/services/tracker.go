package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// Tracker stamps click and purchase times onto stored recommendations.
// Tracking is best effort: failures are logged and never returned.
type Tracker struct {
	recommendations RecommendationRepository
	sinks           []OutcomeSink
	logger          *logrus.Logger
	metrics         *Metrics
	now             func() time.Time
}

func NewTracker(recommendations RecommendationRepository, logger *logrus.Logger, metrics *Metrics, sinks ...OutcomeSink) *Tracker {
	return &Tracker{
		recommendations: recommendations,
		sinks:           sinks,
		logger:          logger,
		metrics:         metrics,
		now:             time.Now,
	}
}

// TrackRecommendation overwrites clicked_at or purchased_at with the current
// time, then forwards the outcome to every sink.
func (t *Tracker) TrackRecommendation(ctx context.Context, recommendationID uuid.UUID, action models.TrackAction) {
	_ = t.track(ctx, "", recommendationID, action)
}

// TrackUserRecommendation is TrackRecommendation limited to userID's own
// recommendations. It returns store.ErrNotFound when no such recommendation
// exists for the user; every other failure is logged and swallowed.
func (t *Tracker) TrackUserRecommendation(ctx context.Context, userID string, recommendationID uuid.UUID, action models.TrackAction) error {
	if userID == "" {
		return store.ErrNotFound
	}
	return t.track(ctx, userID, recommendationID, action)
}

func (t *Tracker) track(ctx context.Context, ownerID string, recommendationID uuid.UUID, action models.TrackAction) error {
	fields := logrus.Fields{
		"recommendation_id": recommendationID,
		"action":            action,
	}
	if ownerID != "" {
		fields["user_id"] = ownerID
	}

	if !action.Valid() {
		t.logger.WithFields(fields).Warn("Ignoring unknown tracking action")
		t.metrics.TrackedOutcomes.WithLabelValues(string(action), "invalid").Inc()
		return nil
	}

	at := t.now()
	target, err := t.recommendations.SetOutcome(ctx, recommendationID, ownerID, action, at)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			t.logger.WithFields(fields).Warn("Tracked recommendation does not exist")
			t.metrics.TrackedOutcomes.WithLabelValues(string(action), "not_found").Inc()
			return store.ErrNotFound
		}
		t.logger.WithError(err).WithFields(fields).Error("Failed to record recommendation outcome")
		t.metrics.TrackedOutcomes.WithLabelValues(string(action), "error").Inc()
		t.metrics.storeFailure("track_outcome")
		return nil
	}
	t.metrics.TrackedOutcomes.WithLabelValues(string(action), "recorded").Inc()

	event := models.RecommendationOutcomeEvent{
		RecommendationID: recommendationID,
		UserID:           target.UserID,
		TargetID:         target.TargetID,
		Action:           action,
		OccurredAt:       at,
	}
	for _, sink := range t.sinks {
		if err := sink.RecordOutcome(ctx, event); err != nil {
			t.logger.WithError(err).WithFields(fields).Warn("Failed to forward recommendation outcome")
		}
	}
	return nil
}
