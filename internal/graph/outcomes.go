// Package graph mirrors recommendation outcomes into the Neo4j interaction
// graph for offline analysis.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// OutcomeRecorder merges (:User)-[:CLICKED|PURCHASED]->(:Deal) edges. A
// recorder without a driver accepts and drops every outcome.
type OutcomeRecorder struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewOutcomeRecorder(driver neo4j.DriverWithContext, logger *logrus.Logger) *OutcomeRecorder {
	return &OutcomeRecorder{
		driver: driver,
		logger: logger,
	}
}

func (r *OutcomeRecorder) RecordOutcome(ctx context.Context, event models.RecommendationOutcomeEvent) error {
	if r == nil || r.driver == nil {
		return nil
	}

	cypher, err := outcomeCypher(event.Action)
	if err != nil {
		return err
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, cypher, outcomeParams(event))
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to record %s edge: %w", event.Action, err)
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":           event.UserID,
		"deal_id":           event.TargetID,
		"recommendation_id": event.RecommendationID,
		"action":            event.Action,
	}).Debug("Outcome mirrored to interaction graph")

	return nil
}

func outcomeCypher(action models.TrackAction) (string, error) {
	var relationship string
	switch action {
	case models.TrackActionClick:
		relationship = "CLICKED"
	case models.TrackActionPurchase:
		relationship = "PURCHASED"
	default:
		return "", fmt.Errorf("unknown action %q", action)
	}

	return `
		MERGE (u:User {id: $user_id})
		MERGE (d:Deal {id: $deal_id})
		MERGE (u)-[r:` + relationship + ` {recommendation_id: $recommendation_id}]->(d)
		SET r.at = $at`, nil
}

func outcomeParams(event models.RecommendationOutcomeEvent) map[string]interface{} {
	return map[string]interface{}{
		"user_id":           event.UserID,
		"deal_id":           event.TargetID,
		"recommendation_id": event.RecommendationID.String(),
		"at":                event.OccurredAt,
	}
}
