package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

type RecommendationStore struct {
	db Querier
}

func NewRecommendationStore(db Querier) *RecommendationStore {
	return &RecommendationStore{db: db}
}

// InsertBatch persists recommendations in a single transaction.
func (s *RecommendationStore) InsertBatch(ctx context.Context, recs []models.AIRecommendation) (err error) {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `
		INSERT INTO ai_recommendations
			(id, user_id, type, score, reason, target_id, category, based_on, shown, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, rec := range recs {
		basedOnJSON, err := json.Marshal(rec.BasedOn)
		if err != nil {
			return err
		}

		if _, err = tx.Exec(ctx, query,
			rec.ID,
			rec.UserID,
			rec.Type,
			rec.Score,
			rec.Reason,
			rec.TargetID,
			rec.Category,
			basedOnJSON,
			rec.Shown,
			rec.CreatedAt,
			rec.ExpiresAt,
		); err != nil {
			return fmt.Errorf("failed to insert recommendation %s: %w", rec.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit recommendations: %w", err)
	}
	return nil
}

// ListActive returns the user's recommendations that have not expired at now,
// best score first.
func (s *RecommendationStore) ListActive(ctx context.Context, userID string, now time.Time, limit int) ([]models.AIRecommendation, error) {
	query := `
		SELECT id, user_id, type, score, reason, target_id, category, based_on,
			   shown, clicked_at, purchased_at, created_at, expires_at
		FROM ai_recommendations
		WHERE user_id = $1
			AND expires_at > $2
		ORDER BY created_at DESC, score DESC
		LIMIT $3`

	rows, err := s.db.Query(ctx, query, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]models.AIRecommendation, 0)
	for rows.Next() {
		var (
			rec         models.AIRecommendation
			basedOnJSON []byte
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Type,
			&rec.Score,
			&rec.Reason,
			&rec.TargetID,
			&rec.Category,
			&basedOnJSON,
			&rec.Shown,
			&rec.ClickedAt,
			&rec.PurchasedAt,
			&rec.CreatedAt,
			&rec.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		if err := unmarshalOptional(basedOnJSON, &rec.BasedOn); err != nil {
			return nil, fmt.Errorf("invalid based_on document: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recommendation rows failed: %w", err)
	}
	return recs, nil
}

// OutcomeTarget identifies whose recommendation an outcome was written to.
type OutcomeTarget struct {
	UserID   string
	TargetID string
}

// SetOutcome overwrites clicked_at or purchased_at with at. Earlier values
// are not checked. A non-empty ownerID restricts the write to that user's
// recommendation; someone else's id reports ErrNotFound.
func (s *RecommendationStore) SetOutcome(ctx context.Context, id uuid.UUID, ownerID string, action models.TrackAction, at time.Time) (*OutcomeTarget, error) {
	var column string
	switch action {
	case models.TrackActionClick:
		column = "clicked_at"
	case models.TrackActionPurchase:
		column = "purchased_at"
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}

	query := `UPDATE ai_recommendations SET ` + column + ` = $2 WHERE id = $1`
	args := []interface{}{id, at}
	if ownerID != "" {
		query += ` AND user_id = $3`
		args = append(args, ownerID)
	}
	query += ` RETURNING user_id, target_id`

	var target OutcomeTarget
	if err := s.db.QueryRow(ctx, query, args...).Scan(&target.UserID, &target.TargetID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to record %s outcome: %w", action, err)
	}
	return &target, nil
}
