package models

import (
	"time"

	"github.com/google/uuid"
)

const RecommendationTypeDeal = "deal"

type TrackAction string

const (
	TrackActionClick    TrackAction = "click"
	TrackActionPurchase TrackAction = "purchase"
)

func (a TrackAction) Valid() bool {
	return a == TrackActionClick || a == TrackActionPurchase
}

type BasedOn struct {
	PurchaseHistory bool `json:"purchase_history"`
	Preferences     bool `json:"preferences"`
}

// AIRecommendation is a generated recommendation and its observed outcome.
type AIRecommendation struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Type        string     `json:"type" db:"type"`
	Score       float64    `json:"score" db:"score"`
	Reason      string     `json:"reason" db:"reason"`
	TargetID    string     `json:"target_id" db:"target_id"`
	Category    string     `json:"category" db:"category"`
	BasedOn     BasedOn    `json:"based_on" db:"based_on"`
	Shown       bool       `json:"shown" db:"shown"`
	ClickedAt   *time.Time `json:"clicked_at,omitempty" db:"clicked_at"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty" db:"purchased_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
}

func (r *AIRecommendation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

type TrackRequest struct {
	Action TrackAction `json:"action" validate:"required,oneof=click purchase"`
}

type RecommendationOutcomeEvent struct {
	RecommendationID uuid.UUID   `json:"recommendation_id"`
	UserID           string      `json:"user_id"`
	TargetID         string      `json:"target_id"`
	Action           TrackAction `json:"action"`
	OccurredAt       time.Time   `json:"occurred_at"`
}

type RecommendationListResponse struct {
	UserID          string             `json:"user_id"`
	Recommendations []AIRecommendation `json:"recommendations"`
	GeneratedAt     time.Time          `json:"generated_at"`
}
