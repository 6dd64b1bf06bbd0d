package store

import (
	"context"
	"fmt"
	"math"

	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// CandidateQuery holds the hard filters for active deals. An infinite
// MaxPrice means no price bound.
type CandidateQuery struct {
	MinDiscountRate float64
	MaxPrice        float64
	Limit           int
}

type DealStore struct {
	db Querier
}

func NewDealStore(db Querier) *DealStore {
	return &DealStore{db: db}
}

// ListActive returns active deals matching q, highest discount first.
func (s *DealStore) ListActive(ctx context.Context, q CandidateQuery) ([]models.Deal, error) {
	query := `
		SELECT id, title, category, discount_rate, original_price, discounted_price,
			   store_id, latitude, longitude, status, created_at
		FROM deals
		WHERE status = $1
			AND discount_rate >= $2`

	args := []interface{}{string(models.DealStatusActive), q.MinDiscountRate}

	if !math.IsInf(q.MaxPrice, 1) {
		args = append(args, q.MaxPrice)
		query += fmt.Sprintf(" AND discounted_price <= $%d", len(args))
	}

	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY discount_rate DESC, id LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate query failed: %w", err)
	}
	defer rows.Close()

	deals := make([]models.Deal, 0, q.Limit)
	for rows.Next() {
		var (
			deal      models.Deal
			status    string
			latitude  *float64
			longitude *float64
		)
		if err := rows.Scan(
			&deal.ID,
			&deal.Title,
			&deal.Category,
			&deal.DiscountRate,
			&deal.OriginalPrice,
			&deal.DiscountedPrice,
			&deal.StoreID,
			&latitude,
			&longitude,
			&status,
			&deal.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}

		deal.Status = models.DealStatus(status)
		if latitude != nil && longitude != nil {
			deal.Location = &models.GeoPoint{Latitude: *latitude, Longitude: *longitude}
		}
		deals = append(deals, deal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("candidate rows failed: %w", err)
	}

	return deals, nil
}
