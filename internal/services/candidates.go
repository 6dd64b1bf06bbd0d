package services

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/ranking"
	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

const defaultCandidateLimit = 20

// CandidateFetcher reads the bounded set of active deals a feed is ranked from.
type CandidateFetcher struct {
	deals   DealReader
	limit   int
	logger  *logrus.Logger
	metrics *Metrics
}

func NewCandidateFetcher(deals DealReader, limit int, logger *logrus.Logger, metrics *Metrics) *CandidateFetcher {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	return &CandidateFetcher{
		deals:   deals,
		limit:   limit,
		logger:  logger,
		metrics: metrics,
	}
}

// FetchCandidates never fails: a read error yields an empty slice.
func (f *CandidateFetcher) FetchCandidates(ctx context.Context, filters ranking.Filters) []models.Deal {
	deals, err := f.deals.ListActive(ctx, store.CandidateQuery{
		MinDiscountRate: filters.MinDiscountRate,
		MaxPrice:        filters.MaxPrice,
		Limit:           f.limit,
	})
	if err != nil {
		f.logger.WithError(err).WithFields(logrus.Fields{
			"min_discount_rate": filters.MinDiscountRate,
			"price_bounded":     !math.IsInf(filters.MaxPrice, 1),
		}).Error("Failed to fetch candidate deals")
		f.metrics.storeFailure("fetch_candidates")
		return []models.Deal{}
	}
	return deals
}
