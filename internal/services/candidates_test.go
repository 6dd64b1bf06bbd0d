package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/seokjun4321/ReValue-sub000/internal/ranking"
	"github.com/seokjun4321/ReValue-sub000/internal/store"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

func TestFetchCandidates(t *testing.T) {
	deals := new(MockDealReader)
	fetcher := NewCandidateFetcher(deals, 0, testLogger(), testMetrics())

	want := []models.Deal{{ID: "A"}}
	deals.On("ListActive", mock.Anything, store.CandidateQuery{
		MinDiscountRate: 20,
		MaxPrice:        math.Inf(1),
		Limit:           defaultCandidateLimit,
	}).Return(want, nil)

	got := fetcher.FetchCandidates(context.Background(), ranking.Filters{MinDiscountRate: 20, MaxPrice: math.Inf(1)})
	assert.Equal(t, want, got)
}

func TestFetchCandidates_ErrorYieldsEmpty(t *testing.T) {
	deals := new(MockDealReader)
	fetcher := NewCandidateFetcher(deals, 5, testLogger(), testMetrics())

	deals.On("ListActive", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	got := fetcher.FetchCandidates(context.Background(), ranking.Filters{MaxPrice: 1000})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
