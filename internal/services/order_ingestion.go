package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/messaging"
	"github.com/seokjun4321/ReValue-sub000/internal/ranking"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

// OrderIngestionService folds completed orders into purchase history. It is
// the handler behind the orders-completed consumer.
type OrderIngestionService struct {
	history HistoryRepository
	logger  *logrus.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewOrderIngestionService(history HistoryRepository, logger *logrus.Logger, metrics *Metrics) *OrderIngestionService {
	return &OrderIngestionService{
		history: history,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// HandleOrderCompleted applies one order. Replays of an already applied
// order are no-ops. Events that can never be applied are reported as
// messaging.ErrPoisonMessage so the consumer does not retry them.
func (s *OrderIngestionService) HandleOrderCompleted(ctx context.Context, event models.OrderCompletedEvent) error {
	if err := validateOrderEvent(event); err != nil {
		s.metrics.OrdersIngested.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: %v", messaging.ErrPoisonMessage, err)
	}

	event.Category = ranking.NormalizeCategory(event.Category)

	applied, err := s.history.ApplyOrder(ctx, event.OrderID, event.UserID, s.now(), func(h *models.PurchaseHistory) {
		applyOrder(h, event)
	})
	if err != nil {
		s.metrics.OrdersIngested.WithLabelValues("error").Inc()
		s.metrics.storeFailure("apply_order")
		return fmt.Errorf("failed to apply order %s: %w", event.OrderID, err)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"order_id": event.OrderID,
		"user_id":  event.UserID,
	})
	if !applied {
		s.metrics.OrdersIngested.WithLabelValues("duplicate").Inc()
		logger.Debug("Order already applied, skipping")
		return nil
	}

	s.metrics.OrdersIngested.WithLabelValues("applied").Inc()
	logger.WithField("category", event.Category).Debug("Order applied to purchase history")
	return nil
}

func validateOrderEvent(event models.OrderCompletedEvent) error {
	switch {
	case event.OrderID == "":
		return errors.New("order_id is required")
	case event.UserID == "":
		return errors.New("user_id is required")
	case event.StoreID == "":
		return errors.New("store_id is required")
	case ranking.NormalizeCategory(event.Category) == "":
		return errors.New("category is required")
	case event.Amount < 0:
		return errors.New("amount must be non-negative")
	case event.CompletedAt.IsZero():
		return errors.New("completed_at is required")
	}
	return nil
}

// applyOrder adds one order to every aggregate. The hourly bucket uses the
// hour in the offset the event was stamped with.
func applyOrder(h *models.PurchaseHistory, event models.OrderCompletedEvent) {
	if h.CategoryStats == nil {
		h.CategoryStats = make(map[string]models.OrderStat)
	}
	if h.StoreStats == nil {
		h.StoreStats = make(map[string]models.OrderStat)
	}
	if h.TimeStats.Hourly == nil {
		h.TimeStats.Hourly = make(map[int]int)
	}

	h.CategoryStats[event.Category] = addOrder(h.CategoryStats[event.Category], event)
	h.StoreStats[event.StoreID] = addOrder(h.StoreStats[event.StoreID], event)
	h.TimeStats.Hourly[event.CompletedAt.Hour()]++

	h.Stats.TotalOrders++
	h.Stats.TotalSpent += event.Amount
	h.Stats.AverageOrderValue = h.Stats.TotalSpent / float64(h.Stats.TotalOrders)
}

func addOrder(stat models.OrderStat, event models.OrderCompletedEvent) models.OrderStat {
	stat.OrderCount++
	stat.TotalSpent += event.Amount
	if stat.LastOrderAt == nil || event.CompletedAt.After(*stat.LastOrderAt) {
		at := event.CompletedAt
		stat.LastOrderAt = &at
	}
	return stat
}
