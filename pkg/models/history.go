package models

import "time"

type OrderStat struct {
	OrderCount  int        `json:"order_count"`
	TotalSpent  float64    `json:"total_spent"`
	LastOrderAt *time.Time `json:"last_order_at,omitempty"`
}

type TimeStats struct {
	Hourly map[int]int `json:"hourly"`
}

type HistoryStats struct {
	TotalOrders       int     `json:"total_orders"`
	TotalSpent        float64 `json:"total_spent"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// PurchaseHistory aggregates a buyer's completed orders. All counts are non-negative.
type PurchaseHistory struct {
	UserID        string               `json:"user_id" db:"user_id"`
	CategoryStats map[string]OrderStat `json:"category_stats" db:"category_stats"`
	StoreStats    map[string]OrderStat `json:"store_stats" db:"store_stats"`
	TimeStats     TimeStats            `json:"time_stats" db:"time_stats"`
	Stats         HistoryStats         `json:"stats" db:"stats"`
	UpdatedAt     time.Time            `json:"updated_at" db:"updated_at"`
}

func NewPurchaseHistory(userID string) *PurchaseHistory {
	return &PurchaseHistory{
		UserID:        userID,
		CategoryStats: make(map[string]OrderStat),
		StoreStats:    make(map[string]OrderStat),
		TimeStats:     TimeStats{Hourly: make(map[int]int)},
	}
}

func (h *PurchaseHistory) CategoryOrders(category string) int {
	if h == nil {
		return 0
	}
	return h.CategoryStats[category].OrderCount
}

func (h *PurchaseHistory) StoreOrders(storeID string) int {
	if h == nil {
		return 0
	}
	return h.StoreStats[storeID].OrderCount
}

// OrderCompletedEvent is published by the order service when a buyer's order completes.
type OrderCompletedEvent struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	StoreID     string    `json:"store_id"`
	DealID      string    `json:"deal_id"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	CompletedAt time.Time `json:"completed_at"`
}
