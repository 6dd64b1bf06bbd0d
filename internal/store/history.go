package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

const historyColumns = `user_id, category_stats, store_stats, time_stats, stats, updated_at`

type HistoryStore struct {
	db Querier
}

func NewHistoryStore(db Querier) *HistoryStore {
	return &HistoryStore{db: db}
}

// Get returns ErrNotFound when the user has never completed an order.
func (s *HistoryStore) Get(ctx context.Context, userID string) (*models.PurchaseHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM purchase_history WHERE user_id = $1`

	history, err := scanHistory(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query purchase history: %w", err)
	}
	return history, nil
}

// ListUserIDs returns every user with a purchase history document.
func (s *HistoryStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id FROM purchase_history ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history users: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}

// ApplyOrder runs mutate against the user's history inside a transaction and
// persists the result. Each order id is applied at most once; a replayed
// order returns applied == false without calling mutate.
func (s *HistoryStore) ApplyOrder(
	ctx context.Context,
	orderID, userID string,
	now time.Time,
	mutate func(*models.PurchaseHistory),
) (applied bool, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil || !applied {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		INSERT INTO processed_orders (order_id, user_id, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING`, orderID, userID, now)
	if err != nil {
		return false, fmt.Errorf("failed to record processed order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	history, err := scanHistory(tx.QueryRow(ctx,
		`SELECT `+historyColumns+` FROM purchase_history WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("failed to lock purchase history: %w", err)
		}
		history = models.NewPurchaseHistory(userID)
	}

	mutate(history)
	history.UpdatedAt = now

	categoryJSON, err := json.Marshal(history.CategoryStats)
	if err != nil {
		return false, err
	}
	storeJSON, err := json.Marshal(history.StoreStats)
	if err != nil {
		return false, err
	}
	timeJSON, err := json.Marshal(history.TimeStats)
	if err != nil {
		return false, err
	}
	statsJSON, err := json.Marshal(history.Stats)
	if err != nil {
		return false, err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO purchase_history (user_id, category_stats, store_stats, time_stats, stats, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			category_stats = EXCLUDED.category_stats,
			store_stats = EXCLUDED.store_stats,
			time_stats = EXCLUDED.time_stats,
			stats = EXCLUDED.stats,
			updated_at = EXCLUDED.updated_at`,
		userID, categoryJSON, storeJSON, timeJSON, statsJSON, now,
	); err != nil {
		return false, fmt.Errorf("failed to save purchase history: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit purchase history: %w", err)
	}

	return true, nil
}

func scanHistory(row pgx.Row) (*models.PurchaseHistory, error) {
	var (
		history                 models.PurchaseHistory
		categoryJSON, storeJSON []byte
		timeJSON, statsJSON     []byte
	)

	if err := row.Scan(&history.UserID, &categoryJSON, &storeJSON, &timeJSON, &statsJSON, &history.UpdatedAt); err != nil {
		return nil, err
	}

	if err := unmarshalOptional(categoryJSON, &history.CategoryStats); err != nil {
		return nil, fmt.Errorf("invalid category stats: %w", err)
	}
	if err := unmarshalOptional(storeJSON, &history.StoreStats); err != nil {
		return nil, fmt.Errorf("invalid store stats: %w", err)
	}
	if err := unmarshalOptional(timeJSON, &history.TimeStats); err != nil {
		return nil, fmt.Errorf("invalid time stats: %w", err)
	}
	if err := unmarshalOptional(statsJSON, &history.Stats); err != nil {
		return nil, fmt.Errorf("invalid stats: %w", err)
	}

	if history.CategoryStats == nil {
		history.CategoryStats = make(map[string]models.OrderStat)
	}
	if history.StoreStats == nil {
		history.StoreStats = make(map[string]models.OrderStat)
	}
	if history.TimeStats.Hourly == nil {
		history.TimeStats.Hourly = make(map[int]int)
	}

	return &history, nil
}
