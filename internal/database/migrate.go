package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schema string

// Execer is satisfied by *pgxpool.Pool and pgxmock pools.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Migrate creates the personalization tables and indexes if they are missing.
// Every statement is idempotent.
func Migrate(ctx context.Context, db Execer, logger *logrus.Logger) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("Database schema is up to date")
	return nil
}
