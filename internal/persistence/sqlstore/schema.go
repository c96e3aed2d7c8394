// Package sqlstore implements the persistence repositories on sqlx. Queries
// are written with '?' placeholders and rebound per driver, so the same code
// runs against PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// modernc.org/sqlite registers as "sqlite", which sqlx does not know.
func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DefaultQueryTimeout applies when a repository is built with a zero timeout.
const DefaultQueryTimeout = 30 * time.Second

var schema = []string{
	`CREATE TABLE IF NOT EXISTS favorites (
		user_id  TEXT NOT NULL,
		symbol   TEXT NOT NULL,
		source   TEXT NOT NULL,
		snapshot TEXT NOT NULL,
		added_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS autobuy_settings (
		user_id     TEXT PRIMARY KEY,
		enabled     BOOLEAN NOT NULL DEFAULT FALSE,
		amount_usdt NUMERIC(20,8) NOT NULL DEFAULT 0,
		max_coins   INTEGER NOT NULL DEFAULT 5,
		updated_at  TIMESTAMP NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
