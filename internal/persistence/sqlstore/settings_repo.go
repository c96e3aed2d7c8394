package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/coinpilot/internal/persistence"
)

type settingsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSettingsRepo creates an auto-buy settings repository on db.
func NewSettingsRepo(db *sqlx.DB, timeout time.Duration) persistence.SettingsRepo {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &settingsRepo{db: db, timeout: timeout}
}

func (r *settingsRepo) Get(ctx context.Context, userID string) (persistence.AutoBuySettings, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.db.Rebind(`
		SELECT user_id, enabled, amount_usdt, max_coins, updated_at
		FROM autobuy_settings
		WHERE user_id = ?`)

	var s persistence.AutoBuySettings
	if err := r.db.GetContext(ctx, &s, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.AutoBuySettings{}, persistence.ErrNotFound
		}
		return persistence.AutoBuySettings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	return s, nil
}

func (r *settingsRepo) Upsert(ctx context.Context, s persistence.AutoBuySettings) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO autobuy_settings (user_id, enabled, amount_usdt, max_coins, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = excluded.enabled,
			amount_usdt = excluded.amount_usdt,
			max_coins = excluded.max_coins,
			updated_at = excluded.updated_at`)

	if _, err := r.db.ExecContext(ctx, query, s.UserID, s.Enabled, s.Amount.String(), s.MaxCoins, s.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}
