package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/coinpilot/internal/persistence"
)

type favoritesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewFavoritesRepo creates a favorites repository on db.
func NewFavoritesRepo(db *sqlx.DB, timeout time.Duration) persistence.FavoritesRepo {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &favoritesRepo{db: db, timeout: timeout}
}

type favoriteRow struct {
	UserID   string    `db:"user_id"`
	Symbol   string    `db:"symbol"`
	Source   string    `db:"source"`
	Snapshot string    `db:"snapshot"`
	AddedAt  time.Time `db:"added_at"`
}

func (r *favoritesRepo) Add(ctx context.Context, f persistence.Favorite) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snapshot, err := json.Marshal(f.Snapshot)
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if f.AddedAt.IsZero() {
		f.AddedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO favorites (user_id, symbol, source, snapshot, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, symbol) DO NOTHING`)

	res, err := r.db.ExecContext(ctx, query, f.UserID, f.Symbol, f.Source, string(snapshot), f.AddedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *favoritesRepo) Remove(ctx context.Context, userID, symbol string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.db.Rebind(`DELETE FROM favorites WHERE user_id = ? AND symbol = ?`)
	res, err := r.db.ExecContext(ctx, query, userID, symbol)
	if err != nil {
		return false, fmt.Errorf("failed to delete favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *favoritesRepo) List(ctx context.Context, userID string) ([]persistence.Favorite, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.db.Rebind(`
		SELECT user_id, symbol, source, snapshot, added_at
		FROM favorites
		WHERE user_id = ?
		ORDER BY added_at ASC, symbol ASC`)

	var rows []favoriteRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}

	out := make([]persistence.Favorite, 0, len(rows))
	for _, row := range rows {
		f := persistence.Favorite{
			UserID:  row.UserID,
			Symbol:  row.Symbol,
			Source:  row.Source,
			AddedAt: row.AddedAt,
		}
		if err := json.Unmarshal([]byte(row.Snapshot), &f.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot for %s: %w", row.Symbol, err)
		}
		out = append(out, f)
	}
	return out, nil
}
