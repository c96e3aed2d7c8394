package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

// ErrNotFound is returned when a keyed lookup has no row.
var ErrNotFound = errors.New("not found")

// Favorite sources.
const (
	SourceManual     = "manual"
	SourceAutoSearch = "auto-search"
)

// Favorite is a coin a user has pinned, with the candidate snapshot taken
// when it was added.
type Favorite struct {
	UserID   string         `json:"user_id" db:"user_id"`
	Symbol   string         `json:"symbol" db:"symbol"`
	Source   string         `json:"source" db:"source"`
	Snapshot coin.Candidate `json:"snapshot" db:"-"`
	AddedAt  time.Time      `json:"added_at" db:"added_at"`
}

// AutoBuySettings is a user's automatic purchase configuration.
type AutoBuySettings struct {
	UserID    string          `json:"user_id" db:"user_id"`
	Enabled   bool            `json:"enabled" db:"enabled"`
	Amount    decimal.Decimal `json:"amount_usdt" db:"amount_usdt"`
	MaxCoins  int             `json:"max_coins" db:"max_coins"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// FavoritesRepo stores favorites keyed by (user, symbol).
type FavoritesRepo interface {
	// Add inserts f and reports false when (user, symbol) already exists.
	Add(ctx context.Context, f Favorite) (bool, error)
	// Remove deletes a favorite and reports whether a row existed.
	Remove(ctx context.Context, userID, symbol string) (bool, error)
	// List returns a user's favorites, oldest first.
	List(ctx context.Context, userID string) ([]Favorite, error)
}

// SettingsRepo stores auto-buy settings keyed by user.
type SettingsRepo interface {
	Get(ctx context.Context, userID string) (AutoBuySettings, error)
	Upsert(ctx context.Context, s AutoBuySettings) error
}

// Repository aggregates all repository interfaces
type Repository struct {
	Favorites FavoritesRepo
	Settings  SettingsRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health checking for repositories
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
}
