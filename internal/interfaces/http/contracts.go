package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/coinpilot/internal/application/autobuy"
	"github.com/sawpanic/coinpilot/internal/application/pipeline"
	"github.com/sawpanic/coinpilot/internal/domain/coin"
	"github.com/sawpanic/coinpilot/internal/gates"
	"github.com/sawpanic/coinpilot/internal/persistence"
	"github.com/sawpanic/coinpilot/internal/safety"
	"github.com/sawpanic/coinpilot/internal/scoring"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports service and database health.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Database  *persistence.HealthCheck `json:"database,omitempty"`
}

// ScoreRequest scores a caller-supplied pool. Zero-valued options fall back
// to the server's scan configuration.
type ScoreRequest struct {
	Candidates []coin.Suggestion   `json:"candidates"`
	Filter     *gates.FilterConfig `json:"filter,omitempty"`
	AmountUSDT decimal.Decimal     `json:"amount_usdt"`
	CoinCount  int                 `json:"coin_count,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
}

// ScoreResponse is the scoring result with the factor breakdown of each pick.
type ScoreResponse struct {
	*pipeline.Result
	Breakdowns []scoring.Breakdown `json:"breakdowns"`
}

// VerifyResponse combines the quick check with the registry answer.
type VerifyResponse struct {
	Symbol string                `json:"symbol"`
	Quick  safety.QuickResult    `json:"quick"`
	Result safety.RegistryResult `json:"result"`
}

// FavoriteRequest pins a coin. The candidate fields follow the suggestion format.
type FavoriteRequest struct {
	coin.Suggestion
	Source string `json:"source,omitempty"`
}

// FavoriteResponse reports whether a new favorite was stored.
type FavoriteResponse struct {
	Symbol string `json:"symbol"`
	Added  bool   `json:"added"`
}

// FavoritesResponse lists a user's ranked favorites.
type FavoritesResponse struct {
	UserID    string                   `json:"user_id"`
	Favorites []scoring.RankedFavorite `json:"favorites"`
}

// AutoBuyRequest replaces a user's auto-buy settings.
type AutoBuyRequest struct {
	Enabled    bool            `json:"enabled"`
	AmountUSDT decimal.Decimal `json:"amount_usdt"`
	MaxCoins   int             `json:"max_coins,omitempty"`
}

// AutoBuyRunRequest evaluates a pool through the dual-advisory gate.
type AutoBuyRunRequest struct {
	Candidates []coin.Suggestion `json:"candidates"`
}

// AutoBuyRunResponse lists what happened to every evaluated candidate.
type AutoBuyRunResponse struct {
	UserID  string           `json:"user_id"`
	Results []autobuy.Result `json:"results"`
}
