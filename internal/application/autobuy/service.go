// Package autobuy turns dual-advisory buy decisions into favorites and,
// when the user enabled it, market orders of a fixed USDT amount.
package autobuy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/coinpilot/internal/advisory"
	"github.com/sawpanic/coinpilot/internal/application/favorites"
	"github.com/sawpanic/coinpilot/internal/domain/coin"
	"github.com/sawpanic/coinpilot/internal/persistence"
	"github.com/sawpanic/coinpilot/internal/safety"
)

var ErrInvalidSettings = errors.New("invalid auto-buy settings")

// Order is a placed (or simulated) market buy.
type Order struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	QuoteAmount decimal.Decimal `json:"quote_amount"`
	DryRun      bool            `json:"dry_run"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// OrderPlacer submits a market buy for quote-currency amount.
type OrderPlacer interface {
	PlaceMarketBuy(ctx context.Context, symbol string, quote decimal.Decimal) (Order, error)
}

// DryRunPlacer logs orders instead of sending them.
type DryRunPlacer struct{}

func (DryRunPlacer) PlaceMarketBuy(_ context.Context, symbol string, quote decimal.Decimal) (Order, error) {
	o := Order{
		ID:          uuid.New().String(),
		Symbol:      symbol,
		QuoteAmount: quote,
		DryRun:      true,
		PlacedAt:    time.Now().UTC(),
	}
	log.Info().Str("order_id", o.ID).Str("symbol", symbol).Str("quote_usdt", quote.String()).Bool("dry_run", true).Msg("Market buy (dry run)")
	return o, nil
}

// SafetyChecker screens symbols before they reach the advisors.
type SafetyChecker interface {
	Check(symbol string) safety.QuickResult
}

// Defaults are applied to users without stored settings.
type Defaults struct {
	Amount   decimal.Decimal
	MaxCoins int
}

// DefaultDefaults returns a disabled 10 USDT, 5-coin configuration.
func DefaultDefaults() Defaults {
	return Defaults{Amount: decimal.NewFromInt(10), MaxCoins: 5}
}

// Result reports what happened to one candidate.
type Result struct {
	Decision  advisory.Decision `json:"decision"`
	Favorited bool              `json:"favorited"`
	Order     *Order            `json:"order,omitempty"`
	Unsafe    string            `json:"unsafe,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Service ties settings, advisory evaluation, favorites and order placement.
type Service struct {
	settings   persistence.SettingsRepo
	favorites  *favorites.Service
	aggregator *advisory.Aggregator
	checker    SafetyChecker
	placer     OrderPlacer
	defaults   Defaults
}

// NewService wires the collaborators. A nil checker screens against the
// shipped safety lists; a nil placer uses DryRunPlacer.
func NewService(settings persistence.SettingsRepo, favs *favorites.Service, agg *advisory.Aggregator, checker SafetyChecker, placer OrderPlacer, defaults Defaults) *Service {
	if checker == nil {
		checker = safety.NewVerifier(safety.DefaultLists(), nil)
	}
	if placer == nil {
		placer = DryRunPlacer{}
	}
	if defaults.MaxCoins <= 0 {
		defaults.MaxCoins = DefaultDefaults().MaxCoins
	}
	return &Service{settings: settings, favorites: favs, aggregator: agg, checker: checker, placer: placer, defaults: defaults}
}

// Settings returns stored settings or the defaults (disabled) when none exist.
func (s *Service) Settings(ctx context.Context, userID string) (persistence.AutoBuySettings, error) {
	st, err := s.settings.Get(ctx, userID)
	if errors.Is(err, persistence.ErrNotFound) {
		return persistence.AutoBuySettings{
			UserID:   userID,
			Enabled:  false,
			Amount:   s.defaults.Amount,
			MaxCoins: s.defaults.MaxCoins,
		}, nil
	}
	if err != nil {
		return persistence.AutoBuySettings{}, fmt.Errorf("load auto-buy settings: %w", err)
	}
	return st, nil
}

// UpdateSettings validates and stores st.
func (s *Service) UpdateSettings(ctx context.Context, st persistence.AutoBuySettings) error {
	if strings.TrimSpace(st.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidSettings)
	}
	if st.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidSettings)
	}
	if st.Enabled && !st.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive when enabled", ErrInvalidSettings)
	}
	if st.MaxCoins <= 0 {
		st.MaxCoins = s.defaults.MaxCoins
	}
	st.UpdatedAt = time.Now().UTC()
	return s.settings.Upsert(ctx, st)
}

// Process screens the pool through the safety checker, then evaluates up to
// MaxCoins safe candidates. Unsafe symbols are reported and never reach the
// advisors, favorites or orders. Every buy decision is pinned as an
// "auto-search" favorite; an order is placed only when auto-buy is enabled.
func (s *Service) Process(ctx context.Context, userID string, pool []coin.Candidate) ([]Result, error) {
	st, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}

	var results []Result
	safe := make([]coin.Candidate, 0, len(pool))
	for _, c := range pool {
		if q := s.checker.Check(c.Symbol); !q.Safe {
			log.Warn().Str("symbol", c.Symbol).Str("reason", q.Reason).Msg("Auto-buy skipped unsafe symbol")
			results = append(results, Result{
				Decision: advisory.Decision{Subject: advisory.SubjectFrom(c)},
				Unsafe:   q.Reason,
			})
			continue
		}
		safe = append(safe, c)
	}
	if len(safe) > st.MaxCoins {
		safe = safe[:st.MaxCoins]
	}

	subjects := make([]advisory.Subject, len(safe))
	bySymbol := make(map[string]coin.Candidate, len(safe))
	for i, c := range safe {
		subjects[i] = advisory.SubjectFrom(c)
		bySymbol[c.Symbol] = c
	}

	decisions := s.aggregator.EvaluateBatch(ctx, subjects)
	for _, d := range decisions {
		r := Result{Decision: d}
		if !d.Buy {
			results = append(results, r)
			continue
		}

		added, err := s.favorites.Add(ctx, userID, bySymbol[d.Subject.Symbol], persistence.SourceAutoSearch)
		if err != nil {
			r.Error = err.Error()
			results = append(results, r)
			continue
		}
		r.Favorited = added

		if st.Enabled {
			order, err := s.placer.PlaceMarketBuy(ctx, d.Subject.Symbol, st.Amount)
			if err != nil {
				log.Error().Err(err).Str("symbol", d.Subject.Symbol).Msg("Auto-buy order failed")
				r.Error = err.Error()
			} else {
				r.Order = &order
			}
		}
		results = append(results, r)
	}
	return results, nil
}
