// Package adapters holds the exchange and registry clients. Each adapter goes
// through a guards.ProviderGuard so breaker state and error typing are shared.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
	"github.com/sawpanic/coinpilot/internal/providers/guards"
)

const DefaultBinanceURL = "https://api.binance.com"

// BinanceAdapter fetches 24h tickers from a Binance-compatible exchange.
type BinanceAdapter struct {
	guard      *guards.ProviderGuard
	usedWeight atomic.Int64
}

// NewBinanceAdapter creates a new Binance adapter with guards
func NewBinanceAdapter(config guards.ProviderConfig) *BinanceAdapter {
	if config.Name == "" {
		config.Name = "binance"
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBinanceURL
	}
	return &BinanceAdapter{guard: guards.NewProviderGuard(config)}
}

// Tickers fetches 24h ticker statistics for every symbol.
func (b *BinanceAdapter) Tickers(ctx context.Context) ([]coin.Ticker, error) {
	resp, err := b.guard.Execute(func() (*resty.Response, error) {
		return b.guard.R(ctx).Get("/api/v3/ticker/24hr")
	})
	if err != nil {
		return nil, err
	}
	b.recordWeight(resp)

	var tickers []coin.Ticker
	if err := json.Unmarshal(resp.Body(), &tickers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticker response: %w", err)
	}

	log.Debug().Int("tickers", len(tickers)).Int64("used_weight_1m", b.UsedWeight()).Msg("Binance tickers retrieved")
	return tickers, nil
}

// UsedWeight returns the last X-MBX-USED-WEIGHT-1M value seen, or 0.
func (b *BinanceAdapter) UsedWeight() int64 {
	return b.usedWeight.Load()
}

// State reports the circuit breaker state.
func (b *BinanceAdapter) State() string {
	return b.guard.State()
}

func (b *BinanceAdapter) recordWeight(resp *resty.Response) {
	w := resp.Header().Get("X-MBX-USED-WEIGHT-1M")
	if w == "" {
		w = resp.Header().Get("X-MBX-USED-WEIGHT")
	}
	if n, err := strconv.ParseInt(w, 10, 64); err == nil {
		b.usedWeight.Store(n)
	}
}
