package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinpilot/internal/providers/guards"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoAdapter wraps the public registry endpoints used for symbol
// verification and market cap enrichment.
type CoinGeckoAdapter struct {
	guard *guards.ProviderGuard

	mu             sync.RWMutex
	degraded       bool
	degradedReason string
}

// NewCoinGeckoAdapter creates a new CoinGecko adapter with guards
func NewCoinGeckoAdapter(config guards.ProviderConfig) *CoinGeckoAdapter {
	if config.Name == "" {
		config.Name = "coingecko"
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultCoinGeckoURL
	}
	return &CoinGeckoAdapter{guard: guards.NewProviderGuard(config)}
}

// SearchCoin is one entry of the /search response.
type SearchCoin struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank"`
}

type searchResponse struct {
	Coins []SearchCoin `json:"coins"`
}

// MarketData is one row of /coins/markets.
type MarketData struct {
	ID                 string  `json:"id"`
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	CurrentPrice       float64 `json:"current_price"`
	MarketCap          float64 `json:"market_cap"`
	MarketCapRank      int     `json:"market_cap_rank"`
	TotalVolume        float64 `json:"total_volume"`
	PriceChangePerc24h float64 `json:"price_change_percentage_24h"`
}

// Search queries the registry for coins matching query.
func (c *CoinGeckoAdapter) Search(ctx context.Context, query string) ([]SearchCoin, error) {
	resp, err := c.guard.Execute(func() (*resty.Response, error) {
		return c.guard.R(ctx).SetQueryParam("query", query).Get("/search")
	})
	if err != nil {
		return nil, c.handleDegradedState("search_failed", err)
	}

	var out searchResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, c.handleDegradedState("decode_error", err)
	}
	c.clearDegraded()

	log.Debug().Str("query", query).Int("coins", len(out.Coins)).Msg("CoinGecko search completed")
	return out.Coins, nil
}

// Markets fetches one page of market data ordered by market cap.
func (c *CoinGeckoAdapter) Markets(ctx context.Context, vsCurrency string, page, perPage int) ([]MarketData, error) {
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 250 {
		perPage = 250
	}

	resp, err := c.guard.Execute(func() (*resty.Response, error) {
		return c.guard.R(ctx).SetQueryParams(map[string]string{
			"vs_currency": vsCurrency,
			"order":       "market_cap_desc",
			"per_page":    strconv.Itoa(perPage),
			"page":        strconv.Itoa(page),
			"sparkline":   "false",
		}).Get("/coins/markets")
	})
	if err != nil {
		return nil, c.handleDegradedState("markets_failed", err)
	}

	var markets []MarketData
	if err := json.Unmarshal(resp.Body(), &markets); err != nil {
		return nil, c.handleDegradedState("decode_error", err)
	}
	c.clearDegraded()

	log.Debug().Int("markets_count", len(markets)).Str("vs_currency", vsCurrency).Msg("CoinGecko markets data retrieved")
	return markets, nil
}

// Degraded reports whether the last call failed, and why.
func (c *CoinGeckoAdapter) Degraded() (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded, c.degradedReason
}

func (c *CoinGeckoAdapter) clearDegraded() {
	c.mu.Lock()
	c.degraded = false
	c.degradedReason = ""
	c.mu.Unlock()
}

func (c *CoinGeckoAdapter) handleDegradedState(reason string, err error) error {
	c.mu.Lock()
	c.degraded = true
	c.degradedReason = reason
	c.mu.Unlock()

	log.Warn().Err(err).Str("reason", reason).Msg("CoinGecko provider degraded")
	return fmt.Errorf("coingecko %s: %w", reason, err)
}
