package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinpilot/internal/providers/guards"
)

func TestBinanceAdapter_Tickers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		w.Header().Set("X-MBX-USED-WEIGHT-1M", "42")
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"65000.10","priceChangePercent":"2.5","quoteVolume":"1500000000","volume":"23000"},
			{"symbol":"ETHBTC","lastPrice":"0.05","priceChangePercent":"-1.0","quoteVolume":"900","volume":"18000"}
		]`))
	}))
	defer srv.Close()

	b := NewBinanceAdapter(guards.DefaultProviderConfig("binance", srv.URL))
	tickers, err := b.Tickers(context.Background())
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, "BTCUSDT", tickers[0].Symbol)
	assert.Equal(t, "65000.10", tickers[0].LastPrice)
	assert.Equal(t, int64(42), b.UsedWeight())
}

func TestBinanceAdapter_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := NewBinanceAdapter(guards.DefaultProviderConfig("binance", srv.URL))
	_, err := b.Tickers(context.Background())

	var pe *guards.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
	assert.True(t, pe.Retryable)
}

func TestCoinGeckoAdapter_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "pepe", r.URL.Query().Get("query"))
		w.Write([]byte(`{"coins":[{"id":"pepe","symbol":"PEPE","name":"Pepe","market_cap_rank":38},{"id":"x","symbol":"PEPE2","name":"Other","market_cap_rank":null}]}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoAdapter(guards.DefaultProviderConfig("coingecko", srv.URL))
	coins, err := c.Search(context.Background(), "pepe")
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, SearchCoin{ID: "pepe", Symbol: "PEPE", Name: "Pepe", MarketCapRank: 38}, coins[0])
	assert.Zero(t, coins[1].MarketCapRank)

	degraded, _ := c.Degraded()
	assert.False(t, degraded)
}

func TestCoinGeckoAdapter_MarketsAndDegraded(t *testing.T) {
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "250", r.URL.Query().Get("per_page"))
		w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":65000,"market_cap":1.28e12,"market_cap_rank":1,"total_volume":3.1e10}]`))
	}))
	defer srv.Close()

	c := NewCoinGeckoAdapter(guards.DefaultProviderConfig("coingecko", srv.URL))
	markets, err := c.Markets(context.Background(), "", 1, 0)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, 1, markets[0].MarketCapRank)

	fail = true
	_, err = c.Markets(context.Background(), "usd", 1, 100)
	require.Error(t, err)
	degraded, reason := c.Degraded()
	assert.True(t, degraded)
	assert.Equal(t, "markets_failed", reason)
}
