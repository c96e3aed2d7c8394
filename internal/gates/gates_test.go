package gates

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

func ptr[T any](v T) *T { return &v }

func symbols(pool []coin.Candidate) []string {
	out := make([]string, len(pool))
	for i, c := range pool {
		out[i] = c.Symbol
	}
	return out
}

func testPool() []coin.Candidate {
	return []coin.Candidate{
		{Symbol: "BTC", Price: 65000, MarketCap: "1200B", Liquidity: coin.TierHigh, Risk: coin.TierLow, QuoteVolume: 2e9, Rank: 1},
		{Symbol: "MID", Price: 2.5, MarketCap: "400M", Liquidity: coin.TierMedium, Risk: coin.TierMedium, QuoteVolume: 3e7, Rank: 80},
		{Symbol: "TINY", Price: 0.01, MarketCap: "20M", Liquidity: coin.TierHigh, Risk: coin.TierLow, QuoteVolume: 9e7},
		{Symbol: "THIN", Price: 1.2, MarketCap: "2B", Liquidity: coin.TierLow, Risk: coin.TierLow, QuoteVolume: 1e6},
		{Symbol: "WILD", Price: 0.4, MarketCap: "900M", Liquidity: coin.TierHigh, Risk: coin.TierHigh, RiskTags: []coin.Tier{coin.TierHigh}, Growth: 35, QuoteVolume: 2e8},
		{Symbol: "MIXED", Price: 3, MarketCap: "0.5B", Liquidity: coin.TierHigh, Risk: coin.TierHigh, RiskTags: []coin.Tier{coin.TierHigh, coin.TierMedium}, QuoteVolume: 6e7, Rank: 300},
	}
}

func TestResolve_Defaults(t *testing.T) {
	f := FilterConfig{}.Resolve()
	assert.Equal(t, DefaultMinMarketCap, f.MinMarketCap)
	assert.Equal(t, DefaultMinLiquidityScore, f.MinLiquidityScore)
	assert.Equal(t, []coin.Tier{coin.TierLow, coin.TierMedium}, f.RiskLevels)
	assert.True(t, f.RequireCompliance)
	assert.Zero(t, f.MaxRank)
	assert.Zero(t, f.MaxVolatility)
}

func TestResolve_Overrides(t *testing.T) {
	f := FilterConfig{
		MinMarketCap:      ptr(0.0),
		MinLiquidityScore: ptr(8),
		RiskLevels:        []string{"HIGH", "bogus"},
		RequireCompliance: ptr(false),
		MaxRank:           ptr(100),
	}.Resolve()
	assert.Zero(t, f.MinMarketCap)
	assert.Equal(t, 8, f.MinLiquidityScore)
	assert.Equal(t, []coin.Tier{coin.TierHigh}, f.RiskLevels)
	assert.False(t, f.RequireCompliance)
	assert.Equal(t, 100, f.MaxRank)
}

func TestAcceptedLiquidity(t *testing.T) {
	assert.Equal(t, []coin.Tier{coin.TierHigh}, AcceptedLiquidity(1))
	assert.Equal(t, []coin.Tier{coin.TierHigh}, AcceptedLiquidity(3))
	assert.Equal(t, []coin.Tier{coin.TierHigh, coin.TierMedium}, AcceptedLiquidity(4))
	assert.Equal(t, []coin.Tier{coin.TierHigh, coin.TierMedium}, AcceptedLiquidity(6))
	assert.Len(t, AcceptedLiquidity(7), 4)
}

func TestSmart_Defaults(t *testing.T) {
	got := Smart(testPool(), FilterConfig{})
	// TINY fails market cap, THIN fails liquidity, WILD fails risk.
	assert.Equal(t, []string{"BTC", "MID", "MIXED"}, symbols(got))
}

func TestSmart_Reasons(t *testing.T) {
	_, rejected := SmartWithReasons(testPool(), DefaultFilter())
	require.Len(t, rejected, 3)
	assert.Equal(t, Rejection{Symbol: "TINY", Gate: "market_cap"}, rejected[0])
	assert.Equal(t, Rejection{Symbol: "THIN", Gate: "liquidity"}, rejected[1])
	assert.Equal(t, Rejection{Symbol: "WILD", Gate: "risk"}, rejected[2])
}

func TestSmart_OptionalGates(t *testing.T) {
	cfg := FilterConfig{
		MinVolume24h:  ptr(5e7),
		MaxRank:       ptr(100),
		MaxVolatility: ptr(20.0),
		RiskLevels:    []string{"low", "medium", "high"},
	}
	got := Smart(testPool(), cfg)
	// MID fails volume, MIXED fails rank, WILD fails volatility.
	assert.Equal(t, []string{"BTC"}, symbols(got))
}

func TestSmart_DoesNotMutate(t *testing.T) {
	pool := testPool()
	before := testPool()
	_ = Smart(pool, FilterConfig{})
	assert.Equal(t, before, pool)
}

func TestAnnotateCompliance(t *testing.T) {
	pool := testPool()[:2]
	out := AnnotateCompliance(pool)
	require.Len(t, out, 2)
	for _, c := range out {
		assert.Equal(t, CompliantNote, c.ComplianceNote)
	}
	for _, c := range pool {
		assert.Empty(t, c.ComplianceNote)
	}

	// the note leaves the compliance flag alone
	mixed := []coin.Candidate{{Symbol: "A"}, {Symbol: "B", Compliant: ptr(false)}}
	for _, c := range AnnotateCompliance(mixed) {
		assert.False(t, c.IsCompliant(), c.Symbol)
	}
	assert.Nil(t, AnnotateCompliance(mixed)[0].Compliant)
}

func TestFitBudget(t *testing.T) {
	pool := []coin.Candidate{
		{Symbol: "A", Price: 100},
		{Symbol: "B", Price: 60},
		{Symbol: "C", Price: 60.01},
		{Symbol: "D", Price: 0},
		{Symbol: "E", Price: -1},
	}
	// fair = 100 / 5 = 20, ceiling = 60
	got := FitBudget(pool, decimal.NewFromInt(100), 5)
	assert.Equal(t, []string{"B"}, symbols(got))

	// count defaults to 5
	assert.Equal(t, symbols(got), symbols(FitBudget(pool, decimal.NewFromInt(100), 0)))

	got = FitBudget(pool, decimal.NewFromInt(100), 1)
	assert.Equal(t, []string{"A", "B", "C"}, symbols(got))
}

func TestFitBudget_NonFinitePrice(t *testing.T) {
	pool := []coin.Candidate{
		{Symbol: "INF", Price: math.Inf(1)},
		{Symbol: "NEG", Price: math.Inf(-1)},
		{Symbol: "NAN", Price: math.NaN()},
		{Symbol: "OK", Price: 10},
	}
	var got []coin.Candidate
	require.NotPanics(t, func() { got = FitBudget(pool, decimal.NewFromInt(100), 5) })
	assert.Equal(t, []string{"OK"}, symbols(got))
}

func TestFitBudget_NonPositiveAmountIsNoop(t *testing.T) {
	pool := testPool()
	assert.Equal(t, pool, FitBudget(pool, decimal.Zero, 5))
	assert.Equal(t, pool, FitBudget(pool, decimal.NewFromInt(-5), 5))
}

func TestFairPrice(t *testing.T) {
	assert.True(t, decimal.NewFromInt(20).Equal(FairPrice(decimal.NewFromInt(100), 5)))
	assert.True(t, decimal.NewFromInt(25).Equal(FairPrice(decimal.NewFromInt(100), 4)))
}
