package coin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiquidity(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"عالية/high", TierHigh},
		{"High", TierHigh},
		{"متوسطة", TierMedium},
		{"moderate liquidity", TierMedium},
		{"low", TierLow},
		{"منخفضة", TierLow},
		{"", TierUnknown},
		{"n/a", TierUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLiquidity(tt.in), tt.in)
	}
}

func TestRiskTags(t *testing.T) {
	assert.Equal(t, []Tier{TierLow}, RiskTags("منخفض/low"))
	assert.Equal(t, []Tier{TierLow, TierMedium}, RiskTags("low to medium"))
	assert.Equal(t, []Tier{TierHigh}, RiskTags("عالي"))
	assert.Nil(t, RiskTags(""))
	assert.Equal(t, TierUnknown, ParseRisk("unclear"))
	assert.Equal(t, TierMedium, ParseRisk("Medium"))
}

func TestParseRecommendation(t *testing.T) {
	assert.Equal(t, RecommendBuy, ParseRecommendation("Strong BUY"))
	assert.Equal(t, RecommendHold, ParseRecommendation("hold"))
	assert.Equal(t, RecommendReduce, ParseRecommendation("reduce exposure"))
	assert.Equal(t, RecommendStop, ParseRecommendation("stop"))
	assert.Equal(t, RecommendUnknown, ParseRecommendation("??"))
}

func TestMarketCap(t *testing.T) {
	r, v := ParseMarketCap("2B")
	assert.Equal(t, CapBillions, r)
	assert.InDelta(t, 2.0, v, 1e-9)

	r, v = ParseMarketCap("$350M")
	assert.Equal(t, CapMillions, r)
	assert.InDelta(t, 350.0, v, 1e-9)

	r, _ = ParseMarketCap("unknown")
	assert.Equal(t, CapUnknown, r)

	assert.InDelta(t, 2e9, MarketCapUSD("2B"), 1)
	assert.InDelta(t, 1.5e12, MarketCapUSD("1.5T"), 1)
	assert.InDelta(t, 350e6, MarketCapUSD("350M"), 1)
	assert.InDelta(t, 120e6, MarketCapUSD("120"), 1)
	assert.Zero(t, MarketCapUSD(""))
	assert.Zero(t, MarketCapUSD("abc"))

	assert.Equal(t, "2.50B", MarketCapBucket(2.5e9))
	assert.Equal(t, "420.00M", MarketCapBucket(4.2e8))
	assert.Equal(t, "", MarketCapBucket(0))
}

func TestNormalizer_FromTickers(t *testing.T) {
	n := NewNormalizer("")
	tickers := []Ticker{
		{Symbol: "BTCUSDT", LastPrice: "65000.5", PriceChangePercent: "2.5", QuoteVolume: "900000000"},
		{Symbol: "ETHBTC", LastPrice: "0.05", PriceChangePercent: "1", QuoteVolume: "100"},
		{Symbol: "DOGEUSDT", LastPrice: "oops", PriceChangePercent: "-20", QuoteVolume: ""},
		{Symbol: "BTCUSDT", LastPrice: "1", PriceChangePercent: "0", QuoteVolume: "1"},
		{Symbol: "USDT", LastPrice: "1"},
	}

	got := n.FromTickers(tickers)
	require.Len(t, got, 2)

	assert.Equal(t, "BTC", got[0].Symbol)
	assert.InDelta(t, 65000.5, got[0].Price, 1e-9)
	assert.Equal(t, TierHigh, got[0].Liquidity)
	assert.Equal(t, TierLow, got[0].Risk)

	assert.Equal(t, "DOGE", got[1].Symbol)
	assert.Zero(t, got[1].Price)
	assert.Equal(t, TierUnknown, got[1].Liquidity)
	assert.Equal(t, TierHigh, got[1].Risk)
}

func TestNormalizer_FromSuggestion(t *testing.T) {
	payload := `{
		"symbol": "solusdt",
		"growth": "8",
		"price": 142.1,
		"liquidity": "عالية/high",
		"riskLevel": "منخفض/low",
		"performanceScore": 8,
		"marketCap": "2B",
		"quoteVolume": 150000000,
		"recommendation": "buy",
		"shariaCompliance": true,
		"valueScore": "90",
		"ageDays": "12"
	}`
	var s Suggestion
	require.NoError(t, json.Unmarshal([]byte(payload), &s))

	c := NewNormalizer("USDT").FromSuggestion(s)
	assert.Equal(t, "SOL", c.Symbol)
	assert.InDelta(t, 8.0, c.Growth, 1e-9)
	assert.Equal(t, TierHigh, c.Liquidity)
	assert.Equal(t, TierLow, c.Risk)
	assert.Equal(t, RecommendBuy, c.Recommendation)
	assert.True(t, c.IsCompliant())
	require.NotNil(t, c.Performance)
	assert.InDelta(t, 8.0, *c.Performance, 1e-9)
	assert.InDelta(t, 90.0, c.ValueScoreOr(5), 1e-9)
	require.NotNil(t, c.AgeDays)
	assert.Equal(t, 12, *c.AgeDays)
}

func TestSuggestion_ToleratesGarbage(t *testing.T) {
	payload := `{"symbol":"XYZ","growth":"n/a","price":null,"performanceScore":"high","shariaCompliance":"maybe","valueScore":7}`
	var s Suggestion
	require.NoError(t, json.Unmarshal([]byte(payload), &s))

	c := NewNormalizer("USDT").FromSuggestion(s)
	assert.Zero(t, c.Growth)
	assert.Zero(t, c.Price)
	assert.Nil(t, c.Performance)
	assert.Nil(t, c.Compliant)
	assert.Equal(t, "7", c.ValueScore)
	assert.Equal(t, TierUnknown, c.Liquidity)
}

func TestSuggestion_OutOfRangeNumbers(t *testing.T) {
	payload := `{"symbol":"PEPE","price":1e400,"growth":-1e400,"quoteVolume":"1e400","performanceScore":1e400,"rank":1e400}`
	var s Suggestion
	require.NoError(t, json.Unmarshal([]byte(payload), &s))
	assert.False(t, s.Price.Valid)
	assert.Zero(t, s.Price.Value)
	assert.False(t, s.Growth.Valid)
	assert.Zero(t, s.Growth.Value)

	c := NewNormalizer("USDT").FromSuggestion(s)
	assert.Zero(t, c.Price)
	assert.Zero(t, c.Growth)
	assert.Zero(t, c.QuoteVolume)
	assert.Nil(t, c.Performance)
	assert.Zero(t, c.Rank)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"symbol":"PEPE"`)
}

func TestFromSuggestion_PerformanceClamped(t *testing.T) {
	n := NewNormalizer("USDT")
	for in, want := range map[string]float64{`80`: 10, `-2`: 0, `"7.5"`: 7.5} {
		var s Suggestion
		require.NoError(t, json.Unmarshal([]byte(`{"symbol":"SOL","performanceScore":`+in+`}`), &s))
		c := n.FromSuggestion(s)
		require.NotNil(t, c.Performance, in)
		assert.Equal(t, want, *c.Performance, in)
	}
}

func TestFlex_Or(t *testing.T) {
	var f Flex
	require.NoError(t, json.Unmarshal([]byte(`"12.5%"`), &f))
	assert.Equal(t, 12.5, f.Or(3))
	require.NoError(t, json.Unmarshal([]byte(`1e400`), &f))
	assert.Equal(t, 3.0, f.Or(3))
}

func TestCandidate_AcceptsRisk(t *testing.T) {
	c := Candidate{Risk: TierHigh, RiskTags: []Tier{TierHigh, TierMedium}}
	assert.True(t, c.AcceptsRisk([]Tier{TierMedium}))
	assert.False(t, c.AcceptsRisk([]Tier{TierLow}))

	bare := Candidate{Risk: TierLow}
	assert.True(t, bare.AcceptsRisk([]Tier{TierLow, TierMedium}))
}
