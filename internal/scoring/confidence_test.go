package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

func ptr[T any](v T) *T { return &v }

func strongCandidate() coin.Candidate {
	return coin.Candidate{
		Symbol:         "SOL",
		Growth:         8,
		Liquidity:      coin.TierHigh,
		Risk:           coin.TierLow,
		Performance:    ptr(8.0),
		MarketCap:      "2B",
		QuoteVolume:    150_000_000,
		Recommendation: coin.RecommendBuy,
		Compliant:      ptr(true),
		ValueScore:     "90",
	}
}

func TestWeightsSum(t *testing.T) {
	if sum := DefaultWeights().Sum(); math.Abs(sum-1.10) > 1e-9 {
		t.Errorf("weights sum to %.4f, expected 1.10", sum)
	}
}

func TestConfidence_ClampsAtHundred(t *testing.T) {
	c := coin.Candidate{
		Symbol:         "MAX",
		Growth:         10,
		Liquidity:      coin.TierHigh,
		Risk:           coin.TierLow,
		Performance:    ptr(100.0),
		MarketCap:      "5B",
		QuoteVolume:    1e12,
		Recommendation: coin.RecommendBuy,
		Compliant:      ptr(true),
		ValueScore:     "100",
	}
	b := NewScorer(DefaultWeights()).Breakdown(c)
	// growth and stability cannot both be 10, every other factor is
	// 2.0 + 1.3333 + 1.5 + 1.5 + 1.0 + 1.0 + 0.5 + 0.5 + 0.5 + 0.5 = 10.3333
	assert.InDelta(t, 10.3333, b.Total, 1e-3)
	assert.Equal(t, 100, b.Score)

	// ten factors at raw 10 would total 11
	assert.InDelta(t, 11.0, DefaultWeights().Sum()*10, 1e-9)

	heavy := NewScorer(Weights{
		Growth: 1, Stability: 1, Liquidity: 1, Risk: 1, Performance: 1,
		MarketCap: 1, Compliance: 1, Recommendation: 1, Value: 1, Volume: 1,
	})
	assert.Equal(t, 100, heavy.Score(c))
}

func TestConfidence_StrongCandidate(t *testing.T) {
	got := Confidence(strongCandidate())
	// 1.8 + 1.4667 + 1.5 + 1.5 + 0.08 + 1.0 + 0.5 + 0.5 + 0.45 + 0.5 = 9.2967
	assert.Equal(t, 93, got)
	assert.GreaterOrEqual(t, got, 85)
}

func TestConfidence_WeakCandidate(t *testing.T) {
	c := coin.Candidate{
		Symbol:    "XYZ",
		Growth:    -15,
		Liquidity: coin.TierLow,
		Risk:      coin.TierHigh,
	}
	got := Confidence(c)
	// 0 + 1.0 + 0.45 + 0.45 + 0.05 + 0 + 0.15 + 0.15 + 0.25 + 0.1 = 2.6
	assert.Equal(t, 26, got)
	assert.Less(t, got, 30)
}

func TestConfidence_Bounded(t *testing.T) {
	growths := []float64{-1000, -50, -10, -3, 0, 3, 10, 50, 1000}
	tiers := []coin.Tier{coin.TierHigh, coin.TierMedium, coin.TierLow, coin.TierUnknown}
	caps := []string{"", "5B", "0.5B", "0.01B", "300M", "garbage"}

	for _, g := range growths {
		for _, liq := range tiers {
			for _, risk := range tiers {
				for _, mc := range caps {
					c := coin.Candidate{
						Growth:      g,
						Liquidity:   liq,
						Risk:        risk,
						MarketCap:   mc,
						Performance: ptr(10.0),
						ValueScore:  "100",
						QuoteVolume: 1e12,
						Compliant:   ptr(true),
					}
					s := Confidence(c)
					if s < 0 || s > 100 {
						t.Fatalf("score %d out of range for %+v", s, c)
					}
				}
			}
		}
	}
}

func TestConfidence_Deterministic(t *testing.T) {
	c := strongCandidate()
	first := Confidence(c)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, Confidence(c))
	}
}

func TestBreakdown_Factors(t *testing.T) {
	b := NewScorer(DefaultWeights()).Breakdown(strongCandidate())
	require.Len(t, b.Factors, 10)

	byName := make(map[string]Factor, len(b.Factors))
	for _, f := range b.Factors {
		byName[f.Name] = f
	}
	assert.InDelta(t, 9.0, byName["growth"].Raw, 1e-9)
	assert.InDelta(t, 10-8.0/3, byName["stability"].Raw, 1e-9)
	assert.InDelta(t, 0.8, byName["performance"].Raw, 1e-9)
	assert.InDelta(t, 10.0, byName["market_cap"].Raw, 1e-9)
	assert.InDelta(t, 9.0, byName["value"].Raw, 1e-9)
	assert.InDelta(t, 9.2967, b.Total, 1e-3)
}

func TestMarketCapRaw(t *testing.T) {
	tests := map[string]float64{
		"2B":    10,
		"1B":    10,
		"0.5B":  8,
		"0.1B":  8,
		"0.05B": 5,
		"900M":  3,
		"":      0,
		"huge":  0,
	}
	for in, want := range tests {
		assert.Equal(t, want, marketCapRaw(in), in)
	}
}

func TestVolumeRaw(t *testing.T) {
	assert.Equal(t, 10.0, volumeRaw(150_000_000))
	assert.Equal(t, 8.0, volumeRaw(60_000_000))
	assert.Equal(t, 5.0, volumeRaw(20_000_000))
	assert.Equal(t, 2.0, volumeRaw(10_000_000))
	assert.Equal(t, 2.0, volumeRaw(0))
}

func TestDefaultsForMissingFields(t *testing.T) {
	c := coin.Candidate{ValueScore: "n/a"}
	b := NewScorer(DefaultWeights()).Breakdown(c)
	for _, f := range b.Factors {
		switch f.Name {
		case "performance":
			assert.InDelta(t, 0.5, f.Raw, 1e-9)
		case "value":
			assert.InDelta(t, 5.0, f.Raw, 1e-9)
		case "compliance", "recommendation":
			assert.InDelta(t, 3.0, f.Raw, 1e-9)
		}
	}
}
