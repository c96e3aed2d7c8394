// Package scoring ranks candidate coins. Confidence drives candidate
// selection; FavoriteScore orders coins a user has already saved.
package scoring

import (
	"math"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

// Weights holds the per-factor multipliers of the confidence formula.
// Raw factor values live in [0,10]; the weighted sum is scaled by 10.
type Weights struct {
	Growth         float64 `yaml:"growth" json:"growth"`
	Stability      float64 `yaml:"stability" json:"stability"`
	Liquidity      float64 `yaml:"liquidity" json:"liquidity"`
	Risk           float64 `yaml:"risk" json:"risk"`
	Performance    float64 `yaml:"performance" json:"performance"`
	MarketCap      float64 `yaml:"market_cap" json:"market_cap"`
	Compliance     float64 `yaml:"compliance" json:"compliance"`
	Recommendation float64 `yaml:"recommendation" json:"recommendation"`
	Value          float64 `yaml:"value" json:"value"`
	Volume         float64 `yaml:"volume" json:"volume"`
}

// DefaultWeights returns the production weight set. It sums to 1.10, so a
// candidate can exceed the nominal 10-point total; Breakdown clamps the score.
func DefaultWeights() Weights {
	return Weights{
		Growth:         0.20,
		Stability:      0.20,
		Liquidity:      0.15,
		Risk:           0.15,
		Performance:    0.10,
		MarketCap:      0.10,
		Compliance:     0.05,
		Recommendation: 0.05,
		Value:          0.05,
		Volume:         0.05,
	}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Growth + w.Stability + w.Liquidity + w.Risk + w.Performance +
		w.MarketCap + w.Compliance + w.Recommendation + w.Value + w.Volume
}

const (
	defaultPerformance = 5.0
	defaultValueRaw    = 5.0
)

// Factor is one weighted term of a confidence score.
type Factor struct {
	Name     string  `json:"name"`
	Raw      float64 `json:"raw"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// Breakdown is the itemised confidence computation for one candidate.
type Breakdown struct {
	Symbol  string   `json:"symbol"`
	Factors []Factor `json:"factors"`
	Total   float64  `json:"total"` // weighted sum, nominally 0-10
	Score   int      `json:"score"` // 0-100
}

// Scorer computes confidence scores with a fixed weight set.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer using w.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

var defaultScorer = NewScorer(DefaultWeights())

// Confidence returns the 0-100 confidence score of c with the default weights.
func Confidence(c coin.Candidate) int {
	return defaultScorer.Score(c)
}

// Score returns the 0-100 confidence score of c.
func (s *Scorer) Score(c coin.Candidate) int {
	return s.Breakdown(c).Score
}

// Breakdown computes every factor of the confidence score of c.
func (s *Scorer) Breakdown(c coin.Candidate) Breakdown {
	w := s.weights
	factors := []Factor{
		{Name: "growth", Raw: growthRaw(c.Growth), Weight: w.Growth},
		{Name: "stability", Raw: stabilityRaw(c.Growth), Weight: w.Stability},
		{Name: "liquidity", Raw: liquidityRaw(c.Liquidity), Weight: w.Liquidity},
		{Name: "risk", Raw: riskRaw(c.Risk), Weight: w.Risk},
		{Name: "performance", Raw: clamp(c.PerformanceOr(defaultPerformance)/10, 0, 10), Weight: w.Performance},
		{Name: "market_cap", Raw: marketCapRaw(c.MarketCap), Weight: w.MarketCap},
		{Name: "compliance", Raw: complianceRaw(c), Weight: w.Compliance},
		{Name: "recommendation", Raw: recommendationRaw(c.Recommendation), Weight: w.Recommendation},
		{Name: "value", Raw: valueRaw(c), Weight: w.Value},
		{Name: "volume", Raw: volumeRaw(c.QuoteVolume), Weight: w.Volume},
	}

	var total float64
	for i := range factors {
		factors[i].Weighted = factors[i].Raw * factors[i].Weight
		total += factors[i].Weighted
	}

	// One decimal of precision first so 25.9999 lands on 26, not 25.
	scaled := math.Round(total*10*10) / 10
	score := int(math.Round(scaled))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Breakdown{
		Symbol:  c.Symbol,
		Factors: factors,
		Total:   total,
		Score:   score,
	}
}

func growthRaw(g float64) float64 {
	return clamp((g+10)/2, 0, 10)
}

func stabilityRaw(g float64) float64 {
	return math.Max(0, 10-math.Abs(g)/3)
}

func liquidityRaw(t coin.Tier) float64 {
	switch t {
	case coin.TierHigh:
		return 10
	case coin.TierMedium:
		return 7
	case coin.TierLow:
		return 3
	default:
		return 0
	}
}

func riskRaw(t coin.Tier) float64 {
	switch t {
	case coin.TierLow:
		return 10
	case coin.TierMedium:
		return 7
	case coin.TierHigh:
		return 3
	default:
		return 0
	}
}

func marketCapRaw(text string) float64 {
	r, v := coin.ParseMarketCap(text)
	switch r {
	case coin.CapBillions:
		switch {
		case v >= 1:
			return 10
		case v >= 0.1:
			return 8
		default:
			return 5
		}
	case coin.CapMillions:
		return 3
	default:
		return 0
	}
}

func complianceRaw(c coin.Candidate) float64 {
	if c.IsCompliant() {
		return 10
	}
	return 3
}

func recommendationRaw(r coin.Recommendation) float64 {
	switch r {
	case coin.RecommendBuy:
		return 10
	case coin.RecommendHold:
		return 7
	default:
		return 3
	}
}

func valueRaw(c coin.Candidate) float64 {
	v, ok := coin.ParseNumber(c.ValueScore)
	if !ok {
		return defaultValueRaw
	}
	return clamp(v/10, 0, 10)
}

func volumeRaw(v float64) float64 {
	switch {
	case v > 100_000_000:
		return 10
	case v > 50_000_000:
		return 8
	case v > 10_000_000:
		return 5
	default:
		return 2
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
