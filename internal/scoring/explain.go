package scoring

import (
	"math"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

const maxReasons = 3

// Scored is a candidate paired with its confidence score.
type Scored struct {
	coin.Candidate
	Confidence int `json:"confidence"`
}

// Explain returns up to three short reasons supporting the selection of c,
// checked in fixed priority order.
func Explain(c coin.Candidate) []string {
	checks := []struct {
		ok     bool
		reason string
	}{
		{c.Growth > 5, "strong 24h growth"},
		{c.Growth > 2, "positive 24h growth"},
		{math.Abs(c.Growth) < 5, "stable price action"},
		{c.Liquidity == coin.TierHigh, "high liquidity"},
		{c.Risk == coin.TierLow, "low risk"},
		{marketCapRange(c) == coin.CapBillions, "large market cap"},
		{c.Recommendation == coin.RecommendBuy, "buy recommendation"},
	}

	var reasons []string
	for _, ch := range checks {
		if !ch.ok {
			continue
		}
		reasons = append(reasons, ch.reason)
		if len(reasons) == maxReasons {
			break
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "comparatively good performance")
	}
	return reasons
}

func marketCapRange(c coin.Candidate) coin.MarketCapRange {
	r, _ := coin.ParseMarketCap(c.MarketCap)
	return r
}
