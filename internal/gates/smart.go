package gates

import (
	"math"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

// CompliantNote is the annotation written by AnnotateCompliance.
const CompliantNote = "compliant"

// Rejection records why a candidate left the pool.
type Rejection struct {
	Symbol string `json:"symbol"`
	Gate   string `json:"gate"`
}

// Smart applies the threshold filters in order: market cap, volume,
// liquidity, volatility, risk membership, rank. It never mutates pool.
func Smart(pool []coin.Candidate, cfg FilterConfig) []coin.Candidate {
	kept, _ := SmartWithReasons(pool, cfg.Resolve())
	return kept
}

// SmartWithReasons is Smart on a resolved Filter that also reports the
// first gate each dropped candidate failed.
func SmartWithReasons(pool []coin.Candidate, f Filter) ([]coin.Candidate, []Rejection) {
	liquidity := AcceptedLiquidity(f.MinLiquidityScore)
	kept := make([]coin.Candidate, 0, len(pool))
	var rejected []Rejection

	for _, c := range pool {
		gate := firstFailedGate(c, f, liquidity)
		if gate != "" {
			rejected = append(rejected, Rejection{Symbol: c.Symbol, Gate: gate})
			continue
		}
		kept = append(kept, c)
	}
	return kept, rejected
}

func firstFailedGate(c coin.Candidate, f Filter, liquidity []coin.Tier) string {
	if f.MinMarketCap > 0 && coin.MarketCapUSD(c.MarketCap) < f.MinMarketCap {
		return "market_cap"
	}
	if f.MinVolume24h > 0 && c.QuoteVolume < f.MinVolume24h {
		return "volume"
	}
	if !tierIn(c.Liquidity, liquidity) {
		return "liquidity"
	}
	if f.MaxVolatility > 0 && math.Abs(c.Growth) > f.MaxVolatility {
		return "volatility"
	}
	if !c.AcceptsRisk(f.RiskLevels) {
		return "risk"
	}
	if f.MaxRank > 0 && c.Rank > f.MaxRank {
		return "rank"
	}
	return ""
}

func tierIn(t coin.Tier, set []coin.Tier) bool {
	for _, s := range set {
		if t == s {
			return true
		}
	}
	return false
}

// AnnotateCompliance returns a copy of pool with every candidate's compliance
// note set. Filtering and annotation are kept apart so filters stay pure.
func AnnotateCompliance(pool []coin.Candidate) []coin.Candidate {
	out := make([]coin.Candidate, len(pool))
	for i, c := range pool {
		c.ComplianceNote = CompliantNote
		out[i] = c
	}
	return out
}
