// Package gates narrows a candidate pool before scoring: threshold filters
// (Smart), the compliance annotation step and the investment-fit band.
package gates

import (
	"fmt"
	"strings"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

// FilterConfig is the user-facing filter configuration. Nil fields fall back
// to the defaults in DefaultFilter; an explicit zero disables a numeric threshold.
type FilterConfig struct {
	MinMarketCap      *float64 `yaml:"min_market_cap,omitempty" json:"minMarketCap,omitempty"`           // USD
	MinVolume24h      *float64 `yaml:"min_volume_24h,omitempty" json:"minVolume24h,omitempty"`           // quote volume
	MinLiquidityScore *int     `yaml:"min_liquidity_score,omitempty" json:"minLiquidityScore,omitempty"` // 1-10
	MaxVolatility     *float64 `yaml:"max_volatility,omitempty" json:"maxVolatility,omitempty"`          // abs 24h %
	RiskLevels        []string `yaml:"risk_levels,omitempty" json:"riskLevels,omitempty"`
	MaxRank           *int     `yaml:"max_rank,omitempty" json:"maxRank,omitempty"`
	RequireCompliance *bool    `yaml:"require_compliance,omitempty" json:"requireCompliance,omitempty"`
}

// Filter is a FilterConfig with every default applied.
type Filter struct {
	MinMarketCap      float64
	MinVolume24h      float64
	MinLiquidityScore int
	MaxVolatility     float64 // 0 disables
	RiskLevels        []coin.Tier
	MaxRank           int // 0 disables
	RequireCompliance bool
}

const (
	DefaultMinMarketCap      = 100_000_000.0
	DefaultMinLiquidityScore = 5
)

// DefaultFilter returns the filter applied when no option is configured.
func DefaultFilter() Filter {
	return Filter{
		MinMarketCap:      DefaultMinMarketCap,
		MinLiquidityScore: DefaultMinLiquidityScore,
		RiskLevels:        []coin.Tier{coin.TierLow, coin.TierMedium},
		RequireCompliance: true,
	}
}

// Resolve fills unset options with defaults.
func (c FilterConfig) Resolve() Filter {
	f := DefaultFilter()
	if c.MinMarketCap != nil {
		f.MinMarketCap = *c.MinMarketCap
	}
	if c.MinVolume24h != nil {
		f.MinVolume24h = *c.MinVolume24h
	}
	if c.MinLiquidityScore != nil {
		f.MinLiquidityScore = *c.MinLiquidityScore
	}
	if c.MaxVolatility != nil {
		f.MaxVolatility = *c.MaxVolatility
	}
	if len(c.RiskLevels) > 0 {
		levels := make([]coin.Tier, 0, len(c.RiskLevels))
		for _, l := range c.RiskLevels {
			if t := coin.ParseRisk(l); t != coin.TierUnknown {
				levels = append(levels, t)
			}
		}
		if len(levels) > 0 {
			f.RiskLevels = levels
		}
	}
	if c.MaxRank != nil {
		f.MaxRank = *c.MaxRank
	}
	if c.RequireCompliance != nil {
		f.RequireCompliance = *c.RequireCompliance
	}
	return f
}

// AcceptedLiquidity maps a minimum liquidity score to the tiers it admits:
// 3 or less admits high only, 4-6 high or medium, anything above all tiers.
func AcceptedLiquidity(score int) []coin.Tier {
	switch {
	case score <= 3:
		return []coin.Tier{coin.TierHigh}
	case score <= 6:
		return []coin.Tier{coin.TierHigh, coin.TierMedium}
	default:
		return []coin.Tier{coin.TierHigh, coin.TierMedium, coin.TierLow, coin.TierUnknown}
	}
}

// String renders the resolved filter for logs.
func (f Filter) String() string {
	levels := make([]string, len(f.RiskLevels))
	for i, l := range f.RiskLevels {
		levels[i] = string(l)
	}
	return fmt.Sprintf("mcap>=%.0f vol>=%.0f liq=%d vola<=%.1f risk=%s rank<=%d compliance=%t",
		f.MinMarketCap, f.MinVolume24h, f.MinLiquidityScore, f.MaxVolatility,
		strings.Join(levels, ","), f.MaxRank, f.RequireCompliance)
}
