// Package coin holds the candidate representation shared by the scoring,
// filtering and verification stages, plus the ingestion helpers that turn
// loosely-typed ticker and advisory payloads into it.
package coin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxPerformance is the top of the performance score scale.
const MaxPerformance = 10.0

// Candidate is a coin under consideration. Symbol is the natural key within a batch.
type Candidate struct {
	Symbol         string         `json:"symbol"`
	Name           string         `json:"name,omitempty"`
	Price          float64        `json:"price"`
	Growth         float64        `json:"growth"` // 24h percent change
	Liquidity      Tier           `json:"liquidity"`
	Risk           Tier           `json:"risk"`
	RiskTags       []Tier         `json:"risk_tags,omitempty"`
	MarketCap      string         `json:"market_cap,omitempty"`
	QuoteVolume    float64        `json:"quote_volume"`
	Compliant      *bool          `json:"compliant,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
	Performance    *float64       `json:"performance,omitempty"` // 0-10
	ValueScore     string         `json:"value_score,omitempty"` // 0-100 as text
	Rank           int            `json:"rank,omitempty"`
	AgeDays        *int           `json:"age_days,omitempty"`
	ComplianceNote string         `json:"compliance_note,omitempty"`
}

// IsCompliant reports whether the compliance flag is present and true.
func (c Candidate) IsCompliant() bool {
	return c.Compliant != nil && *c.Compliant
}

// PerformanceOr returns the performance score or def when absent.
func (c Candidate) PerformanceOr(def float64) float64 {
	if c.Performance == nil || math.IsNaN(*c.Performance) {
		return def
	}
	return *c.Performance
}

// ValueScoreOr parses ValueScore, returning def when it is not numeric.
func (c Candidate) ValueScoreOr(def float64) float64 {
	v, ok := ParseNumber(c.ValueScore)
	if !ok {
		return def
	}
	return v
}

// AcceptsRisk reports whether any of the candidate's risk descriptors is in accepted.
func (c Candidate) AcceptsRisk(accepted []Tier) bool {
	tags := c.RiskTags
	if len(tags) == 0 {
		tags = []Tier{c.Risk}
	}
	for _, t := range tags {
		for _, a := range accepted {
			if t == a {
				return true
			}
		}
	}
	return false
}

// ParseNumber parses a loosely formatted number ("1,234.5", " 8 ", "12%").
func ParseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	t = strings.TrimSuffix(t, "%")
	t = strings.ReplaceAll(t, ",", "")
	t = strings.TrimPrefix(t, "$")
	if t == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseNumberOr parses s or returns def.
func ParseNumberOr(s string, def float64) float64 {
	if v, ok := ParseNumber(s); ok {
		return v
	}
	return def
}

// MarketCapRange classifies market cap text by its magnitude suffix.
type MarketCapRange int

const (
	CapUnknown MarketCapRange = iota
	CapMillions
	CapBillions
)

// ParseMarketCap returns the magnitude range of a bucket such as "2.1B" or "$350M"
// along with the numeric part expressed in that range's unit.
func ParseMarketCap(text string) (MarketCapRange, float64) {
	t := strings.ToUpper(strings.TrimSpace(text))
	t = strings.TrimPrefix(t, "$")
	switch {
	case strings.Contains(t, "B"):
		v, _ := ParseNumber(strings.SplitN(t, "B", 2)[0])
		return CapBillions, v
	case strings.Contains(t, "M"):
		v, _ := ParseNumber(strings.SplitN(t, "M", 2)[0])
		return CapMillions, v
	default:
		return CapUnknown, 0
	}
}

// MarketCapUSD normalizes market cap text into USD. Suffixes K, M, B and T
// are honoured; a bare number is read as millions.
func MarketCapUSD(text string) float64 {
	t := strings.ToUpper(strings.TrimSpace(text))
	t = strings.TrimPrefix(t, "$")
	if t == "" {
		return 0
	}
	multiplier := 1e6
	for _, s := range []struct {
		suffix string
		mult   float64
	}{{"T", 1e12}, {"B", 1e9}, {"M", 1e6}, {"K", 1e3}} {
		if i := strings.Index(t, s.suffix); i >= 0 {
			t = t[:i]
			multiplier = s.mult
			break
		}
	}
	v, ok := ParseNumber(t)
	if !ok || v < 0 {
		return 0
	}
	return v * multiplier
}

// MarketCapBucket renders a USD market cap as the textual bucket used by candidates.
func MarketCapBucket(usd float64) string {
	switch {
	case usd <= 0:
		return ""
	case usd >= 1e9:
		return fmt.Sprintf("%.2fB", usd/1e9)
	default:
		return fmt.Sprintf("%.2fM", usd/1e6)
	}
}
