package coin

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Ticker is a 24h market ticker as returned by a Binance-compatible exchange.
// Numeric fields arrive as strings.
type Ticker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
	Volume             string `json:"volume"`
}

// Flex is a number that may be encoded as a JSON number or a string.
// Valid is false when the field was absent, null, not numeric or not finite;
// Value is then zero.
type Flex struct {
	Value float64
	Valid bool
}

// UnmarshalJSON accepts 8, "8", "8%", null, 1e400 and garbage without failing.
func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = Flex{}
		return nil
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			*f = Flex{}
			return nil
		}
		v, ok := ParseNumber(s)
		*f = Flex{Value: v, Valid: ok}
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = Flex{}
		return nil
	}
	*f = Flex{Value: v, Valid: true}
	return nil
}

// Or returns the value when valid and def otherwise.
func (f Flex) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Value
}

// MarshalJSON encodes invalid values as null.
func (f Flex) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// FlexText is a string field that tolerates numbers and booleans in the payload.
type FlexText string

// UnmarshalJSON stores the raw scalar as text.
func (t *FlexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			*t = ""
			return nil
		}
		*t = FlexText(s)
		return nil
	}
	*t = FlexText(b)
	return nil
}

// FlexBool is a boolean that also accepts "true", "yes", "halal" and 1.
type FlexBool struct {
	Value bool
	Valid bool
}

// UnmarshalJSON never fails; unknown encodings are left invalid.
func (f *FlexBool) UnmarshalJSON(b []byte) error {
	var text FlexText
	_ = text.UnmarshalJSON(b)
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "true", "yes", "1", "halal", "compliant", "حلال":
		*f = FlexBool{Value: true, Valid: true}
	case "false", "no", "0", "haram", "حرام":
		*f = FlexBool{Value: false, Valid: true}
	default:
		*f = FlexBool{}
	}
	return nil
}

// Suggestion is a loosely-typed candidate as produced by upstream analysis
// (dashboards, AI suggestion endpoints, hand-written pools).
type Suggestion struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Price            Flex     `json:"price"`
	Growth           Flex     `json:"growth"`
	Liquidity        FlexText `json:"liquidity"`
	RiskLevel        FlexText `json:"riskLevel"`
	MarketCap        FlexText `json:"marketCap"`
	QuoteVolume      Flex     `json:"quoteVolume"`
	Recommendation   FlexText `json:"recommendation"`
	ShariaCompliance FlexBool `json:"shariaCompliance"`
	PerformanceScore Flex     `json:"performanceScore"`
	ValueScore       FlexText `json:"valueScore"`
	Rank             Flex     `json:"rank"`
	AgeDays          Flex     `json:"ageDays"`
}

// Normalizer converts raw exchange and suggestion payloads into Candidates.
type Normalizer struct {
	QuoteAsset string
}

// NewNormalizer returns a normalizer for the given quote asset ("USDT" when empty).
func NewNormalizer(quoteAsset string) *Normalizer {
	if quoteAsset == "" {
		quoteAsset = "USDT"
	}
	return &Normalizer{QuoteAsset: strings.ToUpper(quoteAsset)}
}

// BaseSymbol strips the quote asset from an exchange symbol. The second return
// is false when the symbol is not quoted in the normalizer's asset.
func (n *Normalizer) BaseSymbol(exchangeSymbol string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(exchangeSymbol))
	if !strings.HasSuffix(s, n.QuoteAsset) || len(s) == len(n.QuoteAsset) {
		return "", false
	}
	return strings.TrimSuffix(s, n.QuoteAsset), true
}

// FromTicker builds a candidate from an exchange ticker. Unparsable numbers
// default to zero; liquidity and risk are derived from volume and growth.
func (n *Normalizer) FromTicker(t Ticker) (Candidate, bool) {
	base, ok := n.BaseSymbol(t.Symbol)
	if !ok {
		return Candidate{}, false
	}
	growth := ParseNumberOr(t.PriceChangePercent, 0)
	volume := ParseNumberOr(t.QuoteVolume, 0)
	risk := RiskFromGrowth(growth)
	return Candidate{
		Symbol:      base,
		Price:       ParseNumberOr(t.LastPrice, 0),
		Growth:      growth,
		Liquidity:   LiquidityFromVolume(volume),
		Risk:        risk,
		RiskTags:    []Tier{risk},
		QuoteVolume: volume,
	}, true
}

// FromTickers normalizes a ticker batch, dropping pairs in other quote assets
// and keeping the first occurrence of each symbol.
func (n *Normalizer) FromTickers(tickers []Ticker) []Candidate {
	out := make([]Candidate, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		c, ok := n.FromTicker(t)
		if !ok || seen[c.Symbol] {
			continue
		}
		seen[c.Symbol] = true
		out = append(out, c)
	}
	return out
}

// FromSuggestion builds a candidate from a loosely-typed suggestion. Free-text
// tiers are resolved here, once, so scorers only see the closed enum.
func (n *Normalizer) FromSuggestion(s Suggestion) Candidate {
	symbol := strings.ToUpper(strings.TrimSpace(s.Symbol))
	if base, ok := n.BaseSymbol(symbol); ok {
		symbol = base
	}
	c := Candidate{
		Symbol:         symbol,
		Name:           s.Name,
		Price:          s.Price.Or(0),
		Growth:         s.Growth.Or(0),
		MarketCap:      strings.TrimSpace(string(s.MarketCap)),
		QuoteVolume:    s.QuoteVolume.Or(0),
		Recommendation: ParseRecommendation(string(s.Recommendation)),
		ValueScore:     strings.TrimSpace(string(s.ValueScore)),
		Liquidity:      ParseLiquidity(string(s.Liquidity)),
		RiskTags:       RiskTags(string(s.RiskLevel)),
	}
	c.Risk = TierUnknown
	if len(c.RiskTags) > 0 {
		c.Risk = c.RiskTags[0]
	}
	if c.Liquidity == TierUnknown && string(s.Liquidity) == "" {
		c.Liquidity = LiquidityFromVolume(c.QuoteVolume)
	}
	if s.ShariaCompliance.Valid {
		v := s.ShariaCompliance.Value
		c.Compliant = &v
	}
	if s.PerformanceScore.Valid {
		v := math.Min(math.Max(s.PerformanceScore.Value, 0), MaxPerformance)
		c.Performance = &v
	}
	if s.Rank.Valid && s.Rank.Value > 0 {
		c.Rank = int(s.Rank.Value)
	}
	if s.AgeDays.Valid && s.AgeDays.Value >= 0 {
		d := int(s.AgeDays.Value)
		c.AgeDays = &d
	}
	return c
}
