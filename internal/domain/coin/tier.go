package coin

import "strings"

// Tier is the closed liquidity / risk classification used by every scorer.
type Tier string

const (
	TierHigh    Tier = "high"
	TierMedium  Tier = "medium"
	TierLow     Tier = "low"
	TierUnknown Tier = "unknown"
)

// Recommendation is the textual action attached to a candidate by upstream analysis.
type Recommendation string

const (
	RecommendBuy     Recommendation = "buy"
	RecommendHold    Recommendation = "hold"
	RecommendReduce  Recommendation = "reduce"
	RecommendStop    Recommendation = "stop"
	RecommendUnknown Recommendation = ""
)

// tierMarkers maps free-text fragments (English and Arabic) to tiers.
// Longer fragments come first so "منخفضة" is not shadowed by a shorter match.
var liquidityMarkers = []struct {
	fragment string
	tier     Tier
}{
	{"عالية", TierHigh},
	{"مرتفعة", TierHigh},
	{"high", TierHigh},
	{"متوسطة", TierMedium},
	{"medium", TierMedium},
	{"moderate", TierMedium},
	{"منخفضة", TierLow},
	{"ضعيفة", TierLow},
	{"low", TierLow},
}

var riskMarkers = []struct {
	fragment string
	tier     Tier
}{
	{"منخفض", TierLow},
	{"low", TierLow},
	{"متوسط", TierMedium},
	{"medium", TierMedium},
	{"moderate", TierMedium},
	{"مرتفع", TierHigh},
	{"عالي", TierHigh},
	{"high", TierHigh},
}

// ParseLiquidity maps a free-text liquidity descriptor to a Tier.
// The first marker found wins; text with no marker is TierUnknown.
func ParseLiquidity(text string) Tier {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return TierUnknown
	}
	for _, m := range liquidityMarkers {
		if strings.Contains(t, m.fragment) {
			return m.tier
		}
	}
	return TierUnknown
}

// ParseRisk maps a free-text risk descriptor to its primary Tier.
func ParseRisk(text string) Tier {
	tags := RiskTags(text)
	if len(tags) == 0 {
		return TierUnknown
	}
	return tags[0]
}

// RiskTags returns every distinct risk tier mentioned in text, in marker order.
// "منخفض/low" yields [low]; "low to medium" yields [low, medium].
func RiskTags(text string) []Tier {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return nil
	}
	var tags []Tier
	seen := make(map[Tier]bool, 3)
	for _, m := range riskMarkers {
		if seen[m.tier] {
			continue
		}
		if strings.Contains(t, m.fragment) {
			seen[m.tier] = true
			tags = append(tags, m.tier)
		}
	}
	return tags
}

// ParseRecommendation maps recommendation text to the closed set.
func ParseRecommendation(text string) Recommendation {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "buy") || strings.Contains(t, "شراء"):
		return RecommendBuy
	case strings.Contains(t, "hold") || strings.Contains(t, "احتفاظ"):
		return RecommendHold
	case strings.Contains(t, "reduce") || strings.Contains(t, "تقليل"):
		return RecommendReduce
	case strings.Contains(t, "stop") || strings.Contains(t, "إيقاف"):
		return RecommendStop
	default:
		return RecommendUnknown
	}
}

// LiquidityFromVolume derives a tier from 24h quote volume when no text is available.
func LiquidityFromVolume(quoteVolume float64) Tier {
	switch {
	case quoteVolume > 50_000_000:
		return TierHigh
	case quoteVolume > 10_000_000:
		return TierMedium
	case quoteVolume > 0:
		return TierLow
	default:
		return TierUnknown
	}
}

// RiskFromGrowth derives a risk tier from the magnitude of the 24h move.
func RiskFromGrowth(growth float64) Tier {
	g := growth
	if g < 0 {
		g = -g
	}
	switch {
	case g < 5:
		return TierLow
	case g < 15:
		return TierMedium
	default:
		return TierHigh
	}
}
