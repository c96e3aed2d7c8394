package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

// FavoriteOptions tunes the favorite ranking formula.
type FavoriteOptions struct {
	// ClampNegative floors the total at zero. The growth penalty can push a
	// coin with no other merit below zero; by default that is kept.
	ClampNegative bool `yaml:"clamp_negative" json:"clamp_negative"`
}

// FavoriteScore returns the favorite ranking score of c, rounded to one decimal.
// Components: growth (max 25, min -10), liquidity (20), risk (20), value (15),
// listing age (10) and compliance (10).
func FavoriteScore(c coin.Candidate, opts FavoriteOptions) float64 {
	total := favoriteGrowth(c.Growth) +
		favoriteLiquidity(c.Liquidity) +
		favoriteRisk(c.Risk) +
		favoriteValue(c.ValueScore) +
		favoriteAge(c.AgeDays)
	if c.IsCompliant() {
		total += 10
	}
	if opts.ClampNegative && total < 0 {
		total = 0
	}
	return math.Round(total*10) / 10
}

func favoriteGrowth(g float64) float64 {
	switch {
	case g > 0:
		return math.Min(g*2.5, 25)
	case g < 0:
		return math.Max(g*0.5, -10)
	default:
		return 0
	}
}

func favoriteLiquidity(t coin.Tier) float64 {
	switch t {
	case coin.TierHigh:
		return 20
	case coin.TierMedium:
		return 12
	case coin.TierLow:
		return 5
	default:
		return 0
	}
}

func favoriteRisk(t coin.Tier) float64 {
	switch t {
	case coin.TierLow:
		return 20
	case coin.TierMedium:
		return 12
	case coin.TierHigh:
		return 4
	default:
		return 0
	}
}

func favoriteValue(text string) float64 {
	v, ok := coin.ParseNumber(text)
	if !ok {
		return 0
	}
	return clamp(math.Trunc(v), 0, 100) * 0.15
}

func favoriteAge(days *int) float64 {
	if days == nil {
		return 0
	}
	switch d := *days; {
	case d <= 7:
		return 10
	case d <= 30:
		return 8
	case d <= 90:
		return 5
	default:
		return 2
	}
}

// RankedFavorite is a saved coin with its favorite score and rank badge.
type RankedFavorite struct {
	Candidate coin.Candidate `json:"candidate"`
	Score     float64        `json:"score"`
	Rank      int            `json:"rank"`
	Badge     string         `json:"badge"`
}

// RankFavorites scores and orders coins descending by favorite score.
// Equal scores keep their input order.
func RankFavorites(pool []coin.Candidate, opts FavoriteOptions) []RankedFavorite {
	out := make([]RankedFavorite, len(pool))
	for i, c := range pool {
		out[i] = RankedFavorite{Candidate: c, Score: FavoriteScore(c, opts)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
		out[i].Badge = Badge(i + 1)
	}
	return out
}

var rankBadges = [...]string{"🏆", "🥈", "🥉", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// Badge returns the display marker for a 1-based rank.
func Badge(rank int) string {
	if rank >= 1 && rank <= len(rankBadges) {
		return rankBadges[rank-1]
	}
	return fmt.Sprintf("⭐%d", rank)
}
