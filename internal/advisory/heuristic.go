package advisory

import (
	"math/rand"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

// TieBreak decides the neutral case of the heuristic.
type TieBreak func() bool

// RandomTieBreak flips a coin.
func RandomTieBreak() bool { return rand.Intn(2) == 1 }

// FixedTieBreak always answers v.
func FixedTieBreak(v bool) TieBreak { return func() bool { return v } }

type rule struct {
	match       func(Subject) bool
	recommended bool
	confidence  Level
	reason      string
}

// rules are evaluated top to bottom; the first match wins.
var rules = []rule{
	{
		match: func(s Subject) bool {
			return s.Performance >= 7 && s.Growth > 0 && s.Liquidity == coin.TierHigh && s.Risk == coin.TierLow
		},
		recommended: true, confidence: LevelHigh,
		reason: "strong performance with positive growth, high liquidity and low risk",
	},
	{
		match: func(s Subject) bool {
			return s.Performance >= 6 && s.Growth > 0 && (s.Liquidity == coin.TierHigh || s.Risk == coin.TierLow)
		},
		recommended: true, confidence: LevelHigh,
		reason: "good performance with positive growth",
	},
	{
		match:       func(s Subject) bool { return s.Performance >= 5 && s.Growth > 0 },
		recommended: true, confidence: LevelMedium,
		reason: "average performance with positive growth",
	},
	{
		match:       func(s Subject) bool { return s.Performance >= 4 && s.Growth >= 0 && s.Risk == coin.TierMedium },
		recommended: true, confidence: LevelMedium,
		reason: "stable price at medium risk",
	},
	{
		match:       func(s Subject) bool { return s.Growth > 5 && s.Performance >= 3 },
		recommended: true, confidence: LevelLow,
		reason: "strong momentum despite weak fundamentals",
	},
	{
		match:       func(s Subject) bool { return s.Growth < -5 || s.Performance < 3 },
		recommended: false, confidence: LevelHigh,
		reason: "falling price or weak performance",
	},
}

// Heuristic is the local substitute for an unavailable advisor. Only the
// neutral case consults tieBreak; a nil tieBreak uses RandomTieBreak.
func Heuristic(s Subject, tieBreak TieBreak) Advice {
	for _, r := range rules {
		if r.match(s) {
			return Advice{
				Advisor:     "heuristic",
				Recommended: r.recommended,
				Confidence:  r.confidence,
				Reason:      r.reason,
				Source:      SourceHeuristic,
			}
		}
	}
	if tieBreak == nil {
		tieBreak = RandomTieBreak
	}
	return Advice{
		Advisor:     "heuristic",
		Recommended: tieBreak(),
		Confidence:  LevelLow,
		Reason:      "no clear signal",
		Source:      SourceHeuristic,
	}
}
