package pipeline

import (
	"sort"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
	"github.com/sawpanic/coinpilot/internal/scoring"
)

// Pick is a selected candidate with its score and the reasons behind it.
type Pick struct {
	scoring.Scored
	Reasons []string `json:"reasons"`
}

// score pairs every candidate with its confidence, keeping input order.
func score(pool []coin.Candidate) []scoring.Scored {
	out := make([]scoring.Scored, len(pool))
	for i, c := range pool {
		out[i] = scoring.Scored{Candidate: c, Confidence: scoring.Confidence(c)}
	}
	return out
}

// TopN returns the min(n, len(pool)) best candidates by confidence, highest
// first. Equal scores keep their input order.
func TopN(pool []coin.Candidate, n int) []scoring.Scored {
	if n <= 0 || len(pool) == 0 {
		return []scoring.Scored{}
	}
	scored := score(pool)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Confidence > scored[j].Confidence
	})
	if n > len(scored) {
		n = len(scored)
	}
	return scored[:n]
}

// FindBest returns the highest-scoring candidate, or false for an empty pool.
func FindBest(pool []coin.Candidate) (scoring.Scored, bool) {
	top := TopN(pool, 1)
	if len(top) == 0 {
		return scoring.Scored{}, false
	}
	return top[0], true
}

// Explained attaches scoring.Explain reasons to each scored entry.
func Explained(scored []scoring.Scored) []Pick {
	out := make([]Pick, len(scored))
	for i, s := range scored {
		out[i] = Pick{Scored: s, Reasons: scoring.Explain(s.Candidate)}
	}
	return out
}
