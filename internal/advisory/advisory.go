// Package advisory combines two independent buy/no-buy opinions into a single
// trigger. A buy needs both advisors to agree; an advisor that cannot answer
// is replaced by a local rule-based heuristic.
package advisory

import (
	"context"
	"errors"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

// Level is an advisor's stated confidence.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// ParseLevel maps free text to a Level, defaulting to low.
func ParseLevel(s string) Level {
	switch coin.ParseRisk(s) {
	case coin.TierHigh:
		return LevelHigh
	case coin.TierMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Subject is what advisors are asked about.
type Subject struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Growth      float64   `json:"growth"`
	Performance float64   `json:"performanceScore"`
	Liquidity   coin.Tier `json:"liquidity"`
	Risk        coin.Tier `json:"riskLevel"`
}

// SubjectFrom builds a Subject; a missing performance score counts as 5.
func SubjectFrom(c coin.Candidate) Subject {
	return Subject{
		Symbol:      c.Symbol,
		Price:       c.Price,
		Growth:      c.Growth,
		Performance: c.PerformanceOr(5),
		Liquidity:   c.Liquidity,
		Risk:        c.Risk,
	}
}

// Source tells a remote answer from a heuristic substitute.
type Source string

const (
	SourceRemote    Source = "remote"
	SourceHeuristic Source = "heuristic"
)

// Advice is one advisor's opinion.
type Advice struct {
	Advisor     string `json:"advisor"`
	Recommended bool   `json:"recommended"`
	Confidence  Level  `json:"confidence"`
	Reason      string `json:"reason,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Source      Source `json:"source"`
}

// Advisor produces an opinion about a subject.
type Advisor interface {
	Name() string
	Advise(ctx context.Context, s Subject) (Advice, error)
}

// ErrNotConfigured is returned by advisors without an endpoint.
var ErrNotConfigured = errors.New("advisor not configured")

// Aggregate is the buy trigger: both advisories must recommend.
func Aggregate(a, b Advice) bool {
	return a.Recommended && b.Recommended
}
