package advisory

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinpilot/internal/infrastructure/async"
)

// DefaultBatchDelay spaces advisor calls in EvaluateBatch.
const DefaultBatchDelay = 2 * time.Second

// Decision is the combined verdict for one subject.
type Decision struct {
	Subject  Subject `json:"subject"`
	First    Advice  `json:"first"`
	Second   Advice  `json:"second"`
	Buy      bool    `json:"buy"`
	Degraded bool    `json:"degraded"`
}

// Aggregator asks two advisors and applies Aggregate.
type Aggregator struct {
	first    Advisor
	second   Advisor
	tieBreak TieBreak
	delay    time.Duration
}

// NewAggregator wires two advisors. A nil tieBreak uses RandomTieBreak and
// a non-positive delay uses DefaultBatchDelay.
func NewAggregator(first, second Advisor, tieBreak TieBreak, delay time.Duration) *Aggregator {
	if tieBreak == nil {
		tieBreak = RandomTieBreak
	}
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	return &Aggregator{first: first, second: second, tieBreak: tieBreak, delay: delay}
}

// Evaluate collects both opinions, substituting the heuristic for any
// advisor that fails.
func (a *Aggregator) Evaluate(ctx context.Context, s Subject) Decision {
	first, fd := a.ask(ctx, a.first, s)
	second, sd := a.ask(ctx, a.second, s)
	d := Decision{
		Subject:  s,
		First:    first,
		Second:   second,
		Buy:      Aggregate(first, second),
		Degraded: fd || sd,
	}
	log.Debug().Str("symbol", s.Symbol).Bool("buy", d.Buy).Bool("degraded", d.Degraded).Msg("Advisory decision")
	return d
}

func (a *Aggregator) ask(ctx context.Context, adv Advisor, s Subject) (Advice, bool) {
	if adv == nil {
		return Heuristic(s, a.tieBreak), true
	}
	advice, err := adv.Advise(ctx, s)
	if err != nil {
		log.Warn().Err(err).Str("advisor", adv.Name()).Str("symbol", s.Symbol).Msg("Advisor unavailable, using heuristic")
		h := Heuristic(s, a.tieBreak)
		h.Advisor = adv.Name()
		return h, true
	}
	return advice, false
}

// EvaluateBatch evaluates subjects in order with a pause between each.
func (a *Aggregator) EvaluateBatch(ctx context.Context, subjects []Subject) []Decision {
	q := async.NewQueue(async.QueueConfig{Name: "advisory", Delay: a.delay})
	outcomes := async.Run(ctx, q, subjects, func(ctx context.Context, s Subject) (Decision, error) {
		return a.Evaluate(ctx, s), nil
	})
	out := make([]Decision, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Result
	}
	return out
}
