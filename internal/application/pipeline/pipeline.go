// Package pipeline is the single entry point for a coin scan: ticker ingest,
// safety screening, market enrichment, threshold and budget filters, then
// confidence ranking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
	"github.com/sawpanic/coinpilot/internal/gates"
	"github.com/sawpanic/coinpilot/internal/infrastructure/async"
	"github.com/sawpanic/coinpilot/internal/providers/adapters"
	"github.com/sawpanic/coinpilot/internal/providers/guards"
	"github.com/sawpanic/coinpilot/internal/safety"
)

// DefaultLimit is the number of picks returned when Options.Limit is unset.
const DefaultLimit = 5

// TickerSource supplies raw 24h tickers.
type TickerSource interface {
	Tickers(ctx context.Context) ([]coin.Ticker, error)
}

// MarketSource supplies market cap and rank data.
type MarketSource interface {
	Markets(ctx context.Context, vsCurrency string, page, perPage int) ([]adapters.MarketData, error)
}

// Verifier screens symbols locally and against the registry.
type Verifier interface {
	Check(symbol string) safety.QuickResult
	VerifyBatch(ctx context.Context, symbols []string) []safety.RegistryResult
}

// Options controls one scan.
type Options struct {
	QuoteAsset     string
	Filter         gates.FilterConfig
	Amount         decimal.Decimal // zero skips the budget filter
	CoinCount      int
	Limit          int
	VerifyExternal bool
	MarketPages    int
}

// Unsafe is a symbol dropped by the safety verifier.
type Unsafe struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Result is the outcome of a scan. NoCandidates means nothing met the
// criteria; Degraded means a fallback was used somewhere along the way.
// Both can be true.
type Result struct {
	StartedAt       time.Time         `json:"started_at"`
	Duration        time.Duration     `json:"duration"`
	Scanned         int               `json:"scanned"`
	Unsafe          []Unsafe          `json:"unsafe,omitempty"`
	Rejected        []gates.Rejection `json:"rejected,omitempty"`
	Picks           []Pick            `json:"picks"`
	NoCandidates    bool              `json:"no_candidates"`
	Degraded        bool              `json:"degraded"`
	DegradedReasons []string          `json:"degraded_reasons,omitempty"`
}

func (r *Result) degrade(reason string) {
	r.Degraded = true
	r.DegradedReasons = append(r.DegradedReasons, reason)
}

// Pipeline wires the sources and verifier. markets may be nil.
type Pipeline struct {
	tickers  TickerSource
	markets  MarketSource
	verifier Verifier
	fetch    *async.Queue
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFetchQueue routes ticker and market calls through q, which applies
// its pacing and retry policy.
func WithFetchQueue(q *async.Queue) Option {
	return func(p *Pipeline) { p.fetch = q }
}

// New returns a pipeline over the given collaborators.
func New(tickers TickerSource, markets MarketSource, verifier Verifier, opts ...Option) *Pipeline {
	p := &Pipeline{tickers: tickers, markets: markets, verifier: verifier}
	for _, o := range opts {
		o(p)
	}
	if p.fetch == nil {
		p.fetch = async.NewQueue(async.QueueConfig{Name: "fetch", Backoff: async.NoBackoff{}})
	}
	return p
}

// Run executes a full scan. Only a ticker failure is returned as an error;
// everything downstream degrades.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{StartedAt: time.Now().UTC()}
	opts = withDefaults(opts)

	log.Info().
		Str("quote", opts.QuoteAsset).
		Int("limit", opts.Limit).
		Bool("verify_external", opts.VerifyExternal).
		Str("budget", opts.Amount.String()).
		Msg("Starting scan pipeline")

	var tickers []coin.Ticker
	err := p.fetch.Do(ctx, func(ctx context.Context) error {
		var err error
		tickers, err = p.tickers.Tickers(ctx)
		return retryable(err)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}

	pool := coin.NewNormalizer(opts.QuoteAsset).FromTickers(tickers)
	res.Scanned = len(pool)

	pool = p.screen(pool, res)
	pool = p.enrich(ctx, pool, opts.MarketPages, res)

	filtered, rejected := Filter(pool, opts)
	res.Rejected = rejected

	if opts.VerifyExternal {
		filtered = p.verify(ctx, filtered, res)
	}

	res.Picks = Explained(TopN(filtered, opts.Limit))
	res.NoCandidates = len(res.Picks) == 0
	res.Duration = time.Since(res.StartedAt)

	log.Info().
		Int("scanned", res.Scanned).
		Int("unsafe", len(res.Unsafe)).
		Int("rejected", len(res.Rejected)).
		Int("picks", len(res.Picks)).
		Bool("degraded", res.Degraded).
		Dur("duration", res.Duration).
		Msg("Scan pipeline completed")
	return res, nil
}

// Select runs the offline part of the pipeline on an already-normalized pool.
func Select(pool []coin.Candidate, opts Options) *Result {
	opts = withDefaults(opts)
	res := &Result{StartedAt: time.Now().UTC(), Scanned: len(pool)}
	filtered, rejected := Filter(pool, opts)
	res.Rejected = rejected
	res.Picks = Explained(TopN(filtered, opts.Limit))
	res.NoCandidates = len(res.Picks) == 0
	res.Duration = time.Since(res.StartedAt)
	return res
}

// Filter applies the threshold filter, the compliance annotation when the
// resolved filter requires it, and the budget filter.
func Filter(pool []coin.Candidate, opts Options) ([]coin.Candidate, []gates.Rejection) {
	f := opts.Filter.Resolve()
	kept, rejected := gates.SmartWithReasons(pool, f)
	if f.RequireCompliance {
		kept = gates.AnnotateCompliance(kept)
	}

	fit := gates.FitBudget(kept, opts.Amount, opts.CoinCount)
	if len(fit) < len(kept) {
		inBudget := make(map[string]bool, len(fit))
		for _, c := range fit {
			inBudget[c.Symbol] = true
		}
		for _, c := range kept {
			if !inBudget[c.Symbol] {
				rejected = append(rejected, gates.Rejection{Symbol: c.Symbol, Gate: "budget"})
			}
		}
	}
	return fit, rejected
}

func (p *Pipeline) screen(pool []coin.Candidate, res *Result) []coin.Candidate {
	if p.verifier == nil {
		return pool
	}
	out := make([]coin.Candidate, 0, len(pool))
	for _, c := range pool {
		q := p.verifier.Check(c.Symbol)
		if !q.Safe {
			res.Unsafe = append(res.Unsafe, Unsafe{Symbol: c.Symbol, Reason: q.Reason})
			continue
		}
		out = append(out, c)
	}
	return out
}

// enrich fills market cap, rank and name from the market source. Symbols
// shared by several coins keep the largest one.
func (p *Pipeline) enrich(ctx context.Context, pool []coin.Candidate, pages int, res *Result) []coin.Candidate {
	if p.markets == nil {
		return pool
	}

	bySymbol := make(map[string]adapters.MarketData)
	for page := 1; page <= pages; page++ {
		var markets []adapters.MarketData
		err := p.fetch.Do(ctx, func(ctx context.Context) error {
			var err error
			markets, err = p.markets.Markets(ctx, "usd", page, 250)
			return retryable(err)
		})
		if err != nil {
			log.Warn().Err(err).Int("page", page).Msg("Market enrichment failed")
			res.degrade("market data unavailable")
			break
		}
		for _, m := range markets {
			sym := strings.ToUpper(m.Symbol)
			if _, ok := bySymbol[sym]; !ok {
				bySymbol[sym] = m
			}
		}
		if len(markets) < 250 {
			break
		}
	}

	out := make([]coin.Candidate, len(pool))
	for i, c := range pool {
		if m, ok := bySymbol[c.Symbol]; ok {
			c.Name = m.Name
			c.MarketCap = coin.MarketCapBucket(m.MarketCap)
			c.Rank = m.MarketCapRank
		}
		out[i] = c
	}
	return out
}

func (p *Pipeline) verify(ctx context.Context, pool []coin.Candidate, res *Result) []coin.Candidate {
	if p.verifier == nil || len(pool) == 0 {
		return pool
	}
	symbols := make([]string, len(pool))
	for i, c := range pool {
		symbols[i] = c.Symbol
	}

	verdicts := make(map[string]safety.RegistryResult, len(pool))
	for _, r := range p.verifier.VerifyBatch(ctx, symbols) {
		verdicts[r.Symbol] = r
	}

	out := make([]coin.Candidate, 0, len(pool))
	degraded := false
	for _, c := range pool {
		r, ok := verdicts[c.Symbol]
		if !ok {
			// batch cut short by ctx
			res.Unsafe = append(res.Unsafe, Unsafe{Symbol: c.Symbol, Reason: safety.ReasonUnavailable})
			degraded = true
			continue
		}
		if r.Degraded() {
			degraded = true
		}
		if !r.Verified {
			res.Unsafe = append(res.Unsafe, Unsafe{Symbol: c.Symbol, Reason: r.Reason})
			continue
		}
		out = append(out, c)
	}
	if degraded {
		res.degrade("registry unavailable")
	}
	return out
}

// retryable marks provider errors that carry no retry guidance as permanent.
func retryable(err error) error {
	var pe *guards.ProviderError
	if errors.As(err, &pe) && !pe.Retryable {
		return async.Permanent(err)
	}
	return err
}

func withDefaults(opts Options) Options {
	if opts.QuoteAsset == "" {
		opts.QuoteAsset = "USDT"
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.MarketPages <= 0 {
		opts.MarketPages = 1
	}
	return opts
}
