package safety

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinpilot/internal/infrastructure/async"
	"github.com/sawpanic/coinpilot/internal/providers/adapters"
)

const (
	ReasonWhitelisted = "whitelisted"
	ReasonBlacklisted = "blacklisted"
	ReasonSuspicious  = "suspicious pattern"
	ReasonTooShort    = "too short"
	ReasonTooLong     = "too long"
	ReasonNotFound    = "not found in registry, possibly fraudulent"
	ReasonUnavailable = "registry unavailable"

	DefaultLookupTimeout = 10 * time.Second
	DefaultBatchDelay    = 200 * time.Millisecond

	minSymbolLen = 2
	maxSymbolLen = 10
)

var errNoRegistry = errors.New("no registry configured")

// Registry looks coins up by free-text query.
type Registry interface {
	Search(ctx context.Context, query string) ([]adapters.SearchCoin, error)
}

// QuickResult is the outcome of the synchronous checks.
type QuickResult struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

// Source names where a RegistryResult came from.
type Source string

const (
	SourceWhitelist  Source = "whitelist"
	SourceQuickCheck Source = "quick_check"
	SourceCache      Source = "cache"
	SourceRegistry   Source = "registry"
	SourceFallback   Source = "fallback"
)

// RegistryResult is the outcome of external verification.
type RegistryResult struct {
	Symbol   string    `json:"symbol"`
	Verified bool      `json:"verified"`
	Info     *CoinInfo `json:"info,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Source   Source    `json:"source"`
}

// Degraded reports whether the registry could not be consulted.
func (r RegistryResult) Degraded() bool { return r.Source == SourceFallback }

// Verifier gates symbols before they reach scoring.
type Verifier struct {
	lists    Lists
	registry Registry
	cache    Cache
	timeout  time.Duration
	batch    time.Duration
	now      func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithCache replaces the default in-memory cache.
func WithCache(c Cache) Option { return func(v *Verifier) { v.cache = c } }

// WithLookupTimeout bounds each registry call.
func WithLookupTimeout(d time.Duration) Option { return func(v *Verifier) { v.timeout = d } }

// WithBatchDelay sets the gap between registry calls in VerifyBatch.
func WithBatchDelay(d time.Duration) Option { return func(v *Verifier) { v.batch = d } }

// NewVerifier builds a Verifier. registry may be nil, in which case every
// external lookup takes the failure path.
func NewVerifier(lists Lists, registry Registry, opts ...Option) *Verifier {
	v := &Verifier{
		lists:    lists,
		registry: registry,
		timeout:  DefaultLookupTimeout,
		batch:    DefaultBatchDelay,
		now:      time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	if v.cache == nil {
		v.cache = NewMemoryCache(DefaultTTL)
	}
	return v
}

// Check runs the quick path: whitelist, blacklist, suspicious patterns,
// then length bounds. First match wins.
func (v *Verifier) Check(symbol string) QuickResult {
	s := normalize(symbol)
	switch {
	case v.lists.IsWhitelisted(s):
		return QuickResult{Safe: true, Reason: ReasonWhitelisted}
	case v.lists.IsBlacklisted(s):
		return QuickResult{Safe: false, Reason: ReasonBlacklisted}
	case v.lists.Suspicious(s):
		return QuickResult{Safe: false, Reason: ReasonSuspicious}
	case len(s) < minSymbolLen:
		return QuickResult{Safe: false, Reason: ReasonTooShort}
	case len(s) > maxSymbolLen:
		return QuickResult{Safe: false, Reason: ReasonTooLong}
	}
	return QuickResult{Safe: true}
}

// VerifyExternal confirms a symbol against the registry. Whitelisted and
// quick-rejected symbols never reach the network. On lookup failure the
// result fails closed unless the symbol is whitelisted.
func (v *Verifier) VerifyExternal(ctx context.Context, symbol string) RegistryResult {
	s := normalize(symbol)

	quick := v.Check(s)
	if quick.Reason == ReasonWhitelisted {
		return RegistryResult{Symbol: s, Verified: true, Reason: ReasonWhitelisted, Source: SourceWhitelist}
	}
	if !quick.Safe {
		return RegistryResult{Symbol: s, Verified: false, Reason: quick.Reason, Source: SourceQuickCheck}
	}

	if rec, ok := v.cache.Get(ctx, s); ok {
		res := RegistryResult{Symbol: s, Verified: rec.Verified, Info: rec.Info, Source: SourceCache}
		if !rec.Verified {
			res.Reason = ReasonNotFound
		}
		return res
	}

	coins, err := v.lookup(ctx, s)
	if err != nil {
		failOpen := v.lists.IsWhitelisted(s)
		log.Warn().Err(err).Str("symbol", s).Bool("fail_open", failOpen).Msg("Registry lookup failed")
		return RegistryResult{Symbol: s, Verified: failOpen, Reason: ReasonUnavailable, Source: SourceFallback}
	}

	rec := Record{CheckedAt: v.now()}
	for _, c := range coins {
		if strings.EqualFold(c.Symbol, s) {
			rec.Verified = true
			rec.Info = &CoinInfo{ID: c.ID, Symbol: strings.ToUpper(c.Symbol), Name: c.Name, MarketCapRank: c.MarketCapRank}
			break
		}
	}
	if err := v.cache.Set(ctx, s, rec); err != nil {
		log.Debug().Err(err).Str("symbol", s).Msg("Verification cache write failed")
	}

	res := RegistryResult{Symbol: s, Verified: rec.Verified, Info: rec.Info, Source: SourceRegistry}
	if !rec.Verified {
		res.Reason = ReasonNotFound
	}
	return res
}

func (v *Verifier) lookup(ctx context.Context, symbol string) ([]adapters.SearchCoin, error) {
	if v.registry == nil {
		return nil, errNoRegistry
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return v.registry.Search(ctx, symbol)
}

// VerifyBatch verifies symbols one at a time with a fixed delay between
// calls. Results keep input order; a cancelled ctx truncates the batch.
func (v *Verifier) VerifyBatch(ctx context.Context, symbols []string) []RegistryResult {
	q := async.NewQueue(async.QueueConfig{Name: "verify", Delay: v.batch})
	outcomes := async.Run(ctx, q, symbols, func(ctx context.Context, s string) (RegistryResult, error) {
		return v.VerifyExternal(ctx, s), nil
	})
	out := make([]RegistryResult, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Result
	}
	return out
}

// ResetCache clears cached registry answers.
func (v *Verifier) ResetCache(ctx context.Context) error {
	return v.cache.Reset(ctx)
}
