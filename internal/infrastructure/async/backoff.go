package async

import (
	"math/rand"
	"time"
)

// Backoff decides how long to wait before retry attempt n (1-based).
// Returning false stops retrying.
type Backoff interface {
	Next(attempt int) (time.Duration, bool)
}

// NoBackoff never retries.
type NoBackoff struct{}

func (NoBackoff) Next(int) (time.Duration, bool) { return 0, false }

// ExponentialBackoff doubles Base on every attempt up to Max, with ±Jitter
// proportional noise.
type ExponentialBackoff struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
	Jitter     float64 // 0.25 means ±25%
}

// DefaultExponentialBackoff returns 100ms base, 30s cap, 3 retries, 25% jitter.
func DefaultExponentialBackoff() ExponentialBackoff {
	return ExponentialBackoff{
		Base:       100 * time.Millisecond,
		Max:        30 * time.Second,
		MaxRetries: 3,
		Jitter:     0.25,
	}
}

func (b ExponentialBackoff) Next(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > b.MaxRetries {
		return 0, false
	}
	base := b.Base
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	limit := b.Max
	if limit <= 0 {
		limit = 30 * time.Second
	}

	d := base
	for i := 1; i < attempt && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		d = limit
	}

	if b.Jitter > 0 {
		spread := int64(float64(d) * b.Jitter)
		if spread > 0 {
			d += time.Duration(rand.Int63n(2*spread+1) - spread)
		}
	}
	return d, true
}
