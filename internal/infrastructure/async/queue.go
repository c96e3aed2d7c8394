// Package async paces calls to rate-limited external services.
package async

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// QueueConfig controls pacing and retries.
type QueueConfig struct {
	Name    string
	Delay   time.Duration // minimum gap between task starts
	Backoff Backoff
}

// DefaultQueueConfig returns a 1s-paced queue without retries.
func DefaultQueueConfig(name string) QueueConfig {
	return QueueConfig{Name: name, Delay: time.Second, Backoff: NoBackoff{}}
}

// QueueMetrics is a snapshot of queue counters.
type QueueMetrics struct {
	Started   int64
	Succeeded int64
	Failed    int64
	Retries   int64
}

// Queue runs tasks one at a time, at most one start per Delay. Retries also
// pass through the limiter so a backoff never lets a burst through.
type Queue struct {
	name    string
	limiter *rate.Limiter
	backoff Backoff

	started   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	retries   atomic.Int64
}

// NewQueue builds a queue from cfg. A zero Delay disables pacing.
func NewQueue(cfg QueueConfig) *Queue {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = NoBackoff{}
	}
	return &Queue{
		name:    cfg.Name,
		limiter: rate.NewLimiter(limit, 1),
		backoff: backoff,
	}
}

// Do runs fn after waiting for the pacing slot, retrying per the backoff policy.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if err := q.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("queue %s: %w", q.name, err)
		}
		q.started.Add(1)

		err := fn(ctx)
		if err == nil {
			q.succeeded.Add(1)
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			q.failed.Add(1)
			return perm.err
		}

		wait, retry := q.backoff.Next(attempt + 1)
		if !retry {
			q.failed.Add(1)
			return err
		}
		q.retries.Add(1)
		log.Debug().Str("queue", q.name).Int("attempt", attempt+1).Dur("backoff", wait).Err(err).Msg("Retrying task")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			q.failed.Add(1)
			return ctx.Err()
		}
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Metrics returns the current counters.
func (q *Queue) Metrics() QueueMetrics {
	return QueueMetrics{
		Started:   q.started.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Retries:   q.retries.Load(),
	}
}

// Outcome pairs an input with its result.
type Outcome[T, R any] struct {
	Input  T
	Result R
	Err    error
}

// Run processes items sequentially through q, preserving order. A failed
// item records its error and the batch continues; cancelling ctx stops the
// batch and returns the outcomes gathered so far.
func Run[T, R any](ctx context.Context, q *Queue, items []T, fn func(context.Context, T) (R, error)) []Outcome[T, R] {
	out := make([]Outcome[T, R], 0, len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		var res R
		err := q.Do(ctx, func(ctx context.Context) error {
			var err error
			res, err = fn(ctx, item)
			return err
		})
		if err != nil && ctx.Err() != nil {
			break
		}
		out = append(out, Outcome[T, R]{Input: item, Result: res, Err: err})
	}
	return out
}
