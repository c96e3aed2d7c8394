// Package guards wraps outbound provider calls with a shared HTTP client,
// a circuit breaker and typed errors carrying retry guidance.
package guards

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ProviderConfig holds configuration for a specific provider
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	MaxFailures uint32        `yaml:"max_failures"` // consecutive failures before the breaker opens
	OpenTimeout time.Duration `yaml:"open_timeout"` // how long the breaker stays open
}

// DefaultProviderConfig returns a 10s timeout, 5-failure breaker config.
func DefaultProviderConfig(name, baseURL string) ProviderConfig {
	return ProviderConfig{
		Name:        name,
		BaseURL:     baseURL,
		Timeout:     10 * time.Second,
		UserAgent:   "coinpilot/1.0",
		MaxFailures: 5,
		OpenTimeout: 60 * time.Second,
	}
}

// ProviderError represents provider-specific errors with retry guidance
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %s error (status %d): %s (retry after %v)",
			e.Provider, e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("provider %s error (status %d): %s",
		e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrCircuitOpen is wrapped by the ProviderError returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// ProviderGuard owns the HTTP client and breaker for one provider.
type ProviderGuard struct {
	config  ProviderConfig
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// NewProviderGuard creates a new guard with the given configuration
func NewProviderGuard(config ProviderConfig) *ProviderGuard {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = 5
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 60 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(config.BaseURL)
	client.SetTimeout(config.Timeout)
	client.SetHeader("Accept", "application/json")
	if config.UserAgent != "" {
		client.SetHeader("User-Agent", config.UserAgent)
	}

	return &ProviderGuard{
		config:  config,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(breakerSettings(config)),
	}
}

func breakerSettings(config ProviderConfig) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		// Client errors say nothing about provider health.
		IsSuccessful: func(err error) bool {
			var pe *ProviderError
			if errors.As(err, &pe) {
				return !pe.Retryable
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}
}

// Name returns the provider name.
func (g *ProviderGuard) Name() string { return g.config.Name }

// R starts a request bound to ctx.
func (g *ProviderGuard) R(ctx context.Context) *resty.Request {
	return g.client.R().SetContext(ctx)
}

// Execute runs call behind the breaker and converts transport failures and
// non-2xx responses into *ProviderError.
func (g *ProviderGuard) Execute(call func() (*resty.Response, error)) (*resty.Response, error) {
	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		resp, err := call()
		if err != nil {
			return nil, &ProviderError{
				Provider:  g.config.Name,
				Message:   err.Error(),
				Retryable: true,
				Err:       err,
			}
		}
		if resp.IsError() {
			return nil, statusError(g.config.Name, resp)
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &ProviderError{
			Provider:  g.config.Name,
			Message:   "circuit breaker open",
			Retryable: false,
			Err:       ErrCircuitOpen,
		}
	}
	if err != nil {
		log.Debug().Str("provider", g.config.Name).Dur("duration", time.Since(start)).Err(err).Msg("Provider call failed")
		return nil, err
	}
	return result.(*resty.Response), nil
}

// State reports the breaker state ("closed", "half-open", "open").
func (g *ProviderGuard) State() string {
	return g.breaker.State().String()
}

func statusError(provider string, resp *resty.Response) *ProviderError {
	code := resp.StatusCode()
	pe := &ProviderError{
		Provider:   provider,
		StatusCode: code,
		Message:    resp.Status(),
		Retryable:  code == http.StatusTooManyRequests || code >= 500,
	}
	if ra := resp.Header().Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			pe.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return pe
}
