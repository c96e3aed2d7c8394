// Package config loads the coinpilot YAML configuration, layers a .env file
// and environment overrides on top, and converts sections into the option
// structs the components take.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/coinpilot/internal/advisory"
	"github.com/sawpanic/coinpilot/internal/application/autobuy"
	"github.com/sawpanic/coinpilot/internal/application/pipeline"
	"github.com/sawpanic/coinpilot/internal/gates"
	"github.com/sawpanic/coinpilot/internal/infrastructure/async"
	"github.com/sawpanic/coinpilot/internal/infrastructure/db"
	"github.com/sawpanic/coinpilot/internal/providers/adapters"
	"github.com/sawpanic/coinpilot/internal/providers/guards"
	"github.com/sawpanic/coinpilot/internal/safety"
	"github.com/sawpanic/coinpilot/internal/scoring"
)

// Config is the complete application configuration.
type Config struct {
	Exchange  guards.ProviderConfig   `yaml:"exchange"`
	Registry  RegistryConfig          `yaml:"registry"`
	Advisory  AdvisoryConfig          `yaml:"advisory"`
	Filter    gates.FilterConfig      `yaml:"filter"`
	Scan      ScanConfig              `yaml:"scan"`
	Favorites scoring.FavoriteOptions `yaml:"favorites"`
	Database  db.Config               `yaml:"database"`
	Redis     RedisConfig             `yaml:"redis"`
	HTTP      HTTPConfig              `yaml:"http"`
	AutoBuy   AutoBuyConfig           `yaml:"autobuy"`
	Queue     QueueConfig             `yaml:"queue"`
}

// RegistryConfig configures the coin registry used for verification and enrichment.
type RegistryConfig struct {
	guards.ProviderConfig `yaml:",inline"`
	LookupTimeout         time.Duration `yaml:"lookup_timeout"`
	BatchDelay            time.Duration `yaml:"batch_delay"`
	CacheTTL              time.Duration `yaml:"cache_ttl"`
}

// AdvisoryConfig configures the two remote advisors.
type AdvisoryConfig struct {
	First      advisory.HTTPConfig `yaml:"first"`
	Second     advisory.HTTPConfig `yaml:"second"`
	BatchDelay time.Duration       `yaml:"batch_delay"`
	TieBreak   string              `yaml:"tie_break"` // random, buy or skip
}

// ScanConfig holds the pipeline defaults.
type ScanConfig struct {
	QuoteAsset     string  `yaml:"quote_asset"`
	Limit          int     `yaml:"limit"`
	AmountUSDT     float64 `yaml:"amount_usdt"`
	CoinCount      int     `yaml:"coin_count"`
	VerifyExternal bool    `yaml:"verify_external"`
	MarketPages    int     `yaml:"market_pages"`
}

// RedisConfig enables the shared verification cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// AutoBuyConfig holds defaults for users without stored settings.
type AutoBuyConfig struct {
	AmountUSDT float64 `yaml:"amount_usdt"`
	MaxCoins   int     `yaml:"max_coins"`
}

// QueueConfig is the retry policy for paced external calls.
type QueueConfig struct {
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
	MaxRetries  int           `yaml:"max_retries"`
	Jitter      float64       `yaml:"jitter"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	registry := guards.DefaultProviderConfig("coingecko", adapters.DefaultCoinGeckoURL)
	backoff := async.DefaultExponentialBackoff()

	return &Config{
		Exchange: guards.DefaultProviderConfig("binance", adapters.DefaultBinanceURL),
		Registry: RegistryConfig{
			ProviderConfig: registry,
			LookupTimeout:  safety.DefaultLookupTimeout,
			BatchDelay:     safety.DefaultBatchDelay,
			CacheTTL:       safety.DefaultTTL,
		},
		Advisory: AdvisoryConfig{
			First:      advisory.HTTPConfig{Name: "advisor-a", Timeout: 30 * time.Second},
			Second:     advisory.HTTPConfig{Name: "advisor-b", Timeout: 30 * time.Second},
			BatchDelay: advisory.DefaultBatchDelay,
			TieBreak:   "random",
		},
		Scan: ScanConfig{
			QuoteAsset:  "USDT",
			Limit:       pipeline.DefaultLimit,
			CoinCount:   gates.DefaultCoinCount,
			MarketPages: 1,
		},
		Database: db.DefaultConfig(),
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: safety.DefaultRedisPrefix,
		},
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		AutoBuy: AutoBuyConfig{AmountUSDT: 10, MaxCoins: 5},
		Queue: QueueConfig{
			BaseBackoff: backoff.Base,
			MaxBackoff:  backoff.Max,
			MaxRetries:  backoff.MaxRetries,
			Jitter:      backoff.Jitter,
		},
	}
}

// Load reads path over the defaults, then applies .env and environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Debug().Str("path", path).Msg("Config file not found, using defaults")
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("COINPILOT_DB_DSN"); ok && v != "" {
		c.Database.DSN = v
		c.Database.Enabled = true
	}
	str("COINPILOT_DB_DRIVER", &c.Database.Driver)
	if v, ok := lookup("COINPILOT_REDIS_ADDR"); ok && v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	str("COINPILOT_REDIS_PASSWORD", &c.Redis.Password)
	str("COINPILOT_EXCHANGE_URL", &c.Exchange.BaseURL)
	str("COINPILOT_REGISTRY_URL", &c.Registry.BaseURL)
	str("COINPILOT_ADVISOR_A_URL", &c.Advisory.First.URL)
	str("COINPILOT_ADVISOR_A_KEY", &c.Advisory.First.APIKey)
	str("COINPILOT_ADVISOR_B_URL", &c.Advisory.Second.URL)
	str("COINPILOT_ADVISOR_B_KEY", &c.Advisory.Second.APIKey)

	if v, ok := lookup("HTTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_PORT %q: %w", v, err)
		}
		c.HTTP.Port = port
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange base_url cannot be empty")
	}
	if c.Scan.AmountUSDT < 0 {
		return fmt.Errorf("scan amount_usdt cannot be negative, got %f", c.Scan.AmountUSDT)
	}
	if c.AutoBuy.AmountUSDT < 0 {
		return fmt.Errorf("autobuy amount_usdt cannot be negative, got %f", c.AutoBuy.AmountUSDT)
	}
	if c.Queue.Jitter < 0 || c.Queue.Jitter > 1 {
		return fmt.Errorf("queue jitter must be between 0 and 1, got %f", c.Queue.Jitter)
	}
	switch strings.ToLower(c.Advisory.TieBreak) {
	case "", "random", "buy", "skip":
	default:
		return fmt.Errorf("advisory tie_break must be random, buy or skip, got %q", c.Advisory.TieBreak)
	}
	return nil
}

// ScanOptions converts the scan section into pipeline options.
func (c *Config) ScanOptions() pipeline.Options {
	return pipeline.Options{
		QuoteAsset:     c.Scan.QuoteAsset,
		Filter:         c.Filter,
		Amount:         decimal.NewFromFloat(c.Scan.AmountUSDT),
		CoinCount:      c.Scan.CoinCount,
		Limit:          c.Scan.Limit,
		VerifyExternal: c.Scan.VerifyExternal,
		MarketPages:    c.Scan.MarketPages,
	}
}

// TieBreak returns the configured neutral-case policy.
func (c *Config) TieBreak() advisory.TieBreak {
	switch strings.ToLower(c.Advisory.TieBreak) {
	case "buy":
		return advisory.FixedTieBreak(true)
	case "skip":
		return advisory.FixedTieBreak(false)
	default:
		return advisory.RandomTieBreak
	}
}

// Backoff returns the retry policy for paced queues.
func (c *Config) Backoff() async.Backoff {
	if c.Queue.MaxRetries <= 0 {
		return async.NoBackoff{}
	}
	return async.ExponentialBackoff{
		Base:       c.Queue.BaseBackoff,
		Max:        c.Queue.MaxBackoff,
		MaxRetries: c.Queue.MaxRetries,
		Jitter:     c.Queue.Jitter,
	}
}

// AutoBuyDefaults converts the autobuy section.
func (c *Config) AutoBuyDefaults() autobuy.Defaults {
	return autobuy.Defaults{
		Amount:   decimal.NewFromFloat(c.AutoBuy.AmountUSDT),
		MaxCoins: c.AutoBuy.MaxCoins,
	}
}

// Addr is the HTTP listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}
