package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinpilot/internal/advisory"
	"github.com/sawpanic/coinpilot/internal/application/autobuy"
	"github.com/sawpanic/coinpilot/internal/application/favorites"
	"github.com/sawpanic/coinpilot/internal/application/pipeline"
	"github.com/sawpanic/coinpilot/internal/config"
	"github.com/sawpanic/coinpilot/internal/infrastructure/async"
	"github.com/sawpanic/coinpilot/internal/infrastructure/db"
	"github.com/sawpanic/coinpilot/internal/providers/adapters"
	"github.com/sawpanic/coinpilot/internal/safety"
)

var errPersistenceDisabled = errors.New("database is disabled; set database.enabled or COINPILOT_DB_DSN")

// app is the wired object graph shared by every command.
type app struct {
	cfg       *config.Config
	exchange  *adapters.BinanceAdapter
	registry  *adapters.CoinGeckoAdapter
	verifier  *safety.Verifier
	pipeline  *pipeline.Pipeline
	db        *db.Manager
	favorites *favorites.Service
	autobuy   *autobuy.Service
	redis     *redis.Client
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		exchange: adapters.NewBinanceAdapter(cfg.Exchange),
		registry: adapters.NewCoinGeckoAdapter(cfg.Registry.ProviderConfig),
	}

	a.verifier = safety.NewVerifier(safety.DefaultLists(), a.registry,
		safety.WithCache(a.verificationCache(ctx)),
		safety.WithLookupTimeout(cfg.Registry.LookupTimeout),
		safety.WithBatchDelay(cfg.Registry.BatchDelay),
	)

	fetch := async.NewQueue(async.QueueConfig{Name: "fetch", Backoff: cfg.Backoff()})
	a.pipeline = pipeline.New(a.exchange, a.registry, a.verifier, pipeline.WithFetchQueue(fetch))

	a.db, err = db.NewManager(cfg.Database)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	if a.db.IsEnabled() {
		repos := a.db.Repository()
		a.favorites = favorites.NewService(repos.Favorites, cfg.Favorites)
		agg := advisory.NewAggregator(
			advisory.NewHTTPAdvisor(cfg.Advisory.First),
			advisory.NewHTTPAdvisor(cfg.Advisory.Second),
			cfg.TieBreak(),
			cfg.Advisory.BatchDelay,
		)
		a.autobuy = autobuy.NewService(repos.Settings, a.favorites, agg, a.verifier, nil, cfg.AutoBuyDefaults())
	}

	log.Debug().
		Bool("database", a.db.IsEnabled()).
		Bool("redis", a.redis != nil).
		Str("exchange", cfg.Exchange.BaseURL).
		Str("registry", cfg.Registry.BaseURL).
		Msg("Application wired")
	return a, nil
}

// verificationCache returns the Redis cache when it is enabled and reachable,
// the in-process cache otherwise.
func (a *app) verificationCache(ctx context.Context) safety.Cache {
	rc := a.cfg.Redis
	if !rc.Enabled {
		return safety.NewMemoryCache(a.cfg.Registry.CacheTTL)
	}

	client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", rc.Addr).Msg("Redis unreachable, using in-memory verification cache")
		client.Close()
		return safety.NewMemoryCache(a.cfg.Registry.CacheTTL)
	}

	a.redis = client
	return safety.NewRedisCache(client, rc.Prefix, a.cfg.Registry.CacheTTL)
}

func (a *app) requireDB() error {
	if a.favorites == nil {
		return errPersistenceDisabled
	}
	return nil
}

// Close releases the database and Redis connections.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Database close failed")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Redis close failed")
		}
	}
}
