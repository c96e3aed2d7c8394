package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultTTL bounds how long a registry answer is reused.
const DefaultTTL = time.Hour

// CoinInfo is the registry metadata attached to a verified symbol.
type CoinInfo struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank,omitempty"`
}

// Record is a cached verification outcome.
type Record struct {
	Verified  bool      `json:"verified"`
	CheckedAt time.Time `json:"checked_at"`
	Info      *CoinInfo `json:"info,omitempty"`
}

// Cache stores verification records by upper-case symbol.
type Cache interface {
	Get(ctx context.Context, symbol string) (Record, bool)
	Set(ctx context.Context, symbol string, rec Record) error
	Reset(ctx context.Context) error
}

// MemoryCache is an in-process Cache. Expired entries are dropped on read.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]Record
}

// NewMemoryCache returns a MemoryCache; ttl <= 0 uses DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{ttl: ttl, now: time.Now, entries: make(map[string]Record)}
}

func (c *MemoryCache) Get(_ context.Context, symbol string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[symbol]
	if !ok {
		return Record{}, false
	}
	if c.now().Sub(rec.CheckedAt) > c.ttl {
		delete(c.entries, symbol)
		return Record{}, false
	}
	return rec, true
}

func (c *MemoryCache) Set(_ context.Context, symbol string, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = rec
	return nil
}

// Reset drops every entry.
func (c *MemoryCache) Reset(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Record)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisCache shares verification records between processes.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// DefaultRedisPrefix namespaces verification keys.
const DefaultRedisPrefix = "coinpilot:verify:"

// NewRedisCache wraps client. Keys are "<prefix><SYMBOL>".
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, symbol string) (Record, bool) {
	raw, err := r.client.Get(ctx, r.prefix+symbol).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("symbol", symbol).Msg("Verification cache read failed")
		}
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

func (r *RedisCache) Set(ctx context.Context, symbol string, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode verification record: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+symbol, string(b), r.ttl).Err(); err != nil {
		return fmt.Errorf("store verification record: %w", err)
	}
	return nil
}

// Reset deletes every key under the prefix.
func (r *RedisCache) Reset(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan verification keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete verification keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
