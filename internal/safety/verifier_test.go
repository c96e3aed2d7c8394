package safety

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinpilot/internal/providers/adapters"
)

type mockRegistry struct {
	coins []adapters.SearchCoin
	err   error
	calls []string
}

func (m *mockRegistry) Search(_ context.Context, query string) ([]adapters.SearchCoin, error) {
	m.calls = append(m.calls, query)
	return m.coins, m.err
}

func TestCheck_Order(t *testing.T) {
	v := NewVerifier(DefaultLists(), nil)

	cases := []struct {
		symbol string
		safe   bool
		reason string
	}{
		{"BTC", true, ReasonWhitelisted},
		{"btc", true, ReasonWhitelisted},
		{"LUNA", false, ReasonBlacklisted},
		{"A", false, ReasonSuspicious},
		{"123", false, ReasonSuspicious},
		{"X1", false, ReasonSuspicious},
		{"SAFEMOON", false, ReasonBlacklisted},
		{"SAFEPAL", false, ReasonSuspicious},
		{"BABYDOGE", false, ReasonSuspicious},
		{"SHIBAINU", false, ReasonSuspicious},
		{"TESTCOIN", false, ReasonSuspicious},
		{"FAKEETH", false, ReasonSuspicious},
		{"ELONCOIN", false, ReasonSuspicious},
		{"VERYLONGNAME", false, ReasonTooLong},
		{"PEPE", true, ""},
	}
	for _, tc := range cases {
		got := v.Check(tc.symbol)
		assert.Equal(t, tc.safe, got.Safe, tc.symbol)
		assert.Equal(t, tc.reason, got.Reason, tc.symbol)
	}
}

func TestCheck_SafemoonRejectedWithoutBlacklist(t *testing.T) {
	lists := DefaultLists()
	delete(lists.Blacklist, "SAFEMOON")
	v := NewVerifier(lists, nil)

	got := v.Check("SAFEMOON")
	assert.False(t, got.Safe)
	assert.Equal(t, ReasonSuspicious, got.Reason)
}

func TestCheck_WhitelistBeatsPatternAndLength(t *testing.T) {
	lists := DefaultLists()
	lists.AllowSymbol("Q")
	lists.AllowSymbol("SAFEGUARDTOKEN")
	v := NewVerifier(lists, nil)

	assert.Equal(t, QuickResult{Safe: true, Reason: ReasonWhitelisted}, v.Check("Q"))
	assert.Equal(t, QuickResult{Safe: true, Reason: ReasonWhitelisted}, v.Check("SAFEGUARDTOKEN"))
}

func TestCheck_TooShort(t *testing.T) {
	lists := DefaultLists()
	lists.Patterns = nil
	v := NewVerifier(lists, nil)
	assert.Equal(t, QuickResult{Safe: false, Reason: ReasonTooShort}, v.Check("Z"))
}

func TestVerifyExternal_SkipsNetworkForListedSymbols(t *testing.T) {
	reg := &mockRegistry{}
	v := NewVerifier(DefaultLists(), reg)

	res := v.VerifyExternal(context.Background(), "ETH")
	assert.True(t, res.Verified)
	assert.Equal(t, SourceWhitelist, res.Source)

	res = v.VerifyExternal(context.Background(), "LUNA")
	assert.False(t, res.Verified)
	assert.Equal(t, ReasonBlacklisted, res.Reason)
	assert.Equal(t, SourceQuickCheck, res.Source)

	assert.Empty(t, reg.calls)
}

func TestVerifyExternal_ExactMatchAndCache(t *testing.T) {
	reg := &mockRegistry{coins: []adapters.SearchCoin{
		{ID: "pepe-fork", Symbol: "PEPE2", Name: "Fork"},
		{ID: "pepe", Symbol: "pepe", Name: "Pepe", MarketCapRank: 38},
	}}
	v := NewVerifier(DefaultLists(), reg)

	res := v.VerifyExternal(context.Background(), "Pepe")
	require.True(t, res.Verified)
	assert.Equal(t, SourceRegistry, res.Source)
	require.NotNil(t, res.Info)
	assert.Equal(t, "pepe", res.Info.ID)
	assert.Equal(t, 38, res.Info.MarketCapRank)

	res = v.VerifyExternal(context.Background(), "PEPE")
	assert.True(t, res.Verified)
	assert.Equal(t, SourceCache, res.Source)
	assert.Len(t, reg.calls, 1)
}

func TestVerifyExternal_NotFound(t *testing.T) {
	reg := &mockRegistry{coins: []adapters.SearchCoin{{ID: "wif", Symbol: "WIFI", Name: "Not it"}}}
	v := NewVerifier(DefaultLists(), reg)

	res := v.VerifyExternal(context.Background(), "WIF")
	assert.False(t, res.Verified)
	assert.Equal(t, ReasonNotFound, res.Reason)

	// negative answers are cached too
	res = v.VerifyExternal(context.Background(), "WIF")
	assert.Equal(t, SourceCache, res.Source)
	assert.False(t, res.Verified)
	assert.Len(t, reg.calls, 1)
}

func TestVerifyExternal_FailsClosed(t *testing.T) {
	reg := &mockRegistry{err: errors.New("connection refused")}
	v := NewVerifier(DefaultLists(), reg)

	res := v.VerifyExternal(context.Background(), "PEPE")
	assert.False(t, res.Verified)
	assert.True(t, res.Degraded())
	assert.Equal(t, ReasonUnavailable, res.Reason)

	// failures are not cached
	v.VerifyExternal(context.Background(), "PEPE")
	assert.Len(t, reg.calls, 2)
}

func TestVerifyExternal_NoRegistryFailsClosed(t *testing.T) {
	v := NewVerifier(DefaultLists(), nil)
	res := v.VerifyExternal(context.Background(), "PEPE")
	assert.False(t, res.Verified)
	assert.Equal(t, SourceFallback, res.Source)
}

func TestMemoryCache_TTLOnReadAndReset(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Hour)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "PEPE", Record{Verified: true, CheckedAt: now}))
	_, ok := c.Get(ctx, "PEPE")
	assert.True(t, ok)

	now = now.Add(61 * time.Minute)
	_, ok = c.Get(ctx, "PEPE")
	assert.False(t, ok)
	assert.Zero(t, c.Len())

	require.NoError(t, c.Set(ctx, "WIF", Record{CheckedAt: now}))
	require.NoError(t, c.Reset(ctx))
	assert.Zero(t, c.Len())
}

func TestVerifier_ResetCacheForcesLookup(t *testing.T) {
	reg := &mockRegistry{coins: []adapters.SearchCoin{{ID: "pepe", Symbol: "PEPE"}}}
	v := NewVerifier(DefaultLists(), reg)
	ctx := context.Background()

	v.VerifyExternal(ctx, "PEPE")
	require.NoError(t, v.ResetCache(ctx))
	v.VerifyExternal(ctx, "PEPE")
	assert.Len(t, reg.calls, 2)
}

func TestVerifyBatch_OrderAndPacing(t *testing.T) {
	reg := &mockRegistry{coins: []adapters.SearchCoin{{ID: "pepe", Symbol: "PEPE"}}}
	v := NewVerifier(DefaultLists(), reg, WithBatchDelay(20*time.Millisecond))

	start := time.Now()
	got := v.VerifyBatch(context.Background(), []string{"BTC", "LUNA", "PEPE"})
	require.Len(t, got, 3)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)

	assert.Equal(t, "BTC", got[0].Symbol)
	assert.True(t, got[0].Verified)
	assert.Equal(t, "LUNA", got[1].Symbol)
	assert.False(t, got[1].Verified)
	assert.Equal(t, "PEPE", got[2].Symbol)
	assert.True(t, got[2].Verified)
}
