package safety

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_SetGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "", time.Hour)
	ctx := context.Background()

	rec := Record{
		Verified:  true,
		CheckedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		Info:      &CoinInfo{ID: "pepe", Symbol: "PEPE", Name: "Pepe", MarketCapRank: 38},
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectSet("coinpilot:verify:PEPE", string(raw), time.Hour).SetVal("OK")
	mock.ExpectGet("coinpilot:verify:PEPE").SetVal(string(raw))

	require.NoError(t, c.Set(ctx, "PEPE", rec))
	got, ok := c.Get(ctx, "PEPE")
	require.True(t, ok)
	assert.True(t, got.Verified)
	assert.True(t, rec.CheckedAt.Equal(got.CheckedAt))
	assert.Equal(t, rec.Info, got.Info)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "t:", time.Hour)

	mock.ExpectGet("t:WIF").RedisNil()
	_, ok := c.Get(context.Background(), "WIF")
	assert.False(t, ok)

	mock.ExpectGet("t:BAD").SetVal("not json")
	_, ok = c.Get(context.Background(), "BAD")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Reset(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "t:", time.Hour)

	mock.ExpectScan(0, "t:*", 100).SetVal([]string{"t:A1", "t:B2"}, 7)
	mock.ExpectDel("t:A1", "t:B2").SetVal(2)
	mock.ExpectScan(7, "t:*", 100).SetVal([]string{"t:C3"}, 0)
	mock.ExpectDel("t:C3").SetVal(1)

	require.NoError(t, c.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifier_UsesInjectedCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rec := Record{Verified: true, CheckedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)}
	raw, _ := json.Marshal(rec)
	mock.ExpectGet("coinpilot:verify:PEPE").SetVal(string(raw))

	reg := &mockRegistry{}
	v := NewVerifier(DefaultLists(), reg, WithCache(NewRedisCache(db, "", 0)))

	res := v.VerifyExternal(context.Background(), "pepe")
	assert.True(t, res.Verified)
	assert.Equal(t, SourceCache, res.Source)
	assert.Empty(t, reg.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
