package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
	"github.com/sawpanic/coinpilot/internal/scoring"
)

func TestWriteFavorites(t *testing.T) {
	ranked := scoring.RankFavorites([]coin.Candidate{
		{Symbol: "ADA", Price: 0.45, Growth: 1, Liquidity: coin.TierMedium, Risk: coin.TierMedium},
		{Symbol: "SOL", Name: "Solana", Price: 150, Growth: 6, Liquidity: coin.TierHigh, Risk: coin.TierLow, MarketCap: "70B"},
	}, scoring.FavoriteOptions{})

	var buf bytes.Buffer
	require.NoError(t, WriteFavorites(&buf, "u1", ranked))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(FavoritesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, favoriteHeaders, rows[0])

	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, ranked[0].Badge, rows[1][1])
	assert.Equal(t, ranked[0].Candidate.Symbol, rows[1][2])
	assert.Equal(t, ranked[1].Candidate.Symbol, rows[2][2])

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, "u1", props.Subject)
}

func TestWriteFavorites_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFavorites(&buf, "u1", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(FavoritesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
