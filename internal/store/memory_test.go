package store

import (
	"context"
	"testing"

	"sigil/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candle(openTime int64, close float64) market.Candle {
	return market.Candle{
		OpenTime:  openTime,
		CloseTime: openTime + 59_999,
		Open:      close - 1,
		High:      close + 2,
		Low:       close - 2,
		Close:     close,
		Volume:    10,
	}
}

func TestMemoryStoreUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCandleStore()

	batch := []market.Candle{candle(60_000, 100), candle(120_000, 101)}
	_, err := s.Upsert(ctx, "BTCUSDT", batch)
	require.NoError(t, err)

	once, err := s.Recent(ctx, "BTCUSDT", 10)
	require.NoError(t, err)

	// Storing the same batch again must leave the series unchanged.
	_, err = s.Upsert(ctx, "BTCUSDT", batch)
	require.NoError(t, err)

	twice, err := s.Recent(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	n, err := s.Count(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCandleStore()

	_, err := s.Upsert(ctx, "BTCUSDT", []market.Candle{candle(60_000, 100)})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "BTCUSDT", []market.Candle{candle(60_000, 105)})
	require.NoError(t, err)

	got, err := s.Recent(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 105.0, got[0].Close)
}

func TestMemoryStoreOrderedInsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCandleStore()

	// Out-of-order upserts still produce an ascending series.
	_, err := s.Upsert(ctx, "ETHUSDT", []market.Candle{candle(180_000, 3), candle(60_000, 1), candle(120_000, 2)})
	require.NoError(t, err)

	got, err := s.Recent(ctx, "ETHUSDT", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(60_000), got[0].OpenTime)
	assert.Equal(t, int64(120_000), got[1].OpenTime)
	assert.Equal(t, int64(180_000), got[2].OpenTime)

	last, err := s.LastOpenTime(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, int64(180_000), last)
}

func TestMemoryStoreRecentLimits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCandleStore()

	_, err := s.Upsert(ctx, "BTCUSDT", []market.Candle{candle(60_000, 1), candle(120_000, 2), candle(180_000, 3)})
	require.NoError(t, err)

	got, err := s.Recent(ctx, "BTCUSDT", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(120_000), got[0].OpenTime)

	empty, err := s.Recent(ctx, "UNKNOWN", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	last, err := s.LastOpenTime(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Zero(t, last)
}
