package feed

import (
	"context"
	"testing"
	"time"

	"backtune/internal/market"
	"backtune/internal/timeframe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteCandles(start time.Time, n int) []market.Candle {
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		open := start.Add(time.Duration(i) * time.Minute)
		price := 100 + float64(i)
		out = append(out, market.Candle{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.Add(time.Minute).UnixMilli() - 1,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    10,
		})
	}
	return out
}

func TestCandleFeedExtent(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := NewCandleFeed("BTCUSDT", minuteCandles(start, 60))
	require.NoError(t, err)

	tf := f.Timeframe()
	assert.False(t, tf.IsInfinite())
	assert.Equal(t, start, tf.Start)
	assert.Equal(t, start.Add(time.Hour), tf.End)
}

func TestCandleFeedReplaySubRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := NewCandleFeed("BTCUSDT", minuteCandles(start, 60))
	require.NoError(t, err)

	window, err := timeframe.New(start.Add(10*time.Minute), start.Add(20*time.Minute))
	require.NoError(t, err)

	var seen []market.Candle
	require.NoError(t, f.Replay(context.Background(), window, func(c market.Candle) error {
		seen = append(seen, c)
		return nil
	}))
	require.Len(t, seen, 10)
	assert.Equal(t, start.Add(10*time.Minute).UnixMilli(), seen[0].OpenTime)
	assert.Equal(t, start.Add(19*time.Minute).UnixMilli(), seen[len(seen)-1].OpenTime)
}

func TestCandleFeedReplayOrdersUnsortedInput(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := minuteCandles(start, 10)
	candles[0], candles[5] = candles[5], candles[0]
	f, err := NewCandleFeed("BTCUSDT", candles)
	require.NoError(t, err)

	var last int64 = -1
	require.NoError(t, f.Replay(context.Background(), timeframe.Infinite, func(c market.Candle) error {
		require.Greater(t, c.OpenTime, last)
		last = c.OpenTime
		return nil
	}))
}

func TestCandleFeedEmpty(t *testing.T) {
	_, err := NewCandleFeed("BTCUSDT", nil)
	require.Error(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := minuteCandles(start, 120)

	n, err := store.Insert(ctx, "ETHUSDT", "1m", candles)
	require.NoError(t, err)
	assert.Equal(t, 120, n)

	t.Run("coverage", func(t *testing.T) {
		cov, err := store.Coverage(ctx, "ETHUSDT", "1m")
		require.NoError(t, err)
		assert.Equal(t, int64(120), cov.Rows)
		assert.Equal(t, start.UnixMilli(), cov.MinTime)
	})

	t.Run("extent is half open", func(t *testing.T) {
		extent, err := store.Extent(ctx, "ETHUSDT", "1m")
		require.NoError(t, err)
		assert.Equal(t, start, extent.Start)
		assert.Equal(t, start.Add(2*time.Hour), extent.End)
	})

	t.Run("query sub range", func(t *testing.T) {
		window, err := timeframe.New(start.Add(30*time.Minute), start.Add(45*time.Minute))
		require.NoError(t, err)
		got, err := store.Query(ctx, "ETHUSDT", "1m", window)
		require.NoError(t, err)
		assert.Len(t, got, 15)
	})

	t.Run("upsert replaces by open time", func(t *testing.T) {
		changed := candles[0]
		changed.Close = 999
		_, err := store.Insert(ctx, "ETHUSDT", "1m", []market.Candle{changed})
		require.NoError(t, err)
		cov, err := store.Coverage(ctx, "ETHUSDT", "1m")
		require.NoError(t, err)
		assert.Equal(t, int64(120), cov.Rows)
	})
}

func TestStoreFeedReplay(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.Insert(ctx, "BTCUSDT", "1m", minuteCandles(start, 60))
	require.NoError(t, err)

	f, err := NewStoreFeed(ctx, store, "BTCUSDT", "1m")
	require.NoError(t, err)
	assert.False(t, f.Timeframe().IsInfinite())

	count := 0
	require.NoError(t, f.Replay(ctx, timeframe.Infinite, func(market.Candle) error {
		count++
		return nil
	}))
	assert.Equal(t, 60, count)
}

func TestStoreFeedEmptyStoreIsUnbounded(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	f, err := NewStoreFeed(context.Background(), store, "SOLUSDT", "1h")
	require.NoError(t, err)
	assert.True(t, f.Timeframe().IsInfinite())
}

func TestIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"1m": time.Minute, "15m": 15 * time.Minute, "1h": time.Hour,
		"4h": 4 * time.Hour, "1d": 24 * time.Hour, "1w": 7 * 24 * time.Hour,
	}
	for interval, want := range cases {
		got, err := IntervalDuration(interval)
		require.NoError(t, err, interval)
		assert.Equal(t, want, got, interval)
	}
	for _, bad := range []string{"", "h", "0m", "-1h", "10x"} {
		_, err := IntervalDuration(bad)
		assert.Error(t, err, bad)
	}
}
