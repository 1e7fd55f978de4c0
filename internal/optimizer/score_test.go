package optimizer

import (
	"testing"
	"time"

	"backtune/internal/runner"
	"backtune/internal/timeframe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equityLog(t *testing.T, values []float64) (*runner.MetricLog, timeframe.Timeframe) {
	t.Helper()
	log := runner.NewMetricLog()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		log.Append("train-1", start.Add(time.Duration(i)*24*time.Hour), v)
	}
	tf, err := timeframe.New(start, start.Add(time.Duration(len(values))*24*time.Hour))
	require.NoError(t, err)
	return log, tf
}

func TestTotalEquity(t *testing.T) {
	log, tf := equityLog(t, []float64{100, 120, 90, 140})
	assert.Equal(t, 140.0, TotalEquity(log, "train-1", tf))
	assert.Equal(t, 0.0, TotalEquity(log, "train-2", tf))
}

func TestTotalEquityRespectsWindow(t *testing.T) {
	log, _ := equityLog(t, []float64{100, 120, 90, 140})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	firstHalf, err := timeframe.New(start, start.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 120.0, TotalEquity(log, "train-1", firstHalf))
}

func TestAnnualizedReturn(t *testing.T) {
	t.Run("doubling in half a year", func(t *testing.T) {
		log := runner.NewMetricLog()
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		log.Append("train-1", start, 100)
		half := start.Add(time.Duration(365.25 / 2 * 24 * float64(time.Hour)))
		log.Append("train-1", half, 200)
		tf, err := timeframe.New(start, half.Add(time.Hour))
		require.NoError(t, err)
		// (2x in half a year)^2 - 1 = 3x annualized
		assert.InDelta(t, 3.0, AnnualizedReturn(log, "train-1", tf), 1e-6)
	})

	t.Run("too few samples", func(t *testing.T) {
		log, tf := equityLog(t, []float64{100})
		assert.Equal(t, 0.0, AnnualizedReturn(log, "train-1", tf))
	})
}

func TestMaxDrawdown(t *testing.T) {
	t.Run("worst trough after peak", func(t *testing.T) {
		log, tf := equityLog(t, []float64{100, 150, 75, 160, 120})
		// 150 -> 75 is a 50% drawdown
		assert.InDelta(t, -0.5, MaxDrawdown(log, "train-1", tf), 1e-9)
	})

	t.Run("monotonic curve has none", func(t *testing.T) {
		log, tf := equityLog(t, []float64{100, 110, 120})
		assert.Equal(t, 0.0, MaxDrawdown(log, "train-1", tf))
	})
}
