package optimizer

import (
	"math"

	"backtune/internal/runner"
	"backtune/internal/timeframe"
)

// Score reduces the metric series recorded under one run name to a single
// scalar. Higher is better. Scores must be pure functions of the log.
type Score func(log *runner.MetricLog, name string, tf timeframe.Timeframe) float64

// TotalEquity scores a run by its final recorded equity.
func TotalEquity(log *runner.MetricLog, name string, tf timeframe.Timeframe) float64 {
	series := log.Window(name, tf)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1].Value
}

// AnnualizedReturn scores by the equity growth rate extrapolated to one
// year, so short and long windows compare on equal footing.
func AnnualizedReturn(log *runner.MetricLog, name string, tf timeframe.Timeframe) float64 {
	series := log.Window(name, tf)
	if len(series) < 2 {
		return 0
	}
	first, last := series[0], series[len(series)-1]
	if first.Value <= 0 {
		return 0
	}
	elapsed := last.Time.Sub(first.Time)
	if elapsed <= 0 {
		return 0
	}
	years := elapsed.Hours() / (24 * 365.25)
	return math.Pow(last.Value/first.Value, 1/years) - 1
}

// MaxDrawdown scores by the negated worst peak-to-trough loss fraction, so
// a shallower drawdown ranks higher.
func MaxDrawdown(log *runner.MetricLog, name string, tf timeframe.Timeframe) float64 {
	series := log.Window(name, tf)
	if len(series) == 0 {
		return 0
	}
	peak := series[0].Value
	worst := 0.0
	for _, p := range series {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return -worst
}
