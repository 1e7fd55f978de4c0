package runner

import (
	"context"
	"fmt"

	"backtune/internal/broker"
	"backtune/internal/feed"
	"backtune/internal/jobs"
	"backtune/internal/market"
	"backtune/internal/strategy"
	"backtune/internal/timeframe"
)

// Runner binds one strategy instance to one broker account for a single
// backtest execution. Instances are single-use: Run replays a window once
// and records the equity curve into the shared log.
type Runner struct {
	symbol string
	strat  strategy.Strategy
	broker broker.Broker
	log    *MetricLog
}

// New wires a run. The log may be shared across runs; each run records
// under its own name.
func New(symbol string, strat strategy.Strategy, b broker.Broker, log *MetricLog) (*Runner, error) {
	if strat == nil || b == nil || log == nil {
		return nil, fmt.Errorf("runner needs a strategy, a broker and a metric log")
	}
	if symbol == "" {
		return nil, fmt.Errorf("runner needs a symbol")
	}
	return &Runner{symbol: symbol, strat: strat, broker: b, log: log}, nil
}

// Backend reports the execution backend this run would trade through.
func (r *Runner) Backend() broker.Backend { return r.broker.Backend() }

// Run replays f over [tf.start - warmup, tf.end) and blocks until the
// replay finishes. Candles inside the warmup prefix reach the strategy but
// are not recorded, so scores only see the scored window.
func (r *Runner) Run(ctx context.Context, f feed.Feed, tf timeframe.Timeframe, warmup timeframe.TimeSpan, name string) error {
	if name == "" {
		return fmt.Errorf("run needs a name")
	}
	replayTF := tf.Extend(warmup)
	err := f.Replay(ctx, replayTF, func(c market.Candle) error {
		if err := r.strat.OnCandle(r.symbol, c, r.broker); err != nil {
			return err
		}
		r.broker.MarkToMarket(r.symbol, c.Close, c.CloseAt())
		if tf.Contains(c.OpenAt()) {
			r.log.Append(name, c.CloseAt(), r.broker.Equity())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// RunAsync schedules Run on the pool and returns immediately. The error
// surfaces from the pool's JoinAll.
func (r *Runner) RunAsync(ctx context.Context, pool *jobs.ParallelJobs, f feed.Feed, tf timeframe.Timeframe, warmup timeframe.TimeSpan, name string) {
	pool.Add(func() error {
		return r.Run(ctx, f, tf, warmup, name)
	})
}
