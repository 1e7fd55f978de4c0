// Package feed supplies time-ordered market data to backtest runs.
package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"backtune/internal/market"
	"backtune/internal/timeframe"
)

// Feed exposes a known time extent and replays candles inside a sub-range.
// An unbounded feed reports timeframe.Infinite; callers that need a finite
// extent must check before scheduling work.
type Feed interface {
	Timeframe() timeframe.Timeframe
	Replay(ctx context.Context, tf timeframe.Timeframe, fn func(market.Candle) error) error
}

// CandleFeed replays an in-memory candle slice. Candles are sorted by open
// time on construction and never mutated afterwards, so one feed is safe to
// share across concurrent runs.
type CandleFeed struct {
	symbol  string
	candles []market.Candle
	extent  timeframe.Timeframe
}

// NewCandleFeed copies and sorts the given candles.
func NewCandleFeed(symbol string, candles []market.Candle) (*CandleFeed, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("feed %s has no candles", symbol)
	}
	owned := make([]market.Candle, len(candles))
	copy(owned, candles)
	sort.Slice(owned, func(i, j int) bool { return owned[i].OpenTime < owned[j].OpenTime })
	first := owned[0]
	last := owned[len(owned)-1]
	extent, err := timeframe.New(time.UnixMilli(first.OpenTime).UTC(), time.UnixMilli(last.CloseTime+1).UTC())
	if err != nil {
		return nil, fmt.Errorf("feed %s extent: %w", symbol, err)
	}
	return &CandleFeed{symbol: symbol, candles: owned, extent: extent}, nil
}

func (f *CandleFeed) Symbol() string { return f.symbol }

func (f *CandleFeed) Timeframe() timeframe.Timeframe { return f.extent }

// Replay calls fn for every candle whose open time falls inside tf, in
// ascending time order. Replay stops on the first error from fn or when ctx
// is cancelled.
func (f *CandleFeed) Replay(ctx context.Context, tf timeframe.Timeframe, fn func(market.Candle) error) error {
	start := sort.Search(len(f.candles), func(i int) bool {
		return tf.IsInfinite() || !f.candles[i].OpenAt().Before(tf.Start)
	})
	for _, c := range f.candles[start:] {
		if !tf.Contains(c.OpenAt()) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}
