package feed

import (
	"context"

	"backtune/internal/market"
	"backtune/internal/timeframe"
)

// StoreFeed replays candles straight from a Store. The extent is fixed at
// construction so every run over the same feed sees the same history even
// while a sync is appending newer candles.
type StoreFeed struct {
	store    *Store
	symbol   string
	interval string
	extent   timeframe.Timeframe
}

// NewStoreFeed snapshots the store's current extent for symbol@interval.
func NewStoreFeed(ctx context.Context, store *Store, symbol, interval string) (*StoreFeed, error) {
	extent, err := store.Extent(ctx, symbol, interval)
	if err != nil {
		return nil, err
	}
	return &StoreFeed{store: store, symbol: symbol, interval: interval, extent: extent}, nil
}

func (f *StoreFeed) Symbol() string { return f.symbol }

func (f *StoreFeed) Timeframe() timeframe.Timeframe { return f.extent }

func (f *StoreFeed) Replay(ctx context.Context, tf timeframe.Timeframe, fn func(market.Candle) error) error {
	if tf.IsInfinite() {
		tf = f.extent
	}
	candles, err := f.store.Query(ctx, f.symbol, f.interval, tf)
	if err != nil {
		return err
	}
	for _, c := range candles {
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
