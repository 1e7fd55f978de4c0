package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"backtune/internal/logger"
	"backtune/internal/market"
	"backtune/internal/timeframe"

	"github.com/adshao/go-binance/v2/futures"
)

const binancePageLimit = 1000

// BinanceSource pulls USDT-futures klines for backfilling the candle store.
type BinanceSource struct {
	client *futures.Client
}

func NewBinanceSource() *BinanceSource {
	return &BinanceSource{client: futures.NewClient("", "")}
}

func (s *BinanceSource) Name() string { return "binance" }

// Fetch returns up to limit candles with open times in [start, end).
// Unclosed trailing candles are dropped so backtests only see final bars.
func (s *BinanceSource) Fetch(ctx context.Context, symbol, interval string, start, end int64, limit int) ([]market.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	interval = strings.ToLower(strings.TrimSpace(interval))
	if symbol == "" || interval == "" {
		return nil, fmt.Errorf("symbol and interval are required")
	}
	if limit <= 0 || limit > binancePageLimit {
		limit = binancePageLimit
	}
	svc := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
	if start > 0 {
		svc = svc.StartTime(start)
	}
	if end > 0 {
		svc = svc.EndTime(end - 1)
	}
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s@%s failed: %w", symbol, interval, err)
	}
	now := time.Now().UnixMilli()
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil || kl.CloseTime >= now {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return out, nil
}

// Sync backfills the store with all candles covering tf, paging forward
// until the range is exhausted. Returns the number of candles written.
func (s *BinanceSource) Sync(ctx context.Context, store *Store, symbol, interval string, tf timeframe.Timeframe) (int, error) {
	if tf.IsInfinite() {
		return 0, fmt.Errorf("sync requires a bounded timeframe")
	}
	total := 0
	cursor := tf.Start.UnixMilli()
	endMs := tf.End.UnixMilli()
	for cursor < endMs {
		batch, err := s.Fetch(ctx, symbol, interval, cursor, endMs, binancePageLimit)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			break
		}
		n, err := store.Insert(ctx, symbol, interval, batch)
		if err != nil {
			return total, err
		}
		total += n
		next := batch[len(batch)-1].CloseTime + 1
		if next <= cursor {
			break
		}
		cursor = next
	}
	logger.Infof("synced %d candles for %s@%s over %s", total, symbol, interval, tf)
	return total, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
