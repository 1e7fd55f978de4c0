// Package strategy contains the tunable trading rules evaluated by the
// optimizer.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"backtune/internal/broker"
	"backtune/internal/market"
	"backtune/internal/params"
)

// Strategy reacts to finalized candles by submitting orders. Instances are
// stateful and must not be shared across runs.
type Strategy interface {
	Name() string
	// Warmup is the number of candles the strategy needs before its
	// signals are meaningful.
	Warmup() int
	OnCandle(symbol string, c market.Candle, b broker.Broker) error
}

// Factory builds a fresh strategy instance from one parameter assignment.
type Factory func(p params.Params) (Strategy, error)

var factories = map[string]Factory{
	"ema-cross":    NewEMACross,
	"rsi-reversal": NewRSIReversal,
}

// FactoryFor resolves a registered strategy by name.
func FactoryFor(name string) (Factory, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Names lists the registered strategies, sorted.
func Names() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// stake converts available cash into an order quantity at the given price,
// leaving headroom for fees and slippage.
func stake(cash, price, fraction float64) market.Size {
	if price <= 0 || cash <= 0 {
		return market.NewSize(0)
	}
	return market.NewSize(cash * fraction / price)
}

// flatten closes whatever position is open on symbol at the candle close.
func flatten(b broker.Broker, symbol string, c market.Candle) error {
	pos := b.Position(symbol)
	if pos.IsFlat() {
		return nil
	}
	action, side := market.ActionCloseLong, market.SideLong
	if pos.IsShort() {
		action, side = market.ActionCloseShort, market.SideShort
	}
	return b.Submit(market.Order{
		Symbol: symbol, Action: action, Side: side,
		Size: pos.Size.Abs(), Limit: c.Close, CreatedAt: c.CloseAt(),
	})
}

// flipTo closes any opposite exposure on symbol and opens a fresh position
// on side, sized from the broker's cash.
func flipTo(b broker.Broker, symbol string, c market.Candle, side string, fraction float64) error {
	pos := b.Position(symbol)
	ts := c.CloseAt()

	if side == market.SideLong && pos.IsShort() {
		if err := b.Submit(market.Order{
			Symbol: symbol, Action: market.ActionCloseShort, Side: market.SideShort,
			Size: pos.Size.Abs(), Limit: c.Close, CreatedAt: ts,
		}); err != nil {
			return err
		}
	}
	if side == market.SideShort && pos.IsLong() {
		if err := b.Submit(market.Order{
			Symbol: symbol, Action: market.ActionCloseLong, Side: market.SideLong,
			Size: pos.Size.Abs(), Limit: c.Close, CreatedAt: ts,
		}); err != nil {
			return err
		}
	}

	pos = b.Position(symbol)
	if !pos.IsFlat() {
		return nil
	}
	size := stake(b.Cash(), c.Close, fraction)
	if !size.IsPositive() {
		return nil
	}
	action := market.ActionOpenLong
	if side == market.SideShort {
		action = market.ActionOpenShort
	}
	return b.Submit(market.Order{
		Symbol: symbol, Action: action, Side: side,
		Size: size, Limit: c.Close, CreatedAt: ts,
	})
}
