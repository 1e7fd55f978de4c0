package broker

import (
	"fmt"
	"sync"
	"time"

	"backtune/internal/market"
	"backtune/internal/position"
)

const (
	defaultFeeRate     = 0.0004
	defaultSlippageBps = 2
)

// SimConfig tunes the deterministic fill model.
type SimConfig struct {
	InitialCash float64
	FeeRate     float64
	SlippageBps float64
}

// SimBroker fills every order immediately at the order's reference price
// shifted by slippage, charges a notional fee, and tracks positions with
// exact size arithmetic. Each optimization run owns a fresh instance, so
// the mutex only matters when a strategy trades from multiple goroutines.
type SimBroker struct {
	feeRate     float64
	slippageBps float64

	mu        sync.Mutex
	cash      float64
	positions map[string]position.Position
	fills     int
}

func NewSim(cfg SimConfig) *SimBroker {
	if cfg.InitialCash <= 0 {
		cfg.InitialCash = 10000
	}
	if cfg.FeeRate <= 0 {
		cfg.FeeRate = defaultFeeRate
	}
	if cfg.SlippageBps <= 0 {
		cfg.SlippageBps = defaultSlippageBps
	}
	return &SimBroker{
		feeRate:     cfg.FeeRate,
		slippageBps: cfg.SlippageBps,
		cash:        cfg.InitialCash,
		positions:   make(map[string]position.Position),
	}
}

func (b *SimBroker) Backend() Backend { return BackendSim }

// Submit fills the order at order.Limit adjusted by slippage. Buys fill
// above the reference price, sells below it.
func (b *SimBroker) Submit(o market.Order) error {
	if o.Symbol == "" {
		return fmt.Errorf("order without symbol")
	}
	if !o.Size.IsPositive() {
		return fmt.Errorf("order size must be positive, got %s", o.Size)
	}
	if o.Limit <= 0 {
		return fmt.Errorf("order needs a positive reference price")
	}

	price := o.Limit
	slip := price * b.slippageBps / 10000
	buying := o.Action == market.ActionOpenLong || o.Action == market.ActionCloseShort
	if buying {
		price += slip
	} else {
		price -= slip
	}

	delta := o.Size
	if o.Action == market.ActionOpenShort || o.Action == market.ActionCloseLong {
		delta = delta.Neg()
	}
	ts := o.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.positions[o.Symbol]
	if !ok {
		cur = position.Empty(o.Symbol)
	}
	switch o.Action {
	case market.ActionCloseLong:
		if !cur.IsLong() {
			return fmt.Errorf("close long on %s without a long position", o.Symbol)
		}
	case market.ActionCloseShort:
		if !cur.IsShort() {
			return fmt.Errorf("close short on %s without a short position", o.Symbol)
		}
	}

	incoming := position.New(o.Symbol, delta, price, price, ts)
	fee := delta.Abs().Times(price) * b.feeRate
	pnl := position.RealizedPNL(cur, incoming)
	merged := position.Merge(cur, incoming)

	b.cash += pnl - fee
	b.positions[o.Symbol] = merged
	b.fills++
	return nil
}

// MarkToMarket revalues an open position at the latest price.
func (b *SimBroker) MarkToMarket(symbol string, price float64, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[symbol]
	if !ok {
		return
	}
	pos.MktPrice = price
	pos.LastUpdate = ts
	b.positions[symbol] = pos
}

func (b *SimBroker) Position(symbol string) position.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[symbol]
	if !ok {
		return position.Empty(symbol)
	}
	return pos
}

func (b *SimBroker) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

// Equity is cash plus the unrealized value of every open position.
func (b *SimBroker) Equity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	eq := b.cash
	for _, pos := range b.positions {
		eq += pos.UnrealizedPNL()
	}
	return eq
}

func (b *SimBroker) Fills() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fills
}
