package position

import (
	"math"
	"time"

	"backtune/internal/market"
)

// Position tracks a signed holding in one symbol. AvgPrice is only
// meaningful while Size is non-zero; a position that crosses through zero
// starts a fresh cost basis at the incoming price.
type Position struct {
	Symbol     string      `json:"symbol"`
	Size       market.Size `json:"size"`
	AvgPrice   float64     `json:"avg_price"`
	MktPrice   float64     `json:"mkt_price"`
	LastUpdate time.Time   `json:"last_update"`
}

// New builds a position update; size is signed (negative = short).
func New(symbol string, size market.Size, avgPrice, mktPrice float64, at time.Time) Position {
	return Position{Symbol: symbol, Size: size, AvgPrice: avgPrice, MktPrice: mktPrice, LastUpdate: at}
}

// Empty is the flat position created for a symbol before its first fill.
func Empty(symbol string) Position {
	return Position{Symbol: symbol}
}

func (p Position) IsFlat() bool  { return p.Size.IsZero() }
func (p Position) IsLong() bool  { return p.Size.IsPositive() }
func (p Position) IsShort() bool { return p.Size.IsNegative() }

// UnrealizedPNL is size * (market - avg). Flat positions report zero.
func (p Position) UnrealizedPNL() float64 {
	if p.Size.IsZero() {
		return 0
	}
	return p.Size.Times(p.MktPrice - p.AvgPrice)
}

// MarketValue is size * market price; negative for shorts.
func (p Position) MarketValue() float64 {
	return p.Size.Times(p.MktPrice)
}

// Exposure is the absolute market value.
func (p Position) Exposure() float64 {
	return math.Abs(p.MarketValue())
}

// Merge applies update b to position a and returns the combined position.
// Three cases, keyed on the sign of the combined size relative to a:
//
//   - sign flips (or a was flat): b's price becomes the new cost basis,
//     the old basis is gone
//   - same direction, larger: size-weighted average of both prices
//   - reduction: a's cost basis is untouched
//
// A combined size of exactly zero resets the basis to zero.
func Merge(a, b Position) Position {
	total := a.Size.Add(b.Size)
	out := Position{
		Symbol:     a.Symbol,
		Size:       total,
		MktPrice:   b.MktPrice,
		LastUpdate: b.LastUpdate,
	}
	if out.MktPrice == 0 {
		out.MktPrice = a.MktPrice
	}
	switch {
	case total.IsZero():
		out.AvgPrice = 0
	case total.Sign() != a.Size.Sign():
		out.AvgPrice = b.AvgPrice
	case total.Abs().Cmp(a.Size.Abs()) > 0:
		notional := a.Size.Times(a.AvgPrice) + b.Size.Times(b.AvgPrice)
		out.AvgPrice = notional / total.Float64()
	default:
		out.AvgPrice = a.AvgPrice
	}
	return out
}

// RealizedPNL computes the cash PNL that applying b to a realizes. It is a
// pure function of the two inputs and must be called before Merge: after
// merging, the traded-away cost basis is no longer available.
func RealizedPNL(a, b Position) float64 {
	if a.Size.IsZero() {
		return 0
	}
	total := a.Size.Add(b.Size)
	delta := b.AvgPrice - a.AvgPrice
	switch {
	case total.Sign() != a.Size.Sign():
		// Full close or flip: the entire existing size is closed out at
		// the update price. The surviving (flipped) remainder opens at
		// b's price and realizes nothing yet.
		return a.Size.Times(delta)
	case total.Abs().Cmp(a.Size.Abs()) > 0:
		return 0
	default:
		return b.Size.Neg().Times(delta)
	}
}
