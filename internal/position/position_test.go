package position

import (
	"testing"
	"time"

	"backtune/internal/market"

	"github.com/stretchr/testify/assert"
)

func pos(size float64, avg float64) Position {
	return New("BTCUSDT", market.NewSize(size), avg, avg, time.Unix(1700000000, 0))
}

func TestMerge_Increase(t *testing.T) {
	a := pos(10, 100)
	b := pos(5, 130)

	got := Merge(a, b)
	assert.Equal(t, market.NewSize(15), got.Size)
	assert.InDelta(t, 110.0, got.AvgPrice, 1e-9)
	assert.Zero(t, RealizedPNL(a, b))
}

func TestMerge_IncreaseShort(t *testing.T) {
	a := pos(-10, 100)
	b := pos(-10, 90)

	got := Merge(a, b)
	assert.Equal(t, market.NewSize(-20), got.Size)
	assert.InDelta(t, 95.0, got.AvgPrice, 1e-9)
	assert.Zero(t, RealizedPNL(a, b))
}

func TestMerge_PartialReduce(t *testing.T) {
	a := pos(10, 100)
	b := pos(-4, 110)

	pnl := RealizedPNL(a, b)
	got := Merge(a, b)

	assert.Equal(t, market.NewSize(6), got.Size)
	assert.InDelta(t, 100.0, got.AvgPrice, 1e-9, "reduction keeps the cost basis")
	assert.InDelta(t, 40.0, pnl, 1e-9)
}

func TestMerge_PartialReduceShort(t *testing.T) {
	a := pos(-10, 100)
	b := pos(4, 90)

	pnl := RealizedPNL(a, b)
	got := Merge(a, b)

	assert.Equal(t, market.NewSize(-6), got.Size)
	assert.InDelta(t, 100.0, got.AvgPrice, 1e-9)
	assert.InDelta(t, 40.0, pnl, 1e-9)
}

func TestMerge_FullClose(t *testing.T) {
	a := pos(10, 100)
	b := pos(-10, 120)

	pnl := RealizedPNL(a, b)
	got := Merge(a, b)

	assert.True(t, got.IsFlat())
	assert.Zero(t, got.AvgPrice, "flat position has no cost basis")
	assert.Zero(t, got.UnrealizedPNL())
	assert.InDelta(t, 200.0, pnl, 1e-9)
}

func TestMerge_FlipThroughZero(t *testing.T) {
	a := pos(10, 100)
	b := pos(-15, 110)

	pnl := RealizedPNL(a, b)
	got := Merge(a, b)

	assert.Equal(t, market.NewSize(-5), got.Size)
	assert.InDelta(t, 110.0, got.AvgPrice, 1e-9, "flip adopts the update price, never averages")
	assert.InDelta(t, 100.0, pnl, 1e-9, "the whole old size is priced at the delta")
}

func TestMerge_OpenFromFlat(t *testing.T) {
	a := Empty("BTCUSDT")
	b := pos(3, 250)

	got := Merge(a, b)
	assert.Equal(t, market.NewSize(3), got.Size)
	assert.InDelta(t, 250.0, got.AvgPrice, 1e-9)
	assert.Zero(t, RealizedPNL(a, b))
}

func TestMerge_ExactSizes(t *testing.T) {
	// 0.1 + 0.2 style float drift must not leak into sizes.
	a := New("ETHUSDT", market.NewSize(0.1), 2000, 2000, time.Now())
	b := New("ETHUSDT", market.NewSize(0.2), 2000, 2000, time.Now())
	got := Merge(a, b)
	assert.True(t, got.Size.Equal(market.NewSize(0.3)))

	closed := Merge(got, New("ETHUSDT", market.NewSize(-0.3), 2100, 2100, time.Now()))
	assert.True(t, closed.IsFlat())
}

func TestRealizedPNL_DoesNotMutate(t *testing.T) {
	a := pos(10, 100)
	b := pos(-4, 110)
	_ = RealizedPNL(a, b)
	assert.Equal(t, market.NewSize(10), a.Size)
	assert.InDelta(t, 100.0, a.AvgPrice, 1e-9)
	assert.Equal(t, market.NewSize(-4), b.Size)
}

func TestUnrealizedAndExposure(t *testing.T) {
	p := pos(10, 100)
	p.MktPrice = 105

	assert.InDelta(t, 50.0, p.UnrealizedPNL(), 1e-9)
	assert.InDelta(t, 1050.0, p.MarketValue(), 1e-9)
	assert.InDelta(t, 1050.0, p.Exposure(), 1e-9)

	s := pos(-10, 100)
	s.MktPrice = 95
	assert.InDelta(t, 50.0, s.UnrealizedPNL(), 1e-9)
	assert.InDelta(t, -950.0, s.MarketValue(), 1e-9)
	assert.InDelta(t, 950.0, s.Exposure(), 1e-9)
}
