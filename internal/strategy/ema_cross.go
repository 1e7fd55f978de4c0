package strategy

import (
	"fmt"

	"backtune/internal/broker"
	"backtune/internal/market"
	"backtune/internal/params"

	talib "github.com/markcheno/go-talib"
)

// EMACross goes long when the fast EMA crosses above the slow EMA and
// short on the opposite cross. Parameters: fast (int), slow (int), optional
// stake fraction (float, default 0.95).
type EMACross struct {
	fast     int
	slow     int
	fraction float64

	closes   []float64
	prevFast float64
	prevSlow float64
	primed   bool
}

func NewEMACross(p params.Params) (Strategy, error) {
	fast, err := p.Int("fast")
	if err != nil {
		return nil, err
	}
	slow, err := p.Int("slow")
	if err != nil {
		return nil, err
	}
	if fast <= 0 || slow <= fast {
		return nil, fmt.Errorf("ema-cross needs 0 < fast < slow, got fast=%d slow=%d", fast, slow)
	}
	fraction := 0.95
	if p.Has("stake") {
		if fraction, err = p.Float("stake"); err != nil {
			return nil, err
		}
	}
	return &EMACross{fast: fast, slow: slow, fraction: fraction}, nil
}

func (s *EMACross) Name() string { return "ema-cross" }

func (s *EMACross) Warmup() int { return s.slow * 3 }

func (s *EMACross) OnCandle(symbol string, c market.Candle, b broker.Broker) error {
	s.closes = append(s.closes, c.Close)
	if len(s.closes) <= s.slow {
		return nil
	}
	fastEMA := last(talib.Ema(s.closes, s.fast))
	slowEMA := last(talib.Ema(s.closes, s.slow))
	prevFast, prevSlow, primed := s.prevFast, s.prevSlow, s.primed
	s.prevFast, s.prevSlow = fastEMA, slowEMA
	s.primed = true
	if !primed {
		return nil
	}

	switch {
	case prevFast <= prevSlow && fastEMA > slowEMA:
		return flipTo(b, symbol, c, market.SideLong, s.fraction)
	case prevFast >= prevSlow && fastEMA < slowEMA:
		return flipTo(b, symbol, c, market.SideShort, s.fraction)
	}
	return nil
}

func last(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	return vs[len(vs)-1]
}
