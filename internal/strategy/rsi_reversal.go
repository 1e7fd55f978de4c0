package strategy

import (
	"fmt"

	"backtune/internal/broker"
	"backtune/internal/market"
	"backtune/internal/params"

	talib "github.com/markcheno/go-talib"
)

// RSIReversal fades extremes: long below the oversold threshold, short
// above the overbought one, flat in between once RSI recrosses the
// midline. Parameters: period (int), optional oversold/overbought
// thresholds (floats, defaults 30/70) and stake fraction.
type RSIReversal struct {
	period     int
	oversold   float64
	overbought float64
	fraction   float64

	closes []float64
}

func NewRSIReversal(p params.Params) (Strategy, error) {
	period, err := p.Int("period")
	if err != nil {
		return nil, err
	}
	if period < 2 {
		return nil, fmt.Errorf("rsi-reversal needs period >= 2, got %d", period)
	}
	s := &RSIReversal{period: period, oversold: 30, overbought: 70, fraction: 0.95}
	if p.Has("oversold") {
		if s.oversold, err = p.Float("oversold"); err != nil {
			return nil, err
		}
	}
	if p.Has("overbought") {
		if s.overbought, err = p.Float("overbought"); err != nil {
			return nil, err
		}
	}
	if s.oversold >= s.overbought {
		return nil, fmt.Errorf("rsi-reversal thresholds inverted: oversold %.1f >= overbought %.1f", s.oversold, s.overbought)
	}
	if p.Has("stake") {
		if s.fraction, err = p.Float("stake"); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *RSIReversal) Name() string { return "rsi-reversal" }

func (s *RSIReversal) Warmup() int { return s.period * 4 }

func (s *RSIReversal) OnCandle(symbol string, c market.Candle, b broker.Broker) error {
	s.closes = append(s.closes, c.Close)
	if len(s.closes) <= s.period {
		return nil
	}
	rsi := last(talib.Rsi(s.closes, s.period))
	pos := b.Position(symbol)

	switch {
	case rsi <= s.oversold && !pos.IsLong():
		return flipTo(b, symbol, c, market.SideLong, s.fraction)
	case rsi >= s.overbought && !pos.IsShort():
		return flipTo(b, symbol, c, market.SideShort, s.fraction)
	case rsi > 45 && rsi < 55 && !pos.IsFlat():
		return flatten(b, symbol, c)
	}
	return nil
}
