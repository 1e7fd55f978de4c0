package market

import "time"

// Candle is one OHLCV bar. Times are Unix milliseconds; CloseTime is the
// last millisecond covered by the bar, so a bar spans
// [OpenTime, CloseTime+1).
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

func (c Candle) OpenAt() time.Time  { return time.UnixMilli(c.OpenTime).UTC() }
func (c Candle) CloseAt() time.Time { return time.UnixMilli(c.CloseTime).UTC() }
