package market

import "time"

const (
	SideLong  = "long"
	SideShort = "short"
)

const (
	ActionOpenLong   = "open_long"
	ActionOpenShort  = "open_short"
	ActionCloseLong  = "close_long"
	ActionCloseShort = "close_short"
)

// Order is a market order handed to a broker. Simulated fills happen at the
// current candle close adjusted for slippage.
type Order struct {
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Side      string    `json:"side"`
	Size      Size      `json:"size"`
	Limit     float64   `json:"limit,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SideOf maps an action to the position side it affects.
func SideOf(action string) string {
	switch action {
	case ActionOpenLong, ActionCloseLong:
		return SideLong
	case ActionOpenShort, ActionCloseShort:
		return SideShort
	default:
		return ""
	}
}
