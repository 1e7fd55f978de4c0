// Package broker executes orders against simulated or paper accounts.
package broker

import (
	"time"

	"backtune/internal/market"
	"backtune/internal/position"
)

// Backend identifies the execution engine behind a broker. Optimization
// only accepts the deterministic simulation backend.
type Backend string

const (
	BackendSim   Backend = "sim"
	BackendPaper Backend = "paper"
)

// Broker is the execution surface a strategy trades through.
type Broker interface {
	Backend() Backend
	Submit(order market.Order) error
	Position(symbol string) position.Position
	MarkToMarket(symbol string, price float64, ts time.Time)
	Cash() float64
	Equity() float64
}
