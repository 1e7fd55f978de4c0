package config

import (
	"fmt"
	"strings"

	"backtune/internal/timeframe"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Data.validate(); err != nil {
		return err
	}
	if err := c.Optimize.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(a.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level %q is not one of debug/info/warn/error", a.LogLevel)
	}
	return nil
}

func (d *DataConfig) validate() error {
	if strings.ToLower(d.Exchange) != "binance" {
		return fmt.Errorf("data.exchange %q is not supported", d.Exchange)
	}
	return nil
}

func (o *OptimizeConfig) validate() error {
	if o.PoolSize < 0 {
		return fmt.Errorf("optimize.pool_size must be >= 0")
	}
	if _, err := timeframe.ParseSpan(o.Warmup); err != nil {
		return fmt.Errorf("optimize.warmup: %w", err)
	}
	switch o.DefaultScore {
	case "total-equity", "annualized-return", "max-drawdown":
	default:
		return fmt.Errorf("optimize.default_score %q is unknown", o.DefaultScore)
	}
	return nil
}

// WarmupSpan returns the parsed warmup span. Call only after Load.
func (o *OptimizeConfig) WarmupSpan() timeframe.TimeSpan {
	span, err := timeframe.ParseSpan(o.Warmup)
	if err != nil {
		return timeframe.TimeSpan{}
	}
	return span
}
