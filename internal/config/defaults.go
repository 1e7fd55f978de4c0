package config

import "strings"

const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppHTTPAddr  = ":9992"
	defaultAppLogPath   = "data/logs/backtune.log"
	defaultDataRoot     = "data/candles"
	defaultExchange     = "binance"
	defaultInterval     = "1h"
	defaultInitialCash  = 10000
	defaultFeeRate      = 0.0004
	defaultSlippageBps  = 2
	defaultWarmup       = "7d"
	defaultScore        = "total-equity"
	defaultResultsPath  = "data/db/results.db"
	defaultSpacesPath   = "configs/spaces.yaml"
	defaultReportOutput = "data/reports"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Data.applyDefaults(keys)
	c.Broker.applyDefaults(keys)
	c.Optimize.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Spaces.applyDefaults(keys)
	c.Report.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (d *DataConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("data.root", &d.Root, defaultDataRoot),
		stringFieldDefault("data.exchange", &d.Exchange, defaultExchange),
		stringFieldDefault("data.default_interval", &d.DefaultInterval, defaultInterval),
	)
}

func (b *BrokerConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "broker.initial_cash",
			need:  func() bool { return b.InitialCash <= 0 },
			apply: func() { b.InitialCash = defaultInitialCash },
		},
		fieldDefault{
			key:   "broker.fee_rate",
			need:  func() bool { return b.FeeRate <= 0 },
			apply: func() { b.FeeRate = defaultFeeRate },
		},
		fieldDefault{
			key:   "broker.slippage_bps",
			need:  func() bool { return b.SlippageBps <= 0 },
			apply: func() { b.SlippageBps = defaultSlippageBps },
		},
	)
}

func (o *OptimizeConfig) applyDefaults(keys keySet) {
	if o == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("optimize.warmup", &o.Warmup, defaultWarmup),
		stringFieldDefault("optimize.default_score", &o.DefaultScore, defaultScore),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.results_path", &s.ResultsPath, defaultResultsPath),
	)
}

func (s *SpacesConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("spaces.path", &s.Path, defaultSpacesPath),
	)
}

func (r *ReportConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("report.output_dir", &r.OutputDir, defaultReportOutput),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
