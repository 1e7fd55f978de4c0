package config

import "strings"

// Config is the top-level configuration carrier.
type Config struct {
	App      AppConfig      `toml:"app"`
	Data     DataConfig     `toml:"data"`
	Broker   BrokerConfig   `toml:"broker"`
	Optimize OptimizeConfig `toml:"optimize"`
	Store    StoreConfig    `toml:"store"`
	Spaces   SpacesConfig   `toml:"spaces"`
	Report   ReportConfig   `toml:"report"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

type DataConfig struct {
	Root            string `toml:"root"`
	Exchange        string `toml:"exchange"`
	DefaultInterval string `toml:"default_interval"`
}

type BrokerConfig struct {
	InitialCash float64 `toml:"initial_cash"`
	FeeRate     float64 `toml:"fee_rate"`
	SlippageBps float64 `toml:"slippage_bps"`
}

type OptimizeConfig struct {
	PoolSize     int    `toml:"pool_size"`
	Warmup       string `toml:"warmup"`
	DefaultScore string `toml:"default_score"`
}

type StoreConfig struct {
	ResultsPath string `toml:"results_path"`
}

type SpacesConfig struct {
	Path string `toml:"path"`
}

type ReportConfig struct {
	OutputDir string `toml:"output_dir"`
	RenderPNG bool   `toml:"render_png"`
}

// keySet tracks which field paths the config files set explicitly, so
// defaults never clobber deliberate zero values.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes the default rule for one field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
