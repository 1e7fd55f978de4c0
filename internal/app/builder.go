package app

import (
	"context"
	"fmt"
	"os"

	"backtune/internal/config"
	"backtune/internal/feed"
	"backtune/internal/logger"
	"backtune/internal/params"
	"backtune/internal/service"
	"backtune/internal/store"
	transport "backtune/internal/transport/http"
)

// AppBuilder assembles the component graph. Construction hooks are fields
// so tests can substitute pieces without touching the wiring order.
type AppBuilder struct {
	cfg *config.Config

	resultStoreFn func(string) (*store.ResultStore, error)
	candleStoreFn func(string) (*feed.Store, error)
	registryFn    func(string) (*params.Registry, error)
	sourceFn      func() *feed.BinanceSource
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		resultStoreFn: store.NewResultStore,
		candleStoreFn: feed.NewStore,
		registryFn:    params.NewRegistry,
		sourceFn:      feed.NewBinanceSource,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build constructs every component and returns the assembled App.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg
	results, err := b.resultStoreFn(cfg.Store.ResultsPath)
	if err != nil {
		return nil, fmt.Errorf("result store: %w", err)
	}
	candles, err := b.candleStoreFn(cfg.Data.Root)
	if err != nil {
		return nil, fmt.Errorf("candle store: %w", err)
	}

	// a missing space file only disables named spaces; inline spaces
	// still work through the API
	var registry *params.Registry
	if _, statErr := os.Stat(cfg.Spaces.Path); statErr == nil {
		registry, err = b.registryFn(cfg.Spaces.Path)
		if err != nil {
			return nil, fmt.Errorf("space registry: %w", err)
		}
	} else {
		logger.Warnf("space file %s not found, named spaces disabled", cfg.Spaces.Path)
	}

	svc, err := service.New(service.Config{
		Cfg:      cfg,
		Results:  results,
		Candles:  candles,
		Source:   b.sourceFn(),
		Registry: registry,
		Workers:  cfg.Optimize.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	httpSrv, err := transport.NewServer(transport.Config{
		Addr:    cfg.App.HTTPAddr,
		Svc:     svc,
		Results: results,
		Candles: candles,
	})
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}

	return &App{
		cfg:     cfg,
		svc:     svc,
		httpSrv: httpSrv,
		results: results,
		candles: candles,
	}, nil
}
