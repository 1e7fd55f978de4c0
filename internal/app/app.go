// Package app wires configuration into the running process.
package app

import (
	"context"
	"fmt"

	"backtune/internal/config"
	"backtune/internal/feed"
	"backtune/internal/logger"
	"backtune/internal/service"
	"backtune/internal/store"
	transport "backtune/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

// App holds the long-lived components of one process.
type App struct {
	cfg     *config.Config
	svc     *service.Service
	httpSrv *transport.Server
	results *store.ResultStore
	candles *feed.Store
}

// NewApp builds the application from configuration without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves HTTP until ctx is cancelled, then closes the stores.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	a.svc.SetContext(ctx)
	logger.Infof("backtune up on %s (env=%s)", a.cfg.App.HTTPAddr, a.cfg.App.Env)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	err := group.Wait()

	if cerr := a.results.Close(); cerr != nil {
		logger.Warnf("closing result store: %v", cerr)
	}
	if cerr := a.candles.Close(); cerr != nil {
		logger.Warnf("closing candle store: %v", cerr)
	}
	return err
}

// Service exposes the coordination layer (for testing harnesses).
func (a *App) Service() *service.Service {
	if a == nil {
		return nil
	}
	return a.svc
}
