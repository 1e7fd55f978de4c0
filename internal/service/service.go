// Package service coordinates optimization jobs: it builds feeds, runs the
// optimizer and persists results.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"backtune/internal/broker"
	"backtune/internal/config"
	"backtune/internal/feed"
	"backtune/internal/logger"
	"backtune/internal/optimizer"
	"backtune/internal/params"
	"backtune/internal/report"
	"backtune/internal/runner"
	"backtune/internal/store"
	"backtune/internal/strategy"
	"backtune/internal/timeframe"
)

// OptimizeRequest describes one optimization job.
type OptimizeRequest struct {
	Symbol    string          `json:"symbol"`
	Interval  string          `json:"interval"`
	Strategy  string          `json:"strategy"`
	Mode      string          `json:"mode"`
	Space     params.SpaceDef `json:"space"`
	SpaceName string          `json:"space_name"`
	Score     string          `json:"score"`

	// windowing knobs for walk-forward and monte-carlo modes
	Period     string `json:"period,omitempty"`
	Validation string `json:"validation,omitempty"`
	Samples    int    `json:"samples,omitempty"`
	Anchored   bool   `json:"anchored,omitempty"`
}

const (
	ModeTrain               = "train"
	ModeWalkForward         = "walk-forward"
	ModeWalkForwardValidate = "walk-forward-validate"
	ModeMonteCarlo          = "monte-carlo"
)

// Service owns the long-lived stores and fans job execution out onto a
// bounded set of background workers.
type Service struct {
	cfg      *config.Config
	results  *store.ResultStore
	candles  *feed.Store
	source   *feed.BinanceSource
	registry *params.Registry

	sem chan struct{}

	mu      sync.Mutex
	baseCtx context.Context
	logs    map[string]*runner.MetricLog
}

type Config struct {
	Cfg      *config.Config
	Results  *store.ResultStore
	Candles  *feed.Store
	Source   *feed.BinanceSource
	Registry *params.Registry
	Workers  int
}

func New(c Config) (*Service, error) {
	if c.Cfg == nil || c.Results == nil || c.Candles == nil {
		return nil, fmt.Errorf("service needs config, result store and candle store")
	}
	workers := c.Workers
	if workers <= 0 {
		workers = 2
	}
	return &Service{
		cfg:      c.Cfg,
		results:  c.Results,
		candles:  c.Candles,
		source:   c.Source,
		registry: c.Registry,
		sem:      make(chan struct{}, workers),
		baseCtx:  context.Background(),
		logs:     make(map[string]*runner.MetricLog),
	}, nil
}

func (s *Service) SetContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
}

func (s *Service) ctx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

// SpaceNames lists the definitions available from the space file.
func (s *Service) SpaceNames() []string {
	if s.registry == nil {
		return nil
	}
	return s.registry.Names()
}

// MetricLog returns the in-memory equity curves recorded for a job, if the
// job ran in this process.
func (s *Service) MetricLog(jobID string) (*runner.MetricLog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[jobID]
	return log, ok
}

// SubmitOptimize validates the request, persists a pending job and starts
// it in the background. It returns as soon as the job is queued.
func (s *Service) SubmitOptimize(req OptimizeRequest) (store.Job, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Interval = strings.ToLower(strings.TrimSpace(req.Interval))
	if req.Interval == "" {
		req.Interval = s.cfg.Data.DefaultInterval
	}
	if req.Symbol == "" {
		return store.Job{}, fmt.Errorf("symbol is required")
	}
	if req.Mode == "" {
		req.Mode = ModeTrain
	}
	if _, err := strategy.FactoryFor(req.Strategy); err != nil {
		return store.Job{}, err
	}
	if req.SpaceName != "" {
		if s.registry == nil {
			return store.Job{}, fmt.Errorf("no space file configured, inline space required")
		}
		def, ok := s.registry.Get(req.SpaceName)
		if !ok {
			return store.Job{}, fmt.Errorf("unknown space %q", req.SpaceName)
		}
		req.Space = def
	}
	if _, err := req.Space.Build(); err != nil {
		return store.Job{}, fmt.Errorf("space: %w", err)
	}
	if _, err := s.scoreFor(req.Score); err != nil {
		return store.Job{}, err
	}
	switch req.Mode {
	case ModeTrain:
	case ModeWalkForward, ModeWalkForwardValidate, ModeMonteCarlo:
		if _, err := timeframe.ParseSpan(req.Period); err != nil {
			return store.Job{}, fmt.Errorf("period: %w", err)
		}
		if req.Mode == ModeWalkForwardValidate {
			if _, err := timeframe.ParseSpan(req.Validation); err != nil {
				return store.Job{}, fmt.Errorf("validation: %w", err)
			}
		}
		if req.Mode == ModeMonteCarlo && req.Samples <= 0 {
			return store.Job{}, fmt.Errorf("monte-carlo needs a positive sample count")
		}
	default:
		return store.Job{}, fmt.Errorf("unknown mode %q", req.Mode)
	}

	job, err := s.results.CreateJob(s.ctx(), store.Job{
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Strategy: req.Strategy,
		Mode:     req.Mode,
		Space:    req.Space,
	})
	if err != nil {
		return store.Job{}, err
	}

	go func() {
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
		s.execute(job, req)
	}()
	return job, nil
}

func (s *Service) execute(job store.Job, req OptimizeRequest) {
	ctx := s.ctx()
	if err := s.results.MarkRunning(ctx, job.ID); err != nil {
		logger.Errorf("job %s: mark running failed: %v", job.ID, err)
		return
	}
	results, log, runErr := s.runJob(ctx, job, req)
	if runErr == nil && len(results) > 0 {
		if err := s.results.InsertResults(ctx, job.ID, results); err != nil {
			runErr = fmt.Errorf("persist results: %w", err)
		}
	}
	if runErr == nil && log != nil {
		s.mu.Lock()
		s.logs[job.ID] = log
		s.mu.Unlock()
		s.writeReport(ctx, job, log)
	}
	if err := s.results.MarkFinished(ctx, job.ID, runErr); err != nil {
		logger.Errorf("job %s: mark finished failed: %v", job.ID, err)
	}
	if runErr != nil {
		logger.Warnf("job %s failed: %v", job.ID, runErr)
		return
	}
	logger.Infof("job %s finished with %d results", job.ID, len(results))
}

func (s *Service) runJob(ctx context.Context, job store.Job, req OptimizeRequest) ([]optimizer.RunResult, *runner.MetricLog, error) {
	f, err := feed.NewStoreFeed(ctx, s.candles, req.Symbol, req.Interval)
	if err != nil {
		return nil, nil, err
	}
	space, err := req.Space.Build()
	if err != nil {
		return nil, nil, err
	}
	factory, err := strategy.FactoryFor(req.Strategy)
	if err != nil {
		return nil, nil, err
	}
	score, err := s.scoreFor(req.Score)
	if err != nil {
		return nil, nil, err
	}

	log := runner.NewMetricLog()
	build := func(p params.Params) (*runner.Runner, error) {
		st, err := factory(p)
		if err != nil {
			return nil, err
		}
		b := broker.NewSim(broker.SimConfig{
			InitialCash: s.cfg.Broker.InitialCash,
			FeeRate:     s.cfg.Broker.FeeRate,
			SlippageBps: s.cfg.Broker.SlippageBps,
		})
		return runner.New(req.Symbol, st, b, log)
	}
	opt, err := optimizer.New(space, build, score, log, s.cfg.Optimize.PoolSize)
	if err != nil {
		return nil, nil, err
	}

	barDur, err := feed.IntervalDuration(req.Interval)
	if err != nil {
		return nil, nil, err
	}
	warmup, err := warmupSpanFor(space, factory, barDur, s.cfg.Optimize.WarmupSpan())
	if err != nil {
		return nil, nil, err
	}
	var results []optimizer.RunResult
	switch req.Mode {
	case ModeTrain:
		results, err = opt.Train(ctx, f, timeframe.Infinite, warmup)
	case ModeWalkForward:
		period, _ := timeframe.ParseSpan(req.Period)
		results, err = opt.WalkForward(ctx, f, period, warmup, req.Anchored)
	case ModeWalkForwardValidate:
		period, _ := timeframe.ParseSpan(req.Period)
		validation, _ := timeframe.ParseSpan(req.Validation)
		results, err = opt.WalkForwardValidate(ctx, f, period, validation, warmup, req.Anchored)
	case ModeMonteCarlo:
		period, _ := timeframe.ParseSpan(req.Period)
		results, err = opt.MonteCarlo(ctx, f, period.Approx(), req.Samples, warmup)
	default:
		err = fmt.Errorf("unknown mode %q", req.Mode)
	}
	if err != nil {
		return nil, nil, err
	}
	return results, log, nil
}

// warmupSpanFor widens the configured warmup when a strategy in the space
// needs more candles than it covers to prime its indicators.
func warmupSpanFor(space params.SearchSpace, factory strategy.Factory, barDur time.Duration, configured timeframe.TimeSpan) (timeframe.TimeSpan, error) {
	maxBars := 0
	err := space.ForEach(func(p params.Params) error {
		st, err := factory(p)
		if err != nil {
			return err
		}
		if st.Warmup() > maxBars {
			maxBars = st.Warmup()
		}
		return nil
	})
	if err != nil {
		return timeframe.TimeSpan{}, fmt.Errorf("sizing warmup: %w", err)
	}
	if need := time.Duration(maxBars) * barDur; need > configured.Approx() {
		return timeframe.DurationSpan(need), nil
	}
	return configured, nil
}

func (s *Service) scoreFor(name string) (optimizer.Score, error) {
	if name == "" {
		name = s.cfg.Optimize.DefaultScore
	}
	switch name {
	case "total-equity":
		return optimizer.TotalEquity, nil
	case "annualized-return":
		return optimizer.AnnualizedReturn, nil
	case "max-drawdown":
		return optimizer.MaxDrawdown, nil
	default:
		return nil, fmt.Errorf("unknown score %q", name)
	}
}

func (s *Service) writeReport(ctx context.Context, job store.Job, log *runner.MetricLog) {
	results, err := s.results.Results(ctx, job.ID)
	if err != nil || len(results) == 0 {
		return
	}
	input := report.JobReportInput{
		JobID:   job.ID,
		Title:   fmt.Sprintf("%s %s %s", job.Symbol, job.Strategy, job.Mode),
		Log:     log,
		Results: results,
	}
	if err := os.MkdirAll(s.cfg.Report.OutputDir, 0o755); err != nil {
		logger.Warnf("job %s: report dir: %v", job.ID, err)
		return
	}
	html, err := report.BuildHTML(input)
	if err != nil {
		logger.Warnf("job %s: report html: %v", job.ID, err)
		return
	}
	htmlPath := filepath.Join(s.cfg.Report.OutputDir, job.ID+".html")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		logger.Warnf("job %s: write report: %v", job.ID, err)
		return
	}
	if s.cfg.Report.RenderPNG {
		img, err := report.RenderPNG(ctx, input)
		if err != nil {
			logger.Warnf("job %s: report png: %v", job.ID, err)
			return
		}
		pngPath := filepath.Join(s.cfg.Report.OutputDir, img.Filename)
		if err := os.WriteFile(pngPath, img.Bytes, 0o644); err != nil {
			logger.Warnf("job %s: write png: %v", job.ID, err)
		}
	}
}

// SyncCandles backfills exchange history for [start, end) into the candle
// store. Times are Unix milliseconds.
func (s *Service) SyncCandles(ctx context.Context, symbol, interval string, startMs, endMs int64) (int, error) {
	if s.source == nil {
		return 0, fmt.Errorf("no market data source configured")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		interval = s.cfg.Data.DefaultInterval
	}
	tf, err := timeframe.New(time.UnixMilli(startMs).UTC(), time.UnixMilli(endMs).UTC())
	if err != nil {
		return 0, err
	}
	return s.source.Sync(ctx, s.candles, symbol, interval, tf)
}
