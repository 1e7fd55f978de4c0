// Package optimizer searches a parameter space by running simulated
// backtests over training, validation and resampled windows.
package optimizer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"backtune/internal/broker"
	"backtune/internal/feed"
	"backtune/internal/jobs"
	"backtune/internal/logger"
	"backtune/internal/params"
	"backtune/internal/runner"
	"backtune/internal/timeframe"
)

// Constructor builds an isolated, freshly-stated run for one parameter
// assignment. Every call must return a new runner backed by a new broker;
// runs share nothing but the metric log.
type Constructor func(p params.Params) (*runner.Runner, error)

// RunResult is one scored trial.
type RunResult struct {
	Name      string              `json:"name"`
	Params    params.Params       `json:"-"`
	Score     float64             `json:"score"`
	Timeframe timeframe.Timeframe `json:"timeframe"`

	seq int64
}

// Optimizer fans trials out over a worker pool and reduces each run's
// metric log to a score. The trial counter is the only state shared across
// concurrent trials; it makes every run name unique.
type Optimizer struct {
	space params.SearchSpace
	build Constructor
	score Score
	log   *runner.MetricLog
	pool  int

	trial atomic.Int64
}

// New wires an optimizer. poolSize <= 0 means host parallelism.
func New(space params.SearchSpace, build Constructor, score Score, log *runner.MetricLog, poolSize int) (*Optimizer, error) {
	if space == nil || build == nil || score == nil || log == nil {
		return nil, fmt.Errorf("optimizer needs a space, a constructor, a score and a metric log")
	}
	return &Optimizer{space: space, build: build, score: score, log: log, pool: poolSize}, nil
}

func (o *Optimizer) nextSeq() int64 { return o.trial.Add(1) }

// resolve substitutes the feed's extent for an infinite request and rejects
// unbounded feeds before any work is scheduled.
func resolve(f feed.Feed, tf timeframe.Timeframe) (timeframe.Timeframe, error) {
	if tf.IsInfinite() {
		tf = f.Timeframe()
	}
	if tf.IsInfinite() {
		return tf, fmt.Errorf("feed timeframe is unbounded")
	}
	return tf, nil
}

// Train runs one trial per parameter assignment in the space, in parallel,
// over tf. Each trial replays [tf.start - warmup, tf.end) and is scored on
// tf only. Result order is not guaranteed. Fails before scheduling anything
// if tf is unbounded or a constructed run is not simulation-backed.
func (o *Optimizer) Train(ctx context.Context, f feed.Feed, tf timeframe.Timeframe, warmup timeframe.TimeSpan) ([]RunResult, error) {
	tf, err := resolve(f, tf)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	pool := jobs.NewParallel(o.pool)
	var mu sync.Mutex
	results := make([]RunResult, 0, o.space.Size())

	started := time.Now()
	err = o.space.ForEach(func(p params.Params) error {
		r, err := o.build(p)
		if err != nil {
			return fmt.Errorf("build trial: %w", err)
		}
		if backend := r.Backend(); backend != broker.BackendSim {
			return fmt.Errorf("train requires the simulation backend, got %q", backend)
		}
		seq := o.nextSeq()
		name := fmt.Sprintf("train-%d", seq)
		pool.Add(func() error {
			if err := r.Run(ctx, f, tf, warmup, name); err != nil {
				return err
			}
			res := RunResult{
				Name:      name,
				Params:    p,
				Score:     o.score(o.log, name, tf),
				Timeframe: tf,
				seq:       seq,
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
		return nil
	})
	if joinErr := pool.JoinAll(); err == nil {
		err = joinErr
	}
	if err != nil {
		return nil, fmt.Errorf("train over %s: %w", tf, err)
	}
	logger.Debugf("trained %d trials over %s in %s", len(results), tf, time.Since(started).Round(time.Millisecond))
	return results, nil
}

// Validate evaluates exactly one parameter assignment serially over tf.
func (o *Optimizer) Validate(ctx context.Context, f feed.Feed, tf timeframe.Timeframe, p params.Params, warmup timeframe.TimeSpan) (RunResult, error) {
	tf, err := resolve(f, tf)
	if err != nil {
		return RunResult{}, fmt.Errorf("validate: %w", err)
	}
	r, err := o.build(p)
	if err != nil {
		return RunResult{}, fmt.Errorf("build validation run: %w", err)
	}
	if backend := r.Backend(); backend != broker.BackendSim {
		return RunResult{}, fmt.Errorf("validate requires the simulation backend, got %q", backend)
	}
	seq := o.nextSeq()
	name := fmt.Sprintf("validate-%d", seq)
	if err := r.Run(ctx, f, tf, warmup, name); err != nil {
		return RunResult{}, fmt.Errorf("validate over %s: %w", tf, err)
	}
	return RunResult{
		Name:      name,
		Params:    p,
		Score:     o.score(o.log, name, tf),
		Timeframe: tf,
		seq:       seq,
	}, nil
}

// WalkForward splits the feed's extent into consecutive windows of length
// period and trains on each. Anchored mode pins every window's start to the
// feed's global start so windows grow. Windows run strictly in order.
func (o *Optimizer) WalkForward(ctx context.Context, f feed.Feed, period, warmup timeframe.TimeSpan, anchored bool) ([]RunResult, error) {
	full, err := resolve(f, timeframe.Infinite)
	if err != nil {
		return nil, fmt.Errorf("walk-forward: %w", err)
	}
	windows, err := full.Split(period)
	if err != nil {
		return nil, fmt.Errorf("walk-forward: %w", err)
	}
	var all []RunResult
	for _, w := range windows {
		trainTF := w
		if anchored {
			trainTF = timeframe.Timeframe{Start: full.Start, End: w.End}
		}
		res, err := o.Train(ctx, f, trainTF, warmup)
		if err != nil {
			return nil, fmt.Errorf("walk-forward window %s: %w", trainTF, err)
		}
		all = append(all, res...)
	}
	return all, nil
}

// WalkForwardValidate splits the feed's extent into windows of length
// period+validation. For each window the trailing validation sub-window is
// held out: the space is trained on the leading part, the best-scoring
// parameters are re-evaluated once, serially, on the held-out part, and
// both the full training set and the one validation result are returned.
// Window k's validation always completes before window k+1 starts. A
// trailing remainder shorter than the validation span is dropped; the call
// fails only when no window fits.
func (o *Optimizer) WalkForwardValidate(ctx context.Context, f feed.Feed, period, validation, warmup timeframe.TimeSpan, anchored bool) ([]RunResult, error) {
	if validation.IsZero() {
		return nil, fmt.Errorf("walk-forward: validation span must be positive")
	}
	full, err := resolve(f, timeframe.Infinite)
	if err != nil {
		return nil, fmt.Errorf("walk-forward: %w", err)
	}
	windows, err := full.Split(period.Add(validation))
	if err != nil {
		return nil, fmt.Errorf("walk-forward: %w", err)
	}
	var all []RunResult
	trained := 0
	for _, w := range windows {
		valStart := validation.Neg().AddTo(w.End, time.UTC)
		if !valStart.After(w.Start) {
			// Split clips the trailing window at the feed's end; a remainder
			// too short to hold both a training and a validation part is
			// dropped rather than failing the whole run.
			logger.Debugf("walk-forward: skipping short trailing window %s", w)
			continue
		}
		trainStart := w.Start
		if anchored {
			trainStart = full.Start
		}
		trainTF := timeframe.Timeframe{Start: trainStart, End: valStart}
		valTF := timeframe.Timeframe{Start: valStart, End: w.End}

		trainRes, err := o.Train(ctx, f, trainTF, warmup)
		if err != nil {
			return nil, fmt.Errorf("walk-forward window %s: %w", trainTF, err)
		}
		best, ok := Best(trainRes)
		if !ok {
			return nil, fmt.Errorf("walk-forward window %s produced no results", trainTF)
		}
		valRes, err := o.Validate(ctx, f, valTF, best.Params, warmup)
		if err != nil {
			return nil, fmt.Errorf("walk-forward validation %s: %w", valTF, err)
		}
		all = append(all, trainRes...)
		all = append(all, valRes)
		trained++
	}
	if trained == 0 {
		return nil, fmt.Errorf("walk-forward: no window of %s fits a %s validation span in %s", period.Add(validation), validation, full)
	}
	return all, nil
}

// MonteCarlo draws samples random sub-windows of the given length from the
// feed's extent and trains on each. Starts are uniform over the valid
// offsets and windows may overlap.
func (o *Optimizer) MonteCarlo(ctx context.Context, f feed.Feed, period time.Duration, samples int, warmup timeframe.TimeSpan) ([]RunResult, error) {
	full, err := resolve(f, timeframe.Infinite)
	if err != nil {
		return nil, fmt.Errorf("monte-carlo: %w", err)
	}
	windows, err := full.Sample(period, samples)
	if err != nil {
		return nil, fmt.Errorf("monte-carlo: %w", err)
	}
	var all []RunResult
	for _, w := range windows {
		res, err := o.Train(ctx, f, w, warmup)
		if err != nil {
			return nil, fmt.Errorf("monte-carlo window %s: %w", w, err)
		}
		all = append(all, res...)
	}
	return all, nil
}

// Best picks the result with the maximum score. Equal scores break toward
// the earliest trial, which keeps the choice deterministic even though
// parallel training returns results in arbitrary order.
func Best(results []RunResult) (RunResult, bool) {
	if len(results) == 0 {
		return RunResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Score > best.Score || (r.Score == best.Score && r.seq < best.seq) {
			best = r
		}
	}
	return best, true
}
