package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"backtune/internal/optimizer"
	"backtune/internal/params"
	"backtune/internal/timeframe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *ResultStore {
	t.Helper()
	s, err := NewResultStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestJobLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, Job{
		Symbol:   "BTCUSDT",
		Interval: "1h",
		Strategy: "ema-cross",
		Mode:     "train",
		Space: params.SpaceDef{
			Type: "grid",
			Dimensions: []params.DimensionDef{
				{Name: "fast", Values: []any{5, 10}},
				{Name: "slow", Values: []any{30}},
			},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, JobPending, job.Status)

	require.NoError(t, s.MarkRunning(ctx, job.ID))
	loaded, err := s.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobRunning, loaded.Status)
	assert.False(t, loaded.StartedAt.IsZero())
	assert.Equal(t, "grid", loaded.Space.Type)
	assert.Len(t, loaded.Space.Dimensions, 2)

	require.NoError(t, s.MarkFinished(ctx, job.ID, nil))
	loaded, err = s.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, loaded.Status)
}

func TestMarkFinishedRecordsFailure(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, Job{Symbol: "ETHUSDT", Mode: "train"})
	require.NoError(t, err)
	require.NoError(t, s.MarkFinished(ctx, job.ID, errors.New("feed timeframe is unbounded")))

	loaded, err := s.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobFailed, loaded.Status)
	assert.Contains(t, loaded.Error, "unbounded")
}

func TestJobNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Job(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, s.MarkRunning(context.Background(), "missing"), ErrJobNotFound)
}

func TestResultsRoundTripOrderedByScore(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, Job{Symbol: "BTCUSDT", Mode: "train"})
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tf, err := timeframe.New(start, start.Add(24*time.Hour))
	require.NoError(t, err)

	runs := []optimizer.RunResult{
		{Name: "train-1", Params: params.New(map[string]any{"fast": 5}), Score: 1.5, Timeframe: tf},
		{Name: "train-2", Params: params.New(map[string]any{"fast": 10}), Score: 3.25, Timeframe: tf},
		{Name: "train-3", Params: params.New(map[string]any{"fast": 15}), Score: 2.0, Timeframe: tf},
	}
	require.NoError(t, s.InsertResults(ctx, job.ID, runs))

	got, err := s.Results(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "train-2", got[0].Name)
	assert.Equal(t, 3.25, got[0].Score)
	assert.Equal(t, float64(10), got[0].Params["fast"])
	assert.Equal(t, tf.Start, got[0].Timeframe.Start)
}

func TestJobsNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CreateJob(ctx, Job{Symbol: "BTCUSDT", Mode: "train"})
	require.NoError(t, err)
	_, err = s.CreateJob(ctx, Job{Symbol: "ETHUSDT", Mode: "walk-forward"})
	require.NoError(t, err)

	jobs, err := s.Jobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}
