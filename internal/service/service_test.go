package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"backtune/internal/params"
	"backtune/internal/strategy"
	"backtune/internal/timeframe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmupSpanCoversStrategyNeed(t *testing.T) {
	factory, err := strategy.FactoryFor("ema-cross")
	require.NoError(t, err)
	space := params.NewGrid().Add("fast", 5).Add("slow", 10, 20)

	t.Run("widened when the configured span is too short", func(t *testing.T) {
		// slow=20 needs 60 hourly bars, far more than one hour
		span, err := warmupSpanFor(space, factory, time.Hour, timeframe.DurationSpan(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 60*time.Hour, span.Approx())
	})

	t.Run("kept when the configured span already covers it", func(t *testing.T) {
		span, err := warmupSpanFor(space, factory, time.Hour, timeframe.DaysSpan(7))
		require.NoError(t, err)
		assert.True(t, span.Equal(timeframe.DaysSpan(7)))
	})

	t.Run("bad params surface", func(t *testing.T) {
		broken := params.NewGrid().Add("fast", 20).Add("slow", 10)
		_, err := warmupSpanFor(broken, factory, time.Hour, timeframe.TimeSpan{})
		assert.Error(t, err)
	})
}

func TestSetContextIsSafeFromJobGoroutines(t *testing.T) {
	s := &Service{baseCtx: context.Background()}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetContext(context.Background())
		}()
		go func() {
			defer wg.Done()
			assert.NotNil(t, s.ctx())
		}()
	}
	wg.Wait()
}
