package jobs

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelJobsCompletesAllWithSmallPool(t *testing.T) {
	const units = 20
	p := NewParallel(3)

	var running, peak, done int64
	for i := 0; i < units; i++ {
		p.Add(func() error {
			n := atomic.AddInt64(&running, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&running, -1)
			atomic.AddInt64(&done, 1)
			return nil
		})
	}
	require.NoError(t, p.JoinAll())
	assert.Equal(t, int64(units), atomic.LoadInt64(&done))
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(3))
}

func TestParallelJobsPropagatesFirstError(t *testing.T) {
	p := NewParallel(2)
	boom := errors.New("boom")

	var completed int64
	for i := 0; i < 8; i++ {
		i := i
		p.Add(func() error {
			if i == 3 {
				return boom
			}
			atomic.AddInt64(&completed, 1)
			return nil
		})
	}
	err := p.JoinAll()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(7), atomic.LoadInt64(&completed), "siblings still run to completion")
}

func TestParallelJobsConcurrentAppend(t *testing.T) {
	p := NewParallel(0)

	var mu sync.Mutex
	var out []int
	for i := 0; i < 100; i++ {
		i := i
		p.Add(func() error {
			mu.Lock()
			out = append(out, i)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, p.JoinAll())
	assert.Len(t, out, 100)
}
