package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsAccess(t *testing.T) {
	p := New(map[string]any{"fast": 12, "slow": 26.0, "mode": "ema"})

	t.Run("int accepts whole float", func(t *testing.T) {
		fast, err := p.Int("fast")
		require.NoError(t, err)
		assert.Equal(t, 12, fast)

		slow, err := p.Int("slow")
		require.NoError(t, err)
		assert.Equal(t, 26, slow)
	})

	t.Run("float", func(t *testing.T) {
		slow, err := p.Float("slow")
		require.NoError(t, err)
		assert.Equal(t, 26.0, slow)
	})

	t.Run("string", func(t *testing.T) {
		mode, err := p.Str("mode")
		require.NoError(t, err)
		assert.Equal(t, "ema", mode)
	})

	t.Run("missing key errors at read", func(t *testing.T) {
		_, err := p.Get("threshold")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "threshold")
	})

	t.Run("names sorted", func(t *testing.T) {
		assert.Equal(t, []string{"fast", "mode", "slow"}, p.Names())
	})
}

func TestParamsImmutable(t *testing.T) {
	src := map[string]any{"n": 1}
	p := New(src)
	src["n"] = 99

	n, err := p.Int("n")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out := p.Map()
	out["n"] = 42
	n, err = p.Int("n")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGridSearchSpace(t *testing.T) {
	g := NewGrid()
	g.Add("mode", "ema", "sma", "wma")
	fastCalls := 0
	g.AddFn("fast", 100, func() any {
		fastCalls++
		return fastCalls
	})
	g.AddFn("slow", 100, func() any { return 50 })

	require.Equal(t, 100, fastCalls, "generator is called exactly n times")
	require.Equal(t, 30000, g.Size())

	total := 0
	emaOnly := 0
	err := g.ForEach(func(p Params) error {
		total++
		mode, err := p.Str("mode")
		require.NoError(t, err)
		if mode == "ema" {
			emaOnly++
		}
		_, err = p.Int("fast")
		require.NoError(t, err)
		_, err = p.Int("slow")
		require.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30000, total)
	assert.Equal(t, 10000, emaOnly)
}

func TestGridEmptyFails(t *testing.T) {
	g := NewGrid()
	assert.Equal(t, 0, g.Size())
	err := g.ForEach(func(Params) error { return nil })
	require.Error(t, err)
}

func TestRandomSearchSpace(t *testing.T) {
	r := NewRandom(37)
	r.Add("fast", 5, 10, 15)
	r.AddFn("slow", 0, func() any { return 20 })

	require.Equal(t, 37, r.Size())
	seen := 0
	err := r.ForEach(func(p Params) error {
		seen++
		fast, err := p.Int("fast")
		require.NoError(t, err)
		assert.Contains(t, []int{5, 10, 15}, fast)
		slow, err := p.Int("slow")
		require.NoError(t, err)
		assert.Equal(t, 20, slow)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 37, seen)
}

func TestEmptySearchSpace(t *testing.T) {
	e := NewEmpty()
	require.Equal(t, 1, e.Size())
	runs := 0
	err := e.ForEach(func(p Params) error {
		runs++
		assert.Equal(t, 0, p.Len())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}
