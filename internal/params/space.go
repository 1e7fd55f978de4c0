package params

import (
	"fmt"
	"math/rand"
)

// SearchSpace generates the parameter assignments to evaluate. Iteration is
// lazy via ForEach and re-iterable: a second traversal yields the same
// logical space (Grid deterministically; Random re-draws from the process
// random source, so bit-identical restarts need external seeding).
type SearchSpace interface {
	// ForEach invokes fn once per Params. A non-nil error stops iteration
	// and is returned.
	ForEach(fn func(Params) error) error
	// Size is the number of Params a full traversal produces.
	Size() int
}

type dimension struct {
	name   string
	values []any
	sample func() any
}

// GridSearchSpace enumerates the exhaustive cross-product of all dimensions.
// The last-added dimension varies fastest.
type GridSearchSpace struct {
	dims []dimension
}

func NewGrid() *GridSearchSpace { return &GridSearchSpace{} }

// Add registers a fixed-value dimension.
func (g *GridSearchSpace) Add(name string, values ...any) *GridSearchSpace {
	g.dims = append(g.dims, dimension{name: name, values: values})
	return g
}

// AddFn registers a generated dimension. The generator is called exactly n
// times up front to materialize a fixed list before the cross-product.
func (g *GridSearchSpace) AddFn(name string, n int, fn func() any) *GridSearchSpace {
	values := make([]any, 0, n)
	for i := 0; i < n; i++ {
		values = append(values, fn())
	}
	g.dims = append(g.dims, dimension{name: name, values: values})
	return g
}

func (g *GridSearchSpace) Size() int {
	if len(g.dims) == 0 {
		return 0
	}
	total := 1
	for _, d := range g.dims {
		total *= len(d.values)
	}
	return total
}

func (g *GridSearchSpace) ForEach(fn func(Params) error) error {
	if g.Size() == 0 {
		return fmt.Errorf("grid space has no values to enumerate")
	}
	current := make(map[string]any, len(g.dims))
	return g.walk(0, current, fn)
}

func (g *GridSearchSpace) walk(depth int, current map[string]any, fn func(Params) error) error {
	if depth == len(g.dims) {
		return fn(New(current))
	}
	d := g.dims[depth]
	for _, v := range d.values {
		current[d.name] = v
		if err := g.walk(depth+1, current, fn); err != nil {
			return err
		}
	}
	return nil
}

// RandomSearchSpace draws a fixed number of trials, independently
// re-sampling every dimension per trial.
type RandomSearchSpace struct {
	trials int
	dims   []dimension
}

func NewRandom(trials int) *RandomSearchSpace {
	return &RandomSearchSpace{trials: trials}
}

// Add registers a dimension sampled uniformly from the given values.
func (r *RandomSearchSpace) Add(name string, values ...any) *RandomSearchSpace {
	r.dims = append(r.dims, dimension{name: name, values: values})
	return r
}

// AddFn registers a dimension whose value comes from calling fn once per
// trial. The n argument exists for symmetry with the grid space and is
// ignored here: the space's own trial count drives iteration.
func (r *RandomSearchSpace) AddFn(name string, n int, fn func() any) *RandomSearchSpace {
	_ = n
	r.dims = append(r.dims, dimension{name: name, sample: fn})
	return r
}

func (r *RandomSearchSpace) Size() int { return r.trials }

func (r *RandomSearchSpace) ForEach(fn func(Params) error) error {
	if len(r.dims) == 0 {
		return fmt.Errorf("random space has no dimensions")
	}
	for i := 0; i < r.trials; i++ {
		current := make(map[string]any, len(r.dims))
		for _, d := range r.dims {
			if d.sample != nil {
				current[d.name] = d.sample()
				continue
			}
			if len(d.values) == 0 {
				return fmt.Errorf("random space dimension %q has no values", d.name)
			}
			current[d.name] = d.values[rand.Intn(len(d.values))]
		}
		if err := fn(New(current)); err != nil {
			return err
		}
	}
	return nil
}

// EmptySearchSpace yields exactly one Params with no entries, for runs
// without tunable hyperparameters.
type EmptySearchSpace struct{}

func NewEmpty() EmptySearchSpace { return EmptySearchSpace{} }

func (EmptySearchSpace) Size() int { return 1 }

func (EmptySearchSpace) ForEach(fn func(Params) error) error {
	return fn(Empty())
}
