package params

import (
	"fmt"
	"sort"
	"strings"
)

// Params is one concrete assignment of hyperparameter values, produced by a
// SearchSpace. It is immutable after creation; reads of unknown keys fail
// at read time, not at space construction time.
type Params struct {
	values map[string]any
}

// New copies the given values into an immutable Params.
func New(values map[string]any) Params {
	m := make(map[string]any, len(values))
	for k, v := range values {
		m[k] = v
	}
	return Params{values: m}
}

// Empty is the no-hyperparameter assignment.
func Empty() Params { return Params{} }

func (p Params) Len() int { return len(p.values) }

func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Names returns all keys, sorted.
func (p Params) Names() []string {
	out := make([]string, 0, len(p.values))
	for k := range p.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the raw value, or a missing-key error.
func (p Params) Get(name string) (any, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, fmt.Errorf("params: missing key %q", name)
	}
	return v, nil
}

// Int reads an integer parameter. Float values with no fractional part are
// accepted: YAML and JSON decoders do not preserve the distinction.
func (p Params) Int(name string) (int, error) {
	v, err := p.Get(name)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t == float64(int(t)) {
			return int(t), nil
		}
	}
	return 0, fmt.Errorf("params: key %q is not an int (got %T)", name, v)
}

func (p Params) Float(name string) (float64, error) {
	v, err := p.Get(name)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	}
	return 0, fmt.Errorf("params: key %q is not a number (got %T)", name, v)
}

// Str reads a string parameter.
func (p Params) Str(name string) (string, error) {
	v, err := p.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("params: key %q is not a string (got %T)", name, v)
	}
	return s, nil
}

// Map returns a copy of the underlying values, for persistence.
func (p Params) Map() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// String renders "k1=v1 k2=v2" with sorted keys, for run logs.
func (p Params) String() string {
	if len(p.values) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(p.values))
	for _, k := range p.Names() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p.values[k]))
	}
	return strings.Join(parts, " ")
}
