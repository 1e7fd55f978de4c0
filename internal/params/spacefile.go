package params

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"backtune/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DimensionDef declares one search dimension in a space file. Either a
// fixed value list or a numeric range (expanded at build time).
type DimensionDef struct {
	Name   string    `yaml:"name" json:"name"`
	Values []any     `yaml:"values,omitempty" json:"values,omitempty"`
	Range  *RangeDef `yaml:"range,omitempty" json:"range,omitempty"`
}

// RangeDef expands to From, From+Step, ... up to and including To.
type RangeDef struct {
	From float64 `yaml:"from" json:"from"`
	To   float64 `yaml:"to" json:"to"`
	Step float64 `yaml:"step" json:"step"`
	Int  bool    `yaml:"int,omitempty" json:"int,omitempty"`
}

func (r RangeDef) expand() ([]any, error) {
	if r.Step <= 0 {
		return nil, fmt.Errorf("range step must be positive")
	}
	if r.To < r.From {
		return nil, fmt.Errorf("range to %v below from %v", r.To, r.From)
	}
	var out []any
	for v := r.From; v <= r.To+r.Step/1e9; v += r.Step {
		if r.Int {
			out = append(out, int(v))
		} else {
			out = append(out, v)
		}
	}
	return out, nil
}

// SpaceDef is a declarative search space: grid, random or empty.
type SpaceDef struct {
	Type       string         `yaml:"type" json:"type"`
	Trials     int            `yaml:"trials,omitempty" json:"trials,omitempty"`
	Dimensions []DimensionDef `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
}

// Build turns the definition into a SearchSpace.
func (d SpaceDef) Build() (SearchSpace, error) {
	typ := strings.ToLower(strings.TrimSpace(d.Type))
	switch typ {
	case "empty":
		return NewEmpty(), nil
	case "grid", "random":
	default:
		return nil, fmt.Errorf("unknown space type %q", d.Type)
	}
	if len(d.Dimensions) == 0 {
		return nil, fmt.Errorf("%s space needs at least one dimension", typ)
	}
	expanded := make([][]any, 0, len(d.Dimensions))
	for _, dim := range d.Dimensions {
		if strings.TrimSpace(dim.Name) == "" {
			return nil, fmt.Errorf("space dimension without name")
		}
		values := dim.Values
		if dim.Range != nil {
			if len(values) > 0 {
				return nil, fmt.Errorf("dimension %q mixes values and range", dim.Name)
			}
			var err error
			values, err = dim.Range.expand()
			if err != nil {
				return nil, fmt.Errorf("dimension %q: %w", dim.Name, err)
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("dimension %q has no values", dim.Name)
		}
		expanded = append(expanded, values)
	}
	if typ == "grid" {
		g := NewGrid()
		for i, dim := range d.Dimensions {
			g.Add(dim.Name, expanded[i]...)
		}
		return g, nil
	}
	trials := d.Trials
	if trials <= 0 {
		return nil, fmt.Errorf("random space needs a positive trial count")
	}
	r := NewRandom(trials)
	for i, dim := range d.Dimensions {
		r.Add(dim.Name, expanded[i]...)
	}
	return r, nil
}

type spaceFile struct {
	Spaces map[string]SpaceDef `yaml:"spaces"`
}

// Registry holds the named space definitions from a YAML file and reloads
// them when the file changes.
type Registry struct {
	path string
	v    *viper.Viper

	mu     sync.RWMutex
	spaces map[string]SpaceDef
	loaded time.Time
}

// NewRegistry reads the space file and starts watching it for updates.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("space registry requires a path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read space file failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("space file reload failed (%s): %v", evt.Name, err)
		}
	})
	v.WatchConfig()
	return r, nil
}

func (r *Registry) reload() error {
	defs, err := ReadSpaceFile(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.spaces = defs
	r.loaded = time.Now()
	r.mu.Unlock()
	logger.Infof("space registry loaded %d definitions from %s", len(defs), filepath.Base(r.path))
	return nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (SpaceDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.spaces[strings.TrimSpace(name)]
	return def, ok
}

// Names lists the registered definitions, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.spaces))
	for name := range r.spaces {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ReadSpaceFile parses a spaces YAML file. Unknown fields are rejected so
// typos surface instead of silently shrinking the space.
func ReadSpaceFile(path string) (map[string]SpaceDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read space file failed: %w", err)
	}
	var file spaceFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse space file failed: %w", err)
	}
	if len(file.Spaces) == 0 {
		return nil, fmt.Errorf("space file %s defines no spaces", filepath.Base(path))
	}
	return file.Spaces, nil
}
