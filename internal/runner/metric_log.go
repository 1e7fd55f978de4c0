// Package runner executes one strategy instance against a feed and records
// its equity curve.
package runner

import (
	"sort"
	"sync"
	"time"

	"backtune/internal/timeframe"
)

// Point is one recorded metric sample.
type Point struct {
	Time  time.Time
	Value float64
}

// MetricLog collects named metric series. Appends from concurrent runs are
// safe as long as each run writes under its own name.
type MetricLog struct {
	mu     sync.RWMutex
	series map[string][]Point
}

func NewMetricLog() *MetricLog {
	return &MetricLog{series: make(map[string][]Point)}
}

func (l *MetricLog) Append(name string, t time.Time, v float64) {
	l.mu.Lock()
	l.series[name] = append(l.series[name], Point{Time: t, Value: v})
	l.mu.Unlock()
}

// Series returns a copy of the samples recorded under name, in append
// order.
func (l *MetricLog) Series(name string) []Point {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.series[name]
	out := make([]Point, len(src))
	copy(out, src)
	return out
}

// Window returns the samples under name whose time falls inside tf.
func (l *MetricLog) Window(name string, tf timeframe.Timeframe) []Point {
	all := l.Series(name)
	out := make([]Point, 0, len(all))
	for _, p := range all {
		if tf.Contains(p.Time) {
			out = append(out, p)
		}
	}
	return out
}

func (l *MetricLog) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.series))
	for name := range l.series {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (l *MetricLog) Len(name string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.series[name])
}
