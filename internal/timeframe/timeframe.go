package timeframe

import (
	"fmt"
	"math/rand"
	"time"
)

// Timeframe is a half-open interval [Start, End). The zero value (or any
// frame missing one of its bounds) is treated as infinite: an extent that
// is not known yet, for example a live feed that has no defined end.
type Timeframe struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Infinite marks an unknown extent. Windowing operations reject it.
var Infinite = Timeframe{}

// New validates start <= end.
func New(start, end time.Time) (Timeframe, error) {
	if start.After(end) {
		return Timeframe{}, fmt.Errorf("timeframe start %s after end %s", start, end)
	}
	return Timeframe{Start: start, End: end}, nil
}

func (tf Timeframe) IsInfinite() bool {
	return tf.Start.IsZero() || tf.End.IsZero()
}

func (tf Timeframe) Duration() time.Duration {
	if tf.IsInfinite() {
		return 0
	}
	return tf.End.Sub(tf.Start)
}

// Contains reports whether t falls inside [Start, End).
func (tf Timeframe) Contains(t time.Time) bool {
	if tf.IsInfinite() {
		return true
	}
	return !t.Before(tf.Start) && t.Before(tf.End)
}

// Union returns the smallest frame covering both tf and o.
func (tf Timeframe) Union(o Timeframe) Timeframe {
	if tf.IsInfinite() || o.IsInfinite() {
		return Infinite
	}
	start := tf.Start
	if o.Start.Before(start) {
		start = o.Start
	}
	end := tf.End
	if o.End.After(end) {
		end = o.End
	}
	return Timeframe{Start: start, End: end}
}

// Split cuts the frame into consecutive windows of the given span. The last
// window is clipped at End, so the windows cover the frame exactly.
func (tf Timeframe) Split(span TimeSpan) ([]Timeframe, error) {
	if tf.IsInfinite() {
		return nil, fmt.Errorf("cannot split an infinite timeframe")
	}
	if span.IsZero() || span.isNegative() {
		return nil, fmt.Errorf("split span must be positive, got %s", span)
	}
	var out []Timeframe
	start := tf.Start
	for start.Before(tf.End) {
		end := span.AddTo(start, time.UTC)
		if !end.After(start) {
			return nil, fmt.Errorf("split span %s does not advance time", span)
		}
		if end.After(tf.End) {
			end = tf.End
		}
		out = append(out, Timeframe{Start: start, End: end})
		start = end
	}
	return out, nil
}

// Sample draws n windows of the given length with starts uniform over the
// valid offsets. Windows may overlap.
func (tf Timeframe) Sample(period time.Duration, n int) ([]Timeframe, error) {
	if tf.IsInfinite() {
		return nil, fmt.Errorf("cannot sample an infinite timeframe")
	}
	if period <= 0 || n <= 0 {
		return nil, fmt.Errorf("sample needs a positive period and count")
	}
	room := tf.Duration() - period
	if room < 0 {
		return nil, fmt.Errorf("period %s exceeds timeframe %s", period, tf)
	}
	out := make([]Timeframe, 0, n)
	for i := 0; i < n; i++ {
		// room itself is a valid offset: that window ends exactly at End
		offset := time.Duration(rand.Int63n(int64(room) + 1))
		start := tf.Start.Add(offset)
		out = append(out, Timeframe{Start: start, End: start.Add(period)})
	}
	return out, nil
}

// Extend moves Start back by the given span. Used for warmup windows.
func (tf Timeframe) Extend(span TimeSpan) Timeframe {
	if tf.IsInfinite() || span.IsZero() {
		return tf
	}
	return Timeframe{Start: span.Neg().AddTo(tf.Start, time.UTC), End: tf.End}
}

func (tf Timeframe) String() string {
	if tf.IsInfinite() {
		return "[infinite]"
	}
	const layout = "2006-01-02T15:04:05Z07:00"
	return fmt.Sprintf("[%s - %s)", tf.Start.UTC().Format(layout), tf.End.UTC().Format(layout))
}
