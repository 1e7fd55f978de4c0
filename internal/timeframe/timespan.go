package timeframe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeSpan combines a calendar component (years/months/days, whose effect
// on an instant depends on the calendar and timezone) with a fixed duration
// component that always means exactly that much elapsed time. "1 month"
// lands on the same day-of-month; "720h" is always 720 hours, DST or not.
type TimeSpan struct {
	Years  int
	Months int
	Days   int
	Dur    time.Duration
}

func Span(years, months, days int) TimeSpan {
	return TimeSpan{Years: years, Months: months, Days: days}.normalize()
}

func Months(n int) TimeSpan  { return Span(0, n, 0) }
func DaysSpan(n int) TimeSpan { return Span(0, 0, n) }

// DurationSpan wraps a plain duration as a TimeSpan.
func DurationSpan(d time.Duration) TimeSpan { return TimeSpan{Dur: d} }

// normalize folds overflowing months into years. Days are left alone: a
// month has no fixed day count, so 40 days stays 40 days.
func (s TimeSpan) normalize() TimeSpan {
	total := s.Years*12 + s.Months
	s.Years = total / 12
	s.Months = total % 12
	if s.Years > 0 && s.Months < 0 {
		s.Years--
		s.Months += 12
	}
	if s.Years < 0 && s.Months > 0 {
		s.Years++
		s.Months -= 12
	}
	return s
}

func (s TimeSpan) IsZero() bool {
	return s.Years == 0 && s.Months == 0 && s.Days == 0 && s.Dur == 0
}

func (s TimeSpan) isNegative() bool {
	return s.Years < 0 || s.Months < 0 || s.Days < 0 || s.Dur < 0
}

func (s TimeSpan) Add(o TimeSpan) TimeSpan {
	return TimeSpan{
		Years:  s.Years + o.Years,
		Months: s.Months + o.Months,
		Days:   s.Days + o.Days,
		Dur:    s.Dur + o.Dur,
	}.normalize()
}

func (s TimeSpan) Neg() TimeSpan {
	return TimeSpan{Years: -s.Years, Months: -s.Months, Days: -s.Days, Dur: -s.Dur}
}

// Equal requires both components to match: one month never equals 30 days,
// even when a particular addition would land on the same instant.
func (s TimeSpan) Equal(o TimeSpan) bool {
	a, b := s.normalize(), o.normalize()
	return a.Years == b.Years && a.Months == b.Months && a.Days == b.Days && a.Dur == b.Dur
}

// AddTo applies the span to t: the calendar part via AddDate in the given
// location (so DST crossings behave like a wall calendar), then the
// duration part as exact elapsed time. A zero span returns t untouched.
func (s TimeSpan) AddTo(t time.Time, loc *time.Location) time.Time {
	if s.IsZero() {
		return t
	}
	if loc == nil {
		loc = time.UTC
	}
	out := t
	if s.Years != 0 || s.Months != 0 || s.Days != 0 {
		out = out.In(loc).AddDate(s.Years, s.Months, s.Days)
	}
	if s.Dur != 0 {
		out = out.Add(s.Dur)
	}
	return out
}

// Approx returns a fixed-duration estimate of the span (months as 30.44
// days). Only used for sampling window sizes, never for applying the span.
func (s TimeSpan) Approx() time.Duration {
	const day = 24 * time.Hour
	months := float64(s.Years*12 + s.Months)
	return time.Duration(months*30.44*float64(day)) + time.Duration(s.Days)*day + s.Dur
}

func (s TimeSpan) String() string {
	s = s.normalize()
	var b strings.Builder
	if s.Years != 0 {
		fmt.Fprintf(&b, "%dy", s.Years)
	}
	if s.Months != 0 {
		fmt.Fprintf(&b, "%dmo", s.Months)
	}
	if s.Days != 0 {
		fmt.Fprintf(&b, "%dd", s.Days)
	}
	if s.Dur != 0 || b.Len() == 0 {
		b.WriteString(s.Dur.String())
	}
	return b.String()
}

// ParseSpan reads strings like "1y", "6mo", "14d", "1y6mo", "2d12h" or any
// plain time.Duration ("90m", "36h"). Calendar units are y, mo and d;
// everything after them is handed to time.ParseDuration.
func ParseSpan(input string) (TimeSpan, error) {
	raw := strings.TrimSpace(strings.ToLower(input))
	if raw == "" {
		return TimeSpan{}, fmt.Errorf("empty span")
	}
	var span TimeSpan
	rest := raw
	for {
		i := 0
		for i < len(rest) && (rest[i] >= '0' && rest[i] <= '9' || rest[i] == '-') {
			i++
		}
		if i == 0 || i == len(rest) {
			break
		}
		var unit string
		switch {
		case rest[i] == 'y':
			unit = "y"
		case strings.HasPrefix(rest[i:], "mo"):
			unit = "mo"
		case rest[i] == 'd':
			unit = "d"
		default:
			unit = ""
		}
		if unit == "" {
			break
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return TimeSpan{}, fmt.Errorf("invalid span %q: %w", input, err)
		}
		switch unit {
		case "y":
			span.Years += n
		case "mo":
			span.Months += n
		case "d":
			span.Days += n
		}
		rest = rest[i+len(unit):]
		if rest == "" {
			return span.normalize(), nil
		}
	}
	dur, err := time.ParseDuration(rest)
	if err != nil {
		return TimeSpan{}, fmt.Errorf("invalid span %q", input)
	}
	span.Dur = dur
	return span.normalize(), nil
}
