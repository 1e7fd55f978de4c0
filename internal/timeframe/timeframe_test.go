package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFrame(t *testing.T, start, end string) Timeframe {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	require.NoError(t, err)
	tf, err := New(s, e)
	require.NoError(t, err)
	return tf
}

func TestNewRejectsReversedBounds(t *testing.T) {
	s := time.Now()
	_, err := New(s, s.Add(-time.Hour))
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	tf := mustFrame(t, "2023-01-01T00:00:00Z", "2023-02-01T00:00:00Z")
	assert.True(t, tf.Contains(tf.Start), "start is inclusive")
	assert.False(t, tf.Contains(tf.End), "end is exclusive")
	assert.True(t, tf.Contains(tf.Start.Add(time.Hour)))
	assert.False(t, tf.Contains(tf.Start.Add(-time.Second)))
}

func TestUnion(t *testing.T) {
	a := mustFrame(t, "2023-01-01T00:00:00Z", "2023-02-01T00:00:00Z")
	b := mustFrame(t, "2023-01-15T00:00:00Z", "2023-03-01T00:00:00Z")
	u := a.Union(b)
	assert.Equal(t, a.Start, u.Start)
	assert.Equal(t, b.End, u.End)

	assert.True(t, a.Union(Infinite).IsInfinite())
}

func TestSplit(t *testing.T) {
	tf := mustFrame(t, "2023-01-01T00:00:00Z", "2024-01-01T00:00:00Z")
	windows, err := tf.Split(Months(3))
	require.NoError(t, err)
	require.Len(t, windows, 4)

	// Consecutive and covering: each window starts where the previous ends.
	assert.Equal(t, tf.Start, windows[0].Start)
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i-1].End, windows[i].Start)
	}
	assert.Equal(t, tf.End, windows[len(windows)-1].End)
}

func TestSplitClipsLastWindow(t *testing.T) {
	tf := mustFrame(t, "2023-01-01T00:00:00Z", "2023-08-15T00:00:00Z")
	windows, err := tf.Split(Months(3))
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Equal(t, tf.End, windows[2].End)
	assert.True(t, windows[2].Duration() < windows[0].Duration())
}

func TestSplitInfiniteFails(t *testing.T) {
	_, err := Infinite.Split(Months(1))
	assert.Error(t, err)
}

func TestSplitZeroSpanFails(t *testing.T) {
	tf := mustFrame(t, "2023-01-01T00:00:00Z", "2023-02-01T00:00:00Z")
	_, err := tf.Split(TimeSpan{})
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	tf := mustFrame(t, "2023-01-01T00:00:00Z", "2024-01-01T00:00:00Z")
	period := 30 * 24 * time.Hour
	windows, err := tf.Sample(period, 5)
	require.NoError(t, err)
	require.Len(t, windows, 5)
	for _, w := range windows {
		assert.Equal(t, period, w.Duration())
		assert.True(t, !w.Start.Before(tf.Start))
		assert.True(t, !w.End.After(tf.End))
	}
}

func TestSamplePeriodEqualToExtent(t *testing.T) {
	tf := mustFrame(t, "2023-01-01T00:00:00Z", "2023-01-03T00:00:00Z")
	windows, err := tf.Sample(48*time.Hour, 3)
	require.NoError(t, err)
	require.Len(t, windows, 3)
	for _, w := range windows {
		assert.Equal(t, tf, w)
	}
}

func TestSampleReachesTheLastOffset(t *testing.T) {
	tf := mustFrame(t, "2023-01-01T00:00:00Z", "2023-01-02T00:00:00Z")
	// one nanosecond of room leaves exactly two valid offsets; over 64
	// draws the maximal one shows up
	windows, err := tf.Sample(24*time.Hour-time.Nanosecond, 64)
	require.NoError(t, err)

	ends := map[time.Time]bool{}
	for _, w := range windows {
		assert.True(t, !w.End.After(tf.End))
		ends[w.End] = true
	}
	assert.True(t, ends[tf.End], "the window ending at End must be sampleable")
}

func TestSampleInfiniteFails(t *testing.T) {
	_, err := Infinite.Sample(time.Hour, 3)
	assert.Error(t, err)
}

func TestSampleTooLongPeriodFails(t *testing.T) {
	tf := mustFrame(t, "2023-01-01T00:00:00Z", "2023-01-02T00:00:00Z")
	_, err := tf.Sample(48*time.Hour, 1)
	assert.Error(t, err)
}

func TestExtend(t *testing.T) {
	tf := mustFrame(t, "2023-02-01T00:00:00Z", "2023-03-01T00:00:00Z")
	warm := tf.Extend(DaysSpan(7))
	assert.Equal(t, tf.End, warm.End)
	assert.Equal(t, tf.Start.AddDate(0, 0, -7), warm.Start)
	assert.Equal(t, tf, tf.Extend(TimeSpan{}), "zero warmup is a no-op")
}
