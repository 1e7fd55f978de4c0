package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeExactArithmetic(t *testing.T) {
	a := NewSize(0.1)
	b := NewSize(0.2)
	sum := a.Add(b)
	assert.True(t, sum.Equal(NewSize(0.3)), "got %s", sum)
	assert.True(t, sum.Sub(b).Equal(a))
}

func TestSizeSign(t *testing.T) {
	assert.Equal(t, 1, NewSize(2.5).Sign())
	assert.Equal(t, -1, NewSize(-2.5).Sign())
	assert.Equal(t, 0, NewSize(0).Sign())
	assert.True(t, NewSize(0).IsZero())
	assert.True(t, NewSize(1).IsPositive())
	assert.True(t, NewSize(-1).IsNegative())
}

func TestSizeAbsNegCmp(t *testing.T) {
	s := NewSize(-3)
	assert.True(t, s.Abs().Equal(NewSize(3)))
	assert.True(t, s.Neg().Equal(NewSize(3)))
	assert.Equal(t, -1, s.Cmp(NewSize(1)))
	assert.Equal(t, 1, NewSize(5).Cmp(NewSize(4)))
}

func TestSizeTimes(t *testing.T) {
	assert.InDelta(t, 1050.0, NewSize(10).Times(105), 1e-9)
	assert.InDelta(t, -1050.0, NewSize(-10).Times(105), 1e-9)
}

func TestParseSize(t *testing.T) {
	s, err := ParseSize("0.001")
	require.NoError(t, err)
	assert.Equal(t, "0.001", s.String())

	_, err = ParseSize("not-a-number")
	assert.Error(t, err)
}
