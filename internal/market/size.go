package market

import (
	"github.com/shopspring/decimal"
)

// Size is an exact signed trade quantity. It wraps a decimal so repeated
// adds and merges never drift the way float64 accumulation does.
type Size struct {
	d decimal.Decimal
}

func NewSize(v float64) Size {
	return Size{d: decimal.NewFromFloat(v)}
}

func SizeFromInt(v int64) Size {
	return Size{d: decimal.NewFromInt(v)}
}

// ParseSize parses a decimal string like "0.001" or "-12.5".
func ParseSize(s string) (Size, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Size{}, err
	}
	return Size{d: d}, nil
}

func (s Size) Add(o Size) Size { return Size{d: s.d.Add(o.d)} }
func (s Size) Sub(o Size) Size { return Size{d: s.d.Sub(o.d)} }
func (s Size) Neg() Size       { return Size{d: s.d.Neg()} }
func (s Size) Abs() Size       { return Size{d: s.d.Abs()} }

// Sign returns -1, 0 or 1.
func (s Size) Sign() int { return s.d.Sign() }

func (s Size) IsZero() bool     { return s.d.IsZero() }
func (s Size) IsPositive() bool { return s.d.Sign() > 0 }
func (s Size) IsNegative() bool { return s.d.Sign() < 0 }

// Cmp compares s and o: -1 if s < o, 0 if equal, 1 if s > o.
func (s Size) Cmp(o Size) int { return s.d.Cmp(o.d) }

func (s Size) Equal(o Size) bool { return s.d.Equal(o.d) }

// Times returns s scaled by price, as a float (cash and PNL stay float64,
// only the quantity itself is exact).
func (s Size) Times(price float64) float64 {
	f, _ := s.d.Mul(decimal.NewFromFloat(price)).Float64()
	return f
}

func (s Size) Float64() float64 {
	f, _ := s.d.Float64()
	return f
}

func (s Size) Decimal() decimal.Decimal { return s.d }

func (s Size) String() string { return s.d.String() }
