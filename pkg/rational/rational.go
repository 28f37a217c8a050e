// Package rational implements exact fractions used for musical durations and
// timestamps.
//
// A Rational is an immutable value. Every constructor and arithmetic result is
// reduced and keeps a positive denominator. The zero value is 0. Results that
// do not fit in int64 become NaN rather than wrapping.
package rational

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"strconv"
	"strings"
)

// ErrDivisionByZero is returned by operations with a zero divisor.
var ErrDivisionByZero = errors.New("rational: division by zero")

// ErrSyntax is returned by Parse for text that is not a number.
var ErrSyntax = errors.New("rational: invalid syntax")

// Rational is a reduced fraction. A zero den field stands for 1 so that the
// zero value is usable.
type Rational struct {
	num int64
	den int64
	nan bool
}

// Common values.
var (
	Zero = Rational{}
	One  = Rational{num: 1, den: 1}
	NaN  = Rational{nan: true}
)

// FromInt returns n/1.
func FromInt(n int64) Rational {
	if n == 0 {
		return Zero
	}
	return Rational{num: n, den: 1}
}

// New returns num/den reduced.
func New(num, den int64) (Rational, error) {
	if den == 0 {
		return NaN, ErrDivisionByZero
	}
	return reduce(num, den), nil
}

// MustNew is New for constant arguments; it panics on a zero denominator.
func MustNew(num, den int64) Rational {
	r, err := New(num, den)
	if err != nil {
		panic(err)
	}
	return r
}

// Parse reads "n", "n/d", a decimal such as "0.75", or a mixed fraction
// "a+b/c" as printed by MixedFraction.
func Parse(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NaN, fmt.Errorf("%w: empty string", ErrSyntax)
	}
	if s == "NaN" {
		return NaN, nil
	}
	if i := strings.IndexAny(s[1:], "+-"); i >= 0 && strings.Contains(s[i+2:], "/") {
		whole, err := Parse(s[:i+1])
		if err != nil {
			return NaN, err
		}
		frac, err := Parse(s[i+2:])
		if err != nil {
			return NaN, err
		}
		if whole.IsNegative() {
			return whole.Sub(frac), nil
		}
		return whole.Add(frac), nil
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return NaN, fmt.Errorf("%w: %q", ErrSyntax, s)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil {
			return NaN, fmt.Errorf("%w: %q", ErrSyntax, s)
		}
		return New(n, d)
	}
	br, ok := new(big.Rat).SetString(s)
	if !ok {
		return NaN, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	if !br.Num().IsInt64() || !br.Denom().IsInt64() {
		return NaN, fmt.Errorf("%w: %q out of range", ErrSyntax, s)
	}
	return reduce(br.Num().Int64(), br.Denom().Int64()), nil
}

func reduce(num, den int64) Rational {
	if num == math.MinInt64 || den == math.MinInt64 {
		return fromBig(new(big.Rat).SetFrac(big.NewInt(num), big.NewInt(den)))
	}
	if den < 0 {
		num, den = -num, -den
	}
	if num == 0 {
		return Zero
	}
	g := gcd(abs64(num), den)
	return Rational{num: num / g, den: den / g}
}

// fromBig converts an exact result back to int64 parts, or NaN when either
// part is out of range. math.MinInt64 is rejected so that Neg cannot overflow.
func fromBig(b *big.Rat) Rational {
	if !b.Num().IsInt64() || !b.Denom().IsInt64() {
		return NaN
	}
	num := b.Num().Int64()
	if num == math.MinInt64 {
		return NaN
	}
	if num == 0 {
		return Zero
	}
	return Rational{num: num, den: b.Denom().Int64()}
}

func (r Rational) big() *big.Rat {
	return new(big.Rat).SetFrac(big.NewInt(r.num), big.NewInt(r.d()))
}

// mul64 returns a*b and whether it fit in int64.
func mul64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	neg := (a < 0) != (b < 0)
	hi, lo := bits.Mul64(uabs(a), uabs(b))
	if hi != 0 {
		return 0, false
	}
	if neg {
		if lo > 1<<63 {
			return 0, false
		}
		return -int64(lo), true
	}
	if lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// add64 returns a+b and whether it fit in int64.
func add64(a, b int64) (int64, bool) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, false
	}
	return c, true
}

func uabs(n int64) uint64 {
	if n < 0 {
		return uint64(-(n + 1)) + 1
	}
	return uint64(n)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// Num returns the numerator.
func (r Rational) Num() int64 { return r.num }

// Den returns the denominator; it is 0 only for NaN.
func (r Rational) Den() int64 {
	if r.nan {
		return 0
	}
	return r.d()
}

func (r Rational) d() int64 {
	if r.den == 0 {
		return 1
	}
	return r.den
}

// IsNaN reports whether r is the not-a-number sentinel.
func (r Rational) IsNaN() bool { return r.nan }

func (r Rational) IsZero() bool     { return !r.nan && r.num == 0 }
func (r Rational) IsPositive() bool { return !r.nan && r.num > 0 }
func (r Rational) IsNegative() bool { return !r.nan && r.num < 0 }

// IsInteger reports whether r has a denominator of 1.
func (r Rational) IsInteger() bool { return !r.nan && r.d() == 1 }

// IsPowerOfTwo reports whether |r| is 2^k for some integer k (k may be
// negative, so 1/8 qualifies).
func (r Rational) IsPowerOfTwo() bool {
	if r.nan || r.num == 0 {
		return false
	}
	n, d := abs64(r.num), r.d()
	if n == 1 {
		return d&(d-1) == 0
	}
	return d == 1 && n&(n-1) == 0
}

// Float64 returns a lossy floating-point value for display.
func (r Rational) Float64() float64 {
	if r.nan {
		return 0
	}
	return float64(r.num) / float64(r.d())
}

func (r Rational) Add(o Rational) Rational {
	if r.IsNaN() || o.IsNaN() {
		return NaN
	}
	g := gcd(r.d(), o.d())
	rf, of := o.d()/g, r.d()/g
	a, ok1 := mul64(r.num, rf)
	b, ok2 := mul64(o.num, of)
	num, ok3 := add64(a, b)
	den, ok4 := mul64(r.d(), rf)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return fromBig(new(big.Rat).Add(r.big(), o.big()))
	}
	return reduce(num, den)
}

func (r Rational) Sub(o Rational) Rational {
	return r.Add(o.Neg())
}

func (r Rational) Mul(o Rational) Rational {
	if r.IsNaN() || o.IsNaN() {
		return NaN
	}
	g1, g2 := gcd(abs64(r.num), o.d()), gcd(abs64(o.num), r.d())
	num, ok1 := mul64(r.num/g1, o.num/g2)
	den, ok2 := mul64(r.d()/g2, o.d()/g1)
	if !ok1 || !ok2 {
		return fromBig(new(big.Rat).Mul(r.big(), o.big()))
	}
	return reduce(num, den)
}

// Div returns r/o, failing with ErrDivisionByZero when o is zero.
func (r Rational) Div(o Rational) (Rational, error) {
	if r.IsNaN() || o.IsNaN() {
		return NaN, nil
	}
	if o.num == 0 {
		return NaN, ErrDivisionByZero
	}
	return r.Mul(reduce(o.d(), o.num)), nil
}

// Quo returns r/o, or NaN when o is zero. Duration code uses it so that
// degenerate windows can be filtered instead of failing.
func (r Rational) Quo(o Rational) Rational {
	q, err := r.Div(o)
	if err != nil {
		return NaN
	}
	return q
}

func (r Rational) Neg() Rational {
	if r.IsNaN() {
		return NaN
	}
	return Rational{num: -r.num, den: r.den}
}

func (r Rational) Abs() Rational {
	if r.num < 0 {
		return r.Neg()
	}
	return r
}

// Inv returns 1/r, or NaN for zero.
func (r Rational) Inv() Rational {
	return One.Quo(r)
}

// Cmp returns -1, 0 or +1. NaN compares equal only to NaN and below
// every number.
func (r Rational) Cmp(o Rational) int {
	switch {
	case r.IsNaN() && o.IsNaN():
		return 0
	case r.IsNaN():
		return -1
	case o.IsNaN():
		return 1
	}
	a, ok1 := mul64(r.num, o.d())
	b, ok2 := mul64(o.num, r.d())
	if !ok1 || !ok2 {
		return r.big().Cmp(o.big())
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (r Rational) Equal(o Rational) bool { return r.Cmp(o) == 0 }
func (r Rational) Less(o Rational) bool  { return r.Cmp(o) < 0 }

// Min returns the smaller of r and o.
func Min(r, o Rational) Rational {
	if o.Less(r) {
		return o
	}
	return r
}

// Max returns the larger of r and o.
func Max(r, o Rational) Rational {
	if r.Less(o) {
		return o
	}
	return r
}

// String renders "n/d", or "n" for integers.
func (r Rational) String() string {
	switch {
	case r.IsNaN():
		return "NaN"
	case r.d() == 1:
		return strconv.FormatInt(r.num, 10)
	}
	return strconv.FormatInt(r.num, 10) + "/" + strconv.FormatInt(r.den, 10)
}

// MixedFraction renders r as "a+b/c" ("-a-b/c" when negative); proper
// fractions and integers print as String does.
func (r Rational) MixedFraction() string {
	if r.IsNaN() || r.d() == 1 || abs64(r.num) < r.den {
		return r.String()
	}
	whole := r.num / r.den
	rem := abs64(r.num % r.den)
	sep := "+"
	if r.num < 0 {
		sep = "-"
	}
	return fmt.Sprintf("%d%s%d/%d", whole, sep, rem, r.den)
}

// MarshalText implements encoding.TextMarshaler.
func (r Rational) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rational) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
