package domain

import (
	"math"
	"math/bits"
)

// FixedFromFloat converts a float64 to Fixed, rounding to the nearest unit.
func FixedFromFloat(f float64) (Fixed, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, arithErrf(CodeDomain, "%v has no fixed-point representation", f)
	}
	u := math.Round(f * (1 << FracBits))
	if u > float64(math.MaxInt64) || u < float64(math.MinInt64) {
		return 0, arithErrf(CodeOverflow, "%v exceeds the fixed-point range", f)
	}
	return Fixed(u), nil
}

// AddFixed returns a+b, trapping on overflow.
func AddFixed(a, b Fixed) (Fixed, error) {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		return 0, arithErrf(CodeOverflow, "fixed add %s + %s overflows", a, b)
	}
	return s, nil
}

// SubFixed returns a-b, trapping on overflow.
func SubFixed(a, b Fixed) (Fixed, error) {
	d := a - b
	if (a >= 0 && b < 0 && d < 0) || (a < 0 && b > 0 && d >= 0) {
		return 0, arithErrf(CodeOverflow, "fixed sub %s - %s overflows", a, b)
	}
	return d, nil
}

// NegFixed returns -a, trapping on the one unrepresentable negation.
func NegFixed(a Fixed) (Fixed, error) {
	if a == Fixed(math.MinInt64) {
		return 0, arithErrf(CodeOverflow, "fixed negation overflows")
	}
	return -a, nil
}

// MulFixed returns a*b using a full 128-bit intermediate product, truncated
// toward zero to 32 fraction bits. The result is deterministic, which is all
// increment reversibility requires.
func MulFixed(a, b Fixed) (Fixed, error) {
	neg := (a < 0) != (b < 0)
	ua, ub := absU64(int64(a)), absU64(int64(b))
	hi, lo := bits.Mul64(ua, ub)
	if hi>>FracBits != 0 {
		return 0, arithErrf(CodeOverflow, "fixed mul %s * %s overflows", a, b)
	}
	u := hi<<(64-FracBits) | lo>>FracBits
	return fixedFromMag(u, neg, "fixed mul")
}

// DivFixed returns a/b with 32 fraction bits, truncated toward zero.
func DivFixed(a, b Fixed) (Fixed, error) {
	if b == 0 {
		return 0, arithErrf(CodeDivisionByZero, "fixed division by zero")
	}
	neg := (a < 0) != (b < 0)
	ua, ub := absU64(int64(a)), absU64(int64(b))
	hi := ua >> (64 - FracBits)
	lo := ua << FracBits
	if hi >= ub {
		return 0, arithErrf(CodeOverflow, "fixed div %s / %s overflows", a, b)
	}
	q, _ := bits.Div64(hi, lo, ub)
	return fixedFromMag(q, neg, "fixed div")
}

// SquareFixed returns a*a.
func SquareFixed(a Fixed) (Fixed, error) {
	return MulFixed(a, a)
}

// SqrtFixed returns the exact floor square root in units: the largest y with
// y*y <= a. Deterministic across platforms (float estimate plus integer
// correction against the 128-bit radicand).
func SqrtFixed(a Fixed) (Fixed, error) {
	if a < 0 {
		return 0, arithErrf(CodeDomain, "fixed sqrt of negative value %s", a)
	}
	if a == 0 {
		return 0, nil
	}
	v := uint64(a)
	// radicand = v << 32 as a 128-bit value; result units = floor(sqrt(radicand))
	rhi, rlo := v>>(64-FracBits), v<<FracBits
	r := uint64(math.Sqrt(float64(v)) * float64(uint64(1)<<(FracBits/2)))
	for r > 0 && cmpSquare(r, rhi, rlo) > 0 {
		r--
	}
	for cmpSquare(r+1, rhi, rlo) <= 0 {
		r++
	}
	return fixedFromMag(r, false, "fixed sqrt")
}

// cmpSquare compares r*r against the 128-bit value (hi, lo).
func cmpSquare(r, hi, lo uint64) int {
	shi, slo := bits.Mul64(r, r)
	switch {
	case shi != hi:
		if shi < hi {
			return -1
		}
		return 1
	case slo != lo:
		if slo < lo {
			return -1
		}
		return 1
	}
	return 0
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(-v) // MinInt64 negation is fine in uint64 space
	}
	return uint64(v)
}

func fixedFromMag(u uint64, neg bool, op string) (Fixed, error) {
	if u > math.MaxInt64 {
		return 0, arithErrf(CodeOverflow, "%s overflows", op)
	}
	if neg {
		return Fixed(-int64(u)), nil
	}
	return Fixed(int64(u)), nil
}

// AddInt returns a+b, trapping on overflow.
func AddInt(a, b Int) (Int, error) {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		return 0, arithErrf(CodeOverflow, "int add %d + %d overflows", a, b)
	}
	return s, nil
}

// SubInt returns a-b, trapping on overflow.
func SubInt(a, b Int) (Int, error) {
	d := a - b
	if (a >= 0 && b < 0 && d < 0) || (a < 0 && b > 0 && d >= 0) {
		return 0, arithErrf(CodeOverflow, "int sub %d - %d overflows", a, b)
	}
	return d, nil
}

// NegInt returns -a, trapping on MinInt64.
func NegInt(a Int) (Int, error) {
	if a == Int(math.MinInt64) {
		return 0, arithErrf(CodeOverflow, "int negation overflows")
	}
	return -a, nil
}

// MulInt returns a*b, trapping on overflow. Used only inside increments;
// direct *= is not admissible on the integer domain.
func MulInt(a, b Int) (Int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	// MinInt64 * -1 would trap the p/b probe itself.
	if (a == Int(math.MinInt64) && b == -1) || (b == Int(math.MinInt64) && a == -1) {
		return 0, arithErrf(CodeOverflow, "int mul %d * %d overflows", a, b)
	}
	p := a * b
	if p/b != a {
		return 0, arithErrf(CodeOverflow, "int mul %d * %d overflows", a, b)
	}
	return p, nil
}
