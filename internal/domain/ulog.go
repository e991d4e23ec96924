package domain

import (
	"math"
	"math/bits"
)

// Epsilon is the documented accuracy of the Fixed <-> ULog conversions,
// expressed in the represented value's relative terms. Callers needing exact
// round-trips must not rely on conversion precision beyond it; the
// compute/uncompute pairing of conversion statements is exact regardless,
// because uncompute re-runs the identical deterministic encoding.
const Epsilon = 1.0 / (1 << 30)

// MulLog returns a*b in the logarithmic domain: log add, sign xor.
// Exactly invertible by DivLog.
func MulLog(a, b ULog) (ULog, error) {
	if a.Zero || b.Zero {
		return ULog{Zero: true}, nil
	}
	l, err := AddFixed(a.Log, b.Log)
	if err != nil {
		return ULog{}, err
	}
	return ULog{Log: l, Neg: a.Neg != b.Neg}, nil
}

// DivLog returns a/b in the logarithmic domain: log sub, sign xor.
// Exactly invertible by MulLog.
func DivLog(a, b ULog) (ULog, error) {
	if b.Zero {
		return ULog{}, arithErrf(CodeDivisionByZero, "logarithmic division by zero")
	}
	if a.Zero {
		return ULog{Zero: true}, nil
	}
	l, err := SubFixed(a.Log, b.Log)
	if err != nil {
		return ULog{}, err
	}
	return ULog{Log: l, Neg: a.Neg != b.Neg}, nil
}

// NegLog flips the sign tag. Self-inverse.
func NegLog(a ULog) ULog {
	if a.Zero {
		return a
	}
	a.Neg = !a.Neg
	return a
}

// Encode converts a Fixed to its logarithmic representation using the
// shift-and-square binary logarithm. Accurate to Epsilon; deterministic.
func Encode(v Fixed) (ULog, error) {
	if v == 0 {
		return ULog{Zero: true}, nil
	}
	neg := v < 0
	mag := v
	if neg {
		m, err := NegFixed(v)
		if err != nil {
			return ULog{}, err
		}
		mag = m
	}
	return ULog{Log: log2Fixed(uint64(mag)), Neg: neg}, nil
}

// Decode converts a logarithmic value back to Fixed. Accurate to Epsilon;
// deterministic. Traps when the magnitude exceeds the fixed-point range.
func Decode(v ULog) (Fixed, error) {
	if v.Zero {
		return 0, nil
	}
	mag, err := exp2Fixed(v.Log)
	if err != nil {
		return 0, err
	}
	if v.Neg {
		return NegFixed(mag)
	}
	return mag, nil
}

// log2Fixed computes log2 of a positive Fixed magnitude (given in units) as
// a Fixed, using the classic binary-logarithm algorithm: normalize the
// mantissa to [1, 2), then square it once per fraction bit, emitting a 1 and
// halving whenever the square reaches 2. Pure integer, no float involved.
func log2Fixed(u uint64) Fixed {
	msb := bits.Len64(u) - 1
	e := int64(msb) - FracBits

	// m represents a mantissa in [1, 2) scaled by 2^63.
	m := u << (63 - uint(msb))

	var frac uint64
	for i := 0; i < FracBits; i++ {
		hi, _ := bits.Mul64(m, m) // square: hi carries the mantissa at scale 2^62
		frac <<= 1
		if hi >= 1<<63 {
			frac |= 1
			m = hi // >= 2: halve by keeping scale 2^62 as the new 2^63
		} else {
			m = hi << 1
		}
	}
	return Fixed(e<<FracBits + int64(frac))
}

// exp2Fixed computes 2^l for a Fixed l, returning the magnitude as a Fixed.
// The fractional power uses IEEE Exp2 (correct to well below Epsilon and
// deterministic across platforms); the integral power is an exact shift.
func exp2Fixed(l Fixed) (Fixed, error) {
	e := int64(l) >> FracBits // floor
	frac := uint64(int64(l) - e<<FracBits)
	mant := math.Exp2(float64(frac) / (1 << FracBits)) // in [1, 2)

	shift := int(e) + FracBits
	if shift < 0 {
		return 0, nil // underflows below one unit
	}
	if shift > 62 {
		return 0, arithErrf(CodeOverflow, "2^%s exceeds the fixed-point range", l)
	}
	units := math.Round(math.Ldexp(mant, shift))
	if units > float64(math.MaxInt64) {
		return 0, arithErrf(CodeOverflow, "2^%s exceeds the fixed-point range", l)
	}
	return Fixed(units), nil
}

// exp2Float is the display-path companion of exp2Fixed.
func exp2Float(l Fixed) float64 {
	return math.Exp2(float64(l) / (1 << FracBits))
}
