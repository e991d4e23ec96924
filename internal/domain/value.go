package domain

import (
	"fmt"
	"strconv"
)

// Kind identifies a numeric domain.
type Kind string

const (
	// KindInt is the 64-bit integer domain.
	KindInt Kind = "int"

	// KindFixed is the Q31.32 fixed-point domain.
	KindFixed Kind = "fixed"

	// KindLog is the unsigned-logarithmic domain.
	KindLog Kind = "log"
)

// ValidKinds defines the allowed kind strings (used by the compiler when
// decoding program parameters).
var ValidKinds = map[Kind]bool{
	KindInt:   true,
	KindFixed: true,
	KindLog:   true,
}

// Value is a sealed interface over the three domain value types.
// Only Int, Fixed, and ULog implement it.
type Value interface {
	value() // sealed

	// Kind reports the value's domain.
	Kind() Kind

	// IsZero reports whether the value is the domain's zero. Deallocation
	// and escape-stack contracts are defined in terms of this check.
	IsZero() bool

	// Equal reports bit-exact equality with another value of the same kind.
	// Values of different kinds are never equal.
	Equal(Value) bool

	// Float returns the closest float64. Used only for adjoint propagation
	// and display, never for reversible state.
	Float() float64

	// String renders the value for diagnostics and journal records.
	String() string
}

// Int is a 64-bit integer value.
type Int int64

func (Int) value() {}

// Kind returns KindInt.
func (Int) Kind() Kind { return KindInt }

// IsZero reports whether the integer is 0.
func (v Int) IsZero() bool { return v == 0 }

// Equal reports bit-exact equality.
func (v Int) Equal(o Value) bool {
	w, ok := o.(Int)
	return ok && v == w
}

// Float returns the integer as a float64.
func (v Int) Float() float64 { return float64(v) }

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Fixed is a signed fixed-point value with 32 fraction bits (Q31.32).
// The stored int64 counts units of 2^-32.
type Fixed int64

// FracBits is the number of fraction bits in a Fixed.
const FracBits = 32

// One is the Fixed representation of 1.
const One Fixed = 1 << FracBits

func (Fixed) value() {}

// Kind returns KindFixed.
func (Fixed) Kind() Kind { return KindFixed }

// IsZero reports whether the value is exactly 0.
func (v Fixed) IsZero() bool { return v == 0 }

// Equal reports bit-exact equality.
func (v Fixed) Equal(o Value) bool {
	w, ok := o.(Fixed)
	return ok && v == w
}

// Float returns the closest float64. Exact for magnitudes below 2^20 or so;
// display-only beyond that.
func (v Fixed) Float() float64 { return float64(v) / (1 << FracBits) }

func (v Fixed) String() string { return strconv.FormatFloat(v.Float(), 'g', -1, 64) }

// ULog is a logarithmic-number value: Log holds log2|x| as a Fixed, Neg the
// sign, and Zero marks the one value the logarithm cannot represent.
// Multiplication and division are exact inverses in this domain because they
// reduce to addition and subtraction of Log.
type ULog struct {
	Log  Fixed
	Neg  bool
	Zero bool
}

func (ULog) value() {}

// Kind returns KindLog.
func (ULog) Kind() Kind { return KindLog }

// IsZero reports whether the value is the logarithmic zero.
func (v ULog) IsZero() bool { return v.Zero }

// Equal reports bit-exact equality. Two zeros are equal regardless of the
// Log and Neg fields they carry.
func (v ULog) Equal(o Value) bool {
	w, ok := o.(ULog)
	if !ok {
		return false
	}
	if v.Zero || w.Zero {
		return v.Zero == w.Zero
	}
	return v.Log == w.Log && v.Neg == w.Neg
}

// Float returns the closest float64 of the represented value (not of the
// stored logarithm).
func (v ULog) Float() float64 {
	if v.Zero {
		return 0
	}
	f := exp2Float(v.Log)
	if v.Neg {
		return -f
	}
	return f
}

func (v ULog) String() string {
	if v.Zero {
		return "log(0)"
	}
	sign := ""
	if v.Neg {
		sign = "-"
	}
	return fmt.Sprintf("%slog2=%s", sign, v.Log.String())
}

// ZeroOf returns the zero value of the given kind.
func ZeroOf(k Kind) Value {
	switch k {
	case KindInt:
		return Int(0)
	case KindFixed:
		return Fixed(0)
	case KindLog:
		return ULog{Zero: true}
	}
	panic(fmt.Sprintf("domain: unknown kind %q", k))
}

// FromFloat converts a float64 into the given kind. For KindFixed the result
// is rounded to the nearest unit; for KindInt the float must be integral.
// For KindLog the float is encoded via the binary logarithm (Epsilon
// accuracy applies).
func FromFloat(k Kind, f float64) (Value, error) {
	switch k {
	case KindInt:
		n := int64(f)
		if float64(n) != f {
			return nil, fmt.Errorf("domain: %v is not an integer", f)
		}
		return Int(n), nil
	case KindFixed:
		return FixedFromFloat(f)
	case KindLog:
		fx, err := FixedFromFloat(f)
		if err != nil {
			return nil, err
		}
		return Encode(fx)
	}
	return nil, fmt.Errorf("domain: unknown kind %q", k)
}

// ParseValue parses a decimal literal into the given kind.
func ParseValue(k Kind, s string) (Value, error) {
	switch k {
	case KindInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("domain: parsing %q as int: %w", s, err)
		}
		return Int(n), nil
	case KindFixed, KindLog:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("domain: parsing %q as %s: %w", s, k, err)
		}
		return FromFloat(k, f)
	}
	return nil, fmt.Errorf("domain: unknown kind %q", k)
}
