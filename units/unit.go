// Package units implements the opaque physical-unit value type that
// scipp's core treats as an external collaborator (see spec §4.D, §6).
//
// A Unit is a scale factor over a fixed basis of seven SI base dimensions
// plus one synthetic "counts" dimension, used by the transform engine to
// decide whether `counts * counts` (histogram data times histogram data)
// is meaningful. Units are small, comparable, trivially-copyable values:
// there is no allocation and no shared ownership, matching the "opaque
// value-type" contract the core assumes of its unit collaborator.
package units

import (
	"fmt"
	"math"
	"strings"
)

// basis order for the exponents array.
const (
	length = iota
	mass
	time
	current
	temperature
	amount
	luminous
	counts
	numBase
)

var symbols = [numBase]string{"m", "kg", "s", "A", "K", "mol", "cd", "counts"}

// Unit is a value type: a scale factor together with integer exponents
// over the basis above. Two Units compare equal with ==.
type Unit struct {
	scale     float64
	exponents [numBase]int8
}

// Dimensionless is the multiplicative identity: scale 1, no dimensions.
var Dimensionless = Unit{scale: 1}

// base constructs a unit with exponent 1 on a single basis dimension.
func base(dim int, scale float64) Unit {
	u := Unit{scale: scale}
	u.exponents[dim] = 1
	return u
}

var (
	Meter       = base(length, 1)
	Kilogram    = base(mass, 1)
	Second      = base(time, 1)
	Ampere      = base(current, 1)
	Kelvin      = base(temperature, 1)
	Mole        = base(amount, 1)
	Candela     = base(luminous, 1)
	Counts      = base(counts, 1)
	Millisecond = scaled(Second, 1e-3)
	Microsecond = scaled(Second, 1e-6)
	Nanosecond  = scaled(Second, 1e-9)
)

func scaled(u Unit, factor float64) Unit {
	u.scale *= factor
	return u
}

// IsDimensionless reports whether u has no dimensions left (scale may
// still differ from 1, e.g. a percentage).
func (u Unit) IsDimensionless() bool {
	return u.exponents == [numBase]int8{}
}

// IsCounts reports whether u is exactly the "counts" unit (used by the
// histogram-weight policy: weights must be counts or dimensionless).
func (u Unit) IsCounts() bool {
	want := [numBase]int8{}
	want[counts] = 1
	return u.exponents == want && u.scale == 1
}

// countsExponent returns the exponent of the synthetic "counts" dimension,
// used to reject counts*counts (see Mul).
func (u Unit) countsExponent() int8 {
	return u.exponents[counts]
}

// Mul returns u*v, combining scale and exponents.
//
// counts*counts (e.g. "histogram data times histogram data") is rejected:
// the caller is expected to surface this as a scipperr.UnitError. A
// counts*dimensionless product ("histogram times scale factor") is fine.
func (u Unit) Mul(v Unit) (Unit, error) {
	if u.countsExponent() > 0 && v.countsExponent() > 0 {
		return Unit{}, fmt.Errorf("cannot multiply %s by %s: counts times counts is not a meaningful unit", u, v)
	}
	r := Unit{scale: u.scale * v.scale}
	for i := range r.exponents {
		r.exponents[i] = u.exponents[i] + v.exponents[i]
	}
	return r, nil
}

// Div returns u/v.
func (u Unit) Div(v Unit) Unit {
	r := Unit{scale: u.scale / v.scale}
	for i := range r.exponents {
		r.exponents[i] = u.exponents[i] - v.exponents[i]
	}
	return r
}

// Pow returns u raised to the given integer power.
func (u Unit) Pow(n int) Unit {
	r := Unit{scale: math.Pow(u.scale, float64(n))}
	for i := range r.exponents {
		r.exponents[i] = u.exponents[i] * int8(n)
	}
	return r
}

// Sqrt returns the unit whose square is u. It returns an error (the
// caller surfaces scipperr.UnitError) if u is not a perfect square, i.e.
// some exponent is odd or the scale is negative.
func (u Unit) Sqrt() (Unit, error) {
	if u.scale < 0 {
		return Unit{}, fmt.Errorf("cannot take sqrt of unit %s: negative scale", u)
	}
	r := Unit{scale: math.Sqrt(u.scale)}
	for i, e := range u.exponents {
		if e%2 != 0 {
			return Unit{}, fmt.Errorf("cannot take sqrt of unit %s: exponent of %s is odd", u, symbols[i])
		}
		r.exponents[i] = e / 2
	}
	return r, nil
}

// Equal reports whether u and v are the same unit. Scale is compared with
// a small relative tolerance to absorb floating point noise from Pow/Sqrt.
func (u Unit) Equal(v Unit) bool {
	if u.exponents != v.exponents {
		return false
	}
	if u.scale == v.scale {
		return true
	}
	const eps = 1e-12
	return math.Abs(u.scale-v.scale) <= eps*math.Max(math.Abs(u.scale), math.Abs(v.scale))
}

// String prints the unit symbolically, e.g. "m^2/s", "counts", "1/m".
func (u Unit) String() string {
	if u.IsDimensionless() {
		if u.scale == 1 {
			return "dimensionless"
		}
		return fmt.Sprintf("%g", u.scale)
	}
	var num, den []string
	for i, e := range u.exponents {
		switch {
		case e == 0:
			continue
		case e == 1:
			num = append(num, symbols[i])
		case e > 0:
			num = append(num, fmt.Sprintf("%s^%d", symbols[i], e))
		case e == -1:
			den = append(den, symbols[i])
		default:
			den = append(den, fmt.Sprintf("%s^%d", symbols[i], -e))
		}
	}
	prefix := ""
	if u.scale != 1 {
		prefix = fmt.Sprintf("%g*", u.scale)
	}
	if len(num) == 0 {
		num = []string{"1"}
	}
	out := prefix + strings.Join(num, "*")
	if len(den) > 0 {
		out += "/" + strings.Join(den, "/")
	}
	return out
}
