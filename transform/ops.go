package transform

import (
	"math"

	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/dtype"
	"github.com/jokasimr/scipp/index"
	"github.com/jokasimr/scipp/scipperr"
	"github.com/jokasimr/scipp/units"
	"github.com/jokasimr/scipp/variable"
)

// The value ops below are written once, generically over dtype.Number (or
// dtype.Float where a real sqrt/log/exp is needed), and instantiated once
// per concrete Go type in each operator's dtype switch -- the Go
// translation of the C++ core's per-dtype template instantiation (spec
// §4.D).

func addValue[T dtype.Number](a, b T) T { return a + b }
func subValue[T dtype.Number](a, b T) T { return a - b }
func mulValue[T dtype.Number](a, b T) T { return a * b }
func divValue[T dtype.Number](a, b T) T { return a / b }
func negValue[T dtype.Number](a T) T    { return -a }

// addVariance implements Var(a+b) = Var(a) + Var(b) = Var(a-b) (spec §4.D
// variance algebra): the value operator's sign does not matter, only that
// the two sources are added independently (first-order, uncorrelated).
func addVariance[T dtype.Number](_, _, va, vb T) T { return va + vb }

// mulVariance implements Var(a*b) = Var(a)*b^2 + Var(b)*a^2.
func mulVariance[T dtype.Number](a, b, va, vb T) T { return va*b*b + vb*a*a }

// divVariance implements Var(a/b) = Var(a)/b^2 + Var(b)*a^2/b^4.
func divVariance[T dtype.Number](a, b, va, vb T) T { return va/(b*b) + vb*a*a/(b*b*b*b) }

func negVariance[T dtype.Number](_, va T) T { return va }

func addUnit(a, b units.Unit) (units.Unit, error) {
	if !a.Equal(b) {
		return units.Unit{}, scipperr.NewUnitError("cannot add/subtract unit %s and %s", a, b)
	}
	return a, nil
}

func mulUnit(a, b units.Unit) (units.Unit, error) {
	u, err := a.Mul(b)
	if err != nil {
		return units.Unit{}, scipperr.NewUnitError("%v", err)
	}
	return u, nil
}

func divUnit(a, b units.Unit) (units.Unit, error) { return a.Div(b), nil }

// Add computes a+b elementwise, broadcasting and requiring matching units
// (spec §4.D). Mixing a Variable with variances and one without is
// allowed -- the missing channel is treated as zero (additive policy).
func Add(a, b variable.Variable) (variable.Variable, error) {
	return dispatchBinary(a, b, "add", additive, addUnit, addValue[float64], addValue[float32], addValue[int64], addValue[int32], addVariance[float64], addVariance[float32])
}

// Sub computes a-b elementwise.
func Sub(a, b variable.Variable) (variable.Variable, error) {
	return dispatchBinary(a, b, "sub", additive, addUnit, subValue[float64], subValue[float32], subValue[int64], subValue[int32], addVariance[float64], addVariance[float32])
}

// Mul computes a*b elementwise. Mixing variances is rejected
// (multiplicative policy).
func Mul(a, b variable.Variable) (variable.Variable, error) {
	return dispatchBinary(a, b, "mul", multiplicative, mulUnit, mulValue[float64], mulValue[float32], mulValue[int64], mulValue[int32], mulVariance[float64], mulVariance[float32])
}

// Div computes a/b elementwise. Mixing variances is rejected
// (multiplicative policy).
func Div(a, b variable.Variable) (variable.Variable, error) {
	return dispatchBinary(a, b, "div", multiplicative, divUnit, divValue[float64], divValue[float32], divValue[int64], divValue[int32], divVariance[float64], divVariance[float32])
}

// dispatchBinary is the per-dtype-switch half of the multi-type dispatch
// (spec §4.D): it preflights Dims-merge, Unit and variance policy once,
// then picks the applyBinary[T] instantiation matching a's (and b's,
// which must agree) dtype.
func dispatchBinary(a, b variable.Variable, op string, policy variancePolicy, unitOp func(a, b units.Unit) (units.Unit, error),
	f64 func(a, b float64) float64, f32 func(a, b float32) float32, i64 func(a, b int64) int64, i32 func(a, b int32) int32,
	vf64 func(a, b, va, vb float64) float64, vf32 func(a, b, va, vb float32) float32) (variable.Variable, error) {
	if a.DType() != b.DType() {
		return variable.Variable{}, scipperr.NewTypeError("%s: mismatched dtypes %s and %s", op, a.DType(), b.DType())
	}
	outDims, err := dims.Merge(a.Dims(), b.Dims())
	if err != nil {
		return variable.Variable{}, err
	}
	outUnit, err := unitOp(a.Unit(), b.Unit())
	if err != nil {
		return variable.Variable{}, err
	}
	withVariances, err := resolveVariancePolicy(a, b, policy)
	if err != nil {
		return variable.Variable{}, err
	}
	switch a.DType() {
	case dtype.Float64:
		return applyBinary(a, b, outDims, outUnit, withVariances, f64, vf64)
	case dtype.Float32:
		return applyBinary(a, b, outDims, outUnit, withVariances, f32, vf32)
	case dtype.Int64:
		return applyBinary(a, b, outDims, outUnit, withVariances, i64, func(a, b, va, vb int64) int64 { return 0 })
	case dtype.Int32:
		return applyBinary(a, b, outDims, outUnit, withVariances, i32, func(a, b, va, vb int32) int32 { return 0 })
	default:
		return variable.Variable{}, scipperr.NewTypeError("%s: unsupported dtype %s", op, a.DType())
	}
}

// Neg computes -a elementwise, preserving unit and variance.
func Neg(a variable.Variable) (variable.Variable, error) {
	switch a.DType() {
	case dtype.Float64:
		return applyUnary(a, a.Unit(), a.HasVariances(), negValue[float64], negVariance[float64])
	case dtype.Float32:
		return applyUnary(a, a.Unit(), a.HasVariances(), negValue[float32], negVariance[float32])
	case dtype.Int64:
		return applyUnary(a, a.Unit(), false, negValue[int64], nil)
	case dtype.Int32:
		return applyUnary(a, a.Unit(), false, negValue[int32], nil)
	default:
		return variable.Variable{}, scipperr.NewTypeError("neg: unsupported dtype %s", a.DType())
	}
}

// Sqrt computes elementwise sqrt, requiring a's unit be a perfect square
// (spec §4.D) and propagating Var(sqrt(a)) = Var(a)/(4a).
func Sqrt(a variable.Variable) (variable.Variable, error) {
	outUnit, err := a.Unit().Sqrt()
	if err != nil {
		return variable.Variable{}, scipperr.NewUnitError("%v", err)
	}
	switch a.DType() {
	case dtype.Float64:
		return applyUnary(a, outUnit, a.HasVariances(), func(x float64) float64 { return math.Sqrt(x) },
			func(x, vx float64) float64 { return vx / (4 * x) })
	case dtype.Float32:
		return applyUnary(a, outUnit, a.HasVariances(), func(x float32) float32 { return float32(math.Sqrt(float64(x))) },
			func(x, vx float32) float32 { return vx / (4 * x) })
	default:
		return variable.Variable{}, scipperr.NewTypeError("sqrt: unsupported dtype %s", a.DType())
	}
}

// Reciprocal computes 1/a elementwise, propagating Var(1/a) = Var(a)/a^4.
func Reciprocal(a variable.Variable) (variable.Variable, error) {
	outUnit := units.Dimensionless.Div(a.Unit())
	switch a.DType() {
	case dtype.Float64:
		return applyUnary(a, outUnit, a.HasVariances(), func(x float64) float64 { return 1 / x },
			func(x, vx float64) float64 { return vx / (x * x * x * x) })
	case dtype.Float32:
		return applyUnary(a, outUnit, a.HasVariances(), func(x float32) float32 { return 1 / x },
			func(x, vx float32) float32 { return vx / (x * x * x * x) })
	default:
		return variable.Variable{}, scipperr.NewTypeError("reciprocal: unsupported dtype %s", a.DType())
	}
}

// requireDimensionless returns a's unit error if a is not dimensionless,
// the precondition Exp and Log share (spec §4.D: "transcendentals require
// dimensionless").
func requireDimensionless(a variable.Variable) error {
	if !a.Unit().IsDimensionless() {
		return scipperr.NewUnitError("%s requires a dimensionless operand, got %s", "transcendental", a.Unit())
	}
	return nil
}

// Exp computes elementwise exp, propagating Var(exp(a)) = Var(a)*exp(a)^2.
func Exp(a variable.Variable) (variable.Variable, error) {
	if err := requireDimensionless(a); err != nil {
		return variable.Variable{}, err
	}
	switch a.DType() {
	case dtype.Float64:
		return applyUnary(a, units.Dimensionless, a.HasVariances(), func(x float64) float64 { return math.Exp(x) },
			func(x, vx float64) float64 { e := math.Exp(x); return vx * e * e })
	case dtype.Float32:
		return applyUnary(a, units.Dimensionless, a.HasVariances(), func(x float32) float32 { return float32(math.Exp(float64(x))) },
			func(x, vx float32) float32 { e := float32(math.Exp(float64(x))); return vx * e * e })
	default:
		return variable.Variable{}, scipperr.NewTypeError("exp: unsupported dtype %s", a.DType())
	}
}

// Log computes elementwise natural log, propagating Var(log(a)) =
// Var(a)/a^2.
func Log(a variable.Variable) (variable.Variable, error) {
	if err := requireDimensionless(a); err != nil {
		return variable.Variable{}, err
	}
	switch a.DType() {
	case dtype.Float64:
		return applyUnary(a, units.Dimensionless, a.HasVariances(), func(x float64) float64 { return math.Log(x) },
			func(x, vx float64) float64 { return vx / (x * x) })
	case dtype.Float32:
		return applyUnary(a, units.Dimensionless, a.HasVariances(), func(x float32) float32 { return float32(math.Log(float64(x))) },
			func(x, vx float32) float32 { return vx / (x * x) })
	default:
		return variable.Variable{}, scipperr.NewTypeError("log: unsupported dtype %s", a.DType())
	}
}

// Sum reduces v along dim by addition (spec §4.E, built on Accumulate).
func Sum(v variable.Variable, dim dims.Dim) (variable.Variable, error) {
	switch v.DType() {
	case dtype.Float64:
		return Accumulate(v, dim, float64(0), addValue[float64], addValue[float64])
	case dtype.Float32:
		return Accumulate(v, dim, float32(0), addValue[float32], addValue[float32])
	case dtype.Int64:
		return Accumulate(v, dim, int64(0), addValue[int64], addValue[int64])
	case dtype.Int32:
		return Accumulate(v, dim, int32(0), addValue[int32], addValue[int32])
	default:
		return variable.Variable{}, scipperr.NewTypeError("sum: unsupported dtype %s", v.DType())
	}
}

// Mean reduces v along dim by averaging (spec §4.E supplement, via Sum
// followed by a scalar Div). Restricted to floats: an integer mean would
// silently truncate, which this port declines to do implicitly.
func Mean(v variable.Variable, dim dims.Dim) (variable.Variable, error) {
	n, err := v.Dims().SizeOf(dim)
	if err != nil {
		return variable.Variable{}, err
	}
	sum, err := Sum(v, dim)
	if err != nil {
		return variable.Variable{}, err
	}
	switch v.DType() {
	case dtype.Float64:
		count := variable.Must(dims.Dimensions{}, units.Dimensionless, []float64{float64(n)}, nil)
		return Div(sum, count)
	case dtype.Float32:
		count := variable.Must(dims.Dimensions{}, units.Dimensionless, []float32{float32(n)}, nil)
		return Div(sum, count)
	default:
		return variable.Variable{}, scipperr.NewTypeError("mean: unsupported dtype %s", v.DType())
	}
}

// Equal reports elementwise a == b as a Bool Variable (spec §4.D
// supplement: "minimal Equal/NotEqual comparisons"). Units must match; no
// variance propagates through a comparison.
func Equal(a, b variable.Variable) (variable.Variable, error) {
	return compare(a, b, "equal", func(x, y float64) bool { return x == y })
}

// NotEqual reports elementwise a != b as a Bool Variable.
func NotEqual(a, b variable.Variable) (variable.Variable, error) {
	return compare(a, b, "not_equal", func(x, y float64) bool { return x != y })
}

func compare(a, b variable.Variable, op string, pred func(x, y float64) bool) (variable.Variable, error) {
	if a.DType() != b.DType() {
		return variable.Variable{}, scipperr.NewTypeError("%s: mismatched dtypes %s and %s", op, a.DType(), b.DType())
	}
	if !a.Unit().Equal(b.Unit()) {
		return variable.Variable{}, scipperr.NewUnitError("%s: mismatched units %s and %s", op, a.Unit(), b.Unit())
	}
	outDims, err := dims.Merge(a.Dims(), b.Dims())
	if err != nil {
		return variable.Variable{}, err
	}
	switch a.DType() {
	case dtype.Float64, dtype.Float32, dtype.Int64, dtype.Int32:
	default:
		return variable.Variable{}, scipperr.NewTypeError("%s: unsupported dtype %s", op, a.DType())
	}
	out, err := variable.Zeros(outDims, dtype.Bool, units.Dimensionless, false)
	if err != nil {
		return variable.Variable{}, err
	}
	aView, err := broadcastView(a, outDims)
	if err != nil {
		return variable.Variable{}, err
	}
	bView, err := broadcastView(b, outDims)
	if err != nil {
		return variable.Variable{}, err
	}
	outView, _ := out.View()
	ovals := variable.MutableValues[bool](&out)

	compareNumeric(a, b, aView, bView, outView, ovals, pred)
	return out, nil
}

// compareNumeric walks aView/bView/outView in lockstep, converting each
// pair to float64 before applying pred. The conversion is exact for
// float32, float64 and int32; int64 values beyond 2^53 in magnitude are
// rounded, so distinct large int64 values can compare equal.
func compareNumeric(a, b variable.Variable, aView, bView, outView index.ElementArrayView, ovals []bool, pred func(x, y float64) bool) {
	read := func(v variable.Variable) func(i int64) float64 {
		switch v.DType() {
		case dtype.Float64:
			vals := variable.Values[float64](v)
			return func(i int64) float64 { return vals[i] }
		case dtype.Float32:
			vals := variable.Values[float32](v)
			return func(i int64) float64 { return float64(vals[i]) }
		case dtype.Int64:
			vals := variable.Values[int64](v)
			return func(i int64) float64 { return float64(vals[i]) }
		default:
			vals := variable.Values[int32](v)
			return func(i int64) float64 { return float64(vals[i]) }
		}
	}
	ra, rb := read(a), read(b)
	ai, bi, oi := index.Begin(aView), index.Begin(bView), index.Begin(outView)
	for !oi.Done() {
		ovals[oi.Get()] = pred(ra(ai.Get()), rb(bi.Get()))
		ai.Increment()
		bi.Increment()
		oi.Increment()
	}
}
