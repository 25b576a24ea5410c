package transform

import (
	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/dtype"
	"github.com/jokasimr/scipp/index"
	"github.com/jokasimr/scipp/scipperr"
	"github.com/jokasimr/scipp/units"
	"github.com/jokasimr/scipp/variable"
)

// AddInPlace computes dst += rhs, writing through dst's own view rather
// than allocating a new Variable (spec §4.C's in-place transform form).
// rhs must broadcast into dst's existing shape -- in-place ops never grow
// their target -- and dst is uniquified first, so any other Variable
// sharing its buffer is unaffected.
func AddInPlace(dst *variable.Variable, rhs variable.Variable) error {
	return binaryInPlace(dst, rhs, "add", additive, addUnit, addValue[float64], addValue[float32], addVariance[float64], addVariance[float32])
}

// SubInPlace computes dst -= rhs in place.
func SubInPlace(dst *variable.Variable, rhs variable.Variable) error {
	return binaryInPlace(dst, rhs, "sub", additive, addUnit, subValue[float64], subValue[float32], addVariance[float64], addVariance[float32])
}

// MulInPlace computes dst *= rhs in place. Mixing variances is rejected
// (multiplicative policy, spec §4.C scenario S3: a *= b with only one
// operand carrying variances fails with a VariancesError).
func MulInPlace(dst *variable.Variable, rhs variable.Variable) error {
	return binaryInPlace(dst, rhs, "mul", multiplicative, mulUnit, mulValue[float64], mulValue[float32], mulVariance[float64], mulVariance[float32])
}

// DivInPlace computes dst /= rhs in place. Mixing variances is rejected
// (multiplicative policy).
func DivInPlace(dst *variable.Variable, rhs variable.Variable) error {
	return binaryInPlace(dst, rhs, "div", multiplicative, divUnit, divValue[float64], divValue[float32], divVariance[float64], divVariance[float32])
}

// ScaleInPlace multiplies every element of dst by a dimensionless scalar
// factor in place.
func ScaleInPlace(dst *variable.Variable, factor float64) error {
	switch dst.DType() {
	case dtype.Float64:
		return scaleInPlace(dst, func(v float64) float64 { return v * factor })
	case dtype.Float32:
		f := float32(factor)
		return scaleInPlace(dst, func(v float32) float32 { return v * f })
	default:
		return scipperr.NewTypeError("ScaleInPlace: unsupported dtype %s", dst.DType())
	}
}

func scaleInPlace[T dtype.Number](dst *variable.Variable, scale func(T) T) error {
	dst.Uniquify()
	view, err := dst.View()
	if err != nil {
		return err
	}
	vals := variable.MutableValues[T](dst)
	for vi := index.Begin(view); !vi.Done(); vi.Increment() {
		vals[vi.Get()] = scale(vals[vi.Get()])
	}
	return nil
}

func binaryInPlace(dst *variable.Variable, rhs variable.Variable, op string, policy variancePolicy, unitOp func(a, b units.Unit) (units.Unit, error),
	f64 func(a, b float64) float64, f32 func(a, b float32) float32,
	vf64 func(a, b, va, vb float64) float64, vf32 func(a, b, va, vb float32) float32) error {
	if dst.DType() != rhs.DType() {
		return scipperr.NewTypeError("%s: mismatched dtypes %s and %s", op, dst.DType(), rhs.DType())
	}
	merged, err := dims.Merge(dst.Dims(), rhs.Dims())
	if err != nil {
		return err
	}
	if !merged.Equal(dst.Dims()) {
		return scipperr.NewDimensionError("%s in place: rhs %s would grow destination shape %s", op, rhs.Dims(), dst.Dims())
	}
	outUnit, err := unitOp(dst.Unit(), rhs.Unit())
	if err != nil {
		return err
	}
	if !outUnit.Equal(dst.Unit()) {
		return scipperr.NewUnitError("%s in place: result unit %s would not match destination unit %s", op, outUnit, dst.Unit())
	}
	withVariances, err := resolveVariancePolicy(*dst, rhs, policy)
	if err != nil {
		return err
	}
	if withVariances && !dst.HasVariances() {
		return scipperr.NewVariancesError("%s in place: rhs carries variances but destination does not", op)
	}

	dst.Uniquify()
	dstView, err := dst.View()
	if err != nil {
		return err
	}
	if dims.HasBroadcastAxis(dstView.Strides, dst.Dims()) {
		return scipperr.NewDimensionError("%s in place: destination view is broadcast along a non-unit axis, writing would alias", op)
	}
	rhsView, err := broadcastView(rhs, dst.Dims())
	if err != nil {
		return err
	}

	switch dst.DType() {
	case dtype.Float64:
		return runBinaryInPlace(dst, rhs, dstView, rhsView, withVariances, f64, vf64)
	case dtype.Float32:
		return runBinaryInPlace(dst, rhs, dstView, rhsView, withVariances, f32, vf32)
	default:
		return scipperr.NewTypeError("%s in place: unsupported dtype %s", op, dst.DType())
	}
}

func runBinaryInPlace[T dtype.Number](dst *variable.Variable, rhs variable.Variable, dstView, rhsView index.ElementArrayView, withVariances bool, valueOp func(a, b T) T, varOp func(a, b, va, vb T) T) error {
	dvals := variable.MutableValues[T](dst)
	rvals := variable.Values[T](rhs)
	var dvar, rvar []T
	if withVariances {
		dvar, _ = variancesOf[T](*dst)
		rvar, _ = variancesOf[T](rhs)
	}
	di, ri := index.Begin(dstView), index.Begin(rhsView)
	for !di.Done() {
		d, r := dvals[di.Get()], rvals[ri.Get()]
		dvals[di.Get()] = valueOp(d, r)
		if withVariances {
			var rv T
			if rvar != nil {
				rv = rvar[ri.Get()]
			}
			dvar[di.Get()] = varOp(d, r, dvar[di.Get()], rv)
		}
		di.Increment()
		ri.Increment()
	}
	return nil
}
