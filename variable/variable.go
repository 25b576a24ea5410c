// Package variable implements Variable, the labeled, unit-carrying,
// optionally-uncertain N-D array at the center of the core (spec §3,
// §4.C), together with its DType factory (spec §4.G). A Variable is
// value-shaped: copying one copies the Dimensions/Unit/strides wrapper
// cheaply and shares the underlying buffer until a write forces it to be
// uniquified (copy-on-write), the same contract local.go documents for
// gomlx's Tensor with its flat any-typed backing slice.
package variable

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"

	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/dtype"
	"github.com/jokasimr/scipp/index"
	"github.com/jokasimr/scipp/scipperr"
	"github.com/jokasimr/scipp/units"
)

// Variable is either dense or binned (spec §3): exactly one of the two
// internal pointers is non-nil. The zero value is the invalid Variable,
// Ok() == false.
type Variable struct {
	dense  *denseState
	binned *binnedState
}

// denseState is the dense representation: a view (Dims, Strides, offset)
// into a shared buffer, plus the physical Unit that view's numbers carry.
type denseState struct {
	d       dims.Dimensions
	u       units.Unit
	strides dims.Strides
	offset  int64
	buf     *buffer
}

// Ok reports whether v holds a value at all (dense or binned).
func (v Variable) Ok() bool { return v.dense != nil || v.binned != nil }

// IsBinned reports whether v is in binned form (spec §3, §4.F).
func (v Variable) IsBinned() bool { return v.binned != nil }

// Dims returns v's own Dimensions -- for a binned Variable this is the
// Dimensions of its indices, not of the underlying buffer (spec §4.F).
func (v Variable) Dims() dims.Dimensions {
	if v.binned != nil {
		return v.binned.indices.Dims()
	}
	return v.dense.d
}

// DType returns v's element type, or dtype.Binned for a binned Variable.
func (v Variable) DType() dtype.DType {
	if v.binned != nil {
		return dtype.Binned
	}
	return v.dense.buf.dtype
}

// Unit returns v's physical unit. A binned Variable itself carries no
// unit -- its per-event data does, via BinBuffer(v).Unit().
func (v Variable) Unit() units.Unit {
	if v.binned != nil {
		return units.Dimensionless
	}
	return v.dense.u
}

// HasVariances reports whether v carries a variance channel.
func (v Variable) HasVariances() bool {
	if v.binned != nil {
		return false
	}
	return v.dense.buf.variances != nil
}

// Size returns the volume of v.Dims(), i.e. the number of elements (for
// a binned Variable, the number of bins).
func (v Variable) Size() int64 { return v.Dims().Volume() }

// Summary reports a human-readable element count and memory footprint for
// v, the way gomlx_checkpoints' variables.go and summary.go report a
// checkpoint variable's size and memory cost via humanize.Comma/Bytes. For
// a binned Variable this reports the indices' own footprint, not the
// shared event buffer's.
func (v Variable) Summary() string {
	if !v.Ok() {
		return "Variable(invalid)"
	}
	if v.binned != nil {
		idx := v.binned.indices
		return fmt.Sprintf("%s elements, %s", humanize.Comma(idx.Size()), humanize.Bytes(idx.dense.buf.memoryBytes()))
	}
	return fmt.Sprintf("%s elements, %s", humanize.Comma(v.Size()), humanize.Bytes(v.dense.buf.memoryBytes()))
}

func (v Variable) String() string {
	if !v.Ok() {
		return "Variable(invalid)"
	}
	if v.binned != nil {
		return fmt.Sprintf("Variable(binned, dim=%s, bins=%s)", v.binned.binDim, v.binned.indices.Dims())
	}
	return fmt.Sprintf("Variable(%s, dtype=%s, unit=%s, variances=%v)", v.dense.d, v.dense.buf.dtype, v.dense.u, v.HasVariances())
}

// New builds a dense Variable from a flat row-major buffer of values
// (and, optionally, variances), both of length d.Volume() (spec §4.C). It
// fails with a *scipperr.DimensionError on a length mismatch, or a
// *scipperr.VariancesError if T cannot carry a variance channel.
func New[T dtype.Supported](d dims.Dimensions, u units.Unit, values []T, variances []T) (Variable, error) {
	if int64(len(values)) != d.Volume() {
		return Variable{}, scipperr.NewDimensionError("New: %d values for shape %s (volume %d)", len(values), d, d.Volume())
	}
	dt := dtype.Of[T]()
	if variances != nil {
		if !dt.IsVarianceCapable() {
			return Variable{}, scipperr.NewVariancesError("dtype %s cannot carry a variance channel", dt)
		}
		if len(variances) != len(values) {
			return Variable{}, scipperr.NewDimensionError("New: %d variances for %d values", len(variances), len(values))
		}
	}
	buf := &buffer{id: newBufferID(), dtype: dt, values: values, length: d.Volume()}
	if variances != nil {
		buf.variances = variances
	}
	return Variable{dense: &denseState{d: d, u: u, strides: dims.RowMajor(d), offset: 0, buf: buf}}, nil
}

// Must is New, panicking with the returned error instead -- the idiom the
// teacher's shapes.Make/MustShape pair uses for call sites that already
// know their arguments are well-formed.
func Must[T dtype.Supported](d dims.Dimensions, u units.Unit, values []T, variances []T) Variable {
	v, err := New(d, u, values, variances)
	if err != nil {
		exceptions.Panicf("variable.Must: %v", err)
	}
	return v
}

// Zeros allocates a zero-valued dense Variable of the given dtype and
// shape via the factory (spec §4.G).
func Zeros(d dims.Dimensions, dt dtype.DType, u units.Unit, withVariances bool) (Variable, error) {
	buf, err := newBuffer(dt, d.Volume(), withVariances)
	if err != nil {
		return Variable{}, err
	}
	return Variable{dense: &denseState{d: d, u: u, strides: dims.RowMajor(d), offset: 0, buf: buf}}, nil
}

// View returns the ElementArrayView describing how v's own Dims map onto
// its buffer -- the iteration primitive package transform drives (spec
// §4.B, §4.D). For a binned Variable this is the view over its indices,
// i.e. the PairIndex buffer, not the underlying event data.
func (v Variable) View() (index.ElementArrayView, error) {
	if v.binned != nil {
		return v.binned.indices.View()
	}
	return index.NewView(v.dense.d, v.dense.strides, v.dense.offset), nil
}

// Values returns the full backing slice of a dense Variable of element
// type T -- not cropped to v's own view, callers combine it with
// View()'s offsets (spec §4.D's "flat buffer + ElementArrayView" idiom,
// mirrored from local.go's ConstFlatData/MutableFlatData). It panics (via
// exceptions.Panicf) if T does not match v.DType(), the same
// precondition ConstFlatData enforces in the teacher package.
func Values[T dtype.Supported](v Variable) []T {
	if v.binned != nil {
		exceptions.Panicf("variable.Values[%T]: binned Variable has no dense buffer, see BinBuffer", *new(T))
	}
	values, ok := v.dense.buf.values.([]T)
	if !ok {
		exceptions.Panicf("variable.Values[%T]: incompatible with dtype %s", *new(T), v.dense.buf.dtype)
	}
	return values
}

// Variances returns the full backing variance slice, and whether v has
// one at all. It panics (via exceptions.Panicf) if T does not match
// v.DType() -- but unlike Values, a missing variance channel is reported
// through the boolean, not a panic, since "no variances" is a routine
// Variable state rather than a programmer error.
func Variances[T dtype.Float](v Variable) ([]T, bool) {
	if v.binned != nil || v.dense.buf.variances == nil {
		return nil, false
	}
	variances, ok := v.dense.buf.variances.([]T)
	if !ok {
		exceptions.Panicf("variable.Variances[%T]: incompatible with dtype %s", *new(T), v.dense.buf.dtype)
	}
	return variances, true
}

// Uniquify ensures v's buffer is not shared with any other Variable,
// deep-copying it first if it is (spec §4.C copy-on-write). Every
// in-place write path (MutableValues, transform's in-place form) must
// call this before touching the buffer.
func (v *Variable) Uniquify() {
	if v.binned != nil {
		v.binned.indices.Uniquify()
		return
	}
	if v.dense.buf.isShared() {
		v.dense.buf = v.dense.buf.clone()
	}
}

// MutableValues exposes v's full backing slice for in-place writes,
// uniquifying first if the buffer is shared with another Variable. v must
// be addressable (pass &v) so the uniquified buffer sticks.
func MutableValues[T dtype.Supported](v *Variable) []T {
	v.Uniquify()
	return Values[T](*v)
}
