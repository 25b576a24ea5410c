package variable

import (
	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/dtype"
	"github.com/jokasimr/scipp/index"
	"github.com/jokasimr/scipp/scipperr"
	"github.com/jokasimr/scipp/units"
)

// binnedState is the binned representation (spec §3, §4.F): indices is a
// dense Variable of dtype.PairIndex giving each bin's [Begin, End) range
// into buffer, which all bins (and, after a bin-preserving op, all
// copies) share.
type binnedState struct {
	indices Variable // dense, dtype.PairIndex
	binDim  dims.Dim
	buffer  *Variable // the shared per-event data
}

// MakeBins builds a binned Variable from an indices Variable of
// dtype.PairIndex, the Dim that buffer's ranges run along, and the shared
// buffer itself. It validates that every [Begin, End) range falls inside
// buffer's extent along binDim (spec §4.F).
func MakeBins(indices Variable, binDim dims.Dim, buffer Variable) (Variable, error) {
	if indices.DType() != dtype.PairIndex {
		return Variable{}, scipperr.NewTypeError("MakeBins: indices must have dtype %s, got %s", dtype.PairIndex, indices.DType())
	}
	limit, err := buffer.Dims().SizeOf(binDim)
	if err != nil {
		return Variable{}, err
	}
	for _, r := range Values[dtype.IndexRange](indices) {
		if r.Begin < 0 || r.End > limit || r.Begin > r.End {
			return Variable{}, scipperr.NewSliceError("bin range [%d, %d) out of bounds for %s of length %d", r.Begin, r.End, binDim, limit)
		}
	}
	return MakeBinsNoValidate(indices, binDim, buffer), nil
}

// MakeBinsNoValidate is MakeBins without the range check, for call sites
// that have just built indices themselves and already know they are
// in-bounds (spec §4.F: "a no-validate constructor for call sites that
// already know the ranges are in-bounds").
func MakeBinsNoValidate(indices Variable, binDim dims.Dim, buffer Variable) Variable {
	b := buffer
	return Variable{binned: &binnedState{indices: indices, binDim: binDim, buffer: &b}}
}

// BinIndices returns the [Begin, End) range Variable of a binned
// Variable. It panics if v is not binned.
func BinIndices(v Variable) Variable {
	mustBinned(v, "BinIndices")
	return v.binned.indices
}

// BinDim returns the Dim bin ranges run along.
func BinDim(v Variable) dims.Dim {
	mustBinned(v, "BinDim")
	return v.binned.binDim
}

// BinBuffer returns the shared per-event data Variable.
func BinBuffer(v Variable) Variable {
	mustBinned(v, "BinBuffer")
	return *v.binned.buffer
}

func mustBinned(v Variable, op string) {
	if v.binned == nil {
		panic(scipperr.NewTypeError("variable.%s: Variable is not binned", op))
	}
}

// BinSizes returns, for each bin, End-Begin as an Int64 dense Variable
// with the same Dims as the indices (spec §4.F: "bin_sizes").
func BinSizes(v Variable) Variable {
	mustBinned(v, "BinSizes")
	ranges := Values[dtype.IndexRange](v.binned.indices)
	view, _ := v.binned.indices.View()
	sizes := make([]int64, v.Size())
	j := 0
	for vi := index.Begin(view); !vi.Done(); vi.Increment() {
		r := ranges[vi.Get()]
		sizes[j] = r.End - r.Begin
		j++
	}
	out, _ := New(v.Dims(), units.Dimensionless, sizes, nil)
	return out
}
