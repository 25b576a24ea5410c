package bins

import (
	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/dtype"
	"github.com/jokasimr/scipp/index"
	"github.com/jokasimr/scipp/scipperr"
	"github.com/jokasimr/scipp/transform"
	"github.com/jokasimr/scipp/units"
	"github.com/jokasimr/scipp/variable"
)

// Sum reduces each bin of v to a single value by summing its events
// (spec §4.F: "per-bin sum"), returning a dense Variable with v's own
// Dims -- one value per bin, same shape as BinSizes(v).
func Sum(v variable.Variable) (variable.Variable, error) {
	if !v.IsBinned() {
		return variable.Variable{}, scipperr.NewTypeError("bins.Sum: Variable is not binned")
	}
	binDim := variable.BinDim(v)
	buf := variable.BinBuffer(v)
	out, err := variable.Zeros(v.Dims(), buf.DType(), buf.Unit(), buf.HasVariances())
	if err != nil {
		return variable.Variable{}, err
	}
	err = forEachBin(v, func(slot int64, r dtype.IndexRange) error {
		events, err := sliceBuffer(v, binDim, r)
		if err != nil {
			return err
		}
		total, err := transform.Sum(events, binDim)
		if err != nil {
			return err
		}
		return writeScalarInto(&out, slot, total)
	})
	if err != nil {
		return variable.Variable{}, err
	}
	return out, nil
}

// Histogram computes, for every bin of v, a 1-D histogram of its own
// events' buffer values against edges, weighted by weight (spec §4.F:
// "per-bin histogram", built on Histogram1D). weight must have the same
// Dims as v's underlying buffer (one weight per event). The result has
// v's own Dims with edges' Dim appended as the new innermost axis.
func Histogram(v, weight, edges variable.Variable) (variable.Variable, error) {
	if !v.IsBinned() {
		return variable.Variable{}, scipperr.NewTypeError("bins.Histogram: Variable is not binned")
	}
	if edges.Dims().NDim() != 1 {
		return variable.Variable{}, scipperr.NewDimensionError("bins.Histogram: edges must be 1-D, got %s", edges.Dims())
	}
	binDim := variable.BinDim(v)
	edgeDim := edges.Dims().DimAt(0)
	nBins := edges.Size() - 1

	// Every bin's histogram is computed into a flat buffer and the result
	// is reshaped into v's own Dims with edgeDim appended via Fold --
	// folding one flat axis into several is exactly the view-only reshape
	// Fold exists for, so no further data movement happens after this
	// loop writes each bin's nBins values into its own flat slot.
	flatDim := dims.Dim("__bin_histogram_flat__")
	flat, err := variable.Zeros(dims.Make(flatDim, v.Size()*nBins), dtype.Float64, weight.Unit(), false)
	if err != nil {
		return variable.Variable{}, err
	}
	fvals := variable.MutableValues[float64](&flat)

	err = forEachBin(v, func(slot int64, r dtype.IndexRange) error {
		coordSlice, err := sliceBuffer(v, binDim, r)
		if err != nil {
			return err
		}
		weightSlice, err := weight.SliceRange(binDim, r.Begin, r.End)
		if err != nil {
			return err
		}
		h, err := Histogram1D(coordSlice, weightSlice, edges)
		if err != nil {
			return err
		}
		copy(fvals[slot*nBins:(slot+1)*nBins], variable.Values[float64](h))
		return nil
	})
	if err != nil {
		return variable.Variable{}, err
	}

	entries := make([]dims.Entry, 0, v.Dims().NDim()+1)
	for i := 0; i < v.Dims().NDim(); i++ {
		entries = append(entries, dims.NewEntry(v.Dims().DimAt(i), v.Dims().SizeAt(i)))
	}
	entries = append(entries, dims.NewEntry(edgeDim, nBins))
	return variable.Fold(flat, flatDim, entries)
}

// sliceBuffer returns the shared buffer's events for a single bin range.
func sliceBuffer(v variable.Variable, binDim dims.Dim, r dtype.IndexRange) (variable.Variable, error) {
	return variable.BinBuffer(v).SliceRange(binDim, r.Begin, r.End)
}

// forEachBin walks v's indices in iteration order, calling fn with the
// flat output slot (matching v's own contiguous row-major position) and
// that bin's event range -- the same traversal variable.BinSizes uses.
func forEachBin(v variable.Variable, fn func(slot int64, r dtype.IndexRange) error) error {
	ranges := variable.Values[dtype.IndexRange](variable.BinIndices(v))
	view, err := variable.BinIndices(v).View()
	if err != nil {
		return err
	}
	slot := int64(0)
	for vi := index.Begin(view); !vi.Done(); vi.Increment() {
		if err := fn(slot, ranges[vi.Get()]); err != nil {
			return err
		}
		slot++
	}
	return nil
}

// writeScalarInto copies the single value (and, if present, variance) of
// a scalar Variable into out's flat slot -- out must be a freshly
// allocated, exclusively-owned, contiguous dense Variable.
func writeScalarInto(out *variable.Variable, slot int64, scalar variable.Variable) error {
	switch out.DType() {
	case dtype.Float64:
		variable.MutableValues[float64](out)[slot] = variable.Values[float64](scalar)[0]
		if out.HasVariances() {
			ov, _ := variable.Variances[float64](*out)
			sv, _ := variable.Variances[float64](scalar)
			if sv != nil {
				ov[slot] = sv[0]
			}
		}
	case dtype.Float32:
		variable.MutableValues[float32](out)[slot] = variable.Values[float32](scalar)[0]
		if out.HasVariances() {
			ov, _ := variable.Variances[float32](*out)
			sv, _ := variable.Variances[float32](scalar)
			if sv != nil {
				ov[slot] = sv[0]
			}
		}
	case dtype.Int64:
		variable.MutableValues[int64](out)[slot] = variable.Values[int64](scalar)[0]
	case dtype.Int32:
		variable.MutableValues[int32](out)[slot] = variable.Values[int32](scalar)[0]
	default:
		return scipperr.NewTypeError("bins: unsupported dtype %s for per-bin reduction", out.DType())
	}
	return nil
}

// Concatenate appends b's events onto a's, bin by bin (spec §4.F:
// "bin-wise concatenate"). a and b must have the same bin Dims, in the
// same order, and share binDim. The result owns a freshly allocated
// buffer holding each bin's a-events immediately followed by its
// b-events -- always the exact-match append path; the broadcast
// fast-path scipp itself uses when a and b already share contiguous
// storage (skipping the copy entirely) is not implemented here, see
// DESIGN.md.
func Concatenate(a, b variable.Variable) (variable.Variable, error) {
	if !a.IsBinned() || !b.IsBinned() {
		return variable.Variable{}, scipperr.NewTypeError("bins.Concatenate: both operands must be binned")
	}
	if !a.Dims().Equal(b.Dims()) {
		return variable.Variable{}, scipperr.NewDimensionMismatchError(a.Dims(), b.Dims())
	}
	binDim := variable.BinDim(a)
	if binDim != variable.BinDim(b) {
		return variable.Variable{}, scipperr.NewDimensionError("bins.Concatenate: bin dims differ (%s vs %s)", binDim, variable.BinDim(b))
	}
	aBuf, bBuf := variable.BinBuffer(a), variable.BinBuffer(b)
	if aBuf.DType() != bBuf.DType() {
		return variable.Variable{}, scipperr.NewTypeError("bins.Concatenate: buffer dtypes differ (%s vs %s)", aBuf.DType(), bBuf.DType())
	}

	aRanges := variable.Values[dtype.IndexRange](variable.BinIndices(a))
	bRanges := variable.Values[dtype.IndexRange](variable.BinIndices(b))
	n := a.Size()
	total := int64(0)
	for i := int64(0); i < n; i++ {
		total += (aRanges[i].End - aRanges[i].Begin) + (bRanges[i].End - bRanges[i].Begin)
	}

	switch aBuf.DType() {
	case dtype.Float64:
		return concatenateTyped[float64](a, b, binDim, total)
	case dtype.Float32:
		return concatenateTyped[float32](a, b, binDim, total)
	case dtype.Int64:
		return concatenateTyped[int64](a, b, binDim, total)
	case dtype.Int32:
		return concatenateTyped[int32](a, b, binDim, total)
	default:
		return variable.Variable{}, scipperr.NewTypeError("bins.Concatenate: unsupported buffer dtype %s", aBuf.DType())
	}
}

func concatenateTyped[T dtype.Number](a, b variable.Variable, binDim dims.Dim, total int64) (variable.Variable, error) {
	aBuf, bBuf := variable.BinBuffer(a), variable.BinBuffer(b)
	newBuf, err := variable.Zeros(dims.Make(binDim, total), aBuf.DType(), aBuf.Unit(), false)
	if err != nil {
		return variable.Variable{}, err
	}
	out := variable.MutableValues[T](&newBuf)

	newIndices := make([]dtype.IndexRange, a.Size())
	cursor := int64(0)
	err = forEachBin(a, func(slot int64, ar dtype.IndexRange) error {
		br := variable.Values[dtype.IndexRange](variable.BinIndices(b))[slot]
		aSlice, err := aBuf.SliceRange(binDim, ar.Begin, ar.End)
		if err != nil {
			return err
		}
		bSlice, err := bBuf.SliceRange(binDim, br.Begin, br.End)
		if err != nil {
			return err
		}
		start := cursor
		copyInto(out, cursor, variable.Values[T](aSlice), aSlice)
		cursor += ar.End - ar.Begin
		copyInto(out, cursor, variable.Values[T](bSlice), bSlice)
		cursor += br.End - br.Begin
		newIndices[slot] = dtype.IndexRange{Begin: start, End: cursor}
		return nil
	})
	if err != nil {
		return variable.Variable{}, err
	}
	indices, err := variable.New(a.Dims(), units.Dimensionless, newIndices, nil)
	if err != nil {
		return variable.Variable{}, err
	}
	return variable.MakeBinsNoValidate(indices, binDim, newBuf), nil
}

// copyInto writes src's own (possibly strided) view into out starting at
// cursor. src's Values() full buffer isn't necessarily contiguous with
// its own Dims, so this walks its View() rather than assuming vals is
// exactly the events wanted.
func copyInto[T dtype.Number](out []T, cursor int64, vals []T, src variable.Variable) {
	view, _ := src.View()
	j := cursor
	for vi := index.Begin(view); !vi.Done(); vi.Increment() {
		out[j] = vals[vi.Get()]
		j++
	}
}
