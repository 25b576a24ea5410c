package variable

import (
	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/scipperr"
)

// Fold splits dim into the given ordered sequence of (Dim, size) entries,
// outermost first, whose sizes must multiply out to dim's own length
// (supplemented from original_source's Variable::fold, SPEC_FULL.md §4).
// It is a pure view operation -- no data moves, v's buffer is marked
// shared the same way Transpose/Broadcast mark it -- since splitting one
// axis into several consecutive ones never changes the memory a given
// element lives at, only how its position is addressed.
func Fold(v Variable, dim dims.Dim, entries []dims.Entry) (Variable, error) {
	if v.binned != nil {
		return Variable{}, scipperr.NewDimensionError("cannot fold a binned Variable")
	}
	d := v.dense
	axis, ok := d.d.IndexOf(dim)
	if !ok {
		return Variable{}, scipperr.NewDimensionNotFoundError(dim, d.d)
	}
	product := int64(1)
	for _, e := range entries {
		product *= e.Size()
	}
	if product != d.d.SizeAt(axis) {
		return Variable{}, scipperr.NewDimensionLengthError(dim, product, d.d.SizeAt(axis))
	}

	newEntries := make([]dims.Entry, 0, d.d.NDim()-1+len(entries))
	newStrides := make(dims.Strides, 0, len(d.strides)-1+len(entries))
	for i := 0; i < d.d.NDim(); i++ {
		if i != axis {
			newEntries = append(newEntries, dims.NewEntry(d.d.DimAt(i), d.d.SizeAt(i)))
			newStrides = append(newStrides, d.strides[i])
			continue
		}
		// Subdivide this axis: the innermost entry keeps the original
		// stride, each entry further out multiplies by the size of
		// everything nested inside it.
		subStrides := make(dims.Strides, len(entries))
		stride := d.strides[axis]
		for j := len(entries) - 1; j >= 0; j-- {
			subStrides[j] = stride
			stride *= entries[j].Size()
		}
		newEntries = append(newEntries, entries...)
		newStrides = append(newStrides, subStrides...)
	}
	newDims, err := dims.New(newEntries...)
	if err != nil {
		return Variable{}, err
	}
	d.buf.markShared()
	return Variable{dense: &denseState{d: newDims, u: d.u, strides: newStrides, offset: d.offset, buf: d.buf}}, nil
}

// Flatten merges a contiguous run of adjacent Dims into a single newDim
// (supplemented from original_source's Variable::flatten, SPEC_FULL.md
// §4), inverse of Fold. merge must name v's Dims in the order they
// actually appear, and -- since this is a view, not a copy -- their
// Strides must already be packed (each outer Dim's stride equal to the
// next inner Dim's stride times its size, the same condition
// ElementArrayView.IsContiguous checks per-axis); a Variable that is not
// packed along the axes being merged (e.g. a transposed or broadcast
// view) must be Copy()'d first, which this reports via
// *scipperr.DimensionError rather than silently falling back to a copy.
func Flatten(v Variable, merge []dims.Dim, newDim dims.Dim) (Variable, error) {
	if v.binned != nil {
		return Variable{}, scipperr.NewDimensionError("cannot flatten a binned Variable")
	}
	if len(merge) == 0 {
		return Variable{}, scipperr.NewDimensionError("flatten: no dims given to merge")
	}
	d := v.dense
	first, ok := d.d.IndexOf(merge[0])
	if !ok {
		return Variable{}, scipperr.NewDimensionNotFoundError(merge[0], d.d)
	}
	for i, dim := range merge {
		axis := first + i
		if axis >= d.d.NDim() || d.d.DimAt(axis) != dim {
			return Variable{}, scipperr.NewDimensionError("flatten: %v is not a contiguous run of v's own Dims %s", merge, d.d)
		}
		if i+1 < len(merge) {
			if d.strides[axis] != d.strides[axis+1]*d.d.SizeAt(axis+1) {
				return Variable{}, scipperr.NewDimensionError("flatten: dim %q is not packed against %q, Copy() first", dim, merge[i+1])
			}
		}
	}
	last := first + len(merge) - 1
	size := int64(1)
	for i := first; i <= last; i++ {
		size *= d.d.SizeAt(i)
	}

	newEntries := make([]dims.Entry, 0, d.d.NDim()-len(merge)+1)
	newStrides := make(dims.Strides, 0, len(d.strides)-len(merge)+1)
	for i := 0; i < d.d.NDim(); i++ {
		switch {
		case i < first || i > last:
			newEntries = append(newEntries, dims.NewEntry(d.d.DimAt(i), d.d.SizeAt(i)))
			newStrides = append(newStrides, d.strides[i])
		case i == first:
			newEntries = append(newEntries, dims.NewEntry(newDim, size))
			newStrides = append(newStrides, d.strides[last])
		default:
			// the rest of the merged run contributes no entry of its own
		}
	}
	newDims, err := dims.New(newEntries...)
	if err != nil {
		return Variable{}, err
	}
	d.buf.markShared()
	return Variable{dense: &denseState{d: newDims, u: d.u, strides: newStrides, offset: d.offset, buf: d.buf}}, nil
}
