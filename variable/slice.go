package variable

import (
	"reflect"

	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/index"
	"github.com/jokasimr/scipp/scipperr"
)

// SliceRange returns a non-owning view of v restricted to [begin, end)
// along dim (spec §4.C: "slice (range form) ... return non-owning
// views sharing the buffer"). The returned Variable's buffer is marked
// shared, so the first in-place write to either v or the slice uniquifies.
func (v Variable) SliceRange(dim dims.Dim, begin, end int64) (Variable, error) {
	if v.binned != nil {
		indices, err := v.binned.indices.SliceRange(dim, begin, end)
		if err != nil {
			return Variable{}, err
		}
		return Variable{binned: &binnedState{indices: indices, binDim: v.binned.binDim, buffer: v.binned.buffer}}, nil
	}
	d := v.dense
	newDims, err := d.d.SliceRange(dim, begin, end)
	if err != nil {
		return Variable{}, err
	}
	axis, ok := d.d.IndexOf(dim)
	if !ok {
		return Variable{}, scipperr.NewDimensionNotFoundError(dim, d.d)
	}
	d.buf.markShared()
	return Variable{dense: &denseState{
		d:       newDims,
		u:       d.u,
		strides: d.strides,
		offset:  d.offset + begin*d.strides[axis],
		buf:     d.buf,
	}}, nil
}

// SlicePoint returns a non-owning view of v at a single index along dim,
// dropping that axis entirely (spec §4.C).
func (v Variable) SlicePoint(dim dims.Dim, i int64) (Variable, error) {
	if v.binned != nil {
		indices, err := v.binned.indices.SlicePoint(dim, i)
		if err != nil {
			return Variable{}, err
		}
		return Variable{binned: &binnedState{indices: indices, binDim: v.binned.binDim, buffer: v.binned.buffer}}, nil
	}
	d := v.dense
	axis, ok := d.d.IndexOf(dim)
	if !ok {
		return Variable{}, scipperr.NewDimensionNotFoundError(dim, d.d)
	}
	size := d.d.SizeAt(axis)
	if i < 0 || i >= size {
		return Variable{}, scipperr.NewSliceError("dim %q: index %d out of bounds for length %d", dim, i, size)
	}
	newDims, err := d.d.Erase(dim)
	if err != nil {
		return Variable{}, err
	}
	newStrides := make(dims.Strides, 0, len(d.strides)-1)
	newStrides = append(newStrides, d.strides[:axis]...)
	newStrides = append(newStrides, d.strides[axis+1:]...)
	d.buf.markShared()
	return Variable{dense: &denseState{
		d:       newDims,
		u:       d.u,
		strides: newStrides,
		offset:  d.offset + i*d.strides[axis],
		buf:     d.buf,
	}}, nil
}

// RenamePositional renames dim in place to newDim, keeping the same
// buffer view -- no data moves (spec §4.A's positional rename, lifted to
// Variable).
func (v Variable) RenamePositional(oldDim, newDim dims.Dim) (Variable, error) {
	if v.binned != nil {
		indices, err := v.binned.indices.RenamePositional(oldDim, newDim)
		if err != nil {
			return Variable{}, err
		}
		bd := v.binned.binDim
		if bd == oldDim {
			bd = newDim
		}
		return Variable{binned: &binnedState{indices: indices, binDim: bd, buffer: v.binned.buffer}}, nil
	}
	d := v.dense
	newDims, err := d.d.RenamePositional(oldDim, newDim)
	if err != nil {
		return Variable{}, err
	}
	return Variable{dense: &denseState{d: newDims, u: d.u, strides: d.strides, offset: d.offset, buf: d.buf}}, nil
}

// Transpose returns v with its axes reordered to match order, a view that
// shares v's buffer (supplemented from original_source, SPEC_FULL.md §4).
func (v Variable) Transpose(order []dims.Dim) (Variable, error) {
	if v.binned != nil {
		indices, err := v.binned.indices.Transpose(order)
		if err != nil {
			return Variable{}, err
		}
		return Variable{binned: &binnedState{indices: indices, binDim: v.binned.binDim, buffer: v.binned.buffer}}, nil
	}
	d := v.dense
	newDims, err := d.d.Transpose(order)
	if err != nil {
		return Variable{}, err
	}
	newStrides := make(dims.Strides, len(order))
	for i, dim := range order {
		j, _ := d.d.IndexOf(dim)
		newStrides[i] = d.strides[j]
	}
	d.buf.markShared()
	return Variable{dense: &denseState{d: newDims, u: d.u, strides: newStrides, offset: d.offset, buf: d.buf}}, nil
}

// Broadcast returns v viewed as though it had shape target, inserting
// zero strides for the new axes (supplemented from original_source's
// Variable::broadcast, SPEC_FULL.md §4). If v is not a sub-shape of
// target it fails with the error dims.BroadcastTo returns; a binned v
// fails with a *scipperr.DimensionError.
func (v Variable) Broadcast(target dims.Dimensions) (Variable, error) {
	if v.binned != nil {
		return Variable{}, scipperr.NewDimensionError("cannot broadcast a binned Variable")
	}
	d := v.dense
	strides, err := dims.BroadcastTo(d.d, target)
	if err != nil {
		return Variable{}, err
	}
	d.buf.markShared()
	return Variable{dense: &denseState{d: target, u: d.u, strides: strides, offset: d.offset, buf: d.buf}}, nil
}

// Copy returns a deep, contiguous, exclusively-owned copy of v (spec
// §4.C: "deep copy() -- uniquifies buffers"). Copying a binned Variable
// deep-copies its indices but keeps sharing the underlying event buffer,
// matching scipp's own bucket-copy semantics (see SPEC_FULL.md §4.F):
// the bin layout is independent per copy, the event data is not.
func (v Variable) Copy() (Variable, error) {
	if v.binned != nil {
		indices, err := v.binned.indices.Copy()
		if err != nil {
			return Variable{}, err
		}
		return Variable{binned: &binnedState{indices: indices, binDim: v.binned.binDim, buffer: v.binned.buffer}}, nil
	}
	d := v.dense
	out, err := newBuffer(d.buf.dtype, d.d.Volume(), d.buf.variances != nil)
	if err != nil {
		return Variable{}, err
	}
	view := index.NewView(d.d, d.strides, d.offset)
	reflectGather(view, d.buf.values, out.values)
	if d.buf.variances != nil {
		reflectGather(view, d.buf.variances, out.variances)
	}
	return Variable{dense: &denseState{d: d.d, u: d.u, strides: dims.RowMajor(d.d), offset: 0, buf: out}}, nil
}

// reflectGather copies src[offset] for each offset view walks, in
// iteration order, into consecutive slots of dst -- the reflection-based
// element mover local.go's LocalClone uses via reflect.Copy, generalized
// here to a non-contiguous source view.
func reflectGather(view index.ElementArrayView, src, dst any) {
	srcV := reflect.ValueOf(src)
	dstV := reflect.ValueOf(dst)
	j := 0
	for vi := index.Begin(view); !vi.Done(); vi.Increment() {
		dstV.Index(j).Set(srcV.Index(int(vi.Get())))
		j++
	}
}
