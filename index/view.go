// Package index implements ElementArrayView and ViewIndex (spec §4.B):
// N-D iteration over a possibly non-contiguous, possibly broadcast view,
// turning successive logical positions into memory offsets using a
// dims.Strides. This is the iteration primitive the transform engine
// (package transform) drives for every input and output.
package index

import "github.com/jokasimr/scipp/dims"

// ElementArrayView names a target Dimensions together with the Strides
// a particular buffer uses to realize it, plus a base offset into that
// buffer. It does not own any data -- it is a recipe for computing flat
// offsets.
type ElementArrayView struct {
	Dims    dims.Dimensions
	Strides dims.Strides
	Base    int64
}

// NewView builds an ElementArrayView. Strides must have one entry per
// Dim of d, in the same order.
func NewView(d dims.Dimensions, strides dims.Strides, base int64) ElementArrayView {
	return ElementArrayView{Dims: d, Strides: strides, Base: base}
}

// Len returns the number of logical elements (the view's volume).
func (v ElementArrayView) Len() int64 { return v.Dims.Volume() }

// Rank returns the number of axes.
func (v ElementArrayView) Rank() int { return v.Dims.NDim() }

// IsContiguous reports whether v walks its buffer in a single unbroken
// run -- true exactly when its Strides equal the canonical row-major
// strides of its own Dims (no broadcast, no slicing gaps). A contiguous
// view can be range-for'd at memcpy speed (spec §4.B).
func (v ElementArrayView) IsContiguous() bool {
	natural := dims.RowMajor(v.Dims)
	for i, s := range v.Strides {
		if s != natural[i] {
			return false
		}
	}
	return true
}

// ViewIndex walks an ElementArrayView, turning successive logical
// positions into memory offsets via ripple-carry increment (spec §4.B).
// The zero value is not valid; use Begin.
type ViewIndex struct {
	view ElementArrayView

	coord   []int64 // current per-axis coordinate
	carry   []int64 // carry[i] = Strides[i] * Dims.SizeAt(i), precomputed
	ordinal int64   // logical position in [0, view.Len()]
	offset  int64   // current flat memory offset (valid only while !done)
	done    bool
}

// Begin returns a ViewIndex positioned at the view's first element (the
// all-zero coordinate), or already-done if the view is empty.
func Begin(view ElementArrayView) *ViewIndex {
	rank := view.Rank()
	vi := &ViewIndex{
		view:  view,
		coord: make([]int64, rank),
		carry: make([]int64, rank),
		offset: view.Base,
	}
	for i := 0; i < rank; i++ {
		vi.carry[i] = view.Strides[i] * view.Dims.SizeAt(i)
	}
	vi.done = view.Len() == 0
	return vi
}

// End returns a ViewIndex positioned one-past-the-end of view, usable as
// a sentinel to compare against (vi.Equal(end)).
func End(view ElementArrayView) *ViewIndex {
	vi := Begin(view)
	vi.ordinal = view.Len()
	vi.done = true
	return vi
}

// Get returns the current flat memory offset. Must not be called once
// Done() is true.
func (vi *ViewIndex) Get() int64 { return vi.offset }

// Ordinal returns the current logical (row-major, broadcast-independent)
// position, in [0, view.Len()].
func (vi *ViewIndex) Ordinal() int64 { return vi.ordinal }

// Done reports whether iteration has run past the last element.
func (vi *ViewIndex) Done() bool { return vi.done }

// Increment advances to the next logical position, ripple-carrying
// through outer axes exactly as spec §4.B describes: bump the innermost
// coordinate and the offset by its stride; if it saturates, undo its
// contribution via the precomputed carry delta, reset it to zero, and
// repeat on the next axis out. A fully contiguous, non-broadcast view
// therefore advances with a single addition per step.
func (vi *ViewIndex) Increment() {
	vi.ordinal++
	rank := len(vi.coord)
	for axis := rank - 1; axis >= 0; axis-- {
		vi.coord[axis]++
		vi.offset += vi.view.Strides[axis]
		if vi.coord[axis] < vi.view.Dims.SizeAt(axis) {
			return
		}
		vi.offset -= vi.carry[axis]
		vi.coord[axis] = 0
	}
	vi.done = true
}

// Seek positions vi at the given logical ordinal directly (positional
// seek, spec §4.B), recomputing coordinates and offset from scratch. Used
// to split a view into independent chunks for parallel iteration
// (package transform).
func (vi *ViewIndex) Seek(ordinal int64) {
	rank := len(vi.coord)
	vi.ordinal = ordinal
	vi.offset = vi.view.Base
	vi.done = ordinal >= vi.view.Len()
	remaining := ordinal
	// Decompose remaining into per-axis coordinates, innermost first,
	// using each axis's length as the radix -- the same arithmetic as a
	// mixed-radix counter.
	for axis := rank - 1; axis >= 0; axis-- {
		size := vi.view.Dims.SizeAt(axis)
		if size == 0 {
			vi.coord[axis] = 0
			continue
		}
		c := remaining % size
		remaining /= size
		vi.coord[axis] = c
		vi.offset += c * vi.view.Strides[axis]
	}
}

// Equal reports whether vi and other are at the same logical position of
// the same view.
func (vi *ViewIndex) Equal(other *ViewIndex) bool {
	return vi.done == other.done && vi.ordinal == other.ordinal
}

// Sub returns a new ViewIndex over the same buffer, restricted to the
// logical ordinal range [begin, end) of the outermost axis -- i.e. the
// slice used to hand one contiguous chunk of the outermost Dim to a
// single worker (spec §5). It requires rank >= 1.
func Sub(view ElementArrayView, begin, end int64) ElementArrayView {
	sub := view
	sub.Dims, _ = view.Dims.WithSize(view.Dims.DimAt(0), end-begin)
	sub.Base = view.Base + begin*view.Strides[0]
	return sub
}
