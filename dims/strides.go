package dims

import "github.com/jokasimr/scipp/scipperr"

// Strides is a sequence of signed element offsets, one per Dim of
// some target Dimensions, interpreting a logical coordinate tuple
// (i0,...,i_{n-1}) as a flat offset sum(i_j * s_j) (spec §4.A). A stride
// of 0 along some axis encodes broadcasting along that axis.
type Strides []int64

// RowMajor returns the canonical contiguous strides for d: the
// outermost Dim has the largest stride, the innermost Dim has stride 1.
func RowMajor(d Dimensions) Strides {
	n := d.NDim()
	s := make(Strides, n)
	stride := int64(1)
	for i := n - 1; i >= 0; i-- {
		s[i] = stride
		stride *= d.entries[i].size
	}
	return s
}

// BroadcastTo returns the Strides a view over source must use to be
// iterated as if it had shape target: every Dim of target absent from
// source gets stride 0 (broadcast), every Dim of target present in
// source gets that Dim's natural row-major stride computed within
// source's own axis order (spec §4.A) -- not within target's order, since
// source's memory layout is what the stride must describe.
//
// It fails with a *scipperr.DimensionNotFoundError if some Dim of source
// is absent from target (source would not be a sub-shape of target), or a
// *scipperr.DimensionLengthError if a shared Dim's length disagrees.
func BroadcastTo(source, target Dimensions) (Strides, error) {
	sourceStrides := RowMajor(source)
	out := make(Strides, target.NDim())
	for i := 0; i < target.NDim(); i++ {
		dim := target.DimAt(i)
		j, ok := source.IndexOf(dim)
		if !ok {
			out[i] = 0
			continue
		}
		if source.SizeAt(j) != target.SizeAt(i) {
			return nil, scipperr.NewDimensionLengthError(dim, target.SizeAt(i), source.SizeAt(j))
		}
		out[i] = sourceStrides[j]
	}
	for _, dim := range source.Dims() {
		if !target.Contains(dim) {
			return nil, scipperr.NewDimensionNotFoundError(dim, target)
		}
	}
	return out, nil
}

// Offset computes the flat memory offset for a logical coordinate tuple,
// given in the same Dim order the Strides was built for.
func (s Strides) Offset(coords []int64) int64 {
	var off int64
	for i, c := range coords {
		off += c * s[i]
	}
	return off
}

// IsBroadcastOnly reports whether every entry is zero, meaning a write
// through this view would alias every logical position onto the same
// memory -- transform must reject this as an output (spec §4.D).
func (s Strides) IsBroadcastOnly() bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return len(s) > 0
}

// HasBroadcastAxis reports whether any entry is zero for an axis whose
// target length is > 1 -- used by transform to reject writing into a
// broadcast output (spec §4.D: "an output stride of 0 on a non-unit Dim
// is rejected").
func HasBroadcastAxis(s Strides, target Dimensions) bool {
	for i, v := range s {
		if v == 0 && target.SizeAt(i) > 1 {
			return true
		}
	}
	return false
}
