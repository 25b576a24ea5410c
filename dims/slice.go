package dims

import "github.com/jokasimr/scipp/scipperr"

// SliceRange returns dim shortened to [begin, end) (spec §4.A). It fails
// with a *scipperr.SliceError if the range is out of bounds or inverted.
func (d Dimensions) SliceRange(dim Dim, begin, end int64) (Dimensions, error) {
	size, err := d.SizeOf(dim)
	if err != nil {
		return Dimensions{}, err
	}
	if begin < 0 || end > size || begin > end {
		return Dimensions{}, scipperr.NewSliceError("dim %q: range [%d, %d) out of bounds for length %d", dim, begin, end, size)
	}
	return d.WithSize(dim, end-begin)
}

// SlicePoint returns d with dim removed, after checking i is a valid
// index into it -- a single-index slice drops the sliced axis entirely
// (spec §4.A).
func (d Dimensions) SlicePoint(dim Dim, i int64) (Dimensions, error) {
	size, err := d.SizeOf(dim)
	if err != nil {
		return Dimensions{}, err
	}
	if i < 0 || i >= size {
		return Dimensions{}, scipperr.NewSliceError("dim %q: index %d out of bounds for length %d", dim, i, size)
	}
	return d.Erase(dim)
}
