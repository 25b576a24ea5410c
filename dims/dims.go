// Package dims implements the dimension-labeled shape model of spec §3,
// §4.A: Dim, Dimensions and Strides, plus the merge/broadcast/slice
// algebra that the rest of the core builds on.
//
// Dim is an interned string rather than a closed enum: original_source's
// scipp::core::Dim lets users mint arbitrary dimension labels at
// runtime (see SPEC_FULL.md §3), so a fixed Go enum would be the wrong
// shape for this type.
package dims

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"

	"github.com/jokasimr/scipp/scipperr"
	"github.com/jokasimr/scipp/types"
)

// Dim names an axis. Order of Dims inside a Dimensions is significant
// (outermost first).
type Dim string

// entry is one (Dim, length) pair.
type entry struct {
	dim  Dim
	size int64
}

// Dimensions is an ordered sequence of (Dim, length) pairs, all Dims
// distinct, length >= 0. The zero value is the Dimensions of a scalar
// (rank 0, volume 1).
type Dimensions struct {
	entries []entry
}

// Make builds a Dimensions from alternating (Dim, size) pairs, outermost
// first, e.g. Make("x", 3, "y", 2). It panics on a malformed shape --
// negative size, repeated Dim, or a volume overflowing int64 -- mirroring
// shapes.Make's panic-on-invalid-input idiom in the teacher package. Use
// New for a non-panicking constructor.
func Make(pairs ...any) Dimensions {
	d, err := New(pairsToEntries(pairs)...)
	if err != nil {
		exceptions.Panicf("dims.Make(%v): %v", pairs, err)
	}
	return d
}

func pairsToEntries(pairs []any) []entry {
	if len(pairs)%2 != 0 {
		exceptions.Panicf("dims.Make: odd number of arguments %v, want alternating (Dim, size) pairs", pairs)
	}
	out := make([]entry, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		d, ok := pairs[i].(Dim)
		if !ok {
			if s, ok2 := pairs[i].(string); ok2 {
				d = Dim(s)
			} else {
				exceptions.Panicf("dims.Make: argument %d (%v) is not a Dim or string", i, pairs[i])
			}
		}
		size := toInt64(pairs[i+1])
		out = append(out, entry{dim: d, size: size})
	}
	return out
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	default:
		exceptions.Panicf("dims.Make: size argument %v is not an integer", v)
		return 0
	}
}

// New builds a Dimensions from explicit entries, outermost first. It
// returns a *scipperr.DimensionError for a negative size, a repeated Dim,
// or a volume that would overflow int64.
func New(entries ...entry) (Dimensions, error) {
	seen := types.MakeSet[Dim](len(entries))
	volume := int64(1)
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		if e.size < 0 {
			return Dimensions{}, scipperr.NewDimensionError("dim %q has negative length %d", e.dim, e.size)
		}
		if seen.Has(e.dim) {
			return Dimensions{}, scipperr.NewDimensionError("dim %q repeated", e.dim)
		}
		seen.Insert(e.dim)
		if e.size != 0 {
			next := volume * e.size
			if e.size != 0 && next/e.size != volume {
				return Dimensions{}, scipperr.NewDimensionError("shape %v overflows a 64-bit volume", entries)
			}
			volume = next
		} else {
			volume = 0
		}
		out = append(out, e)
	}
	return Dimensions{entries: out}, nil
}

// Entry is a public (Dim, size) pair, used by New's variadic callers
// outside the package.
type Entry = entry

// NewEntry constructs an Entry (Dim, size) pair for use with New.
func NewEntry(d Dim, size int64) Entry {
	return entry{dim: d, size: size}
}

// Dim returns the entry's axis label.
func (e entry) Dim() Dim { return e.dim }

// Size returns the entry's length.
func (e entry) Size() int64 { return e.size }

// NDim returns the rank: the number of axes.
func (d Dimensions) NDim() int { return len(d.entries) }

// Volume returns the product of all lengths (1 for a scalar).
func (d Dimensions) Volume() int64 {
	v := int64(1)
	for _, e := range d.entries {
		v *= e.size
	}
	return v
}

// Contains reports whether dim is one of d's axes.
func (d Dimensions) Contains(dim Dim) bool {
	_, ok := d.IndexOf(dim)
	return ok
}

// IndexOf returns the position of dim within d, outermost = 0.
func (d Dimensions) IndexOf(dim Dim) (int, bool) {
	for i, e := range d.entries {
		if e.dim == dim {
			return i, true
		}
	}
	return 0, false
}

// DimAt returns the Dim at the given position.
func (d Dimensions) DimAt(i int) Dim { return d.entries[i].dim }

// SizeAt returns the length at the given position.
func (d Dimensions) SizeAt(i int) int64 { return d.entries[i].size }

// SizeOf returns the length of the given Dim, or a
// *scipperr.DimensionNotFoundError if d does not contain it.
func (d Dimensions) SizeOf(dim Dim) (int64, error) {
	i, ok := d.IndexOf(dim)
	if !ok {
		return 0, scipperr.NewDimensionNotFoundError(dim, d)
	}
	return d.entries[i].size, nil
}

// Dims returns the Dims in outer-to-inner order.
func (d Dimensions) Dims() []Dim {
	out := make([]Dim, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.dim
	}
	return out
}

// Sizes returns the lengths in outer-to-inner order.
func (d Dimensions) Sizes() []int64 {
	out := make([]int64, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.size
	}
	return out
}

// Equal reports whether d and other have the same Dims and lengths, in
// the same order.
func (d Dimensions) Equal(other Dimensions) bool {
	if len(d.entries) != len(other.entries) {
		return false
	}
	for i, e := range d.entries {
		if e != other.entries[i] {
			return false
		}
	}
	return true
}

// EqualUpToOrder reports whether d and other have the same set of
// (Dim, length) pairs, regardless of order.
func (d Dimensions) EqualUpToOrder(other Dimensions) bool {
	if len(d.entries) != len(other.entries) {
		return false
	}
	for _, e := range d.entries {
		size, err := other.SizeOf(e.dim)
		if err != nil || size != e.size {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of d (Dimensions is itself a small
// immutable value once constructed, but its backing slice is shared;
// Clone is for call sites about to mutate a derived copy in place).
func (d Dimensions) Clone() Dimensions {
	out := make([]entry, len(d.entries))
	copy(out, d.entries)
	return Dimensions{entries: out}
}

// RenamePositional renames the Dim currently at oldDim's position to
// newDim, preserving its length and position (spec §4.A: "positional
// rename"). It fails if oldDim is absent or newDim already exists
// elsewhere in d.
func (d Dimensions) RenamePositional(oldDim, newDim Dim) (Dimensions, error) {
	i, ok := d.IndexOf(oldDim)
	if !ok {
		return Dimensions{}, scipperr.NewDimensionNotFoundError(oldDim, d)
	}
	if oldDim != newDim && d.Contains(newDim) {
		return Dimensions{}, scipperr.NewDimensionError("cannot rename %q to %q: %q already present in %s", oldDim, newDim, newDim, d)
	}
	out := d.Clone()
	out.entries[i].dim = newDim
	return out, nil
}

// Append adds a new innermost axis. It fails if dim is already present.
func (d Dimensions) Append(dim Dim, size int64) (Dimensions, error) {
	if d.Contains(dim) {
		return Dimensions{}, scipperr.NewDimensionError("dim %q already present in %s", dim, d)
	}
	if size < 0 {
		return Dimensions{}, scipperr.NewDimensionError("dim %q has negative length %d", dim, size)
	}
	out := append(d.Clone().entries, entry{dim: dim, size: size})
	return Dimensions{entries: out}, nil
}

// Erase removes dim entirely, regardless of its length. Used for a
// single-index slice, which drops the sliced axis (spec §4.A).
func (d Dimensions) Erase(dim Dim) (Dimensions, error) {
	i, ok := d.IndexOf(dim)
	if !ok {
		return Dimensions{}, scipperr.NewDimensionNotFoundError(dim, d)
	}
	out := make([]entry, 0, len(d.entries)-1)
	out = append(out, d.entries[:i]...)
	out = append(out, d.entries[i+1:]...)
	return Dimensions{entries: out}, nil
}

// WithSize returns a copy of d where dim's length has been changed to
// size, used by Slice (range form).
func (d Dimensions) WithSize(dim Dim, size int64) (Dimensions, error) {
	i, ok := d.IndexOf(dim)
	if !ok {
		return Dimensions{}, scipperr.NewDimensionNotFoundError(dim, d)
	}
	if size < 0 {
		return Dimensions{}, scipperr.NewDimensionError("dim %q has negative length %d", dim, size)
	}
	out := d.Clone()
	out.entries[i].size = size
	return out, nil
}

// Transpose returns a Dimensions with axes reordered to match order,
// which must be a permutation of d.Dims() (supplemented from
// original_source's Dimensions::permute, see SPEC_FULL.md §4).
func (d Dimensions) Transpose(order []Dim) (Dimensions, error) {
	if len(order) != len(d.entries) {
		return Dimensions{}, scipperr.NewDimensionError("transpose order %v has %d dims, want %d", order, len(order), len(d.entries))
	}
	out := make([]entry, len(order))
	for i, dim := range order {
		j, ok := d.IndexOf(dim)
		if !ok {
			return Dimensions{}, scipperr.NewDimensionNotFoundError(dim, d)
		}
		out[i] = d.entries[j]
	}
	return Dimensions{entries: out}, nil
}

// String renders d the way spec §4.H's examples do, e.g. "{X: 3, Y: 2}".
func (d Dimensions) String() string {
	parts := make([]string, len(d.entries))
	for i, e := range d.entries {
		parts[i] = fmt.Sprintf("%s: %d", e.dim, e.size)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Merge returns the minimal Dimensions containing both a and b as
// subsets, preserving outer-first order (spec §4.A). A Dim shared by both
// must have the same length in each, otherwise this fails with a
// *scipperr.DimensionLengthError. A Dim new to the merge (absent from a)
// is placed at the outer end, in the relative order it appears in b.
func Merge(a, b Dimensions) (Dimensions, error) {
	for _, be := range b.entries {
		if ae, ok := a.IndexOf(be.dim); ok {
			if a.entries[ae].size != be.size {
				return Dimensions{}, scipperr.NewDimensionLengthError(be.dim, be.size, a.entries[ae].size)
			}
		}
	}
	out := make([]entry, len(a.entries))
	copy(out, a.entries)
	for i := len(b.entries) - 1; i >= 0; i-- {
		be := b.entries[i]
		if !a.Contains(be.dim) {
			out = append([]entry{be}, out...)
		}
	}
	return Dimensions{entries: out}, nil
}
