// Package scipperr implements the typed error taxonomy of spec §4.H/§7.
//
// Each exported type wraps a package-level sentinel so callers can use
// errors.Is the way github.com/katalvlaran/lvlath's matrix package does,
// while still carrying the offending value(s) for a textual message, as
// spec §4.H requires ("Each error's what() MUST be formatted to include
// the offending Dimensions/DType/Unit value textually"). Constructors take
// plain values (rendered through fmt.Stringer when available) and store
// strings rather than concrete types from dims/dtype/units/variable, to
// avoid a dependency cycle -- this package sits below all of them.
package scipperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinels, one per taxonomy entry in spec §4.H. Use errors.Is(err,
// scipperr.ErrDimension) etc. to classify an error regardless of which
// concrete offending values it carries.
var (
	ErrDimension         = errors.New("dimension error")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrDimensionNotFound = errors.New("dimension not found")
	ErrDimensionLength   = errors.New("dimension length error")
	ErrType              = errors.New("type error")
	ErrUnit              = errors.New("unit error")
	ErrVariances         = errors.New("variances error")
	ErrBinEdge           = errors.New("bin edge error")
	ErrSlice             = errors.New("slice error")
)

// render turns a fmt.Stringer (or any value) into a plain string eagerly,
// so error values remain plain data (no captured pointers to
// Dimensions/Variable internals) once constructed.
func render(v any) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

// DimensionError reports a malformed Dim, a missing Dim, a length
// mismatch, or an attempt to write through a broadcast output.
type DimensionError struct {
	Message string
	cause   error
}

func (e *DimensionError) Error() string { return "dimension error: " + e.Message }
func (e *DimensionError) Unwrap() error { return e.cause }

// NewDimensionError builds a DimensionError with a formatted message.
func NewDimensionError(format string, args ...any) *DimensionError {
	return &DimensionError{Message: fmt.Sprintf(format, args...), cause: ErrDimension}
}

// DimensionMismatchError specializes DimensionError for two Dimensions
// values that are expected to, but do not, match.
type DimensionMismatchError struct {
	Got, Want string
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: got %s, want %s", e.Got, e.Want)
}
func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatchError renders got/want eagerly via fmt.Stringer.
func NewDimensionMismatchError(got, want any) *DimensionMismatchError {
	return &DimensionMismatchError{Got: render(got), Want: render(want)}
}

// DimensionNotFoundError specializes DimensionError for a single named
// Dim absent from a Dimensions value.
type DimensionNotFoundError struct {
	Dim string
	In  string
}

func (e *DimensionNotFoundError) Error() string {
	return fmt.Sprintf("dimension %s not found in %s", e.Dim, e.In)
}
func (e *DimensionNotFoundError) Unwrap() error { return ErrDimensionNotFound }

func NewDimensionNotFoundError(dim, in any) *DimensionNotFoundError {
	return &DimensionNotFoundError{Dim: render(dim), In: render(in)}
}

// DimensionLengthError specializes DimensionError for a known offending
// Dim/length pair.
type DimensionLengthError struct {
	Dim       string
	Got, Want int64
}

func (e *DimensionLengthError) Error() string {
	return fmt.Sprintf("dimension %s has length %d, want %d", e.Dim, e.Got, e.Want)
}
func (e *DimensionLengthError) Unwrap() error { return ErrDimensionLength }

func NewDimensionLengthError(dim any, got, want int64) *DimensionLengthError {
	return &DimensionLengthError{Dim: render(dim), Got: got, Want: want}
}

// TypeError reports an element type unsupported for an operation, or an
// impossible cast.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string { return "type error: " + e.Message }
func (e *TypeError) Unwrap() error { return ErrType }

func NewTypeError(format string, args ...any) *TypeError {
	return &TypeError{Message: fmt.Sprintf(format, args...)}
}

// UnitError reports a violated unit precondition (incompatible summands,
// non-dimensionless argument to log, counts*counts, ...).
type UnitError struct {
	Message string
}

func (e *UnitError) Error() string { return "unit error: " + e.Message }
func (e *UnitError) Unwrap() error { return ErrUnit }

func NewUnitError(format string, args ...any) *UnitError {
	return &UnitError{Message: fmt.Sprintf(format, args...)}
}

// VariancesError reports a variance-channel precondition violation:
// variance requested on a type that cannot carry it, a variance channel
// missing on one operand of a multiplicative op, or setting variances
// from a Variable that already has them.
type VariancesError struct {
	Message string
}

func (e *VariancesError) Error() string { return "variances error: " + e.Message }
func (e *VariancesError) Unwrap() error { return ErrVariances }

func NewVariancesError(format string, args ...any) *VariancesError {
	return &VariancesError{Message: fmt.Sprintf(format, args...)}
}

// BinEdgeError reports a histogram/concatenation precondition on edges
// being violated (unsorted edges, mismatched concatenation seam, ...).
type BinEdgeError struct {
	Message string
}

func (e *BinEdgeError) Error() string { return "bin edge error: " + e.Message }
func (e *BinEdgeError) Unwrap() error { return ErrBinEdge }

func NewBinEdgeError(format string, args ...any) *BinEdgeError {
	return &BinEdgeError{Message: fmt.Sprintf(format, args...)}
}

// SliceError reports an out-of-range index or range on a Dim.
type SliceError struct {
	Message string
}

func (e *SliceError) Error() string { return "slice error: " + e.Message }
func (e *SliceError) Unwrap() error { return ErrSlice }

func NewSliceError(format string, args ...any) *SliceError {
	return &SliceError{Message: fmt.Sprintf(format, args...)}
}
