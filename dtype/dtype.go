// Package dtype defines DType, the runtime tag identifying the element
// type stored in a Variable, and the generic constraints used throughout
// the core to keep "which element types a function is instantiated for"
// explicit (spec §3, §4.G).
package dtype

import (
	"fmt"
	"reflect"

	"github.com/x448/float16"
)

// DType identifies the element type of a Variable's buffer. It enumerates
// every element type the factory (package variable, buffer.go) knows
// how to construct at core-init time; consumers add more by registering
// additional makers (spec §4.G, §6).
type DType int32

const (
	Invalid DType = iota
	Bool
	Int32
	Int64
	Float32
	Float64
	Float16
	String
	Vector3
	Matrix3x3
	Quaternion
	AffineTransform3
	Time
	PairIndex
	// Binned is the sentinel DType of a binned Variable (spec §3, "binned
	// form"). Its element Go type is irrelevant -- the actual per-event
	// type lives in the underlying buffer Variable, not in this tag.
	Binned
)

var names = map[DType]string{
	Invalid:          "invalid",
	Bool:             "bool",
	Int32:            "int32",
	Int64:            "int64",
	Float32:          "float32",
	Float64:          "float64",
	Float16:          "float16",
	String:           "string",
	Vector3:          "vector3",
	Matrix3x3:        "matrix3x3",
	Quaternion:       "quaternion",
	AffineTransform3: "affine_transform3",
	Time:             "time",
	PairIndex:        "pair_index",
	Binned:           "binned",
}

// String implements fmt.Stringer.
func (d DType) String() string {
	if name, ok := names[d]; ok {
		return name
	}
	return fmt.Sprintf("DType(%d)", int32(d))
}

// IsFloat reports whether dtype is one of the floating point element
// types (the ones that can also carry a variance channel, see
// IsVarianceCapable -- not all floats here qualify, e.g. Float16 does
// not).
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64 || d == Float16
}

// IsInt reports whether dtype is an integral numeric element type.
func (d DType) IsInt() bool {
	return d == Int32 || d == Int64
}

// IsNumeric reports whether dtype supports +,-,*,/ as a bare scalar.
func (d DType) IsNumeric() bool {
	return d.IsFloat() || d.IsInt()
}

// IsVarianceCapable reports whether a Variable of this dtype is allowed
// to carry a variance buffer (spec §3: "only permitted for element types
// declared variance-capable, i.e. numeric floats"). Float16 is
// deliberately excluded: variance propagation needs more precision than
// a 16-bit float can carry without the result being meaningless.
func (d DType) IsVarianceCapable() bool {
	return d == Float32 || d == Float64
}

// Vector3Value is the Go representation of the Vector3 DType.
type Vector3Value [3]float64

// Matrix3x3Value is the Go representation of the Matrix3x3 DType,
// row-major.
type Matrix3x3Value [9]float64

// QuaternionValue is the Go representation of the Quaternion DType,
// stored as (w, x, y, z).
type QuaternionValue [4]float64

// AffineTransform3Value is the Go representation of the AffineTransform3
// DType: a row-major 4x4 homogeneous transform matrix.
type AffineTransform3Value [16]float64

// TimeValue is the Go representation of the Time DType: nanoseconds
// since the Unix epoch.
type TimeValue int64

// IndexRange is the Go representation of the PairIndex DType: the
// [Begin, End) range of a single bin into a buffer (spec §3, binned
// form).
type IndexRange struct {
	Begin, End int64
}

// goTypes maps each concrete DType to its Go representation, used by the
// factory (package variable) to allocate buffers via reflection for
// dtypes not wired into a generic call site.
var goTypes = map[DType]reflect.Type{
	Bool:             reflect.TypeOf(false),
	Int32:            reflect.TypeOf(int32(0)),
	Int64:            reflect.TypeOf(int64(0)),
	Float32:          reflect.TypeOf(float32(0)),
	Float64:          reflect.TypeOf(float64(0)),
	Float16:          reflect.TypeOf(float16.Float16(0)),
	String:           reflect.TypeOf(""),
	Vector3:          reflect.TypeOf(Vector3Value{}),
	Matrix3x3:        reflect.TypeOf(Matrix3x3Value{}),
	Quaternion:       reflect.TypeOf(QuaternionValue{}),
	AffineTransform3: reflect.TypeOf(AffineTransform3Value{}),
	Time:             reflect.TypeOf(TimeValue(0)),
	PairIndex:        reflect.TypeOf(IndexRange{}),
}

// GoType returns the reflect.Type backing this dtype's buffers, or nil for
// Invalid/Binned (which have no buffer type of their own).
func (d DType) GoType() reflect.Type {
	return goTypes[d]
}

// Supported lists the Go scalar types with a registered DType, used as a
// generics constraint by the variable and transform packages' typed
// (non-reflective) call sites.
type Supported interface {
	bool | int32 | int64 | float32 | float64 | float16.Float16 | string |
		Vector3Value | Matrix3x3Value | QuaternionValue | AffineTransform3Value |
		TimeValue | IndexRange
}

// Number is the subset of Supported usable in the value/variance algebra
// of spec §4.D: signed integers and floats.
type Number interface {
	int32 | int64 | float32 | float64
}

// Float is the subset of Number that can carry a variance channel.
type Float interface {
	float32 | float64
}

// Of returns the DType tag for a generic Supported type parameter.
func Of[T Supported]() DType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return Bool
	case int32:
		return Int32
	case int64:
		return Int64
	case float32:
		return Float32
	case float64:
		return Float64
	case float16.Float16:
		return Float16
	case string:
		return String
	case Vector3Value:
		return Vector3
	case Matrix3x3Value:
		return Matrix3x3
	case QuaternionValue:
		return Quaternion
	case AffineTransform3Value:
		return AffineTransform3
	case TimeValue:
		return Time
	case IndexRange:
		return PairIndex
	}
	return Invalid
}
