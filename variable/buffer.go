package variable

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/jokasimr/scipp/dtype"
	"github.com/jokasimr/scipp/scipperr"
)

// maker allocates a fresh zero-valued flat slice of length n for some
// concrete Go type, returned as any -- the dynamic half of the factory
// (spec §4.G). Registered once per DType at init time, mirroring how
// local.go's FromShape uses reflect.MakeSlice(shape.DType.GoType(), ...)
// for dtypes it has no generic call site for.
type maker func(n int64) any

// registry is the DType factory (spec §4.G): a runtime table from DType
// to the maker that knows how to allocate its backing slice, plus whether
// that dtype may carry a variance channel. Consumers can register new
// element types without touching this package, the same way gomlx's
// dtypes package lets backends register custom dtypes.
var registry = struct {
	mu              sync.RWMutex
	makers          map[dtype.DType]maker
	varianceCapable map[dtype.DType]bool
}{
	makers:          make(map[dtype.DType]maker),
	varianceCapable: make(map[dtype.DType]bool),
}

// RegisterDType adds dt to the factory. Re-registering an already known
// dtype overwrites its maker and is logged at Warning level rather than
// rejected -- consumers sometimes legitimately replace a maker (e.g. to
// swap in a pooled allocator) and the core has no business vetoing that.
func RegisterDType(dt dtype.DType, fn maker, varianceCapable bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.makers[dt]; exists {
		klog.Warningf("variable: dtype %s re-registered, replacing existing maker", dt)
	}
	registry.makers[dt] = fn
	registry.varianceCapable[dt] = varianceCapable
}

func init() {
	RegisterDType(dtype.Bool, func(n int64) any { return make([]bool, n) }, false)
	RegisterDType(dtype.Int32, func(n int64) any { return make([]int32, n) }, false)
	RegisterDType(dtype.Int64, func(n int64) any { return make([]int64, n) }, false)
	RegisterDType(dtype.Float32, func(n int64) any { return make([]float32, n) }, true)
	RegisterDType(dtype.Float64, func(n int64) any { return make([]float64, n) }, true)
	RegisterDType(dtype.String, func(n int64) any { return make([]string, n) }, false)
	RegisterDType(dtype.Time, func(n int64) any { return make([]dtype.TimeValue, n) }, false)
	RegisterDType(dtype.PairIndex, func(n int64) any { return make([]dtype.IndexRange, n) }, false)
	// Float16, Vector3, Matrix3x3, Quaternion and AffineTransform3 have no
	// generic arithmetic call site in the transform package, so they are
	// allocated purely through reflection off dtype.GoType rather than a
	// hand-written maker -- see reflectMaker.
	for _, dt := range []dtype.DType{dtype.Float16, dtype.Vector3, dtype.Matrix3x3, dtype.Quaternion, dtype.AffineTransform3} {
		RegisterDType(dt, reflectMaker(dt), false)
	}
}

// reflectMaker builds a maker for a dtype from its registered Go type,
// for element types with no hand-written literal slice above.
func reflectMaker(dt dtype.DType) maker {
	t := dt.GoType()
	return func(n int64) any {
		return reflect.MakeSlice(reflect.SliceOf(t), int(n), int(n)).Interface()
	}
}

// buffer is the type-erased, optionally-shared backing store of a dense
// Variable (spec §4.C: "buffer concept"). Several Variable values -- e.g.
// a Variable and a slice taken from it -- may point at the same buffer;
// mu guards the shared flag that decides whether a write must uniquify
// first (copy-on-write, spec §4.C).
type buffer struct {
	mu        sync.Mutex
	id        uuid.UUID // diagnostic only: lets two Variables compare "same storage?" cheaply in logs
	dtype     dtype.DType
	values    any // []T
	variances any // []T, or nil
	length    int64
	shared    bool
}

func newBufferID() uuid.UUID { return uuid.New() }

func newBuffer(dt dtype.DType, length int64, withVariances bool) (*buffer, error) {
	registry.mu.RLock()
	fn, ok := registry.makers[dt]
	capable := registry.varianceCapable[dt]
	registry.mu.RUnlock()
	if !ok {
		return nil, scipperr.NewTypeError("dtype %s is not registered with the factory", dt)
	}
	if withVariances && !capable {
		return nil, scipperr.NewVariancesError("dtype %s cannot carry a variance channel", dt)
	}
	b := &buffer{id: uuid.New(), dtype: dt, values: fn(length), length: length}
	if withVariances {
		b.variances = fn(length)
	}
	return b, nil
}

func (b *buffer) markShared() {
	b.mu.Lock()
	b.shared = true
	b.mu.Unlock()
}

func (b *buffer) isShared() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shared
}

// clone deep-copies the entire buffer (not just any one Variable's view
// onto it), used to uniquify before an in-place write touches shared
// storage.
func (b *buffer) clone() *buffer {
	out := &buffer{id: uuid.New(), dtype: b.dtype, length: b.length}
	out.values = cloneAny(b.values)
	if b.variances != nil {
		out.variances = cloneAny(b.variances)
	}
	return out
}

func cloneAny(v any) any {
	src := reflect.ValueOf(v)
	dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(dst, src)
	return dst.Interface()
}

func (b *buffer) String() string {
	return fmt.Sprintf("buffer{%s, len=%d, shared=%v, id=%s}", b.dtype, b.length, b.shared, b.id)
}

// memoryBytes estimates the buffer's own footprint, values plus variances,
// for Variable.Summary -- the same reflect.Type.Size()*len arithmetic
// variables.go uses to report a checkpoint variable's memory cost.
func (b *buffer) memoryBytes() uint64 {
	elemSize := uint64(b.dtype.GoType().Size())
	n := uint64(b.length)
	bytes := elemSize * n
	if b.variances != nil {
		bytes += elemSize * n
	}
	return bytes
}
