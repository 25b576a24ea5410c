// Package transform implements the multi-type elementwise dispatch
// engine (spec §4.D) and its reduction counterpart Accumulate (spec
// §4.E): broadcasting, unit and variance propagation, and parallel
// execution chunked along the output's outermost Dim, built on the
// ElementArrayView/ViewIndex primitives of package index.
//
// Every concrete operator (Add, Mul, Sqrt, Sum, ...) in ops.go is a thin,
// per-dtype-switch wrapper around the two generic engines here --
// applyBinary/applyUnary for elementwise ops, Accumulate for reductions
// -- the same separation gomlx's graph package keeps between its
// backend-dispatching Op functions and the single generic executor they
// all funnel through.
package transform

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/multierr"

	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/dtype"
	"github.com/jokasimr/scipp/index"
	"github.com/jokasimr/scipp/internal/workerspool"
	"github.com/jokasimr/scipp/scipperr"
	"github.com/jokasimr/scipp/units"
	"github.com/jokasimr/scipp/variable"
)

// variancePolicy controls whether an operator requires both operands to
// carry variances once either one does (multiplicative ops, spec §4.D)
// or tolerates a missing channel as zero variance (additive ops).
type variancePolicy int

const (
	additive variancePolicy = iota
	multiplicative
)

// broadcastView returns v's ElementArrayView re-expressed against
// target, inserting a zero stride for every Dim of target absent from v
// (spec §4.A/§4.D). Unlike dims.BroadcastTo, which assumes its source is
// laid out row-major, this uses v's actual Strides -- so it is correct
// even when v is itself a transposed or sliced view.
func broadcastView(v variable.Variable, target dims.Dimensions) (index.ElementArrayView, error) {
	own, err := v.View()
	if err != nil {
		return index.ElementArrayView{}, err
	}
	vd := v.Dims()
	strides := make(dims.Strides, target.NDim())
	for i := 0; i < target.NDim(); i++ {
		dim := target.DimAt(i)
		j, ok := vd.IndexOf(dim)
		if !ok {
			strides[i] = 0
			continue
		}
		if vd.SizeAt(j) != target.SizeAt(i) {
			return index.ElementArrayView{}, scipperr.NewDimensionLengthError(dim, target.SizeAt(i), vd.SizeAt(j))
		}
		strides[i] = own.Strides[j]
	}
	return index.NewView(target, strides, own.Base), nil
}

// resolveVariancePolicy decides whether the output should carry
// variances, enforcing spec §4.D's mixing rule: under a multiplicative
// policy, either both operands carry variances or neither does.
func resolveVariancePolicy(a, b variable.Variable, policy variancePolicy) (bool, error) {
	av, bv := a.HasVariances(), b.HasVariances()
	if !av && !bv {
		return false, nil
	}
	if av != bv && policy == multiplicative {
		return false, scipperr.NewVariancesError("cannot combine a Variable with variances and one without under a multiplicative operator")
	}
	return true, nil
}

// forEachChunk splits [0, n) into contiguous chunks and runs fn on each
// concurrently via a workerspool.Pool, the same primitive the teacher
// package uses for CPU-bound fan-out, collecting every error or recovered
// panic with go.uber.org/multierr rather than letting one silently win.
func forEachChunk(n int64, fn func(begin, end int64) error) error {
	if n == 0 {
		return nil
	}
	workers := runtime.NumCPU()
	if int64(workers) > n {
		workers = int(n)
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (n + int64(workers) - 1) / int64(workers)

	pool := workerspool.New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs error
	for begin := int64(0); begin < n; begin += chunkSize {
		end := begin + chunkSize
		if end > n {
			end = n
		}
		b, e := begin, end
		wg.Add(1)
		pool.WaitToStart(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					errs = multierr.Append(errs, fmt.Errorf("transform: chunk [%d, %d): %v", b, e, r))
					mu.Unlock()
				}
			}()
			if err := fn(b, e); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return errs
}

// variancesOf is variable.Variances generalized to T dtype.Number: the
// underlying variance channel only ever exists for float32/float64
// buffers, so this just forwards to variable.Variances at the concrete
// float type and asserts the result back to T -- letting
// applyBinary/applyUnary/Accumulate/runBinaryInPlace stay generic over
// dtype.Number even though variable.Variances itself is generic only
// over dtype.Float.
func variancesOf[T dtype.Number](v variable.Variable) ([]T, bool) {
	switch any(*new(T)).(type) {
	case float32:
		vv, ok := variable.Variances[float32](v)
		return any(vv).([]T), ok
	case float64:
		vv, ok := variable.Variances[float64](v)
		return any(vv).([]T), ok
	default:
		return nil, false
	}
}

// applyBinary is the generic half of the elementwise engine (spec §4.D):
// given preflighted outDims/outUnit/withVariances, it allocates the
// output, broadcasts each input's view to outDims, and runs valueOp (and,
// if withVariances, varOp) over every logical position, chunked in
// parallel along the output's outermost Dim.
func applyBinary[T dtype.Number](a, b variable.Variable, outDims dims.Dimensions, outUnit units.Unit, withVariances bool, valueOp func(a, b T) T, varOp func(a, b, va, vb T) T) (variable.Variable, error) {
	out, err := variable.Zeros(outDims, dtype.Of[T](), outUnit, withVariances)
	if err != nil {
		return variable.Variable{}, err
	}
	aView, err := broadcastView(a, outDims)
	if err != nil {
		return variable.Variable{}, err
	}
	bView, err := broadcastView(b, outDims)
	if err != nil {
		return variable.Variable{}, err
	}
	outView, err := out.View()
	if err != nil {
		return variable.Variable{}, err
	}

	avals, bvals := variable.Values[T](a), variable.Values[T](b)
	ovals := variable.MutableValues[T](&out)
	var avar, bvar, ovar []T
	if withVariances {
		avar, _ = variancesOf[T](a)
		bvar, _ = variancesOf[T](b)
		ovar, _ = variancesOf[T](out)
	}

	step := func(ai, bi, oi *index.ViewIndex) {
		av, bv := avals[ai.Get()], bvals[bi.Get()]
		ovals[oi.Get()] = valueOp(av, bv)
		if withVariances {
			var avv, bvv T
			if avar != nil {
				avv = avar[ai.Get()]
			}
			if bvar != nil {
				bvv = bvar[bi.Get()]
			}
			ovar[oi.Get()] = varOp(av, bv, avv, bvv)
		}
	}

	if outDims.NDim() == 0 {
		// Sub chunks along the outermost axis, which a rank-0 (scalar)
		// view does not have -- run the single element serially instead.
		ai, bi, oi := index.Begin(aView), index.Begin(bView), index.Begin(outView)
		for !oi.Done() {
			step(ai, bi, oi)
			ai.Increment()
			bi.Increment()
			oi.Increment()
		}
		return out, nil
	}

	err = forEachChunk(outDims.SizeAt(0), func(begin, end int64) error {
		ai := index.Begin(index.Sub(aView, begin, end))
		bi := index.Begin(index.Sub(bView, begin, end))
		oi := index.Begin(index.Sub(outView, begin, end))
		for !oi.Done() {
			step(ai, bi, oi)
			ai.Increment()
			bi.Increment()
			oi.Increment()
		}
		return nil
	})
	if err != nil {
		return variable.Variable{}, err
	}
	return out, nil
}

// applyUnary is applyBinary's one-input counterpart (spec §4.D), used by
// Neg, Sqrt, Reciprocal, Exp and Log.
func applyUnary[T dtype.Number](a variable.Variable, outUnit units.Unit, withVariances bool, valueOp func(a T) T, varOp func(a, va T) T) (variable.Variable, error) {
	out, err := variable.Zeros(a.Dims(), dtype.Of[T](), outUnit, withVariances)
	if err != nil {
		return variable.Variable{}, err
	}
	aView, err := a.View()
	if err != nil {
		return variable.Variable{}, err
	}
	outView, err := out.View()
	if err != nil {
		return variable.Variable{}, err
	}

	avals := variable.Values[T](a)
	ovals := variable.MutableValues[T](&out)
	var avar, ovar []T
	if withVariances {
		avar, _ = variancesOf[T](a)
		ovar, _ = variancesOf[T](out)
	}

	step := func(ai, oi *index.ViewIndex) {
		av := avals[ai.Get()]
		ovals[oi.Get()] = valueOp(av)
		if withVariances {
			ovar[oi.Get()] = varOp(av, avar[ai.Get()])
		}
	}

	if a.Dims().NDim() == 0 {
		ai, oi := index.Begin(aView), index.Begin(outView)
		for !oi.Done() {
			step(ai, oi)
			ai.Increment()
			oi.Increment()
		}
		return out, nil
	}

	err = forEachChunk(a.Dims().SizeAt(0), func(begin, end int64) error {
		ai := index.Begin(index.Sub(aView, begin, end))
		oi := index.Begin(index.Sub(outView, begin, end))
		for !oi.Done() {
			step(ai, oi)
			ai.Increment()
			oi.Increment()
		}
		return nil
	})
	if err != nil {
		return variable.Variable{}, err
	}
	return out, nil
}

// Accumulate reduces v along dim using combine, a commutative and
// associative binary op, starting from identity (spec §4.E). Unlike
// applyBinary, it does not propagate units through an operator -- a
// reduction's unit is just v's own unit, unchanged -- and it runs
// single-threaded: safely parallelizing a reduction needs splitting along
// the reduced Dim itself with a partial-then-merge step, which Sum/Mean's
// current call sites do not need.
func Accumulate[T dtype.Number](v variable.Variable, dim dims.Dim, identity T, combine func(acc, x T) T, combineVar func(acc, x T) T) (variable.Variable, error) {
	outDims, err := v.Dims().Erase(dim)
	if err != nil {
		return variable.Variable{}, err
	}
	withVariances := v.HasVariances()
	out, err := variable.Zeros(outDims, dtype.Of[T](), v.Unit(), withVariances)
	if err != nil {
		return variable.Variable{}, err
	}
	ovals := variable.MutableValues[T](&out)
	for i := range ovals {
		ovals[i] = identity
	}
	var ovar []T
	if withVariances {
		ovar, _ = variancesOf[T](out)
	}

	view, err := v.View()
	if err != nil {
		return variable.Variable{}, err
	}
	vvals := variable.Values[T](v)
	var vvar []T
	if withVariances {
		vvar, _ = variancesOf[T](v)
	}

	// outStrides reuses the broadcast trick in reverse: a zero stride on
	// the reduced axis means every value along dim folds into the same
	// output slot.
	axis, _ := v.Dims().IndexOf(dim)
	rowMajorOut := dims.RowMajor(outDims)
	outStrides := make(dims.Strides, v.Dims().NDim())
	oi := 0
	for i := 0; i < v.Dims().NDim(); i++ {
		if i == axis {
			continue
		}
		outStrides[i] = rowMajorOut[oi]
		oi++
	}
	outView := index.NewView(v.Dims(), outStrides, 0)

	vi := index.Begin(view)
	oi2 := index.Begin(outView)
	for !vi.Done() {
		x := vvals[vi.Get()]
		slot := oi2.Get()
		ovals[slot] = combine(ovals[slot], x)
		if withVariances {
			ovar[slot] = combineVar(ovar[slot], vvar[vi.Get()])
		}
		vi.Increment()
		oi2.Increment()
	}
	return out, nil
}
