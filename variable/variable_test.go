package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/dtype"
	"github.com/jokasimr/scipp/units"
)

func TestNewAndAccessors(t *testing.T) {
	d := dims.Make("y", 2, "x", 3)
	v, err := New(d, units.Meter, []float64{1, 2, 3, 4, 5, 6}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), v.Size())
	assert.Equal(t, dtype.Float64, v.DType())
	assert.False(t, v.HasVariances())
	assert.True(t, units.Meter.Equal(v.Unit()))
}

func TestNewRejectsLengthMismatch(t *testing.T) {
	d := dims.Make("x", 3)
	_, err := New(d, units.Dimensionless, []float64{1, 2}, nil)
	require.Error(t, err)
}

func TestNewRejectsVarianceOnNonCapableType(t *testing.T) {
	d := dims.Make("x", 2)
	_, err := New(d, units.Dimensionless, []int32{1, 2}, []int32{1, 2})
	require.Error(t, err)
}

func TestSliceRangeSharesBufferUntilWrite(t *testing.T) {
	d := dims.Make("x", 5)
	v := Must(d, units.Dimensionless, []float64{0, 1, 2, 3, 4}, nil)
	sliced, err := v.SliceRange("x", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sliced.Size())

	mutable := MutableValues[float64](&sliced)
	mutable[0] = 100
	// v's own buffer must be untouched: Uniquify cloned on first write.
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, Values[float64](v))
}

func TestSlicePointDropsDim(t *testing.T) {
	d := dims.Make("y", 2, "x", 3)
	v := Must(d, units.Dimensionless, []float64{1, 2, 3, 4, 5, 6}, nil)
	row, err := v.SlicePoint("y", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, row.Dims().NDim())
	assert.Equal(t, int64(3), row.Size())
}

func TestCopyMaterializesAStridedSliceContiguously(t *testing.T) {
	d := dims.Make("y", 2, "x", 3)
	v := Must(d, units.Second, []float64{1, 2, 3, 4, 5, 6}, nil)
	row, err := v.SlicePoint("y", 1)
	require.NoError(t, err)
	cp, err := row.Copy()
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, Values[float64](cp))
}

func TestBroadcastInsertsZeroStride(t *testing.T) {
	v := Must(dims.Make("y", 2), units.Dimensionless, []float64{1, 2}, nil)
	target := dims.Make("y", 2, "x", 3)
	b, err := v.Broadcast(target)
	require.NoError(t, err)
	assert.Equal(t, int64(6), b.Size())
	cp, err := b.Copy()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 2, 2, 2}, Values[float64](cp))
}

func TestValuesPanicsOnTypeMismatch(t *testing.T) {
	v := Must(dims.Make("x", 2), units.Dimensionless, []float64{1, 2}, nil)
	assert.Panics(t, func() {
		Values[int32](v)
	})
}

func TestVariancesMissingIsNotAPanic(t *testing.T) {
	v := Must(dims.Make("x", 2), units.Dimensionless, []float64{1, 2}, nil)
	_, ok := Variances[float64](v)
	assert.False(t, ok)
}

func TestMakeBinsAndBinSizes(t *testing.T) {
	buf := Must(dims.Make("event", 5), units.Counts, []float64{1, 1, 1, 1, 1}, nil)
	idx := Must(dims.Make("bin", 2), units.Dimensionless,
		[]dtype.IndexRange{{Begin: 0, End: 2}, {Begin: 2, End: 5}}, nil)
	binned, err := MakeBins(idx, "event", buf)
	require.NoError(t, err)
	assert.True(t, binned.IsBinned())

	sizes := BinSizes(binned)
	assert.Equal(t, []int64{2, 3}, Values[int64](sizes))
}

func TestMakeBinsRejectsOutOfRange(t *testing.T) {
	buf := Must(dims.Make("event", 3), units.Counts, []float64{1, 1, 1}, nil)
	idx := Must(dims.Make("bin", 1), units.Dimensionless, []dtype.IndexRange{{Begin: 0, End: 5}}, nil)
	_, err := MakeBins(idx, "event", buf)
	require.Error(t, err)
}

func TestFoldSplitsOneDimIntoSeveral(t *testing.T) {
	v := Must(dims.Make("x", 6), units.Meter, []float64{1, 2, 3, 4, 5, 6}, nil)
	out, err := Fold(v, "x", []dims.Entry{dims.NewEntry("y", 2), dims.NewEntry("z", 3)})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Dims().NDim())
	assert.Equal(t, int64(2), out.Dims().SizeAt(0))
	assert.Equal(t, int64(3), out.Dims().SizeAt(1))
	sliced, err := out.SlicePoint("y", 1)
	require.NoError(t, err)
	cp, err := sliced.Copy()
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, Values[float64](cp))
}

func TestFlattenIsFoldsInverse(t *testing.T) {
	v := Must(dims.Make("y", 2, "z", 3), units.Meter, []float64{1, 2, 3, 4, 5, 6}, nil)
	out, err := Flatten(v, []dims.Dim{"y", "z"}, "x")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Dims().NDim())
	assert.Equal(t, int64(6), out.Dims().SizeAt(0))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, Values[float64](out))
}

func TestFlattenRejectsNonContiguousRun(t *testing.T) {
	v := Must(dims.Make("y", 2, "z", 3), units.Meter, []float64{1, 2, 3, 4, 5, 6}, nil)
	transposed, err := v.Transpose([]dims.Dim{"z", "y"})
	require.NoError(t, err)
	_, err = Flatten(transposed, []dims.Dim{"z", "y"}, "x")
	require.Error(t, err)
}

func TestSummaryReportsElementCountAndMemory(t *testing.T) {
	v := Must(dims.Make("x", 1000), units.Meter, make([]float64, 1000), nil)
	s := v.Summary()
	assert.Contains(t, s, "1,000 elements")
}
