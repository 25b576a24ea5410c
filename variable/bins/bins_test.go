package bins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/dtype"
	"github.com/jokasimr/scipp/units"
	"github.com/jokasimr/scipp/variable"
)

func makeBinned(t *testing.T) variable.Variable {
	buf := variable.Must(dims.Make("event", 5), units.Counts, []float64{1, 2, 3, 4, 5}, nil)
	idx := variable.Must(dims.Make("bin", 2), units.Dimensionless,
		[]dtype.IndexRange{{Begin: 0, End: 2}, {Begin: 2, End: 5}}, nil)
	binned, err := variable.MakeBins(idx, "event", buf)
	require.NoError(t, err)
	return binned
}

func TestSum(t *testing.T) {
	binned := makeBinned(t)
	out, err := Sum(binned)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 12}, variable.Values[float64](out))
}

func TestConcatenate(t *testing.T) {
	a := makeBinned(t)
	bufB := variable.Must(dims.Make("event", 3), units.Counts, []float64{10, 20, 30}, nil)
	idxB := variable.Must(dims.Make("bin", 2), units.Dimensionless,
		[]dtype.IndexRange{{Begin: 0, End: 1}, {Begin: 1, End: 3}}, nil)
	b, err := variable.MakeBins(idxB, "event", bufB)
	require.NoError(t, err)

	out, err := Concatenate(a, b)
	require.NoError(t, err)
	sums, err := Sum(out)
	require.NoError(t, err)
	// bin0: {1,2} + {10} = 13; bin1: {3,4,5} + {20,30} = 62
	assert.Equal(t, []float64{13, 62}, variable.Values[float64](sums))
}

func TestHistogram1DLinearEdges(t *testing.T) {
	coord := variable.Must(dims.Make("event", 5), units.Meter, []float64{0.5, 1.5, 1.9, 2.5, 9}, nil)
	weight := variable.Must(dims.Make("event", 5), units.Counts, []float64{1, 1, 1, 1, 1}, nil)
	edges := variable.Must(dims.Make("x", 4), units.Meter, []float64{0, 1, 2, 3}, nil)
	out, err := Histogram1D(coord, weight, edges)
	require.NoError(t, err)
	// [0,1): 0.5 -> 1; [1,2): 1.5,1.9 -> 2; [2,3): 2.5 -> 1; 9 out of range.
	assert.Equal(t, []float64{1, 2, 1}, variable.Values[float64](out))
}

func TestHistogram1DNonLinearEdges(t *testing.T) {
	coord := variable.Must(dims.Make("event", 3), units.Meter, []float64{0.5, 2.5, 4.5}, nil)
	weight := variable.Must(dims.Make("event", 3), units.Counts, []float64{1, 1, 1}, nil)
	edges := variable.Must(dims.Make("x", 3), units.Meter, []float64{0, 1, 5}, nil)
	out, err := Histogram1D(coord, weight, edges)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, variable.Values[float64](out))
}

func TestHistogram1DRejectsMismatchedUnits(t *testing.T) {
	coord := variable.Must(dims.Make("event", 1), units.Meter, []float64{1}, nil)
	weight := variable.Must(dims.Make("event", 1), units.Counts, []float64{1}, nil)
	edges := variable.Must(dims.Make("x", 2), units.Second, []float64{0, 1}, nil)
	_, err := Histogram1D(coord, weight, edges)
	require.Error(t, err)
}

func TestPerBinHistogram(t *testing.T) {
	buf := variable.Must(dims.Make("event", 5), units.Meter, []float64{0.5, 1.5, 0.2, 2.5, 2.9}, nil)
	idx := variable.Must(dims.Make("bin", 2), units.Dimensionless,
		[]dtype.IndexRange{{Begin: 0, End: 2}, {Begin: 2, End: 5}}, nil)
	binned, err := variable.MakeBins(idx, "event", buf)
	require.NoError(t, err)

	weight := variable.Must(dims.Make("event", 5), units.Counts, []float64{1, 1, 1, 1, 1}, nil)
	edges := variable.Must(dims.Make("x", 4), units.Meter, []float64{0, 1, 2, 3}, nil)
	out, err := Histogram(binned, weight, edges)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Dims().NDim())
	// bin0 events {0.5,1.5} -> [1,1,0]; bin1 events {0.2,2.5,2.9} -> [1,0,2]
	assert.Equal(t, []float64{1, 1, 0, 1, 0, 2}, variable.Values[float64](out))
}

func TestMap(t *testing.T) {
	edges := variable.Must(dims.Make("x", 4), units.Meter, []float64{0, 1, 2, 3}, nil)
	hist := variable.Must(dims.Make("x", 3), units.Counts, []float64{10, 20, 30}, nil)
	coord := variable.Must(dims.Make("event", 4), units.Meter, []float64{0.5, 1.5, 2.5, 9}, nil)
	out, err := Map(coord, edges, hist)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 0}, variable.Values[float64](out))
}
