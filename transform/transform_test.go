package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/units"
	"github.com/jokasimr/scipp/variable"
)

func TestAddBroadcasts(t *testing.T) {
	a := variable.Must(dims.Make("y", 2, "x", 3), units.Meter, []float64{1, 2, 3, 4, 5, 6}, nil)
	b := variable.Must(dims.Make("x", 3), units.Meter, []float64{10, 20, 30}, nil)
	out, err := Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 22, 33, 14, 25, 36}, variable.Values[float64](out))
}

func TestAddRejectsMismatchedUnits(t *testing.T) {
	a := variable.Must(dims.Make("x", 2), units.Meter, []float64{1, 2}, nil)
	b := variable.Must(dims.Make("x", 2), units.Second, []float64{1, 2}, nil)
	_, err := Add(a, b)
	require.Error(t, err)
}

func TestMulPropagatesVariance(t *testing.T) {
	a := variable.Must(dims.Make("x", 2), units.Meter, []float64{2, 3}, []float64{0.1, 0.2})
	b := variable.Must(dims.Make("x", 2), units.Second, []float64{4, 5}, []float64{0.3, 0.4})
	out, err := Mul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 15}, variable.Values[float64](out))
	va, _ := variable.Variances[float64](out)
	// Var(a*b) = Va*b^2 + Vb*a^2
	assert.InDelta(t, 0.1*16+0.3*4, va[0], 1e-9)
	assert.InDelta(t, 0.2*25+0.4*9, va[1], 1e-9)
}

func TestMulRejectsMixedVariances(t *testing.T) {
	a := variable.Must(dims.Make("x", 2), units.Meter, []float64{2, 3}, []float64{0.1, 0.2})
	b := variable.Must(dims.Make("x", 2), units.Second, []float64{4, 5}, nil)
	_, err := Mul(a, b)
	require.Error(t, err)
}

func TestMulRejectsCountsTimesCounts(t *testing.T) {
	a := variable.Must(dims.Make("x", 2), units.Counts, []float64{2, 3}, nil)
	b := variable.Must(dims.Make("x", 2), units.Counts, []float64{4, 5}, nil)
	_, err := Mul(a, b)
	require.Error(t, err)
}

func TestSqrtRequiresPerfectSquareUnit(t *testing.T) {
	a := variable.Must(dims.Make("x", 1), units.Meter, []float64{4}, nil)
	_, err := Sqrt(a)
	require.Error(t, err)

	sqm, _ := units.Meter.Mul(units.Meter)
	b := variable.Must(dims.Make("x", 1), sqm, []float64{4}, nil)
	out, err := Sqrt(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, variable.Values[float64](out))
}

func TestExpRequiresDimensionless(t *testing.T) {
	a := variable.Must(dims.Make("x", 1), units.Meter, []float64{1}, nil)
	_, err := Exp(a)
	require.Error(t, err)
}

func TestSumAlongDim(t *testing.T) {
	v := variable.Must(dims.Make("y", 2, "x", 3), units.Counts, []float64{1, 2, 3, 4, 5, 6}, nil)
	out, err := Sum(v, "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 15}, variable.Values[float64](out))
}

func TestSumOuterDim(t *testing.T) {
	v := variable.Must(dims.Make("y", 2, "x", 3), units.Counts, []float64{1, 2, 3, 4, 5, 6}, nil)
	out, err := Sum(v, "y")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7, 9}, variable.Values[float64](out))
}

func TestMean(t *testing.T) {
	v := variable.Must(dims.Make("x", 4), units.Meter, []float64{1, 2, 3, 4}, nil)
	out, err := Mean(v, "x")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, variable.Values[float64](out)[0], 1e-12)
}

func TestEqual(t *testing.T) {
	a := variable.Must(dims.Make("x", 3), units.Meter, []float64{1, 2, 3}, nil)
	b := variable.Must(dims.Make("x", 3), units.Meter, []float64{1, 5, 3}, nil)
	out, err := Equal(a, b)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, variable.Values[bool](out))
}

func TestAddInPlaceDoesNotAffectSibling(t *testing.T) {
	base := variable.Must(dims.Make("x", 4), units.Meter, []float64{1, 2, 3, 4}, nil)
	sliceA, err := base.SliceRange("x", 0, 2)
	require.NoError(t, err)
	sliceB, err := base.SliceRange("x", 2, 4)
	require.NoError(t, err)

	delta := variable.Must(dims.Make("x", 2), units.Meter, []float64{100, 100}, nil)
	require.NoError(t, AddInPlace(&sliceA, delta))

	// Values returns the full backing slice, so read each view through Copy.
	cpA, err := sliceA.Copy()
	require.NoError(t, err)
	cpB, err := sliceB.Copy()
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102}, variable.Values[float64](cpA))
	assert.Equal(t, []float64{3, 4}, variable.Values[float64](cpB))
	assert.Equal(t, []float64{1, 2, 3, 4}, variable.Values[float64](base))
}

func TestScaleInPlace(t *testing.T) {
	v := variable.Must(dims.Make("x", 3), units.Counts, []float64{1, 2, 3}, nil)
	require.NoError(t, ScaleInPlace(&v, 2))
	assert.Equal(t, []float64{2, 4, 6}, variable.Values[float64](v))
}

func TestMulInPlace(t *testing.T) {
	v := variable.Must(dims.Make("x", 2), units.Meter, []float64{2, 3}, nil)
	factor := variable.Must(dims.Make("x", 2), units.Dimensionless, []float64{2, 4}, nil)
	require.NoError(t, MulInPlace(&v, factor))
	assert.Equal(t, []float64{4, 12}, variable.Values[float64](v))
}

func TestMulInPlaceRejectsMixedVariances(t *testing.T) {
	v := variable.Must(dims.Make("x", 2), units.Meter, []float64{2, 3}, []float64{0.1, 0.2})
	factor := variable.Must(dims.Make("x", 2), units.Dimensionless, []float64{2, 4}, nil)
	err := MulInPlace(&v, factor)
	require.Error(t, err)
}

func TestDivInPlace(t *testing.T) {
	v := variable.Must(dims.Make("x", 2), units.Meter, []float64{8, 12}, nil)
	divisor := variable.Must(dims.Make("x", 2), units.Dimensionless, []float64{2, 4}, nil)
	require.NoError(t, DivInPlace(&v, divisor))
	assert.Equal(t, []float64{4, 3}, variable.Values[float64](v))
}
