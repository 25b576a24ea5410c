package dims

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeAndBasics(t *testing.T) {
	d := Make("z", 3, "y", 2, "x", 1)
	assert.Equal(t, 3, d.NDim())
	assert.Equal(t, int64(6), d.Volume())
	assert.True(t, d.Contains(Dim("y")))
	assert.False(t, d.Contains(Dim("w")))
	size, err := d.SizeOf(Dim("y"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)
}

func TestMakeRejectsRepeatedDim(t *testing.T) {
	assert.Panics(t, func() {
		Make("x", 3, "x", 2)
	})
}

func TestMergeSharedDimKeepsPosition(t *testing.T) {
	a := Make("z", 3, "y", 2, "x", 1)
	b := Make("z", 3)
	merged, err := Merge(a, b)
	require.NoError(t, err)
	assert.True(t, merged.Equal(a))
}

func TestMergePlacesNewDimsOutermost(t *testing.T) {
	a := Make("y", 2, "x", 1)
	b := Make("w", 4, "z", 3)
	merged, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, []Dim{"w", "z", "y", "x"}, merged.Dims())
}

func TestMergeLengthMismatch(t *testing.T) {
	a := Make("x", 3)
	b := Make("x", 4)
	_, err := Merge(a, b)
	require.Error(t, err)
}

func TestBroadcastToZeroStrideOnMissingDim(t *testing.T) {
	source := Make("z", 3)
	target := Make("z", 3, "y", 2, "x", 1)
	strides, err := BroadcastTo(source, target)
	require.NoError(t, err)
	assert.Equal(t, Strides{1, 0, 0}, strides)
}

func TestSliceRangeAndPoint(t *testing.T) {
	d := Make("x", 5)
	sliced, err := d.SliceRange("x", 1, 3)
	require.NoError(t, err)
	size, _ := sliced.SizeOf("x")
	assert.Equal(t, int64(2), size)

	pointSliced, err := d.SlicePoint("x", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, pointSliced.NDim())
}

func TestSliceOutOfRange(t *testing.T) {
	d := Make("x", 5)
	_, err := d.SliceRange("x", 1, 10)
	require.Error(t, err)
}

func TestSliceComposesSliceThenSlice(t *testing.T) {
	// Property 9: a.slice(d, i..j).slice(d, k..l) == a.slice(d, i+k..i+l).
	a := Make("x", 10)
	viewA, err := a.SliceRange("x", 2, 8)
	require.NoError(t, err)
	nested, err := viewA.SliceRange("x", 1, 4)
	require.NoError(t, err)
	composed, err := a.SliceRange("x", 3, 6)
	require.NoError(t, err)
	assert.True(t, nested.Equal(composed))
}

func TestTranspose(t *testing.T) {
	d := Make("z", 3, "y", 2, "x", 1)
	tr, err := d.Transpose([]Dim{"x", "z", "y"})
	require.NoError(t, err)
	assert.Equal(t, []Dim{"x", "z", "y"}, tr.Dims())
}

func TestRenamePositional(t *testing.T) {
	d := Make("x", 3, "y", 2)
	renamed, err := d.RenamePositional("x", "x2")
	require.NoError(t, err)
	assert.Equal(t, []Dim{"x2", "y"}, renamed.Dims())
}
