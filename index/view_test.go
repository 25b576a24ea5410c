package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokasimr/scipp/dims"
)

func TestContiguousIteration(t *testing.T) {
	d := dims.Make("y", 2, "x", 3)
	view := NewView(d, dims.RowMajor(d), 0)
	assert.True(t, view.IsContiguous())

	var offsets []int64
	for vi := Begin(view); !vi.Done(); vi.Increment() {
		offsets = append(offsets, vi.Get())
	}
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, offsets)
}

func TestBroadcastIteration(t *testing.T) {
	source := dims.Make("y", 2)
	target := dims.Make("y", 2, "x", 3)
	strides, err := dims.BroadcastTo(source, target)
	require.NoError(t, err)
	view := NewView(target, strides, 0)
	assert.False(t, view.IsContiguous())

	var offsets []int64
	for vi := Begin(view); !vi.Done(); vi.Increment() {
		offsets = append(offsets, vi.Get())
	}
	assert.Equal(t, []int64{0, 0, 0, 1, 1, 1}, offsets)
}

func TestSeekMatchesIncrement(t *testing.T) {
	d := dims.Make("z", 2, "y", 2, "x", 2)
	view := NewView(d, dims.RowMajor(d), 0)

	viaIncrement := Begin(view)
	for i := int64(0); i < view.Len(); i++ {
		seeked := Begin(view)
		seeked.Seek(i)
		assert.Equal(t, viaIncrement.Get(), seeked.Get(), "ordinal %d", i)
		viaIncrement.Increment()
	}
}

func TestSubChunk(t *testing.T) {
	d := dims.Make("x", 6)
	view := NewView(d, dims.RowMajor(d), 0)
	chunk := Sub(view, 2, 4)
	assert.Equal(t, int64(2), chunk.Len())

	vi := Begin(chunk)
	assert.Equal(t, int64(2), vi.Get())
	vi.Increment()
	assert.Equal(t, int64(3), vi.Get())
}

func TestEndSentinelEqual(t *testing.T) {
	d := dims.Make("x", 3)
	view := NewView(d, dims.RowMajor(d), 0)
	vi := Begin(view)
	for !vi.Done() {
		vi.Increment()
	}
	assert.True(t, vi.Equal(End(view)))
}
