package wlsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinBitsGrowsWithDelta(t *testing.T) {
	// SN field: p = -1 per RFC 3095, 16-bit field.
	refs := []int64{100}
	k0, ok := MinBits(101, refs, -1, 16, 16)
	require.True(t, ok)
	k1, ok := MinBits(200, refs, -1, 16, 16)
	require.True(t, ok)
	assert.LessOrEqual(t, k0, k1, "a larger delta should never need fewer bits")
}

func TestMinBitsHandlesWraparound(t *testing.T) {
	// Reference near the top of a 16-bit field, new value wrapped to 0.
	refs := []int64{0xFFFE}
	k, ok := MinBits(0x0000, refs, -1, 16, 16)
	require.True(t, ok)
	assert.LessOrEqual(t, k, uint(16))
}

func TestWindowNewRejectsNonPowerOfTwo(t *testing.T) {
	_, err := NewWindow(-1, 16, 3)
	assert.Error(t, err)
	_, err = NewWindow(-1, 16, 0)
	assert.Error(t, err)
}

func TestWindowAddEvictsOldest(t *testing.T) {
	w, err := NewWindow(-1, 16, 4)
	require.NoError(t, err)
	for i := int64(1); i <= 6; i++ {
		w.Add(i)
	}
	assert.Equal(t, 4, w.Len())
}

func TestWindowMinBitsForEmpty(t *testing.T) {
	w, err := NewWindow(-1, 16, 4)
	require.NoError(t, err)
	k, ok := w.MinBitsFor(42, 16)
	assert.True(t, ok)
	assert.Equal(t, uint(0), k)
}

func TestWindowMinBitsForCoversAllReferences(t *testing.T) {
	w, err := NewWindow(-1, 16, 4)
	require.NoError(t, err)
	w.Add(10)
	w.Add(100)
	k, ok := w.MinBitsFor(101, 16)
	require.True(t, ok)
	// Must cover both the stale reference (10) and the fresh one (100).
	kSingle, _ := MinBits(101, []int64{100}, -1, 16, 16)
	assert.GreaterOrEqual(t, k, kSingle)
}

func TestWindowPurgeKeepsMostRecent(t *testing.T) {
	w, err := NewWindow(-1, 16, 4)
	require.NoError(t, err)
	w.Add(1)
	w.Add(2)
	w.Add(3)
	w.Purge(3)
	assert.Equal(t, 1, w.Len())
}

func TestWindowSetWidthValidation(t *testing.T) {
	w, err := NewWindow(-1, 16, 4)
	require.NoError(t, err)
	assert.Error(t, w.SetWidth(5))
	assert.NoError(t, w.SetWidth(8))
	assert.Equal(t, 8, w.Width())
}
