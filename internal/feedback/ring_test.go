package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPiggybackRejectsWhenFull(t *testing.T) {
	r := NewRing(2)
	require.NoError(t, r.Piggyback([]byte{1}))
	require.NoError(t, r.Piggyback([]byte{2}))
	assert.ErrorIs(t, r.Piggyback([]byte{3}), ErrQueueFull)
}

func TestDrainRespectsBudget(t *testing.T) {
	r := NewRing(4)
	require.NoError(t, r.Piggyback([]byte{1, 2, 3}))
	require.NoError(t, r.Piggyback([]byte{4, 5}))

	out := r.Drain(nil, 4)
	// header(1) + 3 bytes = 4, exactly the budget; the second frame must
	// not be emitted.
	assert.Equal(t, []byte{0xF0 | 3, 1, 2, 3}, out)
}

func TestCommitFreesDrainedSlots(t *testing.T) {
	r := NewRing(2)
	require.NoError(t, r.Piggyback([]byte{1}))
	out := r.Drain(nil, 100)
	require.NotEmpty(t, out)
	r.Commit()
	assert.Equal(t, 0, r.Count())
	assert.False(t, r.Full())
}

func TestRollbackRequeuesDrainedSlots(t *testing.T) {
	r := NewRing(2)
	require.NoError(t, r.Piggyback([]byte{1, 2}))
	first := r.Drain(nil, 100)
	require.NotEmpty(t, first)
	r.Rollback()
	assert.Equal(t, 1, r.Count())

	second := r.Drain(nil, 100)
	assert.Equal(t, first, second)
}

func TestAvailBytesIncludesHeaderlessPayload(t *testing.T) {
	r := NewRing(2)
	require.NoError(t, r.Piggyback([]byte{1, 2, 3}))
	require.NoError(t, r.Piggyback([]byte{4}))
	assert.Equal(t, 4, r.AvailBytes())
}

func TestDrainSkipsAlreadyLockedFrames(t *testing.T) {
	r := NewRing(3)
	require.NoError(t, r.Piggyback([]byte{1}))
	require.NoError(t, r.Piggyback([]byte{2}))
	first := r.Drain(nil, 2) // only room for one framed byte-sized entry
	require.NotEmpty(t, first)

	second := r.Drain(nil, 100)
	assert.NotContains(t, second, byte(1))
}
