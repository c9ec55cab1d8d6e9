package ctxtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReusesExistingFlow(t *testing.T) {
	tbl := NewTable(3)
	e1, evicted := tbl.Acquire("flow-a", 1, func() any { return "state-a" })
	require.Nil(t, evicted)

	e2, evicted := tbl.Acquire("flow-a", 1, func() any { return "state-a-again" })
	require.Nil(t, evicted)
	assert.Same(t, e1, e2)
	assert.Equal(t, "state-a", e2.State)
}

func TestAcquireFillsFreeSlotsBeforeEvicting(t *testing.T) {
	tbl := NewTable(1) // 2 slots: CID 0 and 1
	a, evicted := tbl.Acquire("a", 1, func() any { return 1 })
	require.Nil(t, evicted)
	b, evicted := tbl.Acquire("b", 1, func() any { return 2 })
	require.Nil(t, evicted)
	assert.NotEqual(t, a.CID, b.CID)
	assert.Equal(t, 2, tbl.Len())
}

func TestAcquireEvictsLeastRecentlyUsed(t *testing.T) {
	tbl := NewTable(1) // 2 slots
	a, _ := tbl.Acquire("a", 1, func() any { return "a" })
	_, _ = tbl.Acquire("b", 1, func() any { return "b" })

	// touch a, so b becomes LRU
	tbl.Lookup("a")

	_, evicted := tbl.Acquire("c", 1, func() any { return "c" })
	require.NotNil(t, evicted)
	assert.Equal(t, FlowKey("b"), evicted.Flow)
	assert.Equal(t, 2, tbl.Len())

	stillThere, ok := tbl.Get(a.CID)
	require.True(t, ok)
	assert.Equal(t, FlowKey("a"), stillThere.Flow)
}

func TestReleaseFreesSlotForReuse(t *testing.T) {
	tbl := NewTable(0) // single slot
	e, _ := tbl.Acquire("a", 1, func() any { return "a" })
	_, err := tbl.Release(e.CID)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())

	_, ok := tbl.Lookup("a")
	assert.False(t, ok)
}

func TestReleaseOutOfRangeErrors(t *testing.T) {
	tbl := NewTable(0)
	_, err := tbl.Release(5)
	assert.Error(t, err)
}
