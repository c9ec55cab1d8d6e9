package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRejectsDoubleStart(t *testing.T) {
	p := &Pending{}
	packet := make([]byte, 10)
	_, err := p.Start(packet, 4)
	require.NoError(t, err)

	_, err = p.Start(packet, 4)
	assert.ErrorIs(t, err, ErrAlreadyPending)
}

func TestSegmentationReassemblesToOriginalPlusFCS(t *testing.T) {
	packet := []byte("the quick brown fox jumps over the lazy dog")
	p := &Pending{}

	first, err := p.Start(packet, 8)
	require.NoError(t, err)
	require.True(t, IsSegment(first[0]))
	require.True(t, More(first[0]))

	var reassembled []byte
	reassembled = append(reassembled, first[1:]...)
	for !p.Done() {
		rru, err := p.Next()
		require.NoError(t, err)
		require.True(t, IsSegment(rru[0]))
		reassembled = append(reassembled, rru[1:]...)
	}

	// reassembled = packet + 4-byte FCS-32 trailer
	require.Len(t, reassembled, len(packet)+4)
	assert.Equal(t, packet, reassembled[:len(packet)])
}

func TestFinalRRUHasMoreBitClear(t *testing.T) {
	packet := make([]byte, 20)
	p := &Pending{}
	hdr, err := p.Start(packet, 100)
	require.NoError(t, err)
	assert.False(t, More(hdr[0]), "packet fits in a single RRU")
	assert.True(t, p.Done())
}

func TestNextWithoutPendingErrors(t *testing.T) {
	p := &Pending{}
	_, err := p.Next()
	assert.ErrorIs(t, err, ErrNoPending)
}
