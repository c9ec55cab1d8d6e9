package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPacketAccumulates(t *testing.T) {
	s := New()
	s.RecordPacket(PacketRecord{PacketType: "IR", State: "IR", HeaderLen: 40, CompressedLen: 40})
	s.RecordPacket(PacketRecord{PacketType: "UO-0", State: "SO", HeaderLen: 20, CompressedLen: 1})

	assert.Equal(t, uint64(2), s.TotalPackets)
	assert.Equal(t, uint64(1), s.TotalIRPackets)
	assert.Equal(t, uint64(1), s.TotalSOPackets)
}

func TestLastPacketReturnsMostRecent(t *testing.T) {
	s := New()
	_, ok := s.LastPacket()
	assert.False(t, ok)

	s.RecordPacket(PacketRecord{PacketType: "IR"})
	s.RecordPacket(PacketRecord{PacketType: "UO-0"})
	last, ok := s.LastPacket()
	require.True(t, ok)
	assert.Equal(t, "UO-0", last.PacketType)
}

func TestWindowCapsAtSixteenAndPreservesOrder(t *testing.T) {
	s := New()
	for i := 0; i < 20; i++ {
		s.RecordPacket(PacketRecord{PacketType: "UO-0", HeaderLen: i})
	}
	w := s.Window()
	require.Len(t, w, windowSize)
	assert.Equal(t, 4, w[0].HeaderLen)  // oldest surviving: packet #4
	assert.Equal(t, 19, w[len(w)-1].HeaderLen)
}

func TestMeanCompressionRatio(t *testing.T) {
	s := New()
	assert.Equal(t, 0.0, s.MeanCompressionRatio())
	s.RecordPacket(PacketRecord{HeaderLen: 40, CompressedLen: 4})
	assert.Equal(t, 0.1, s.MeanCompressionRatio())
}
