// Package stats tracks the running compression counters and the
// last-16-packet rolling windows surfaced through LastPacketInfo and
// GeneralInfo.
package stats

// PacketRecord is the per-packet summary kept in the rolling window.
type PacketRecord struct {
	PacketType   string
	State        string
	Mode         string
	HeaderLen    int
	PayloadLen   int
	CompressedLen int
}

const windowSize = 16

// Stats accumulates aggregate and rolling-window statistics for one
// Compressor handle (shared across all of its contexts) or, when embedded
// per-context, for a single flow.
type Stats struct {
	TotalPackets     uint64
	TotalIRPackets   uint64
	TotalFOPackets   uint64
	TotalSOPackets   uint64
	TotalHeaderBytes uint64
	TotalPayloadBytes uint64
	TotalCompressedBytes uint64
	ContextsCreated  uint64
	ContextsEvicted  uint64
	FeedbackReceived uint64
	SegmentsEmitted  uint64

	window    [windowSize]PacketRecord
	windowLen int
	windowPos int
}

// New returns an empty Stats accumulator.
func New() *Stats {
	return &Stats{}
}

// RecordPacket folds one compressed packet's summary into the aggregate
// counters and the rolling window.
func (s *Stats) RecordPacket(rec PacketRecord) {
	s.TotalPackets++
	s.TotalHeaderBytes += uint64(rec.HeaderLen)
	s.TotalPayloadBytes += uint64(rec.PayloadLen)
	s.TotalCompressedBytes += uint64(rec.CompressedLen)

	switch rec.State {
	case "IR":
		s.TotalIRPackets++
	case "FO":
		s.TotalFOPackets++
	case "SO":
		s.TotalSOPackets++
	}

	s.window[s.windowPos] = rec
	s.windowPos = (s.windowPos + 1) % windowSize
	if s.windowLen < windowSize {
		s.windowLen++
	}
}

// LastPacket returns the most recently recorded packet, or the zero value
// and false if none has been recorded yet.
func (s *Stats) LastPacket() (PacketRecord, bool) {
	if s.windowLen == 0 {
		return PacketRecord{}, false
	}
	idx := (s.windowPos - 1 + windowSize) % windowSize
	return s.window[idx], true
}

// Window returns a copy of the rolling window, oldest first.
func (s *Stats) Window() []PacketRecord {
	out := make([]PacketRecord, s.windowLen)
	start := (s.windowPos - s.windowLen + windowSize) % windowSize
	for i := 0; i < s.windowLen; i++ {
		out[i] = s.window[(start+i)%windowSize]
	}
	return out
}

// MeanCompressionRatio returns TotalCompressedBytes / TotalHeaderBytes, or 0
// if no header bytes have been recorded yet.
func (s *Stats) MeanCompressionRatio() float64 {
	if s.TotalHeaderBytes == 0 {
		return 0
	}
	return float64(s.TotalCompressedBytes) / float64(s.TotalHeaderBytes)
}
