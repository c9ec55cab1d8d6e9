package rohc

import (
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/profile"
)

// PacketInfo summarises the most recent packet compressed on one context,
// the data backing LastPacketInfo.
type PacketInfo struct {
	CID           uint16
	ProfileID     profile.ID
	PacketType    string
	State         string
	Mode          string
	HeaderLen     int
	PayloadLen    int
	CompressedLen int
}

// GeneralInfo summarises the Compressor as a whole, the data backing
// GeneralInfo method.
type GeneralInfo struct {
	ContextsActive   int
	ContextsCreated  uint64
	ContextsEvicted  uint64
	TotalPackets     uint64
	TotalIRPackets   uint64
	TotalFOPackets   uint64
	TotalSOPackets   uint64
	MeanCompressionRatio float64
	FeedbackQueued   int
	FeedbackAvailBytes int
	EnabledProfiles  []profile.ID
}

// stateString and modeString adapt the engine's internal enums for the
// public info structs without leaking the engine package's types.
func stateString(s engine.State) string { return s.String() }
func modeString(m engine.Mode) string   { return m.String() }
