package profile

import (
	"fmt"

	"github.com/packetsmith/rohc/internal/crc"
	"github.com/packetsmith/rohc/internal/ctxtable"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/parser"
)

// uncompressed implements RFC 3095's Uncompressed profile (0x0000): the
// fallback that carries the original header verbatim, used both when no
// other profile matches and when another profile's encode fails.
type uncompressed struct{}

func newUncompressed() Profile { return &uncompressed{} }

func (p *uncompressed) ID() ID { return IDUncompressed }

// Matches always succeeds; it is evaluated last in the registry's fixed
// priority order so every other profile gets first refusal.
func (p *uncompressed) Matches(pkt *parser.Packet) (ctxtable.FlowKey, bool) {
	return flowKeyIP(pkt), true
}

func (p *uncompressed) CheckContext(st *engine.Context, pkt *parser.Packet) bool {
	return ipStaticMatches(&st.Outer, &pkt.Outer)
}

func (p *uncompressed) Create(st *engine.Context, pkt *parser.Packet, hooks Hooks) error {
	snapshotIPField(&st.Outer, &pkt.Outer)
	return nil
}

// Encode writes a 2-byte header (packet type + CRC-8 over the header bytes
// that follow it) ahead of the untouched original header; the payload
// offset is unchanged so the caller appends the original payload as-is.
func (p *uncompressed) Encode(st *engine.Context, pkt *parser.Packet, out []byte, hooks Hooks) (EncodeResult, error) {
	headerBytes := pkt.Raw()[:pkt.PayloadOffset]
	need := 2 + len(headerBytes)
	if need > len(out) {
		return EncodeResult{}, fmt.Errorf("profile: output_too_small: need %d have %d", need, len(out))
	}
	sum := crc.Compute(crc.Width8, headerBytes)
	out[0] = 0xFD // Uncompressed "Normal" packet type octet
	out[1] = sum
	copy(out[2:], headerBytes)

	st.RecordSent(engine.StateIR)
	return EncodeResult{HeaderLen: need, PacketType: engine.PacketIR, PayloadOffset: pkt.PayloadOffset}, nil
}

func (p *uncompressed) Feedback(st *engine.Context, payload []byte) error {
	return applyGenericFeedback(st, payload)
}

func (p *uncompressed) Destroy(st *engine.Context) {}
