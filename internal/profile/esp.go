package profile

import (
	"fmt"

	"github.com/packetsmith/rohc/internal/ctxtable"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/parser"
)

// esp is registered with a working discriminator (IP protocol 50, or UDP
// encapsulation per RFC 3095 §5.1) but Create/Encode are not elaborated:
// ESP's encrypted payload and SPI-keyed context identification are out of
// scope for this core.
type esp struct{}

func newESP() Profile { return &esp{} }

func (p *esp) ID() ID { return IDESP }

func (p *esp) Matches(pkt *parser.Packet) (ctxtable.FlowKey, bool) {
	if pkt.Transport == parser.TransportESP {
		return flowKeyIP(pkt), true
	}
	if pkt.Transport == parser.TransportUDP && pkt.UDP != nil && pkt.UDP.DstPort == 4500 {
		return flowKeyUDP(pkt), true
	}
	return "", false
}

func (p *esp) CheckContext(st *engine.Context, pkt *parser.Packet) bool {
	return ipStaticMatches(&st.Outer, &pkt.Outer)
}

func (p *esp) Create(st *engine.Context, pkt *parser.Packet, hooks Hooks) error {
	return ErrNotElaborated
}

func (p *esp) Encode(st *engine.Context, pkt *parser.Packet, out []byte, hooks Hooks) (EncodeResult, error) {
	return EncodeResult{}, ErrNotElaborated
}

func (p *esp) Feedback(st *engine.Context, payload []byte) error {
	return fmt.Errorf("profile: esp: %w", ErrNotElaborated)
}

func (p *esp) Destroy(st *engine.Context) {}
