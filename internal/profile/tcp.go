package profile

import (
	"fmt"

	"github.com/packetsmith/rohc/internal/ctxtable"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/parser"
)

// tcp is registered with a working discriminator (IP protocol 6) but
// Create/Encode are not elaborated: the RFC 6846 TCP profile's window and
// option-list compression is a distinct, much larger specification that is
// out of scope here.
type tcp struct{}

func newTCP() Profile { return &tcp{} }

func (p *tcp) ID() ID { return IDTCP }

func (p *tcp) Matches(pkt *parser.Packet) (ctxtable.FlowKey, bool) {
	if pkt.Transport != parser.TransportTCP {
		return "", false
	}
	return flowKeyIP(pkt), true
}

func (p *tcp) CheckContext(st *engine.Context, pkt *parser.Packet) bool {
	return ipStaticMatches(&st.Outer, &pkt.Outer)
}

func (p *tcp) Create(st *engine.Context, pkt *parser.Packet, hooks Hooks) error {
	return ErrNotElaborated
}

func (p *tcp) Encode(st *engine.Context, pkt *parser.Packet, out []byte, hooks Hooks) (EncodeResult, error) {
	return EncodeResult{}, ErrNotElaborated
}

func (p *tcp) Feedback(st *engine.Context, payload []byte) error {
	return fmt.Errorf("profile: tcp: %w", ErrNotElaborated)
}

func (p *tcp) Destroy(st *engine.Context) {}
