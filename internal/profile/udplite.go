package profile

import (
	"github.com/packetsmith/rohc/internal/ctxtable"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/parser"
)

// udpLite implements RFC 4019's UDP-Lite profile: identical to UDP except
// the checksum coverage length is carried in the dynamic chain instead of
// the payload length.
type udpLite struct{}

func newUDPLite() Profile { return &udpLite{} }

func (p *udpLite) ID() ID { return IDUDPLite }

func (p *udpLite) Matches(pkt *parser.Packet) (ctxtable.FlowKey, bool) {
	if pkt.Transport != parser.TransportUDPLite || pkt.UDP == nil {
		return "", false
	}
	return ctxtable.FlowKey("udplite:" + string(flowKeyUDP(pkt))), true
}

func (p *udpLite) CheckContext(st *engine.Context, pkt *parser.Packet) bool {
	return ipStaticMatches(&st.Outer, &pkt.Outer) && pkt.UDP != nil
}

func (p *udpLite) Create(st *engine.Context, pkt *parser.Packet, hooks Hooks) error {
	snapshotIPField(&st.Outer, &pkt.Outer)
	if pkt.Inner != nil {
		st.Inner = &engine.IPFieldState{}
		snapshotIPField(st.Inner, pkt.Inner)
	}
	return nil
}

func (p *udpLite) Encode(st *engine.Context, pkt *parser.Packet, out []byte, hooks Hooks) (EncodeResult, error) {
	return genericEncode(IDUDPLite, st, pkt, out, udpLiteChains{}, hooks)
}

func (p *udpLite) Feedback(st *engine.Context, payload []byte) error {
	return applyGenericFeedback(st, payload)
}

func (p *udpLite) Destroy(st *engine.Context) {}

type udpLiteChains struct{}

func (udpLiteChains) static(pkt *parser.Packet) []byte {
	out := staticChainFor(&pkt.Outer, pkt.Inner)
	out = append(out, udpPortBytes(pkt.UDP)...)
	return out
}

func (udpLiteChains) dynamicFields(st *engine.Context, pkt *parser.Packet) [][]byte {
	fields := dynamicFieldsFor(&pkt.Outer, pkt.Inner)
	// Checksum coverage length stands in for UDP's payload length field;
	// CoverageOK is not modelled bit-exact here (non-goal: partial
	// checksum verification is a decompressor concern).
	return append(fields, []byte{byte(pkt.UDP.Length >> 8), byte(pkt.UDP.Length)})
}

func (udpLiteChains) decision(st *engine.Context, pkt *parser.Packet) engine.Decision {
	return engine.Decision{}
}
