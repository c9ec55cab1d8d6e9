package profile

import (
	"fmt"

	"github.com/packetsmith/rohc/internal/ctxtable"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/parser"
)

// udp implements RFC 3095's UDP profile.
type udp struct{}

func newUDP() Profile { return &udp{} }

func (p *udp) ID() ID { return IDUDP }

func (p *udp) Matches(pkt *parser.Packet) (ctxtable.FlowKey, bool) {
	if pkt.Transport != parser.TransportUDP || pkt.UDP == nil {
		return "", false
	}
	return flowKeyUDP(pkt), true
}

func (p *udp) CheckContext(st *engine.Context, pkt *parser.Packet) bool {
	return ipStaticMatches(&st.Outer, &pkt.Outer) && pkt.UDP != nil
}

func (p *udp) Create(st *engine.Context, pkt *parser.Packet, hooks Hooks) error {
	snapshotIPField(&st.Outer, &pkt.Outer)
	if pkt.Inner != nil {
		st.Inner = &engine.IPFieldState{}
		snapshotIPField(st.Inner, pkt.Inner)
	}
	return nil
}

func (p *udp) Encode(st *engine.Context, pkt *parser.Packet, out []byte, hooks Hooks) (EncodeResult, error) {
	return genericEncode(IDUDP, st, pkt, out, udpChains{}, hooks)
}

func (p *udp) Feedback(st *engine.Context, payload []byte) error {
	return applyGenericFeedback(st, payload)
}

func (p *udp) Destroy(st *engine.Context) {}

type udpChains struct{}

func (udpChains) static(pkt *parser.Packet) []byte {
	out := staticChainFor(&pkt.Outer, pkt.Inner)
	out = append(out, udpPortBytes(pkt.UDP)...)
	return out
}

func (udpChains) dynamicFields(st *engine.Context, pkt *parser.Packet) [][]byte {
	fields := dynamicFieldsFor(&pkt.Outer, pkt.Inner)
	return append(fields, []byte{byte(pkt.UDP.Length >> 8), byte(pkt.UDP.Length)})
}

func (udpChains) decision(st *engine.Context, pkt *parser.Packet) engine.Decision {
	return engine.Decision{}
}

func flowKeyUDP(pkt *parser.Packet) ctxtable.FlowKey {
	h := &pkt.Outer
	return ctxtable.FlowKey(fmt.Sprintf("udp:%x>%x:%d>%d", h.Src, h.Dst, pkt.UDP.SrcPort, pkt.UDP.DstPort))
}

func udpPortBytes(u *parser.UDPHeader) []byte {
	return []byte{byte(u.SrcPort >> 8), byte(u.SrcPort), byte(u.DstPort >> 8), byte(u.DstPort)}
}
