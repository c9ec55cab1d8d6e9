package profile

import (
	"fmt"

	"github.com/packetsmith/rohc/internal/ctxtable"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/parser"
)

// ipOnly implements RFC 3843: header compression for bare IP traffic (no
// recognised transport header, or a transport this module doesn't
// specialise for).
type ipOnly struct{}

func newIPOnly() Profile { return &ipOnly{} }

func (p *ipOnly) ID() ID { return IDIP }

func (p *ipOnly) Matches(pkt *parser.Packet) (ctxtable.FlowKey, bool) {
	return flowKeyIP(pkt), true
}

func (p *ipOnly) CheckContext(st *engine.Context, pkt *parser.Packet) bool {
	return ipStaticMatches(&st.Outer, &pkt.Outer)
}

func (p *ipOnly) Create(st *engine.Context, pkt *parser.Packet, hooks Hooks) error {
	snapshotIPField(&st.Outer, &pkt.Outer)
	if pkt.Inner != nil {
		st.Inner = &engine.IPFieldState{}
		snapshotIPField(st.Inner, pkt.Inner)
	}
	return nil
}

func (p *ipOnly) Encode(st *engine.Context, pkt *parser.Packet, out []byte, hooks Hooks) (EncodeResult, error) {
	return genericEncode(IDIP, st, pkt, out, ipChains{}, hooks)
}

func (p *ipOnly) Feedback(st *engine.Context, payload []byte) error {
	return applyGenericFeedback(st, payload)
}

func (p *ipOnly) Destroy(st *engine.Context) {}

type ipChains struct{}

func (ipChains) static(pkt *parser.Packet) []byte {
	return staticChainFor(&pkt.Outer, pkt.Inner)
}

func (ipChains) dynamicFields(st *engine.Context, pkt *parser.Packet) [][]byte {
	return dynamicFieldsFor(&pkt.Outer, pkt.Inner)
}

func (ipChains) decision(st *engine.Context, pkt *parser.Packet) engine.Decision {
	return engine.Decision{}
}

// --- shared IP-chain helpers used by ip.go, udp.go, udplite.go, rtp.go ---

func flowKeyIP(pkt *parser.Packet) ctxtable.FlowKey {
	h := &pkt.Outer
	return ctxtable.FlowKey(fmt.Sprintf("ip:%x>%x/%d", h.Src, h.Dst, h.Protocol))
}

func ipStaticMatches(ctxHdr *engine.IPFieldState, pktHdr *parser.IPHeader) bool {
	return ctxHdr.Version == pktHdr.Version &&
		bytesEqual(ctxHdr.Src, pktHdr.Src) &&
		bytesEqual(ctxHdr.Dst, pktHdr.Dst) &&
		ctxHdr.Protocol == pktHdr.Protocol
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func snapshotIPField(f *engine.IPFieldState, h *parser.IPHeader) {
	f.Version = h.Version
	f.Src = append([]byte(nil), h.Src...)
	f.Dst = append([]byte(nil), h.Dst...)
	f.Protocol = h.Protocol
	f.TOS = h.TOSOrClass
	f.FlowInfo = h.FlowLabel
}

func staticChainFor(outer *parser.IPHeader, inner *parser.IPHeader) []byte {
	out := append([]byte{outer.Version}, outer.Src...)
	out = append(out, outer.Dst...)
	out = append(out, outer.Protocol)
	if inner != nil {
		out = append(out, inner.Version)
		out = append(out, inner.Src...)
		out = append(out, inner.Dst...)
		out = append(out, inner.Protocol)
	}
	return out
}

// dynamicFieldsFor returns the IP dynamic chain broken into individually
// comparable fields (TOS, TTL+DF, and the same pair again for an inner
// header), so genericEncode can count how many changed since the last
// packet instead of only seeing an opaque byte blob.
func dynamicFieldsFor(outer *parser.IPHeader, inner *parser.IPHeader) [][]byte {
	ttlByte := outer.TTLOrHop
	if outer.DF {
		ttlByte |= 0x80 // borrow the high bit of TTL byte slot for DF; TTL < 128 always
	}
	fields := [][]byte{{outer.TOSOrClass}, {ttlByte}}
	if inner != nil {
		fields = append(fields, []byte{inner.TOSOrClass}, []byte{inner.TTLOrHop})
	}
	return fields
}

func applyGenericFeedback(st *engine.Context, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("profile: empty feedback payload")
	}
	ackType := payload[0] >> 6
	switch ackType {
	case 0: // ACK
		st.AckConfidence++
		if st.Mode == engine.ModeU {
			st.Mode = engine.ModeO
		}
	case 1: // NACK
		st.Demote()
		st.AckConfidence = 0
	case 2: // STATIC-NACK
		st.ForceIR()
		st.AckConfidence = 0
	}
	return nil
}
