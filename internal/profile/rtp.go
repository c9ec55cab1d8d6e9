package profile

import (
	"fmt"

	"github.com/packetsmith/rohc/internal/ctxtable"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/parser"
	"github.com/packetsmith/rohc/internal/tsscaled"
)

// rtp is the RTP/UDP/IP profile. Which UDP flows count as RTP is decided
// before matching, by the parser consulting the Compressor's RTP port list
// or its detection callback (AddRTPPort, SetRTPDetectFunc in pkg/rohc).
type rtp struct{}

func newRTP() Profile { return &rtp{} }

func (p *rtp) ID() ID { return IDRTP }

// Matches requires a UDP packet whose payload was already recognised as
// RTP by the parser (which itself consulted the port list / callback). An
// existing RTP context for the same flow does not make a packet match: a
// packet the parser did not recognise as RTP never matches.
func (p *rtp) Matches(pkt *parser.Packet) (ctxtable.FlowKey, bool) {
	if pkt.Transport != parser.TransportUDP || pkt.UDP == nil || pkt.RTP == nil {
		return "", false
	}
	return ctxtable.FlowKey("rtp:" + string(flowKeyUDP(pkt))), true
}

func (p *rtp) CheckContext(st *engine.Context, pkt *parser.Packet) bool {
	return ipStaticMatches(&st.Outer, &pkt.Outer) && pkt.UDP != nil && pkt.RTP != nil
}

func (p *rtp) Create(st *engine.Context, pkt *parser.Packet, hooks Hooks) error {
	snapshotIPField(&st.Outer, &pkt.Outer)
	if pkt.Inner != nil {
		st.Inner = &engine.IPFieldState{}
		snapshotIPField(st.Inner, pkt.Inner)
	}
	st.TS = tsscaled.NewState()
	if hooks.Random != nil {
		st.SN = hooks.Random() & 0xffff
	}
	return nil
}

func (p *rtp) Encode(st *engine.Context, pkt *parser.Packet, out []byte, hooks Hooks) (EncodeResult, error) {
	if pkt.RTP == nil {
		return EncodeResult{}, fmt.Errorf("profile: rtp encode called without an RTP header")
	}
	st.TS.Observe(pkt.RTP.Timestamp, st.OARepetitionsNr)
	return genericEncode(IDRTP, st, pkt, out, rtpChains{}, hooks)
}

func (p *rtp) Feedback(st *engine.Context, payload []byte) error {
	return applyGenericFeedback(st, payload)
}

func (p *rtp) Destroy(st *engine.Context) {}

type rtpChains struct{}

func (rtpChains) static(pkt *parser.Packet) []byte {
	out := staticChainFor(&pkt.Outer, pkt.Inner)
	out = append(out, udpPortBytes(pkt.UDP)...)
	ssrc := pkt.RTP.SSRC
	out = append(out, byte(ssrc>>24), byte(ssrc>>16), byte(ssrc>>8), byte(ssrc))
	out = append(out, pkt.RTP.PayloadType)
	return out
}

func (rtpChains) dynamicFields(st *engine.Context, pkt *parser.Packet) [][]byte {
	fields := dynamicFieldsFor(&pkt.Outer, pkt.Inner)
	ts := pkt.RTP.Timestamp
	marker := byte(0)
	if pkt.RTP.Marker {
		marker = 1
	}
	return append(fields, []byte{byte(ts >> 24), byte(ts >> 16), byte(ts >> 8), byte(ts)}, []byte{marker})
}

func (rtpChains) decision(st *engine.Context, pkt *parser.Packet) engine.Decision {
	d := engine.Decision{IsRTP: true}
	if st.TS != nil {
		d.TSStable = st.TS.Stable()
		if n := len(st.PrevDynamic); d.TSStable && n >= 2 && len(st.PrevDynamic[n-2]) == 4 {
			prev := st.PrevDynamic[n-2]
			prevTS := uint32(prev[0])<<24 | uint32(prev[1])<<16 | uint32(prev[2])<<8 | uint32(prev[3])
			d.TSChanging = pkt.RTP.Timestamp != prevTS
		}
	}
	if pkt.RTP != nil {
		d.MarkerSet = pkt.RTP.Marker
	}
	return d
}
