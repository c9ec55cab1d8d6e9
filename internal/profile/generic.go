package profile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/packetsmith/rohc/internal/crc"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/ipid"
	"github.com/packetsmith/rohc/internal/parser"
	"github.com/packetsmith/rohc/internal/sdvl"
	"github.com/packetsmith/rohc/internal/wlsb"
)

// chains is what a concrete profile contributes to the generic IR/IR-DYN/UO
// encoder: the bytes that are specific to its header stack.
type chains interface {
	// static returns the profile's static chain (fields that never change
	// for the life of the context): addresses, protocol numbers, ports.
	static(pkt *parser.Packet) []byte
	// dynamicFields returns the profile's dynamic chain (fields that
	// change occasionally and are carried in full in IR/IR-DYN) broken
	// into individually-comparable fields, so genericEncode can count how
	// many changed since the last packet (send_dynamic, spec.md §4.5).
	dynamicFields(st *engine.Context, pkt *parser.Packet) [][]byte
	// decision fills in the profile-specific parts of an engine.Decision
	// (IsRTP, TSStable, ...); SN/IP-ID bits are filled generically.
	decision(st *engine.Context, pkt *parser.Packet) engine.Decision
}

// concatFields flattens a dynamicFields result into the single byte chain
// IR/IR-DYN actually carries on the wire.
func concatFields(fields [][]byte) []byte {
	var out []byte
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}

// countChangedFields compares this packet's dynamic fields against the
// last packet's, returning how many differ. A nil prev (no prior
// observation yet, or the field layout changed, e.g. an inner header
// appeared) counts every field as changed, erring toward a stronger packet
// type rather than silently under-reporting a change.
func countChangedFields(prev, curr [][]byte) int {
	if prev == nil || len(prev) != len(curr) {
		return len(curr)
	}
	n := 0
	for i := range curr {
		if !bytes.Equal(prev[i], curr[i]) {
			n++
		}
	}
	return n
}

// snapshotFields deep-copies fields so they survive past the caller's
// packet buffer being reused or released on the next Compress call.
func snapshotFields(fields [][]byte) [][]byte {
	out := make([][]byte, len(fields))
	for i, f := range fields {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// genericEncode implements the IR / IR-DYN / UO-family encoder shared by
// every header-compressing profile. It never reads the system clock or
// performs I/O; out must have enough capacity or it returns
// output_too_small via a plain error (the caller translates to the public
// sentinel).
func genericEncode(id ID, st *engine.Context, pkt *parser.Packet, out []byte, c chains, hooks Hooks) (EncodeResult, error) {
	newSN := st.SN + 1

	k, ok := st.SNWindow.MinBitsFor(int64(newSN), 13)
	if !ok {
		k = 13
	}

	staticBytes := c.static(pkt)
	dynFields := c.dynamicFields(st, pkt)
	dynBytes := concatFields(dynFields)

	d := c.decision(st, pkt)
	d.SNBits = int(k)
	d.OuterSIDStable = st.Outer.SIDCount >= st.OARepetitionsNr
	d.OuterIPv4 = st.Outer.Version == 4
	d.OuterIPIDBits = outerIPIDBits(st, pkt)
	d.SendStatic = st.PrevStatic != nil && !bytes.Equal(st.PrevStatic, staticBytes)
	d.SendDynamic = countChangedFields(st.PrevDynamic, dynFields)
	if st.Inner != nil {
		d.TwoIPHeaders = true
		d.InnerIPv4 = st.Inner.Version == 4
		d.InnerSIDStable = st.Inner.SIDCount >= st.OARepetitionsNr
		d.InnerIPIDBits = innerIPIDBits(st, pkt)
	} else {
		d.InnerIPIDBits = -1
	}

	var pt engine.PacketType
	switch st.State {
	case engine.StateIR:
		pt = engine.PacketIR
	case engine.StateFO:
		pt = engine.ChooseFO(d)
	case engine.StateSO:
		pt = engine.ChooseSO(d)
		if pt == engine.PacketUO1 || pt == engine.PacketUO1ID {
			pt = engine.ChooseUO1(d)
			if pt == engine.PacketUO1ID && !d.IsRTP {
				pt = engine.PacketUO1
			}
		}
	}

	var hdr []byte
	switch pt {
	case engine.PacketIR:
		hdr = encodeIR(id, newSN, staticBytes, dynBytes)
	case engine.PacketIRDyn:
		hdr = encodeIRDyn(id, newSN, dynBytes)
	case engine.PacketUOR2, engine.PacketUOR2ID, engine.PacketUOR2TS:
		hdr = encodeUOR2(pt, newSN, k)
	case engine.PacketUO1, engine.PacketUO1ID, engine.PacketUO1TS:
		hdr = encodeUO1(pt, newSN, k, d.OuterIPIDBits)
	case engine.PacketUO0:
		hdr = encodeUO0(newSN, k)
	default:
		return EncodeResult{}, fmt.Errorf("profile: unhandled packet type %s", pt)
	}

	if len(hdr) > len(out) {
		return EncodeResult{}, fmt.Errorf("profile: output_too_small: need %d have %d", len(hdr), len(out))
	}
	copy(out, hdr)

	st.SN = newSN
	st.SNWindow.Add(int64(newSN))
	updateIPIDCounters(st, pkt)
	st.PrevStatic = append([]byte(nil), staticBytes...)
	st.PrevDynamic = snapshotFields(dynFields)
	stateForCounters := engine.StateSO
	switch pt {
	case engine.PacketIR:
		stateForCounters = engine.StateIR
	case engine.PacketIRDyn, engine.PacketUOR2, engine.PacketUOR2ID, engine.PacketUOR2TS:
		stateForCounters = engine.StateFO
	}
	st.RecordSent(stateForCounters)

	return EncodeResult{HeaderLen: len(hdr), PacketType: pt, PayloadOffset: pkt.PayloadOffset}, nil
}

func outerIPIDBits(st *engine.Context, pkt *parser.Packet) int {
	if st.Outer.Version != 4 || !ipid.Eligible(st.Outer.NBOCount, st.Outer.RNDCount, st.OARepetitionsNr) {
		return -1
	}
	offset := ipid.Offset(pkt.Outer.ID, uint16(st.SN+1))
	win := idWindow(&st.Outer, st.SNWindow.Width())
	k, ok := win.MinBitsFor(int64(offset), 16)
	if !ok {
		return 16
	}
	return int(k)
}

func innerIPIDBits(st *engine.Context, pkt *parser.Packet) int {
	if st.Inner == nil || st.Inner.Version != 4 || pkt.Inner == nil {
		return -1
	}
	if !ipid.Eligible(st.Inner.NBOCount, st.Inner.RNDCount, st.OARepetitionsNr) {
		return -1
	}
	offset := ipid.Offset(pkt.Inner.ID, uint16(st.SN+1))
	win := idWindow(st.Inner, st.SNWindow.Width())
	k, ok := win.MinBitsFor(int64(offset), 16)
	if !ok {
		return 16
	}
	return int(k)
}

// idWindow lazily creates the per-field IP-ID offset window: it can't be
// built in NewContext since IPFieldState.Inner is only allocated once a
// profile learns it is carrying two IP headers.
func idWindow(f *engine.IPFieldState, width int) *wlsb.Window {
	if f.IDWindow == nil {
		f.IDWindow, _ = wlsb.NewWindow(0, 16, width)
	}
	return f.IDWindow
}

func updateIPIDCounters(st *engine.Context, pkt *parser.Packet) {
	updateIPIDField(&st.Outer, pkt.Outer.ID, pkt.Outer.Version, st.OARepetitionsNr)
	if st.Outer.Version == 4 {
		idWindow(&st.Outer, st.SNWindow.Width()).Add(int64(ipid.Offset(pkt.Outer.ID, uint16(st.SN))))
	}
	if st.Inner != nil && pkt.Inner != nil {
		updateIPIDField(st.Inner, pkt.Inner.ID, pkt.Inner.Version, st.OARepetitionsNr)
		if st.Inner.Version == 4 {
			idWindow(st.Inner, st.SNWindow.Width()).Add(int64(ipid.Offset(pkt.Inner.ID, uint16(st.SN))))
		}
	}
}

// saturate caps a stability counter at oaRepetitionsNr: the only thing
// these counters are ever compared against, so nothing is lost by not
// counting further (§3 data model).
func saturate(n, oaRepetitionsNr int) int {
	if n > oaRepetitionsNr {
		return oaRepetitionsNr
	}
	return n
}

func updateIPIDField(f *engine.IPFieldState, id uint16, version uint8, oaRepetitionsNr int) {
	if version != 4 {
		return
	}
	if f.HaveID {
		if id == f.LastID {
			f.SIDCount = saturate(f.SIDCount+1, oaRepetitionsNr)
		} else {
			f.SIDCount = 0
		}
		if ipid.IsRandom(f.LastID, id) {
			f.RNDCount = saturate(f.RNDCount+1, oaRepetitionsNr)
		} else {
			f.RNDCount = 0
		}
		if ipid.IsNetworkByteOrder(f.LastID, id) {
			f.NBOCount = saturate(f.NBOCount+1, oaRepetitionsNr)
		} else {
			f.NBOCount = 0
		}
	}
	f.LastID = id
	f.HaveID = true
}

// encodeIR writes a full IR packet: type octet, CRC-8 over everything that
// follows it, profile id (SDVL), 16-bit SN, static chain, dynamic chain.
func encodeIR(id ID, sn uint32, static, dynamic []byte) []byte {
	body := make([]byte, 0, 4+len(static)+len(dynamic))
	body = append(body, encodeProfileID(id)...)
	snBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(snBytes, uint16(sn))
	body = append(body, snBytes...)
	body = append(body, static...)
	body = append(body, dynamic...)

	sum := crc.Compute(crc.Width8, body)

	out := make([]byte, 0, len(body)+2)
	out = append(out, 0xFC) // IR packet type octet (top bits 1111110)
	out = append(out, sum)
	out = append(out, body...)
	return out
}

// encodeIRDyn mirrors encodeIR but omits the static chain: the context
// already knows the static fields.
func encodeIRDyn(id ID, sn uint32, dynamic []byte) []byte {
	body := make([]byte, 0, 4+len(dynamic))
	body = append(body, encodeProfileID(id)...)
	snBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(snBytes, uint16(sn))
	body = append(body, snBytes...)
	body = append(body, dynamic...)

	sum := crc.Compute(crc.Width8, body)

	out := make([]byte, 0, len(body)+2)
	out = append(out, 0xF8) // IR-DYN packet type octet
	out = append(out, sum)
	out = append(out, body...)
	return out
}

func encodeProfileID(id ID) []byte {
	b, _ := sdvl.Encode(nil, uint32(id))
	return b
}

// encodeUOR2 writes a UOR-2-family packet: type octet carrying the variant,
// LSB-encoded SN, CRC-7.
func encodeUOR2(pt interface{ String() string }, sn uint32, k uint) []byte {
	lsb := lowBits(sn, k)
	sum := crc.Compute(crc.Width7, append([]byte{byte(k)}, lsb...))
	out := make([]byte, 0, 2+len(lsb))
	out = append(out, uorTypeOctet(pt))
	out = append(out, lsb...)
	out = append(out, sum)
	return out
}

func uorTypeOctet(pt interface{ String() string }) byte {
	switch pt.String() {
	case "UOR-2-ID":
		return 0xC1
	case "UOR-2-TS":
		return 0xC2
	default:
		return 0xC0
	}
}

// encodeUO1 writes a UO-1-family packet: a type octet naming the variant
// (UO-1, UO-1-ID or UO-1-TS), the SN LSBs, and a CRC-3 over them. No IP-ID
// or scaled-timestamp bits are written for any variant; ipidBits is unused.
func encodeUO1(pt engine.PacketType, sn uint32, k uint, ipidBits int) []byte {
	lsb := lowBits(sn, k)
	sum := crc.Compute(crc.Width3, lsb)
	out := make([]byte, 0, 2+len(lsb))
	switch pt {
	case engine.PacketUO1ID:
		out = append(out, 0xA1)
	case engine.PacketUO1TS:
		out = append(out, 0xA2)
	default:
		out = append(out, 0xA0)
	}
	out = append(out, lsb...)
	out = append(out, sum)
	return out
}

// encodeUO0 writes the smallest packet type: a 1-byte header of a 0 marker
// bit, 4 SN bits, and a 3-bit CRC.
func encodeUO0(sn uint32, k uint) []byte {
	snBits := uint8(sn) & 0x0f
	sum := crc.Compute(crc.Width3, []byte{snBits})
	return []byte{snBits<<3 | (sum & 0x07)}
}

func lowBits(v uint32, k uint) []byte {
	nbytes := int(k+7) / 8
	if nbytes == 0 {
		nbytes = 1
	}
	out := make([]byte, nbytes)
	mask := uint32(1)<<k - 1
	if k >= 32 {
		mask = ^uint32(0)
	}
	masked := v & mask
	for i := nbytes - 1; i >= 0; i-- {
		out[i] = byte(masked)
		masked >>= 8
	}
	return out
}
