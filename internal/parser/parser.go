// Package parser walks the IPv4/IPv6/UDP/UDP-Lite/RTP header stack of a raw
// packet and records field offsets and values the profile layer needs,
// without copying the payload.
package parser

import (
	"encoding/binary"
	"fmt"
)

// Protocol numbers this package recognises on the wire.
const (
	ProtoICMP    = 1
	ProtoTCP     = 6
	ProtoUDP     = 17
	ProtoESP     = 50
	ProtoIPIP    = 4
	ProtoIPv6    = 41
	ProtoUDPLite = 136
)

// IPHeader is the subset of an IPv4 or IPv6 header the compressor cares
// about.
type IPHeader struct {
	Version     uint8
	Src         []byte // 4 or 16 bytes
	Dst         []byte
	Protocol    uint8 // next-header / protocol
	TOSOrClass  uint8 // IPv4 TOS or IPv6 traffic class
	TTLOrHop    uint8
	ID          uint16 // IPv4 only
	DF          bool   // IPv4 only
	FlowLabel   uint32 // IPv6 only, 20 bits
	HeaderBytes []byte // the raw header as it appeared on the wire
}

// Transport identifies which transport header (if any) follows the IP
// header(s).
type Transport int

const (
	TransportNone Transport = iota
	TransportUDP
	TransportUDPLite
	TransportTCP
	TransportESP
)

// UDPHeader is the UDP or UDP-Lite header.
type UDPHeader struct {
	SrcPort    uint16
	DstPort    uint16
	Length     uint16
	CoverageOK bool // UDP-Lite: checksum coverage length, not validated here
}

// RTPHeader is the subset of the RTP header the profile needs; presence is
// only a best-effort heuristic since RTP has no protocol number of its own.
type RTPHeader struct {
	Version        uint8
	Padding        bool
	Extension      bool
	CSRCCount      uint8
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
}

// Packet is the result of parsing one raw IP packet.
type Packet struct {
	Outer     IPHeader
	Inner     *IPHeader // non-nil only for IPIP/IPv6-in-IP tunnels
	Transport Transport
	UDP       *UDPHeader
	RTP       *RTPHeader
	// PayloadOffset is the byte offset into the original slice where the
	// transport payload (or RTP payload, if detected) begins.
	PayloadOffset int
	raw           []byte
}

// Raw returns the original byte slice this Packet was parsed from.
func (p *Packet) Raw() []byte { return p.raw }

// ErrMalformed wraps every parse failure; callers match it with errors.Is
// against the sentinel in pkg/rohc/errors.go via the wrapped %w chain.
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("parser: malformed packet: %s", e.Reason)
}

func malformed(format string, args ...any) error {
	return &ErrMalformed{Reason: fmt.Sprintf(format, args...)}
}

// Parse walks buf, which must begin with an IPv4 or IPv6 header. RTP
// detection, if isRTP is non-nil, is consulted only once a UDP header has
// been parsed; it receives the UDP ports and the first bytes of the UDP
// payload.
func Parse(buf []byte, isRTP func(srcPort, dstPort uint16, payload []byte) bool) (*Packet, error) {
	pkt := &Packet{raw: buf}

	outer, consumed, err := parseIPHeader(buf)
	if err != nil {
		return nil, err
	}
	pkt.Outer = *outer
	rest := buf[consumed:]

	// At most one tunnel layer: IPIP or IPv6-in-IP.
	if outer.Protocol == ProtoIPIP || outer.Protocol == ProtoIPv6 {
		inner, innerConsumed, err := parseIPHeader(rest)
		if err != nil {
			return nil, err
		}
		pkt.Inner = inner
		rest = rest[innerConsumed:]
		consumed += innerConsumed
	}

	transportProto := pkt.Outer.Protocol
	if pkt.Inner != nil {
		transportProto = pkt.Inner.Protocol
	}

	switch transportProto {
	case ProtoUDP, ProtoUDPLite:
		udp, udpConsumed, err := parseUDPHeader(rest)
		if err != nil {
			return nil, err
		}
		pkt.UDP = udp
		if transportProto == ProtoUDPLite {
			pkt.Transport = TransportUDPLite
		} else {
			pkt.Transport = TransportUDP
		}
		consumed += udpConsumed
		pkt.PayloadOffset = consumed

		payload := buf[consumed:]
		if isRTP != nil && isRTP(udp.SrcPort, udp.DstPort, payload) {
			rtp, rtpConsumed, err := parseRTPHeader(payload)
			if err == nil {
				pkt.RTP = rtp
				pkt.PayloadOffset += rtpConsumed
			}
		}
	case ProtoTCP:
		pkt.Transport = TransportTCP
		pkt.PayloadOffset = consumed
	case ProtoESP:
		pkt.Transport = TransportESP
		pkt.PayloadOffset = consumed
	default:
		pkt.PayloadOffset = consumed
	}

	return pkt, nil
}

func parseIPHeader(buf []byte) (*IPHeader, int, error) {
	if len(buf) < 1 {
		return nil, 0, malformed("empty buffer")
	}
	version := buf[0] >> 4
	switch version {
	case 4:
		return parseIPv4(buf)
	case 6:
		return parseIPv6(buf)
	default:
		return nil, 0, malformed("unsupported IP version nibble %d", version)
	}
}

func parseIPv4(buf []byte) (*IPHeader, int, error) {
	if len(buf) < 20 {
		return nil, 0, malformed("IPv4 header truncated: %d bytes", len(buf))
	}
	ihl := int(buf[0]&0x0f) * 4
	if ihl < 20 || ihl > len(buf) {
		return nil, 0, malformed("IPv4 IHL %d out of range for %d-byte buffer", ihl, len(buf))
	}
	totalLen := int(binary.BigEndian.Uint16(buf[2:4]))
	if totalLen > len(buf) {
		return nil, 0, malformed("IPv4 total length %d exceeds buffer of %d", totalLen, len(buf))
	}
	flags := buf[6] >> 5
	h := &IPHeader{
		Version:     4,
		TOSOrClass:  buf[1],
		ID:          binary.BigEndian.Uint16(buf[4:6]),
		DF:          flags&0x2 != 0,
		TTLOrHop:    buf[8],
		Protocol:    buf[9],
		Src:         append([]byte(nil), buf[12:16]...),
		Dst:         append([]byte(nil), buf[16:20]...),
		HeaderBytes: append([]byte(nil), buf[:ihl]...),
	}
	return h, ihl, nil
}

func parseIPv6(buf []byte) (*IPHeader, int, error) {
	const fixedLen = 40
	if len(buf) < fixedLen {
		return nil, 0, malformed("IPv6 header truncated: %d bytes", len(buf))
	}
	payloadLen := int(binary.BigEndian.Uint16(buf[4:6]))
	if fixedLen+payloadLen > len(buf) {
		return nil, 0, malformed("IPv6 payload length %d exceeds buffer", payloadLen)
	}
	versionTCFL := binary.BigEndian.Uint32(buf[0:4])
	trafficClass := uint8((versionTCFL >> 20) & 0xff)
	flowLabel := versionTCFL & 0x000fffff

	h := &IPHeader{
		Version:     6,
		TOSOrClass:  trafficClass,
		FlowLabel:   flowLabel,
		Protocol:    buf[6],
		TTLOrHop:    buf[7],
		Src:         append([]byte(nil), buf[8:24]...),
		Dst:         append([]byte(nil), buf[24:40]...),
		HeaderBytes: append([]byte(nil), buf[:fixedLen]...),
	}

	consumed := fixedLen
	nextHeader := h.Protocol
	// Walk extension headers only far enough to find the true upper-layer
	// protocol; their contents are not otherwise compressed (non-goal).
	for isIPv6ExtHeader(nextHeader) {
		if consumed+2 > len(buf) {
			return nil, 0, malformed("IPv6 extension header chain escapes buffer")
		}
		nextHeader = buf[consumed]
		extLen := (int(buf[consumed+1]) + 1) * 8
		if consumed+extLen > len(buf) {
			return nil, 0, malformed("IPv6 extension header length escapes buffer")
		}
		consumed += extLen
	}
	h.Protocol = nextHeader
	return h, consumed, nil
}

func isIPv6ExtHeader(proto uint8) bool {
	switch proto {
	case 0, 43, 44, 60:
		return true
	default:
		return false
	}
}

func parseUDPHeader(buf []byte) (*UDPHeader, int, error) {
	if len(buf) < 8 {
		return nil, 0, malformed("UDP header truncated: %d bytes", len(buf))
	}
	return &UDPHeader{
		SrcPort: binary.BigEndian.Uint16(buf[0:2]),
		DstPort: binary.BigEndian.Uint16(buf[2:4]),
		Length:  binary.BigEndian.Uint16(buf[4:6]),
	}, 8, nil
}

func parseRTPHeader(buf []byte) (*RTPHeader, int, error) {
	if len(buf) < 12 {
		return nil, 0, malformed("RTP header truncated: %d bytes", len(buf))
	}
	version := buf[0] >> 6
	if version != 2 {
		return nil, 0, malformed("RTP version %d not 2", version)
	}
	csrcCount := buf[0] & 0x0f
	headerLen := 12 + int(csrcCount)*4
	if headerLen > len(buf) {
		return nil, 0, malformed("RTP CSRC list escapes buffer")
	}
	return &RTPHeader{
		Version:        version,
		Padding:        buf[0]&0x20 != 0,
		Extension:      buf[0]&0x10 != 0,
		CSRCCount:      csrcCount,
		Marker:         buf[1]&0x80 != 0,
		PayloadType:    buf[1] & 0x7f,
		SequenceNumber: binary.BigEndian.Uint16(buf[2:4]),
		Timestamp:      binary.BigEndian.Uint32(buf[4:8]),
		SSRC:           binary.BigEndian.Uint32(buf[8:12]),
	}, headerLen, nil
}
