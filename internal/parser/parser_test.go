package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipv4UDPPacket(t *testing.T, payload []byte) []byte {
	t.Helper()
	udp := make([]byte, 8+len(payload))
	udp[0], udp[1] = 0x1F, 0x90 // src port 8080
	udp[2], udp[3] = 0x00, 0x35 // dst port 53
	udp[4], udp[5] = 0, byte(8 + len(payload))
	copy(udp[8:], payload)

	total := 20 + len(udp)
	ip := make([]byte, total)
	ip[0] = 0x45
	ip[2] = byte(total >> 8)
	ip[3] = byte(total)
	ip[6] = 0x40 // DF set
	ip[8] = 64
	ip[9] = ProtoUDP
	copy(ip[12:16], []byte{10, 0, 0, 1})
	copy(ip[16:20], []byte{10, 0, 0, 2})
	copy(ip[20:], udp)
	return ip
}

func TestParseIPv4UDP(t *testing.T) {
	pkt, err := Parse(ipv4UDPPacket(t, []byte("hello")), nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), pkt.Outer.Version)
	assert.True(t, pkt.Outer.DF)
	require.NotNil(t, pkt.UDP)
	assert.Equal(t, uint16(8080), pkt.UDP.SrcPort)
	assert.Equal(t, uint16(53), pkt.UDP.DstPort)
	assert.Equal(t, TransportUDP, pkt.Transport)
	assert.Equal(t, "hello", string(pkt.Raw()[pkt.PayloadOffset:]))
}

func TestParseDetectsRTP(t *testing.T) {
	rtp := make([]byte, 12+4)
	rtp[0] = 0x80 // version 2
	rtp[1] = 0x00
	buf := ipv4UDPPacket(t, rtp)

	pkt, err := Parse(buf, func(src, dst uint16, payload []byte) bool {
		return dst == 53
	})
	require.NoError(t, err)
	require.NotNil(t, pkt.RTP)
	assert.Equal(t, uint8(2), pkt.RTP.Version)
}

func TestParseRejectsBadVersion(t *testing.T) {
	_, err := Parse([]byte{0x00, 0x00}, nil)
	assert.Error(t, err)
}

func TestParseRejectsTruncatedIPv4(t *testing.T) {
	_, err := Parse(make([]byte, 10), nil)
	assert.Error(t, err)
}

func TestParseRejectsOversizedTotalLength(t *testing.T) {
	buf := ipv4UDPPacket(t, []byte("x"))
	buf[2] = 0xFF
	buf[3] = 0xFF
	_, err := Parse(buf, nil)
	assert.Error(t, err)
}
