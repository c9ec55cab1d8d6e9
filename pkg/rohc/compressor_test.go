package rohc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetsmith/rohc/internal/crc"
	"github.com/packetsmith/rohc/internal/profile"
	"github.com/packetsmith/rohc/internal/segment"
)

// ipv4UDPPacket builds a raw IPv4/UDP packet with a configurable
// Identification field, mirroring the helper internal/profile's tests use.
func ipv4UDPPacket(id uint16, srcPort, dstPort uint16, payload []byte) []byte {
	udpHdr := make([]byte, 8+len(payload))
	udpHdr[0], udpHdr[1] = byte(srcPort>>8), byte(srcPort)
	udpHdr[2], udpHdr[3] = byte(dstPort>>8), byte(dstPort)
	udpHdr[4], udpHdr[5] = 0, byte(8+len(payload))
	copy(udpHdr[8:], payload)

	total := 20 + len(udpHdr)
	ip := make([]byte, total)
	ip[0] = 0x45
	ip[2] = byte(total >> 8)
	ip[3] = byte(total)
	ip[4] = byte(id >> 8)
	ip[5] = byte(id)
	ip[8] = 64
	ip[9] = 17 // UDP
	copy(ip[12:16], []byte{10, 0, 0, 1})
	copy(ip[16:20], []byte{10, 0, 0, 2})
	copy(ip[20:], udpHdr)
	return ip
}

func rtpPayload(seq uint16, ts uint32) []byte {
	p := make([]byte, 12)
	p[0] = 0x80
	p[1] = 0x00
	p[2], p[3] = byte(seq>>8), byte(seq)
	p[4], p[5], p[6], p[7] = byte(ts>>24), byte(ts>>16), byte(ts>>8), byte(ts)
	return p
}

func newTestCompressor(t *testing.T, ids ...profile.ID) *Compressor {
	t.Helper()
	opts := DefaultOptions()
	opts.EnabledProfiles = ids
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestCompressColdStartReachesSOState(t *testing.T) {
	c := newTestCompressor(t, profile.IDUncompressed, profile.IDIP, profile.IDUDP)

	out := make([]byte, 256)
	var lastState string
	for i := 0; i < 10; i++ {
		pkt := ipv4UDPPacket(1000, 0x1F90, 0x0035, []byte("hi"))
		n, err := c.Compress(0, pkt, out)
		require.NoError(t, err)
		require.Greater(t, n, 0)

		cid, ok := c.LastCID()
		require.True(t, ok)
		info, ok := c.LastPacketInfo(cid)
		require.True(t, ok)
		lastState = info.State

		if i == 0 {
			assert.Equal(t, "IR", info.State)
			assert.Equal(t, "IR", info.PacketType)
		}
	}
	// After 10 identical packets the context must have left IR for FO or SO:
	// RFC 3095 promotes after MaxIRCount=3 IR packets.
	assert.NotEqual(t, "IR", lastState)

	info := c.GeneralInfo()
	assert.Equal(t, uint64(3), info.TotalIRPackets)
	assert.Equal(t, uint64(10), info.TotalPackets)
	assert.Equal(t, 1, info.ContextsActive)
}

func TestCompressPeriodicRefreshForcesExtraIR(t *testing.T) {
	c := newTestCompressor(t, profile.IDUncompressed, profile.IDIP, profile.IDUDP)
	require.NoError(t, c.SetPeriodicRefreshes(6, 3))

	out := make([]byte, 256)
	for i := 0; i < 12; i++ {
		pkt := ipv4UDPPacket(2000, 0x1F90, 0x0035, []byte("hi"))
		_, err := c.Compress(0, pkt, out)
		require.NoError(t, err)
	}

	// With only 12 packets and an IR timeout of 6, the periodic refresh must
	// have forced at least one IR beyond the initial MaxIRCount=3 burst.
	info := c.GeneralInfo()
	assert.Greater(t, info.TotalIRPackets, uint64(3))
}

func TestCompressRandomIPIDNeverUsesOffsetEncoding(t *testing.T) {
	c := newTestCompressor(t, profile.IDUncompressed, profile.IDIP, profile.IDUDP)

	out := make([]byte, 256)
	ids := []uint16{100, 54321, 512, 60000, 9, 40000, 777, 22222, 3, 51234}
	for _, id := range ids {
		pkt := ipv4UDPPacket(id, 0x1F90, 0x0035, []byte("hi"))
		_, err := c.Compress(0, pkt, out)
		require.NoError(t, err)

		cid, ok := c.LastCID()
		require.True(t, ok)
		info, ok := c.LastPacketInfo(cid)
		require.True(t, ok)
		// A header-field value this erratic must never be judged eligible for
		// offset IP-ID encoding (RFC 3095 §5.7 RND detection), so the chosen
		// packet type can never be one of the IP-ID-carrying variants.
		assert.NotContains(t, info.PacketType, "1-ID")
		assert.NotContains(t, info.PacketType, "2-ID")
	}
}

func TestCompressRTPDetectedViaPortList(t *testing.T) {
	c := newTestCompressor(t, profile.IDUncompressed, profile.IDIP, profile.IDUDP, profile.IDRTP)
	require.NoError(t, c.AddRTPPort(5004))

	out := make([]byte, 256)
	pkt := ipv4UDPPacket(500, 5004, 5004, rtpPayload(1, 1000))
	_, err := c.Compress(0, pkt, out)
	require.NoError(t, err)

	cid, ok := c.LastCID()
	require.True(t, ok)
	info, ok := c.LastPacketInfo(cid)
	require.True(t, ok)
	assert.Equal(t, profile.IDRTP, info.ProfileID)
}

func TestCompressSegmentationRoundTrip(t *testing.T) {
	c := newTestCompressor(t, profile.IDUncompressed)
	require.NoError(t, c.SetMRRU(256))

	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}
	pkt := ipv4UDPPacket(1, 0x1F90, 0x0035, payload)

	out := make([]byte, 16) // too small to carry the packet in one piece
	n, err := c.Compress(0, pkt, out)
	assert.Equal(t, 0, n)
	require.ErrorIs(t, err, ErrNeedSegment)

	var reassembled []byte
	for {
		seg := make([]byte, 64)
		n, err := c.GetSegment(seg)
		require.NoError(t, err)
		hdr := seg[0]
		require.True(t, segment.IsSegment(hdr))
		reassembled = append(reassembled, seg[1:n]...)
		if !segment.More(hdr) {
			break
		}
	}

	require.GreaterOrEqual(t, len(reassembled), 4)
	body, trailer := reassembled[:len(reassembled)-4], reassembled[len(reassembled)-4:]
	got := uint32(trailer[0])<<24 | uint32(trailer[1])<<16 | uint32(trailer[2])<<8 | uint32(trailer[3])
	assert.Equal(t, crc.FCS32(body), got)
}

func TestCompressFailedSendRollsBackFeedback(t *testing.T) {
	c := newTestCompressor(t, profile.IDUncompressed)
	require.NoError(t, c.PiggybackFeedback([]byte{0x01, 0xAB}))

	before := c.FeedbackAvailBytes()
	require.Greater(t, before, 0)

	pkt := ipv4UDPPacket(1, 0x1F90, 0x0035, make([]byte, 64))
	out := make([]byte, 8) // far too small, MRRU is 0 so no segmentation fallback
	n, err := c.Compress(0, pkt, out)
	assert.Equal(t, 0, n)
	require.ErrorIs(t, err, ErrOutputTooSmall)

	// The rejected send must not have consumed the queued feedback: it is
	// still available to be piggybacked on a subsequent, successful send.
	assert.Equal(t, before, c.FeedbackAvailBytes())
}
