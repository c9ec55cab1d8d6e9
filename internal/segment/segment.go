// Package segment implements RFC 3095 §5.2.5 segmentation: splitting a
// compressed packet that exceeds the channel's MRRU across multiple ROHC
// Reconstruction Units (RRUs), each carrying a continuation bit and, on the
// final RRU, a trailing FCS-32 checksum of the whole unsegmented packet.
package segment

import (
	"encoding/binary"
	"fmt"

	"github.com/packetsmith/rohc/internal/crc"
)

// segmentHeader is the single framing byte prefixing every RRU: the top
// seven bits 1111111 (0xFE) identify a segment, the low bit is F, set only
// on the final segment of a reconstruction unit.
const (
	segmentMarker   = 0xFE
	segmentFinalBit = 0x01
	segmentHdrMask  = 0xFE
)

// ErrNoPending is returned by Next when there is no outstanding segmentation
// in progress.
var ErrNoPending = fmt.Errorf("segment: no pending reconstruction unit")

// ErrAlreadyPending is returned by Start when a previous segmentation has
// not yet been fully drained; ROHC allows only a single pending RRU per
// channel.
var ErrAlreadyPending = fmt.Errorf("segment: a reconstruction unit is already pending")

// Pending tracks an in-flight multi-RRU transmission for one channel.
type Pending struct {
	remaining []byte
	mrru      int
}

// Start begins segmenting packet (which must already be known to exceed
// mrru) and returns the first RRU, sized to fit within mrru bytes including
// its 1-byte header. It appends a 4-byte FCS-32 trailer to the final RRU so
// the decompressor can validate reassembly.
func (p *Pending) Start(packet []byte, mrru int) ([]byte, error) {
	if p.remaining != nil {
		return nil, ErrAlreadyPending
	}
	if mrru < 2 {
		return nil, fmt.Errorf("segment: mrru %d too small to carry any payload", mrru)
	}
	sum := crc.FCS32(packet)
	trailer := make([]byte, 4)
	binary.BigEndian.PutUint32(trailer, sum)

	full := make([]byte, 0, len(packet)+4)
	full = append(full, packet...)
	full = append(full, trailer...)

	p.remaining = full
	p.mrru = mrru
	return p.next()
}

// Next returns the next RRU of a pending segmentation. Callers must check
// Done() after each call; once Done reports true there is nothing left to
// drain and the Pending may be reused for a new packet.
func (p *Pending) Next() ([]byte, error) {
	if p.remaining == nil {
		return nil, ErrNoPending
	}
	return p.next()
}

func (p *Pending) next() ([]byte, error) {
	payloadCap := p.mrru - 1
	n := len(p.remaining)
	more := n > payloadCap
	chunkLen := n
	if more {
		chunkLen = payloadCap
	}

	hdr := byte(segmentMarker)
	if !more {
		hdr |= segmentFinalBit
	}

	rru := make([]byte, 0, chunkLen+1)
	rru = append(rru, hdr)
	rru = append(rru, p.remaining[:chunkLen]...)

	p.remaining = p.remaining[chunkLen:]
	if len(p.remaining) == 0 {
		p.remaining = nil
	}
	return rru, nil
}

// Done reports whether the pending segmentation has been fully drained.
func (p *Pending) Done() bool {
	return p.remaining == nil
}

// IsSegment reports whether b looks like a segment framing byte (as opposed
// to a feedback byte or a packet-type octet).
func IsSegment(b byte) bool {
	return b&segmentHdrMask == segmentMarker
}

// More reports whether the segment header byte indicates further RRUs
// follow, i.e. the final bit (F) is clear.
func More(hdr byte) bool {
	return hdr&segmentFinalBit == 0
}
