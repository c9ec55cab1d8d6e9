// Package ipid implements RFC 3095 §4.5.5 offset IP-ID encoding: the IPv4
// Identification field is transmitted as the LSBs of (IP-ID - SN) rather than
// of the raw ID, which collapses to zero bits whenever the ID increments in
// lock-step with the sequence number.
package ipid

import "math"

// Offset computes (ipID - sn) mod 2^16, the value that is actually LSB
// encoded. Both ipID and sn are taken modulo 2^16 first so callers may pass
// either representation.
func Offset(ipID, sn uint16) uint16 {
	return ipID - sn
}

// Eligible reports whether offset IP-ID encoding may be used for this
// header, per RFC 3095 §5.7: the ID must have looked network byte order
// (NBO) for `oaRepetitionsNr` consecutive packets, and the RND counter must
// be zero, i.e. the latest ID change did not look random (¬RND).
func Eligible(nboCount, rndCount, oaRepetitionsNr int) bool {
	return nboCount >= oaRepetitionsNr && rndCount == 0
}

// IsRandom applies the RFC 3095 heuristic for "the ID appears random":
// true whenever the forward delta (modulo 2^16) between consecutive IDs
// exceeds 4096. Byte order is not considered here; IsNetworkByteOrder
// tracks that separately.
func IsRandom(prevID, curID uint16) bool {
	delta := int(curID) - int(prevID)
	if delta < 0 {
		delta += 1 << 16
	}
	const maxSequentialDelta = 1 << 12
	return delta > maxSequentialDelta
}

// IsNetworkByteOrder reports whether treating the ID as big-endian yields a
// smaller, more plausibly sequential delta than treating it as little-endian,
// the standard proxy RFC 3095 implementations use absent explicit NBO
// signalling from the stack.
func IsNetworkByteOrder(prevID, curID uint16) bool {
	beDelta := deltaMagnitude(prevID, curID)
	leDelta := deltaMagnitude(swapBytes(prevID), swapBytes(curID))
	return beDelta <= leDelta
}

func deltaMagnitude(a, b uint16) int {
	d := int(b) - int(a)
	if d < 0 {
		d = -d
	}
	return int(math.Min(float64(d), float64(1<<16-d)))
}

func swapBytes(v uint16) uint16 {
	return v<<8 | v>>8
}
