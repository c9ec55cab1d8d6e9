package rohc

import "errors"

// Sentinel errors for every error kind the compressor core can report.
// Callers match them with errors.Is; wrapped errors carry the underlying
// detail via %w.
var (
	ErrMalformedPacket  = errors.New("rohc: malformed packet")
	ErrNoMatchingProfile = errors.New("rohc: no matching profile")
	ErrOutputTooSmall   = errors.New("rohc: output buffer too small")
	ErrNeedSegment      = errors.New("rohc: compressed packet requires segmentation")
	ErrInternalEncode   = errors.New("rohc: internal encode failure")
	ErrQueueFull        = errors.New("rohc: feedback queue is full")
	ErrInvalidParameter = errors.New("rohc: invalid parameter")
)
