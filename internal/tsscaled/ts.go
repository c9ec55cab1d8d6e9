// Package tsscaled implements RFC 3095 §4.5.3 scaled RTP timestamp encoding:
// transmitting (TS - TS_OFFSET) / ts_stride instead of the raw 32-bit RTP
// timestamp, which is usually a small, slowly changing value once the stride
// (samples per packet) has stabilised.
package tsscaled

// State tracks the scaled-timestamp bookkeeping for one RTP context.
type State struct {
	stride       uint32 // confirmed ts_stride; 0 until established
	offset       uint32 // TS_OFFSET, the TS at stride confirmation modulo the stride
	candidate    uint32 // stride being evaluated, not yet promoted
	confirmCount int    // consecutive packets confirming candidate
	lastTS       uint32
	haveLastTS   bool
}

// NewState returns a fresh scaled-timestamp tracker.
func NewState() *State {
	return &State{}
}

// Stride returns the confirmed stride, or 0 if none has been established yet.
func (s *State) Stride() uint32 { return s.stride }

// Observe records a newly sent RTP timestamp and updates stride tracking.
// oaRepetitionsNr is the number of consecutive confirmations (per the
// Compressor's general stability counter) required before a candidate
// stride is promoted to s.stride.
func (s *State) Observe(ts uint32, oaRepetitionsNr int) {
	if !s.haveLastTS {
		s.lastTS = ts
		s.haveLastTS = true
		return
	}
	delta := ts - s.lastTS
	s.lastTS = ts

	switch {
	case s.stride != 0 && delta%s.stride == 0:
		// Consistent with the confirmed stride; nothing to do.
	case delta == s.candidate && delta != 0:
		s.confirmCount++
		if s.confirmCount >= oaRepetitionsNr {
			s.promote(delta, ts)
		}
	default:
		s.candidate = delta
		s.confirmCount = 1
	}
}

func (s *State) promote(stride, ts uint32) {
	s.stride = stride
	s.offset = ts % stride
	s.confirmCount = 0
	s.candidate = 0
}

// Stable reports whether a stride has been confirmed and scaled-timestamp
// encoding may therefore be used.
func (s *State) Stable() bool {
	return s.stride != 0
}

// Scale computes TS_SCALED for a stable state. Callers must check Stable()
// first; Scale panics on a zero stride to surface programmer error rather
// than silently dividing by zero.
func (s *State) Scale(ts uint32) uint32 {
	return (ts - s.offset) / s.stride
}

// Unscale reconstructs a full timestamp from a scaled value, used only by
// tests and the feedback path that must reason about what the decompressor
// would recover.
func (s *State) Unscale(scaled uint32) uint32 {
	return scaled*s.stride + s.offset
}
