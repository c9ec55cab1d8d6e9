// Package engine implements the RFC 3095 "generic" compressor core: the
// IR/FO/SO state machine, per-field change tracking, and the packet-type
// decision trees shared by every profile built on top of it.
package engine

import (
	"github.com/packetsmith/rohc/internal/tsscaled"
	"github.com/packetsmith/rohc/internal/wlsb"
)

// State is the compressor's per-context operating state.
type State int

const (
	StateIR State = iota
	StateFO
	StateSO
)

func (s State) String() string {
	switch s {
	case StateIR:
		return "IR"
	case StateFO:
		return "FO"
	case StateSO:
		return "SO"
	default:
		return "unknown"
	}
}

// Mode is the compressor's operating mode.
type Mode int

const (
	ModeU Mode = iota // Unidirectional
	ModeO             // Bidirectional Optimistic
	ModeR             // Bidirectional Reliable, not implemented
)

func (m Mode) String() string {
	switch m {
	case ModeU:
		return "U"
	case ModeO:
		return "O"
	case ModeR:
		return "R"
	default:
		return "unknown"
	}
}

// Default tunables per RFC 3095 §5.3 and the periodic-refresh guidance.
const (
	MaxIRCount  = 3
	MaxFOCount  = 3
	DefaultOARepetitionsNr = 3

	DefaultIRTimeout = 1700
	DefaultFOTimeout = 700
)

// IPFieldState tracks the per-IP-header static snapshot and the IPv4
// ID-behaviour stability counters (RFC 3095 §5.7).
type IPFieldState struct {
	Version  uint8
	Src      []byte
	Dst      []byte
	Protocol uint8
	TOS      uint8
	FlowInfo uint32 // IPv6 flow label, unused for IPv4

	LastID   uint16
	HaveID   bool
	SIDCount int // consecutive packets with identical ID
	RNDCount int // ID appears random
	NBOCount int // ID is network-byte-order

	// IDWindow holds recent ID-minus-SN offsets, used to W-LSB encode the
	// offset carried by UO-1/UOR-2-ID (p=0, distinct from the SN window).
	IDWindow *wlsb.Window
}

// Context is the generic engine state shared by every profile, embedded in
// the profile-specific payload stored in a ctxtable.Entry.
type Context struct {
	State State
	Mode  Mode

	SN           uint32
	IRCount      int // IR packets emitted since entering IR
	FOCount      int // FO packets emitted since entering FO
	SinceIR      int // packets sent since last IR, any state
	SinceFO      int // packets sent since last FO, any state
	OARepetitionsNr int

	Outer IPFieldState
	Inner *IPFieldState

	SNWindow *wlsb.Window
	TS       *tsscaled.State // nil unless the profile carries RTP timestamps

	// PrevStatic and PrevDynamic are the static/dynamic chain bytes last
	// sent, used to detect send_static / count send_dynamic field changes
	// for the FO/SO packet-type decision (§4.5). Nil until the first
	// packet has been encoded.
	PrevStatic  []byte
	PrevDynamic [][]byte

	// O-mode confidence: incremented on ACK, reset on NACK/STATIC-NACK.
	AckConfidence int
}

// NewContext returns a freshly initialised context in state IR, mode U.
func NewContext(wlsbWidth int) (*Context, error) {
	win, err := wlsb.NewWindow(-1, 16, wlsbWidth)
	if err != nil {
		return nil, err
	}
	return &Context{
		State:           StateIR,
		Mode:            ModeU,
		OARepetitionsNr: DefaultOARepetitionsNr,
		SNWindow:        win,
	}, nil
}

// RecordSent advances the per-state packet counters after a packet of the
// given type has been successfully emitted, and applies the IR→FO and
// FO→SO promotions defined by RFC 3095 §4.4.
func (c *Context) RecordSent(sentState State) {
	c.SinceIR++
	c.SinceFO++

	switch sentState {
	case StateIR:
		c.IRCount++
		c.SinceIR = 0
		if c.IRCount >= MaxIRCount {
			c.State = StateFO
		}
	case StateFO:
		c.FOCount++
		c.SinceFO = 0
		if c.State == StateIR {
			c.State = StateFO
		}
		if c.FOCount >= MaxFOCount {
			c.State = StateSO
		}
	}
}

// Demote moves the context back to FO, used when a dynamic field changes
// that SO cannot carry, or on an O-mode NACK.
func (c *Context) Demote() {
	if c.State == StateSO {
		c.State = StateFO
		c.FOCount = 0
	}
}

// ForceIR moves the context back to IR, used when a static field changes
// or an O-mode STATIC-NACK is received.
func (c *Context) ForceIR() {
	c.State = StateIR
	c.IRCount = 0
	c.FOCount = 0
}

// CheckPeriodicRefresh applies the packet-count-based timeouts before the
// next packet is encoded: it forces IR once irTimeout packets have been sent
// since the last IR, or demotes SO to FO once foTimeout packets have been
// sent since the last FO packet. It updates c.State in place.
func (c *Context) CheckPeriodicRefresh(irTimeout, foTimeout int) {
	if c.SinceIR >= irTimeout {
		c.ForceIR()
		return
	}
	if c.SinceFO >= foTimeout && c.State == StateSO {
		c.Demote()
	}
}
