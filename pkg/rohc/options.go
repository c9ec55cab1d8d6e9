package rohc

import (
	"fmt"
	"sort"

	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/profile"
)

// CIDFlavour selects the context-id address space a Compressor operates in.
type CIDFlavour int

const (
	// CIDSmall restricts CIDs to [0, 15], using the compact add-CID octet
	// framing.
	CIDSmall CIDFlavour = iota
	// CIDLarge allows CIDs in [0, 65535], SDVL-encoded.
	CIDLarge
)

// MaxCIDForFlavour returns the flavour's address-space ceiling.
func MaxCIDForFlavour(f CIDFlavour) uint16 {
	if f == CIDSmall {
		return 15
	}
	return 65535
}

const (
	// DefaultFeedbackDrainBudget is the default number of bytes of queued
	// feedback drained into each compressed packet's header.
	DefaultFeedbackDrainBudget = 500

	maxRTPPorts = 15
	feedbackRingCapacity = 32
)

// Options mirrors every configurable attribute of a Compressor, shared by
// the CLI, the config-file loader, and the JSON-schema dumper.
type Options struct {
	CIDFlavour CIDFlavour `json:"cid_flavour" yaml:"cid_flavour"`
	MaxCID     uint16     `json:"max_cid" yaml:"max_cid"`
	MRRU       int        `json:"mrru" yaml:"mrru"`

	WLSBWindowWidth int `json:"wlsb_window_width" yaml:"wlsb_window_width"`
	IRTimeout       int `json:"ir_timeout" yaml:"ir_timeout"`
	FOTimeout       int `json:"fo_timeout" yaml:"fo_timeout"`

	FeedbackDrainBudget int `json:"feedback_drain_budget" yaml:"feedback_drain_budget"`

	EnabledProfiles []profile.ID `json:"enabled_profiles" yaml:"enabled_profiles"`
	RTPPorts        []uint16     `json:"rtp_ports" yaml:"rtp_ports"`
}

// DefaultOptions returns the RFC 3095-recommended defaults: small CIDs,
// MAX_CID 15, no segmentation (MRRU 0), W-LSB width 4, IR/FO timeouts
// 1700/700, the default feedback drain budget, and Uncompressed + IP-only
// enabled (the two profiles that never fail to encode).
func DefaultOptions() Options {
	return Options{
		CIDFlavour:          CIDSmall,
		MaxCID:              15,
		MRRU:                0,
		WLSBWindowWidth:     4,
		IRTimeout:           engine.DefaultIRTimeout,
		FOTimeout:           engine.DefaultFOTimeout,
		FeedbackDrainBudget: DefaultFeedbackDrainBudget,
		EnabledProfiles:     []profile.ID{profile.IDUncompressed, profile.IDIP},
		RTPPorts:            nil,
	}
}

// Validate checks every invariant named in the data model: MaxCID within
// the flavour's range, WLSBWindowWidth a power of two, IRTimeout >
// FOTimeout > 0, MRRU non-negative, RTP port list sorted ascending and
// capped at 15 entries.
func (o Options) Validate() error {
	if o.MaxCID > MaxCIDForFlavour(o.CIDFlavour) {
		return fmt.Errorf("%w: max_cid %d exceeds flavour ceiling %d", ErrInvalidParameter, o.MaxCID, MaxCIDForFlavour(o.CIDFlavour))
	}
	if o.MRRU < 0 {
		return fmt.Errorf("%w: mrru must be >= 0", ErrInvalidParameter)
	}
	if o.WLSBWindowWidth <= 0 || o.WLSBWindowWidth&(o.WLSBWindowWidth-1) != 0 {
		return fmt.Errorf("%w: wlsb_window_width must be a power of two", ErrInvalidParameter)
	}
	if !(o.IRTimeout > o.FOTimeout && o.FOTimeout > 0) {
		return fmt.Errorf("%w: ir_timeout must be > fo_timeout > 0", ErrInvalidParameter)
	}
	if o.FeedbackDrainBudget < 0 {
		return fmt.Errorf("%w: feedback_drain_budget must be >= 0", ErrInvalidParameter)
	}
	if len(o.RTPPorts) > maxRTPPorts {
		return fmt.Errorf("%w: rtp_ports capped at %d entries", ErrInvalidParameter, maxRTPPorts)
	}
	if !sort.IsSorted(uint16Slice(o.RTPPorts)) {
		return fmt.Errorf("%w: rtp_ports must be sorted ascending", ErrInvalidParameter)
	}
	for i := 1; i < len(o.RTPPorts); i++ {
		if o.RTPPorts[i] == o.RTPPorts[i-1] {
			return fmt.Errorf("%w: rtp_ports must not contain duplicates", ErrInvalidParameter)
		}
	}
	for _, p := range o.RTPPorts {
		if p == 0 {
			return fmt.Errorf("%w: rtp port 0 is not a valid port", ErrInvalidParameter)
		}
	}
	return nil
}

type uint16Slice []uint16

func (s uint16Slice) Len() int           { return len(s) }
func (s uint16Slice) Less(i, j int) bool { return s[i] < s[j] }
func (s uint16Slice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
