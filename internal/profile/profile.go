// Package profile implements the ROHC profile registry and the per-profile
// encoders (RFC 3095 "generic" framework plus IP-only, UDP, UDP-Lite, RTP;
// ESP and TCP are registered with working discriminators but stubbed
// encoders per the profile-registry design).
package profile

import (
	"fmt"
	"sort"
	"sync"

	"github.com/packetsmith/rohc/internal/ctxtable"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/parser"
)

// ID is a ROHC profile identifier (RFC 3095 §8, RFC 3843, RFC 4019).
type ID uint16

const (
	IDUncompressed ID = 0x0000
	IDRTP          ID = 0x0001
	IDUDP          ID = 0x0002
	IDESP          ID = 0x0003
	IDIP           ID = 0x0004
	IDTCP          ID = 0x0006
	IDUDPLite      ID = 0x0007
)

func (id ID) String() string {
	switch id {
	case IDUncompressed:
		return "Uncompressed"
	case IDRTP:
		return "RTP"
	case IDUDP:
		return "UDP"
	case IDESP:
		return "ESP"
	case IDIP:
		return "IP"
	case IDTCP:
		return "TCP"
	case IDUDPLite:
		return "UDP-Lite"
	default:
		return fmt.Sprintf("unknown(0x%04x)", uint16(id))
	}
}

// EncodeResult is the outcome of a successful Encode call.
type EncodeResult struct {
	HeaderLen     int
	PacketType    engine.PacketType
	PayloadOffset int
}

// Hooks is an injected set of engine-wide callbacks a profile may need while
// encoding (random-number source, W-LSB window width, repetition count). Profiles never
// read the system clock or do I/O themselves.
type Hooks struct {
	Random          func() uint32
	WLSBWindowWidth int
	OARepetitionsNr int
}

// Profile is the interface every compression profile implements, mirroring
// the operations in the profile-registry design: matches, create, encode,
// feedback, destroy, check_context.
type Profile interface {
	ID() ID

	// Matches reports whether pkt should be compressed under this profile
	// and, if so, returns a flow key fingerprint used to prune context
	// lookups.
	Matches(pkt *parser.Packet) (ctxtable.FlowKey, bool)

	// CheckContext reports whether an existing context still identifies
	// the same flow as pkt (used to disambiguate flow-key collisions).
	CheckContext(st *engine.Context, pkt *parser.Packet) bool

	// Create initialises profile-specific context state for a
	// newly-allocated context.
	Create(st *engine.Context, pkt *parser.Packet, hooks Hooks) error

	// Encode writes the compressed header for pkt into out, returning the
	// header length and the packet type chosen. ErrNotElaborated signals
	// "not implemented", causing the dispatcher to fall back to
	// Uncompressed.
	Encode(st *engine.Context, pkt *parser.Packet, out []byte, hooks Hooks) (EncodeResult, error)

	// Feedback applies a decoded feedback payload to the context (W-LSB
	// window ACK/NACK, state demotion, mode promotion).
	Feedback(st *engine.Context, payload []byte) error

	// Destroy releases any profile-specific resources held by st. Most
	// profiles need no explicit teardown.
	Destroy(st *engine.Context)
}

// ErrNotElaborated is returned by Encode/Create for profiles that are
// registered only for their discriminator rules (ESP, TCP).
var ErrNotElaborated = fmt.Errorf("profile: not elaborated beyond discriminator rules")

// Registry holds the enabled-profile bitmap and dispatches Matches in the
// fixed evaluation order RTP, UDP, UDP-Lite, ESP, TCP, IP-only,
// Uncompressed.
type Registry struct {
	mu       sync.RWMutex
	profiles []Profile       // fixed priority order, all registered profiles
	enabled  map[ID]bool
}

// evaluationOrder is authoritative: RTP must be tried before UDP (RTP rides
// on UDP), UDP-Lite and ESP/TCP are tried next, IP-only and Uncompressed
// last since Uncompressed matches unconditionally.
var evaluationOrder = []ID{IDRTP, IDUDP, IDUDPLite, IDESP, IDTCP, IDIP, IDUncompressed}

// NewRegistry builds a registry with every known profile registered but
// disabled; callers enable the ones they want via Enable.
func NewRegistry() *Registry {
	byID := map[ID]Profile{
		IDUncompressed: newUncompressed(),
		IDIP:           newIPOnly(),
		IDUDP:          newUDP(),
		IDUDPLite:      newUDPLite(),
		IDRTP:          newRTP(),
		IDESP:          newESP(),
		IDTCP:          newTCP(),
	}

	r := &Registry{enabled: make(map[ID]bool)}
	for _, id := range evaluationOrder {
		r.profiles = append(r.profiles, byID[id])
	}
	return r
}

// Enable turns a profile on. Returns an error for an unknown ID.
func (r *Registry) Enable(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.known(id) {
		return fmt.Errorf("profile: unknown profile id %s", id)
	}
	r.enabled[id] = true
	return nil
}

// Disable turns a profile off.
func (r *Registry) Disable(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.known(id) {
		return fmt.Errorf("profile: unknown profile id %s", id)
	}
	delete(r.enabled, id)
	return nil
}

// Enabled reports whether id is currently enabled.
func (r *Registry) Enabled(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[id]
}

func (r *Registry) known(id ID) bool {
	for _, p := range r.profiles {
		if p.ID() == id {
			return true
		}
	}
	return false
}

// Select runs Matches over every enabled profile in priority order,
// returning the first hit. Uncompressed always matches, so Select only
// returns false if Uncompressed itself is disabled.
func (r *Registry) Select(pkt *parser.Packet) (Profile, ctxtable.FlowKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if !r.enabled[p.ID()] {
			continue
		}
		if key, ok := p.Matches(pkt); ok {
			return p, key, true
		}
	}
	return nil, "", false
}

// ByID returns the registered profile for id, regardless of enablement.
func (r *Registry) ByID(id ID) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// EnabledIDs returns the currently enabled profile IDs, sorted for
// deterministic display (rohcctl config show, GeneralInfo).
func (r *Registry) EnabledIDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.enabled))
	for id := range r.enabled {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
