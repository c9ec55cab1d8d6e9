// Package rohc is the public API of the ROHC compressor core: a
// Compressor handle that demultiplexes flows into contexts, runs the
// generic RFC 3095 state machine and packet-type chooser, and delegates
// wire-format encoding to the registered profiles.
package rohc

import (
	"fmt"
	"sort"

	"github.com/packetsmith/rohc/internal/ctxtable"
	"github.com/packetsmith/rohc/internal/engine"
	"github.com/packetsmith/rohc/internal/feedback"
	"github.com/packetsmith/rohc/internal/logger"
	"github.com/packetsmith/rohc/internal/parser"
	"github.com/packetsmith/rohc/internal/profile"
	"github.com/packetsmith/rohc/internal/sdvl"
	"github.com/packetsmith/rohc/internal/segment"
	"github.com/packetsmith/rohc/internal/stats"
	"github.com/packetsmith/rohc/pkg/bufpool"
)

// TraceFunc receives a human-readable trace line for every notable
// compressor event (state transition, fallback, dropped RRU). It must not
// block or retain the string's backing array.
type TraceFunc func(cid uint16, msg string)

// RandomFunc returns a caller-supplied random 32-bit value, used only to
// seed a new context's initial sequence number (RFC 3095 §5.11.1).
type RandomFunc func() uint32

// RTPDetectFunc lets the caller override the built-in port-list heuristic
// for recognising RTP traffic on a UDP flow.
type RTPDetectFunc func(srcPort, dstPort uint16, payload []byte) bool

// Compressor is the process-wide handle described in the data model: it
// owns the context table, the profile registry, the feedback ring, and the
// segmentation stage. It is not safe for concurrent use by more than one
// goroutine at a time.
type Compressor struct {
	opts     Options
	started  bool // sticky guard: Set* methods reject once Compress has run
	table    *ctxtable.Table
	profiles *profile.Registry
	ring     *feedback.Ring
	pending  segment.Pending
	stats    *stats.Stats

	trace     TraceFunc
	random    RandomFunc
	rtpDetect RTPDetectFunc

	lastByCID map[uint16]PacketInfo
	lastCID   uint16
	hasLast   bool
}

// New creates a Compressor from opts, which must satisfy Options.Validate.
func New(opts Options) (*Compressor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	reg := profile.NewRegistry()
	for _, id := range opts.EnabledProfiles {
		if err := reg.Enable(id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
	}

	c := &Compressor{
		opts:      opts,
		table:     ctxtable.NewTable(opts.MaxCID),
		profiles:  reg,
		ring:      feedback.NewRing(feedbackRingCapacity),
		stats:     stats.New(),
		lastByCID: make(map[uint16]PacketInfo),
	}
	return c, nil
}

// Close stops the compressor from invoking any previously-set callbacks
// again. The core holds no OS-level resources, so this is otherwise a
// no-op.
func (c *Compressor) Close() {
	c.trace = nil
	c.random = nil
	c.rtpDetect = nil
}

// EnableProfile turns a profile on for future context creation.
func (c *Compressor) EnableProfile(id profile.ID) error {
	return c.profiles.Enable(id)
}

// DisableProfile turns a profile off; existing contexts created under it
// remain valid (data model invariant), but new flows will no longer match
// it.
func (c *Compressor) DisableProfile(id profile.ID) error {
	return c.profiles.Disable(id)
}

// SetTraceFunc installs fn as the trace sink, replacing any previous one.
func (c *Compressor) SetTraceFunc(fn TraceFunc) { c.trace = fn }

// SetRandomFunc installs fn as the random-number source for new contexts'
// initial sequence numbers.
func (c *Compressor) SetRandomFunc(fn RandomFunc) { c.random = fn }

// SetRTPDetectFunc installs fn to override the built-in RTP port-list
// heuristic.
func (c *Compressor) SetRTPDetectFunc(fn RTPDetectFunc) { c.rtpDetect = fn }

func (c *Compressor) requireNotStarted(field string) error {
	if c.started {
		return fmt.Errorf("%w: %s cannot change after the first Compress call", ErrInvalidParameter, field)
	}
	return nil
}

// AddRTPPort appends port to the RTP port hint list, keeping it sorted
// ascending; rejects duplicates, zero, and a list already at 15 entries.
func (c *Compressor) AddRTPPort(port uint16) error {
	if port == 0 {
		return fmt.Errorf("%w: rtp port 0 is not a valid port", ErrInvalidParameter)
	}
	if len(c.opts.RTPPorts) >= maxRTPPorts {
		return fmt.Errorf("%w: rtp port list already has %d entries", ErrInvalidParameter, maxRTPPorts)
	}
	idx := sort.Search(len(c.opts.RTPPorts), func(i int) bool { return c.opts.RTPPorts[i] >= port })
	if idx < len(c.opts.RTPPorts) && c.opts.RTPPorts[idx] == port {
		return fmt.Errorf("%w: rtp port %d already registered", ErrInvalidParameter, port)
	}
	ports := make([]uint16, 0, len(c.opts.RTPPorts)+1)
	ports = append(ports, c.opts.RTPPorts[:idx]...)
	ports = append(ports, port)
	ports = append(ports, c.opts.RTPPorts[idx:]...)
	c.opts.RTPPorts = ports
	return nil
}

// RemoveRTPPort removes port from the hint list, if present.
func (c *Compressor) RemoveRTPPort(port uint16) error {
	for i, p := range c.opts.RTPPorts {
		if p == port {
			c.opts.RTPPorts = append(c.opts.RTPPorts[:i], c.opts.RTPPorts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: rtp port %d not registered", ErrInvalidParameter, port)
}

// ResetRTPPorts clears the hint list entirely.
func (c *Compressor) ResetRTPPorts() {
	c.opts.RTPPorts = nil
}

// SetWLSBWindowWidth sets the W-LSB window width; only legal before the
// first Compress call.
func (c *Compressor) SetWLSBWindowWidth(width int) error {
	if err := c.requireNotStarted("wlsb_window_width"); err != nil {
		return err
	}
	if width <= 0 || width&(width-1) != 0 {
		return fmt.Errorf("%w: wlsb_window_width must be a power of two", ErrInvalidParameter)
	}
	c.opts.WLSBWindowWidth = width
	return nil
}

// SetPeriodicRefreshes sets the IR/FO refresh timeouts, in packet counts;
// only legal before the first Compress call.
func (c *Compressor) SetPeriodicRefreshes(ir, fo int) error {
	if err := c.requireNotStarted("periodic_refreshes"); err != nil {
		return err
	}
	if !(ir > fo && fo > 0) {
		return fmt.Errorf("%w: ir_timeout must be > fo_timeout > 0", ErrInvalidParameter)
	}
	c.opts.IRTimeout, c.opts.FOTimeout = ir, fo
	return nil
}

// SetMRRU sets the Maximum Reconstructed Reception Unit; 0 disables
// segmentation. Only legal before the first Compress call.
func (c *Compressor) SetMRRU(mrru int) error {
	if err := c.requireNotStarted("mrru"); err != nil {
		return err
	}
	if mrru < 0 {
		return fmt.Errorf("%w: mrru must be >= 0", ErrInvalidParameter)
	}
	c.opts.MRRU = mrru
	return nil
}

// SetFeedbackDrainBudget sets the maximum bytes of queued feedback drained
// into each outgoing packet's header. Only legal before the first Compress
// call.
func (c *Compressor) SetFeedbackDrainBudget(budget int) error {
	if err := c.requireNotStarted("feedback_drain_budget"); err != nil {
		return err
	}
	if budget < 0 {
		return fmt.Errorf("%w: feedback_drain_budget must be >= 0", ErrInvalidParameter)
	}
	c.opts.FeedbackDrainBudget = budget
	return nil
}

// ForceContextsReinit moves every live context back to state IR, used to
// recover from suspected decompressor desynchronisation.
func (c *Compressor) ForceContextsReinit() {
	for cid := uint16(0); cid <= c.table.MaxCID(); cid++ {
		if e, ok := c.table.Get(cid); ok {
			e.State.(*engine.Context).ForceIR()
		}
	}
}

// PiggybackFeedback queues bytes for transmission on the next outgoing
// compressed packet, up to FeedbackDrainBudget bytes of header at a time.
// It returns ErrQueueFull if the ring has no free slot.
func (c *Compressor) PiggybackFeedback(bytes []byte) error {
	if err := c.ring.Piggyback(bytes); err != nil {
		return fmt.Errorf("%w", ErrQueueFull)
	}
	return nil
}

// FlushFeedback drains as many queued feedback frames as fit within
// len(out), locking them exactly as Compress's internal drain does. The
// caller must follow up with exactly one of RemoveLockedFeedback or
// UnlockFeedback.
func (c *Compressor) FlushFeedback(out []byte) (int, error) {
	assembled := c.ring.Drain(nil, len(out))
	if len(assembled) > len(out) {
		return 0, ErrOutputTooSmall
	}
	copy(out, assembled)
	return len(assembled), nil
}

// FeedbackAvailBytes returns the total bytes queued across every occupied
// (locked or pending) feedback slot.
func (c *Compressor) FeedbackAvailBytes() int {
	return c.ring.AvailBytes()
}

// RemoveLockedFeedback permanently frees every slot locked by the most
// recent drain (internal, via Compress, or explicit, via FlushFeedback)
// after its frames have been sent successfully.
func (c *Compressor) RemoveLockedFeedback() {
	c.ring.Commit()
}

// UnlockFeedback unlocks every slot locked by the most recent drain without
// freeing it, so the same frames are retried on the next drain; used when
// the send that would have carried them failed.
func (c *Compressor) UnlockFeedback() {
	c.ring.Rollback()
}

// DeliverFeedback decodes one feedback packet received from a decompressor
// and applies it to the addressed context: the leading CID (an add-CID
// octet for the small-CID flavour, an SDVL value for the large-CID
// flavour), then either FEEDBACK-1 (a single byte, treated as a pure ACK)
// or FEEDBACK-2 (the remainder, whose first byte's top two bits select
// ACK/NACK/STATIC-NACK) is handed to the addressed context's profile.
func (c *Compressor) DeliverFeedback(bytes []byte) error {
	cid, rest, err := decodeFeedbackCID(c.opts.CIDFlavour, bytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	if len(rest) == 0 {
		return fmt.Errorf("%w: empty feedback payload", ErrMalformedPacket)
	}

	entry, ok := c.table.Get(cid)
	if !ok {
		return fmt.Errorf("%w: feedback for unknown cid %d", ErrInvalidParameter, cid)
	}
	p, ok := c.profiles.ByID(profile.ID(entry.ProfileID))
	if !ok {
		return fmt.Errorf("%w: feedback for context with unregistered profile", ErrInvalidParameter)
	}

	payload := rest
	if len(rest) == 1 {
		// FEEDBACK-1: a bare one-byte frame is always a pure ACK.
		payload = []byte{0x00}
	}

	st := entry.State.(*engine.Context)
	c.stats.FeedbackReceived++
	return p.Feedback(st, payload)
}

// decodeFeedbackCID strips the CID framing from the front of a delivered
// feedback frame and returns the decoded CID and the remaining bytes.
func decodeFeedbackCID(flavour CIDFlavour, bytes []byte) (uint16, []byte, error) {
	if flavour == CIDLarge {
		v, n, err := sdvl.Decode(bytes)
		if err != nil {
			return 0, nil, err
		}
		return uint16(v), bytes[n:], nil
	}
	if len(bytes) > 0 && bytes[0]&0xF0 == 0xE0 {
		return uint16(bytes[0] & 0x0F), bytes[1:], nil
	}
	return 0, bytes, nil
}

// LastPacketInfo returns a summary of the most recently compressed packet
// on cid, or false if no packet has been compressed on that context yet.
func (c *Compressor) LastPacketInfo(cid uint16) (PacketInfo, bool) {
	info, ok := c.lastByCID[cid]
	return info, ok
}

// LastCID returns the CID most recently assigned by a successful Compress
// call, for front-ends that process one flow at a time and need to look up
// LastPacketInfo without already knowing the CID.
func (c *Compressor) LastCID() (uint16, bool) {
	return c.lastCID, c.hasLast
}

// GeneralInfo returns a process-wide summary of the Compressor's aggregate
// counters, live context count, and feedback queue state.
func (c *Compressor) GeneralInfo() GeneralInfo {
	return GeneralInfo{
		ContextsActive:       c.table.Len(),
		ContextsCreated:      c.stats.ContextsCreated,
		ContextsEvicted:      c.stats.ContextsEvicted,
		TotalPackets:         c.stats.TotalPackets,
		TotalIRPackets:       c.stats.TotalIRPackets,
		TotalFOPackets:       c.stats.TotalFOPackets,
		TotalSOPackets:       c.stats.TotalSOPackets,
		MeanCompressionRatio: c.stats.MeanCompressionRatio(),
		FeedbackQueued:       c.ring.Count(),
		FeedbackAvailBytes:   c.ring.AvailBytes(),
		EnabledProfiles:      c.profiles.EnabledIDs(),
	}
}

// Compress compresses one raw IP packet from in into out. arrivalTS is an
// opaque caller-supplied timestamp (packet counts, not wall-clock, drive
// every timeout in this core); it is currently unused by the compression
// path itself but threaded through for future timer-based extensions and
// recorded nowhere internally, matching the concurrency model's "no system
// clock reads" rule.
//
// On success it returns the number of bytes written to out. If the
// compressed packet (including drained feedback) would exceed len(out) but
// fits within the configured MRRU, it stages the packet for segmented
// retrieval and returns (0, ErrNeedSegment); the caller must then call
// GetSegment repeatedly until it returns a final segment.
func (c *Compressor) Compress(arrivalTS int64, in []byte, out []byte) (int, error) {
	c.started = true

	pkt, err := parser.Parse(in, c.isRTP)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}

	p, flowKey, ok := c.profiles.Select(pkt)
	if !ok {
		return 0, ErrNoMatchingProfile
	}

	// The flow key only prunes the scan (§4.3): a hit must still pass the
	// profile's own identity check before the context is reused, since two
	// distinct flows can in principle fold to the same fingerprint.
	if hit, existed := c.table.Lookup(flowKey); existed && !p.CheckContext(hit.State.(*engine.Context), pkt) {
		c.evict(hit)
		c.table.Release(hit.CID)
	}

	_, existed := c.table.Lookup(flowKey)
	entry, evicted := c.table.Acquire(flowKey, uint16(p.ID()), func() any {
		ctx, _ := engine.NewContext(c.opts.WLSBWindowWidth)
		return ctx
	})
	created := !existed
	st := entry.State.(*engine.Context)

	if evicted != nil {
		c.evict(evicted)
	}
	if created {
		c.stats.ContextsCreated++
	}

	if created {
		if err := p.Create(st, pkt, c.hooks()); err != nil {
			c.table.Release(entry.CID)
			return c.fallbackToUncompressed(pkt, out, entry.CID, flowKey, fmt.Errorf("%w: %v", ErrInternalEncode, err))
		}
	}

	st.CheckPeriodicRefresh(c.opts.IRTimeout, c.opts.FOTimeout)

	headerBuf := bufpool.Get(len(in) + 64)
	defer bufpool.Put(headerBuf)

	res, err := p.Encode(st, pkt, headerBuf[:cap(headerBuf)], c.hooks())
	if err != nil {
		c.ring.Rollback()
		if created {
			c.table.Release(entry.CID)
		}
		return c.fallbackToUncompressed(pkt, out, entry.CID, flowKey, fmt.Errorf("%w: %v", ErrInternalEncode, err))
	}

	return c.assemble(entry.CID, p.ID(), st, res, headerBuf[:res.HeaderLen], pkt, out)
}

// fallbackToUncompressed re-encodes pkt under the Uncompressed profile,
// per the profile-registry design's "encode failed after selection" rule.
func (c *Compressor) fallbackToUncompressed(pkt *parser.Packet, out []byte, cid uint16, flowKey ctxtable.FlowKey, cause error) (int, error) {
	up, ok := c.profiles.ByID(profile.IDUncompressed)
	if !ok || !c.profiles.Enabled(profile.IDUncompressed) {
		return 0, cause
	}
	entry, evicted := c.table.Acquire(flowKey, uint16(profile.IDUncompressed), func() any {
		ctx, _ := engine.NewContext(c.opts.WLSBWindowWidth)
		return ctx
	})
	if evicted != nil {
		c.evict(evicted)
	}
	st := entry.State.(*engine.Context)
	if err := up.Create(st, pkt, c.hooks()); err != nil {
		return 0, cause
	}

	headerBuf := bufpool.Get(len(pkt.Raw()) + 16)
	defer bufpool.Put(headerBuf)
	res, err := up.Encode(st, pkt, headerBuf[:cap(headerBuf)], c.hooks())
	if err != nil {
		return 0, cause
	}
	if c.trace != nil {
		c.trace(entry.CID, fmt.Sprintf("falling back to Uncompressed: %v", cause))
	}
	return c.assemble(entry.CID, profile.IDUncompressed, st, res, headerBuf[:res.HeaderLen], pkt, out)
}

// cidPrefix returns the wire bytes that must precede the compressed header
// to identify cid under flavour: nothing for CID 0 under the small-CID
// flavour (the implicit CID), a single add-CID octet (0xE0|cid) for any
// other small CID, or the SDVL encoding of cid (always emitted, even for
// CID 0) under the large-CID flavour.
func cidPrefix(flavour CIDFlavour, cid uint16) []byte {
	if flavour == CIDLarge {
		b, _ := sdvl.Encode(nil, uint32(cid))
		return b
	}
	if cid == 0 {
		return nil
	}
	return []byte{0xE0 | byte(cid)}
}

// assemble prepends drained feedback, the CID framing, the compressed
// header, and the payload into out, handling segmentation if the total
// exceeds len(out).
func (c *Compressor) assemble(cid uint16, profileID profile.ID, st *engine.Context, res profile.EncodeResult, header []byte, pkt *parser.Packet, out []byte) (int, error) {
	payload := pkt.Raw()[res.PayloadOffset:]

	budget := c.opts.FeedbackDrainBudget
	if budget > len(out) {
		budget = len(out)
	}
	var assembled []byte
	assembled = c.ring.Drain(assembled, budget)
	assembled = append(assembled, cidPrefix(c.opts.CIDFlavour, cid)...)
	assembled = append(assembled, header...)
	assembled = append(assembled, payload...)

	if len(assembled) > len(out) {
		c.ring.Rollback()
		if c.opts.MRRU == 0 || len(assembled)+4 > c.opts.MRRU {
			return 0, fmt.Errorf("%w: compressed packet %d bytes exceeds output buffer %d", ErrOutputTooSmall, len(assembled), len(out))
		}
		if !c.pending.Done() {
			logger.Warn("dropping pending reconstruction unit", logger.CID(cid), logger.Operation("segment"))
			if c.trace != nil {
				c.trace(cid, "dropping previously pending RRU: new packet staged before prior one drained")
			}
		}
		c.pending = segment.Pending{}
		first, err := c.pending.Start(assembled, c.opts.MRRU)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInternalEncode, err)
		}
		if len(first) <= len(out) {
			copy(out, first)
		}
		c.stats.SegmentsEmitted++
		return 0, ErrNeedSegment
	}

	c.ring.Commit()
	copy(out, assembled)
	rec := recordFor(cid, profileID, st, res, len(payload), len(assembled))
	c.stats.RecordPacket(rec)
	c.lastByCID[cid] = PacketInfo{
		CID:           cid,
		ProfileID:     profileID,
		PacketType:    rec.PacketType,
		State:         rec.State,
		Mode:          rec.Mode,
		HeaderLen:     rec.HeaderLen,
		PayloadLen:    rec.PayloadLen,
		CompressedLen: rec.CompressedLen,
	}
	c.lastCID, c.hasLast = cid, true
	return len(assembled), nil
}

// GetSegment retrieves the next queued RRU of a packet staged by a prior
// Compress call that returned ErrNeedSegment.
func (c *Compressor) GetSegment(out []byte) (int, error) {
	if c.pending.Done() {
		return 0, fmt.Errorf("%w: no segmentation in progress", ErrInvalidParameter)
	}
	rru, err := c.pending.Next()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalEncode, err)
	}
	if len(rru) > len(out) {
		return 0, ErrOutputTooSmall
	}
	copy(out, rru)
	return len(rru), nil
}

func (c *Compressor) evict(e *ctxtable.Entry) {
	c.stats.ContextsEvicted++
	if p, ok := c.profiles.ByID(profile.ID(e.ProfileID)); ok {
		p.Destroy(e.State.(*engine.Context))
	}
}

func (c *Compressor) isRTP(srcPort, dstPort uint16, payload []byte) bool {
	if c.rtpDetect != nil {
		return c.rtpDetect(srcPort, dstPort, payload)
	}
	idx := sort.Search(len(c.opts.RTPPorts), func(i int) bool { return c.opts.RTPPorts[i] >= dstPort })
	if idx < len(c.opts.RTPPorts) && c.opts.RTPPorts[idx] == dstPort {
		return true
	}
	idx = sort.Search(len(c.opts.RTPPorts), func(i int) bool { return c.opts.RTPPorts[i] >= srcPort })
	return idx < len(c.opts.RTPPorts) && c.opts.RTPPorts[idx] == srcPort
}

func (c *Compressor) hooks() profile.Hooks {
	return profile.Hooks{
		Random:          c.random,
		WLSBWindowWidth: c.opts.WLSBWindowWidth,
		OARepetitionsNr: engine.DefaultOARepetitionsNr,
	}
}

func recordFor(cid uint16, profileID profile.ID, st *engine.Context, res profile.EncodeResult, payloadLen, compressedLen int) stats.PacketRecord {
	return stats.PacketRecord{
		PacketType:    res.PacketType.String(),
		State:         stateString(st.State),
		Mode:          modeString(st.Mode),
		HeaderLen:     res.HeaderLen,
		PayloadLen:    payloadLen,
		CompressedLen: compressedLen,
	}
}
