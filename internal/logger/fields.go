package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the compressor core,
// its profiles, and the CLI/HTTP front-ends. Use these keys consistently
// across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Flow / Context identity
	// ========================================================================
	KeyCID       = "cid"       // Context Identifier
	KeyProfileID = "profile_id" // ROHC profile ID (0x0000 uncompressed, 0x0001 RTP, ...)
	KeyFlowKey   = "flow_key"  // Flow fingerprint used for context lookup

	// ========================================================================
	// Compressor state machine
	// ========================================================================
	KeyState       = "state"        // Compressor state: IR, FO, SO
	KeyMode        = "mode"         // Operating mode: U, O, R
	KeyPacketType  = "packet_type"  // IR, IR-DYN, UO-0, UO-1, UO-1-ID, UO-1-TS, UOR-2, UOR-2-ID, UOR-2-TS
	KeySN          = "sn"           // Sequence number being compressed
	KeyIRCount     = "ir_count"     // IR packets sent since context creation
	KeyFOCount     = "fo_count"     // FO packets sent since last state change

	// ========================================================================
	// Encoding primitives
	// ========================================================================
	KeyLSBBits    = "lsb_bits"    // Bit width chosen by W-LSB for this field
	KeyIPIDBits   = "ipid_bits"   // Bit width chosen for offset IP-ID
	KeyCRCType    = "crc_type"    // CRC width used for this packet (2/3/6/7/8)
	KeyTSStride   = "ts_stride"   // Current scaled-RTP-timestamp stride

	// ========================================================================
	// Packet sizing
	// ========================================================================
	KeyHeaderLen      = "header_len"      // Compressed header length in bytes
	KeyPayloadLen     = "payload_len"     // Payload length appended after the header
	KeyCompressedLen  = "compressed_len"  // Total bytes written to the output buffer
	KeyUncompressedLen = "uncompressed_len" // Original packet length

	// ========================================================================
	// Feedback & segmentation
	// ========================================================================
	KeyFeedbackLen    = "feedback_len"    // Bytes of feedback drained/piggy-backed
	KeyFeedbackCount  = "feedback_count"  // Number of occupied feedback ring slots
	KeyRingCapacity   = "ring_capacity"   // Feedback ring capacity
	KeySegmentLen     = "segment_len"     // Bytes in this segment
	KeySegmentFinal   = "segment_final"   // Whether this is the final segment of an RRU
	KeyRRUDroppedLen  = "rru_dropped_len" // Bytes dropped when a pending RRU was superseded

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyOperation  = "operation"   // Sub-operation type for complex operations

	// ========================================================================
	// RTP detection
	// ========================================================================
	KeyRTPPort = "rtp_port" // UDP port tested against the RTP hint list
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// CID returns a slog.Attr for the Context Identifier
func CID(cid uint16) slog.Attr {
	return slog.Uint64(KeyCID, uint64(cid))
}

// ProfileID returns a slog.Attr for the ROHC profile ID
func ProfileID(id uint16) slog.Attr {
	return slog.Uint64(KeyProfileID, uint64(id))
}

// FlowKey returns a slog.Attr for the flow fingerprint
func FlowKey(key uint64) slog.Attr {
	return slog.Uint64(KeyFlowKey, key)
}

// State returns a slog.Attr for the compressor state
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// Mode returns a slog.Attr for the operating mode
func Mode(m string) slog.Attr {
	return slog.String(KeyMode, m)
}

// PacketType returns a slog.Attr for the chosen ROHC packet type
func PacketType(t string) slog.Attr {
	return slog.String(KeyPacketType, t)
}

// SN returns a slog.Attr for the sequence number
func SN(sn uint32) slog.Attr {
	return slog.Uint64(KeySN, uint64(sn))
}

// IRCount returns a slog.Attr for the IR packet counter
func IRCount(n int) slog.Attr {
	return slog.Int(KeyIRCount, n)
}

// FOCount returns a slog.Attr for the FO packet counter
func FOCount(n int) slog.Attr {
	return slog.Int(KeyFOCount, n)
}

// LSBBits returns a slog.Attr for the chosen W-LSB bit width
func LSBBits(k int) slog.Attr {
	return slog.Int(KeyLSBBits, k)
}

// IPIDBits returns a slog.Attr for the chosen offset IP-ID bit width
func IPIDBits(k int) slog.Attr {
	return slog.Int(KeyIPIDBits, k)
}

// CRCType returns a slog.Attr for the CRC width used
func CRCType(bits int) slog.Attr {
	return slog.Int(KeyCRCType, bits)
}

// TSStride returns a slog.Attr for the scaled RTP timestamp stride
func TSStride(stride uint32) slog.Attr {
	return slog.Uint64(KeyTSStride, uint64(stride))
}

// HeaderLen returns a slog.Attr for the compressed header length
func HeaderLen(n int) slog.Attr {
	return slog.Int(KeyHeaderLen, n)
}

// PayloadLen returns a slog.Attr for the payload length
func PayloadLen(n int) slog.Attr {
	return slog.Int(KeyPayloadLen, n)
}

// CompressedLen returns a slog.Attr for the total compressed length
func CompressedLen(n int) slog.Attr {
	return slog.Int(KeyCompressedLen, n)
}

// UncompressedLen returns a slog.Attr for the original packet length
func UncompressedLen(n int) slog.Attr {
	return slog.Int(KeyUncompressedLen, n)
}

// FeedbackLen returns a slog.Attr for feedback byte count
func FeedbackLen(n int) slog.Attr {
	return slog.Int(KeyFeedbackLen, n)
}

// FeedbackCount returns a slog.Attr for occupied feedback ring slots
func FeedbackCount(n int) slog.Attr {
	return slog.Int(KeyFeedbackCount, n)
}

// RingCapacity returns a slog.Attr for the feedback ring capacity
func RingCapacity(n int) slog.Attr {
	return slog.Int(KeyRingCapacity, n)
}

// SegmentLen returns a slog.Attr for the current segment length
func SegmentLen(n int) slog.Attr {
	return slog.Int(KeySegmentLen, n)
}

// SegmentFinal returns a slog.Attr for the final-segment flag
func SegmentFinal(final bool) slog.Attr {
	return slog.Bool(KeySegmentFinal, final)
}

// RRUDroppedLen returns a slog.Attr for bytes dropped from a superseded RRU
func RRUDroppedLen(n int) slog.Attr {
	return slog.Int(KeyRRUDroppedLen, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// RTPPort returns a slog.Attr for a UDP port tested against the RTP hint list
func RTPPort(port int) slog.Attr {
	return slog.Int(KeyRTPPort, port)
}

// HandleHex formats an arbitrary byte slice as a lowercase hex string attr,
// useful for dumping short feedback or segment frames at debug level.
func HandleHex(key string, b []byte) slog.Attr {
	return slog.String(key, fmt.Sprintf("%x", b))
}
