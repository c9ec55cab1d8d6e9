package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for compressor operations, mirroring internal/logger's
// field keys so a trace span and its accompanying log line carry the same
// vocabulary.
const (
	AttrCID        = "rohc.cid"
	AttrProfileID  = "rohc.profile_id"
	AttrState      = "rohc.state"
	AttrMode       = "rohc.mode"
	AttrPacketType = "rohc.packet_type"
	AttrHeaderLen  = "rohc.header_len"
	AttrSegmentLen = "rohc.segment_len"
)

// Span names for the compressor's public operations.
const (
	SpanCompress       = "rohc.compress"
	SpanGetSegment     = "rohc.get_segment"
	SpanDeliverFeedback = "rohc.deliver_feedback"
)

// CID returns an attribute for the context identifier.
func CID(cid uint16) attribute.KeyValue {
	return attribute.Int64(AttrCID, int64(cid))
}

// ProfileID returns an attribute for the ROHC profile ID.
func ProfileID(id uint16) attribute.KeyValue {
	return attribute.Int64(AttrProfileID, int64(id))
}

// State returns an attribute for the compressor state (IR/FO/SO).
func State(s string) attribute.KeyValue {
	return attribute.String(AttrState, s)
}

// Mode returns an attribute for the operating mode (U/O/R).
func Mode(m string) attribute.KeyValue {
	return attribute.String(AttrMode, m)
}

// PacketType returns an attribute for the chosen packet type.
func PacketType(t string) attribute.KeyValue {
	return attribute.String(AttrPacketType, t)
}

// HeaderLen returns an attribute for the compressed header length.
func HeaderLen(n int) attribute.KeyValue {
	return attribute.Int(AttrHeaderLen, n)
}

// SegmentLen returns an attribute for a segmented RRU's length.
func SegmentLen(n int) attribute.KeyValue {
	return attribute.Int(AttrSegmentLen, n)
}

// StartCompressSpan starts a span for one Compress call on cid.
func StartCompressSpan(ctx context.Context, cid uint16) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanCompress, trace.WithAttributes(CID(cid)))
}

// StartFeedbackSpan starts a span for a DeliverFeedback call on cid.
func StartFeedbackSpan(ctx context.Context, cid uint16) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanDeliverFeedback, trace.WithAttributes(CID(cid)))
}
