// Package obsmetrics collects Prometheus metrics for the compressor core:
// packets compressed per state and profile, compressed/header byte
// histograms, segmentation and feedback counters. Pass a nil *Metrics to any
// caller that accepts one to disable collection with zero overhead.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector registered for one compressor instance.
type Metrics struct {
	packetsTotal    *prometheus.CounterVec
	headerBytes     *prometheus.HistogramVec
	compressedBytes *prometheus.HistogramVec
	fallbacks       prometheus.Counter
	segmentsEmitted prometheus.Counter
	feedbackQueued  prometheus.Gauge
	contextsActive  prometheus.Gauge
	contextsEvicted prometheus.Counter
}

// New registers a fresh set of collectors against reg and returns the
// resulting Metrics. Passing prometheus.NewRegistry() keeps instances
// independent in tests; passing prometheus.DefaultRegisterer wires into the
// process-wide /metrics endpoint.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		packetsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rohc_packets_total",
			Help: "Total packets compressed, labelled by profile and chosen state.",
		}, []string{"profile", "state"}),
		headerBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rohc_header_bytes",
			Help:    "Distribution of compressed header sizes in bytes.",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 24, 32, 48, 64},
		}, []string{"profile"}),
		compressedBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rohc_compressed_bytes",
			Help:    "Distribution of total compressed packet sizes in bytes, including feedback.",
			Buckets: prometheus.ExponentialBuckets(8, 2, 12),
		}, []string{"profile"}),
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "rohc_uncompressed_fallbacks_total",
			Help: "Total packets re-encoded under the Uncompressed profile after a profile encode failure.",
		}),
		segmentsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rohc_segments_emitted_total",
			Help: "Total segmented RRUs emitted when a compressed packet exceeded the caller's buffer.",
		}),
		feedbackQueued: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rohc_feedback_queued",
			Help: "Feedback frames currently queued in the piggy-back ring.",
		}),
		contextsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rohc_contexts_active",
			Help: "Live compression contexts.",
		}),
		contextsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rohc_contexts_evicted_total",
			Help: "Total contexts evicted to make room under MAX_CID.",
		}),
	}
}

// RecordPacket folds one compressed packet's outcome into the counters.
func (m *Metrics) RecordPacket(profileID uint16, state string, headerLen, compressedLen int) {
	if m == nil {
		return
	}
	profileLabel := profileLabelFor(profileID)
	m.packetsTotal.WithLabelValues(profileLabel, state).Inc()
	m.headerBytes.WithLabelValues(profileLabel).Observe(float64(headerLen))
	m.compressedBytes.WithLabelValues(profileLabel).Observe(float64(compressedLen))
}

// RecordFallback counts one Uncompressed-profile fallback.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// RecordSegment counts one emitted RRU segment.
func (m *Metrics) RecordSegment() {
	if m == nil {
		return
	}
	m.segmentsEmitted.Inc()
}

// SetGauges refreshes the point-in-time gauges from a GeneralInfo-shaped
// snapshot; the HTTP API's /stats handler calls it each time it serves a
// snapshot.
func (m *Metrics) SetGauges(contextsActive int, contextsEvicted uint64, feedbackQueued int) {
	if m == nil {
		return
	}
	m.contextsActive.Set(float64(contextsActive))
	m.feedbackQueued.Set(float64(feedbackQueued))
	// contextsEvicted is monotonic; Add the delta from the last observed
	// value is the caller's responsibility via RecordEviction instead.
	_ = contextsEvicted
}

// RecordEviction counts one context eviction.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.contextsEvicted.Inc()
}

func profileLabelFor(id uint16) string {
	switch id {
	case 0x0000:
		return "uncompressed"
	case 0x0001:
		return "rtp"
	case 0x0002:
		return "udp"
	case 0x0003:
		return "esp"
	case 0x0004:
		return "ip"
	case 0x0006:
		return "tcp"
	case 0x0007:
		return "udplite"
	default:
		return "unknown"
	}
}
