package httpapi

import (
	"net/http"

	"github.com/packetsmith/rohc/internal/obsmetrics"
	"github.com/packetsmith/rohc/pkg/rohc"
)

// CompressorHandler exposes read-only operational views of a
// *rohc.Compressor over HTTP: liveness and aggregate stats. It carries no
// compress/decompress surface; that belongs to pkg/rohc's Go API and the
// CLI front-end, not to this debug endpoint.
type CompressorHandler struct {
	compressor *rohc.Compressor
	metrics    *obsmetrics.Metrics
}

// NewCompressorHandler builds a handler around an already-configured
// compressor. metrics may be nil, in which case gauges are simply not
// refreshed on each request.
func NewCompressorHandler(c *rohc.Compressor, metrics *obsmetrics.Metrics) *CompressorHandler {
	return &CompressorHandler{compressor: c, metrics: metrics}
}

// Liveness handles GET /healthz.
func (h *CompressorHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{"service": "rohcctl"}))
}

// Stats handles GET /stats - a GeneralInfo snapshot of the whole compressor.
func (h *CompressorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	info := h.compressor.GeneralInfo()
	if h.metrics != nil {
		h.metrics.SetGauges(info.ContextsActive, info.ContextsEvicted, info.FeedbackQueued)
	}
	writeJSON(w, http.StatusOK, okResponse(info))
}
