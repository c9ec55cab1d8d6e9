package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetsmith/rohc/internal/logger"
	"github.com/packetsmith/rohc/internal/obsmetrics"
	"github.com/packetsmith/rohc/pkg/rohc"
)

// NewRouter builds the chi router serving one compressor instance. This is
// deliberately minimal: operational tooling around the core, not part of
// the compression path, and it carries no decompressor-facing surface.
//
// Routes:
//   - GET /healthz - liveness probe
//   - GET /metrics - Prometheus scrape endpoint
//   - GET /stats   - GeneralInfo snapshot
func NewRouter(c *rohc.Compressor, metrics *obsmetrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := NewCompressorHandler(c, metrics)

	r.Get("/healthz", h.Liveness)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/stats", h.Stats)

	return r
}

// requestLogger logs every request's start and completion through the
// package-level logger, mirroring the level split used elsewhere: DEBUG on
// entry, INFO with status/duration on completion.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
