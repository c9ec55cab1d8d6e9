package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/packetsmith/rohc/internal/logger"
	"github.com/packetsmith/rohc/internal/obsmetrics"
	"github.com/packetsmith/rohc/pkg/rohc"
)

// ServerConfig controls the listening address and HTTP timeouts for Server.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c *ServerConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}

// Server wraps an http.Server bound to a compressor instance, with
// graceful shutdown on context cancellation.
type Server struct {
	server       *http.Server
	config       ServerConfig
	shutdownOnce sync.Once
}

// NewServer builds a stopped Server around an already-configured compressor.
// metrics may be nil to disable gauge refreshes on /stats requests.
func NewServer(config ServerConfig, c *rohc.Compressor, metrics *obsmetrics.Metrics) *Server {
	config.applyDefaults()

	router := NewRouter(c, metrics)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully with a
// five-second timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("rohc API server listening", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("rohc API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("rohc API server failed: %w", err)
	}
}

// Stop shuts the server down gracefully. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("rohc API server shutdown error: %w", err)
			logger.Error("rohc API server shutdown error", "error", err)
			return
		}
		logger.Info("rohc API server stopped gracefully")
	})
	return shutdownErr
}

// Port returns the configured listening port.
func (s *Server) Port() int { return s.config.Port }
