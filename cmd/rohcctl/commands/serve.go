package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/packetsmith/rohc/internal/httpapi"
	"github.com/packetsmith/rohc/internal/logger"
	"github.com/packetsmith/rohc/internal/obsmetrics"
	"github.com/packetsmith/rohc/internal/telemetry"
	"github.com/packetsmith/rohc/pkg/rohc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the debug HTTP API over a demo compressor",
	Long: `Starts internal/httpapi's chi router (GET /healthz, GET /metrics,
GET /stats) bound to a freshly constructed compressor, and blocks until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.TelemetryConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}
	compressor, err := rohc.New(opts)
	if err != nil {
		return err
	}
	defer compressor.Close()

	var metrics *obsmetrics.Metrics
	if cfg.Metrics.Enabled {
		metrics = obsmetrics.New(prometheus.DefaultRegisterer)
	}

	port, _ := cmd.Flags().GetInt("port")
	server := httpapi.NewServer(httpapi.ServerConfig{Port: port}, compressor, metrics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	return server.Start(ctx)
}
