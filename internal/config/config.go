// Package config loads rohcctl's configuration from built-in defaults, a
// YAML file, and environment variables, in that order of increasing
// precedence, and renders it into a pkg/rohc.Options ready for rohc.New.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/packetsmith/rohc/internal/bytesize"
	"github.com/packetsmith/rohc/internal/logger"
	"github.com/packetsmith/rohc/internal/profile"
	"github.com/packetsmith/rohc/internal/telemetry"
	"github.com/packetsmith/rohc/pkg/rohc"
)

// Config is the on-disk/environment representation of everything needed to
// construct a Compressor plus its ambient logging, tracing, profiling, and
// metrics surfaces.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (ROHCCTL_*)
//  2. Configuration file (YAML)
//  3. Defaults (Default)
type Config struct {
	CIDFlavour          string   `mapstructure:"cid_flavour" yaml:"cid_flavour" validate:"required,oneof=small large"`
	MaxCID              uint16   `mapstructure:"max_cid" yaml:"max_cid"`
	MRRU                bytesize.ByteSize `mapstructure:"mrru" yaml:"mrru"`
	WLSBWindowWidth     int      `mapstructure:"wlsb_window_width" yaml:"wlsb_window_width" validate:"required"`
	IRTimeout           int      `mapstructure:"ir_timeout" yaml:"ir_timeout" validate:"required"`
	FOTimeout           int      `mapstructure:"fo_timeout" yaml:"fo_timeout" validate:"required"`
	FeedbackDrainBudget bytesize.ByteSize `mapstructure:"feedback_drain_budget" yaml:"feedback_drain_budget"`
	EnabledProfiles     []string `mapstructure:"enabled_profiles" yaml:"enabled_profiles" validate:"required,min=1,dive,oneof=uncompressed rtp udp esp ip tcp udplite"`
	RTPPorts            []uint16 `mapstructure:"rtp_ports" yaml:"rtp_ports"`

	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls internal/logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// TelemetryConfig controls internal/telemetry's tracer and Pyroscope
// profiler.
type TelemetryConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure     bool     `mapstructure:"insecure" yaml:"insecure"`
	SampleRate   float64  `mapstructure:"sample_rate" yaml:"sample_rate" validate:"omitempty,gte=0,lte=1"`
	Profiling    bool     `mapstructure:"profiling" yaml:"profiling"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig controls the Prometheus metrics endpoint served by
// internal/httpapi.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// Default returns the configuration matching rohc.DefaultOptions, with
// logging at INFO/text/stdout and telemetry/metrics disabled.
func Default() Config {
	opts := rohc.DefaultOptions()
	return Config{
		CIDFlavour:          "small",
		MaxCID:              opts.MaxCID,
		MRRU:                bytesize.ByteSize(opts.MRRU),
		WLSBWindowWidth:     opts.WLSBWindowWidth,
		IRTimeout:           opts.IRTimeout,
		FOTimeout:           opts.FOTimeout,
		FeedbackDrainBudget: bytesize.ByteSize(opts.FeedbackDrainBudget),
		EnabledProfiles:     []string{"uncompressed", "ip"},
		RTPPorts:            nil,
		Logging:             LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Telemetry:           TelemetryConfig{Endpoint: "localhost:4317", Insecure: true, SampleRate: 1.0},
		Metrics:             MetricsConfig{Enabled: false, Port: 9090},
	}
}

// Load reads configPath (if non-empty) as YAML, layers ROHCCTL_-prefixed
// environment variables on top, and falls back to Default for anything
// unset. It returns a validated Config.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROHCCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	setViperDefaults(v, def)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(byteSizeDecodeHook())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setViperDefaults seeds v with every field of def under its mapstructure
// key, so an absent config file or a partially-specified one still resolves
// every field.
func setViperDefaults(v *viper.Viper, def Config) {
	v.SetDefault("cid_flavour", def.CIDFlavour)
	v.SetDefault("max_cid", def.MaxCID)
	v.SetDefault("mrru", uint64(def.MRRU))
	v.SetDefault("wlsb_window_width", def.WLSBWindowWidth)
	v.SetDefault("ir_timeout", def.IRTimeout)
	v.SetDefault("fo_timeout", def.FOTimeout)
	v.SetDefault("feedback_drain_budget", uint64(def.FeedbackDrainBudget))
	v.SetDefault("enabled_profiles", def.EnabledProfiles)
	v.SetDefault("rtp_ports", def.RTPPorts)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output", def.Logging.Output)
	v.SetDefault("telemetry.enabled", def.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", def.Telemetry.Endpoint)
	v.SetDefault("telemetry.insecure", def.Telemetry.Insecure)
	v.SetDefault("telemetry.sample_rate", def.Telemetry.SampleRate)
	v.SetDefault("telemetry.profiling", def.Telemetry.Profiling)
	v.SetDefault("telemetry.profile_types", def.Telemetry.ProfileTypes)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.port", def.Metrics.Port)
}

var validate = validator.New()

// Validate runs struct-tag validation and then the deeper rohc.Options
// invariants (by converting and calling Options.Validate), so the two
// validators never drift out of sync.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.ToOptions(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ToOptions renders cfg into a pkg/rohc.Options.
func (c Config) ToOptions() (rohc.Options, error) {
	flavour, err := parseCIDFlavour(c.CIDFlavour)
	if err != nil {
		return rohc.Options{}, err
	}
	profiles, err := parseProfileIDs(c.EnabledProfiles)
	if err != nil {
		return rohc.Options{}, err
	}
	opts := rohc.Options{
		CIDFlavour:          flavour,
		MaxCID:              c.MaxCID,
		MRRU:                int(c.MRRU),
		WLSBWindowWidth:     c.WLSBWindowWidth,
		IRTimeout:           c.IRTimeout,
		FOTimeout:           c.FOTimeout,
		FeedbackDrainBudget: int(c.FeedbackDrainBudget),
		EnabledProfiles:     profiles,
		RTPPorts:            append([]uint16(nil), c.RTPPorts...),
	}
	sort.Slice(opts.RTPPorts, func(i, j int) bool { return opts.RTPPorts[i] < opts.RTPPorts[j] })
	if err := opts.Validate(); err != nil {
		return rohc.Options{}, err
	}
	return opts, nil
}

// LoggerConfig adapts Logging into internal/logger's Config.
func (c Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Logging.Level, Format: c.Logging.Format, Output: c.Logging.Output}
}

// telemetryConfig adapts Telemetry into internal/telemetry's Config, tagged
// with a fixed service name/version identifying this binary.
func (c Config) telemetryConfig(serviceName, serviceVersion string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// profilingConfig adapts Telemetry into internal/telemetry's
// ProfilingConfig.
func (c Config) profilingConfig(serviceName, serviceVersion string) telemetry.ProfilingConfig {
	types := c.Telemetry.ProfileTypes
	if len(types) == 0 {
		types = []string{"cpu", "alloc_objects", "inuse_space", "goroutines"}
	}
	return telemetry.ProfilingConfig{
		Enabled:        c.Telemetry.Profiling,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Endpoint:       c.Telemetry.Endpoint,
		ProfileTypes:   types,
	}
}

// TelemetryConfig and ProfilingConfig are exported wrappers fixing the
// service identity as "rohcctl"; callers needing a different identity use
// the lower-case variants directly.
func (c Config) TelemetryConfig() telemetry.Config          { return c.telemetryConfig("rohcctl", "dev") }
func (c Config) ProfilingConfig() telemetry.ProfilingConfig  { return c.profilingConfig("rohcctl", "dev") }

// byteSizeDecodeHook lets the MRRU and FeedbackDrainBudget fields accept
// either a plain integer or a human-readable size string ("1500B", "64Ki")
// from the config file or environment.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func parseCIDFlavour(s string) (rohc.CIDFlavour, error) {
	switch strings.ToLower(s) {
	case "small":
		return rohc.CIDSmall, nil
	case "large":
		return rohc.CIDLarge, nil
	default:
		return 0, fmt.Errorf("config: unknown cid_flavour %q", s)
	}
}

func parseProfileIDs(names []string) ([]profile.ID, error) {
	out := make([]profile.ID, 0, len(names))
	for _, name := range names {
		id, err := parseProfileID(name)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseProfileID(name string) (profile.ID, error) {
	switch strings.ToLower(name) {
	case "uncompressed":
		return profile.IDUncompressed, nil
	case "rtp":
		return profile.IDRTP, nil
	case "udp":
		return profile.IDUDP, nil
	case "esp":
		return profile.IDESP, nil
	case "ip":
		return profile.IDIP, nil
	case "tcp":
		return profile.IDTCP, nil
	case "udplite":
		return profile.IDUDPLite, nil
	default:
		return 0, fmt.Errorf("config: unknown profile %q", name)
	}
}

// Save writes cfg as YAML to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating directory %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
