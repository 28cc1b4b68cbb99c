package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/freekieb7/minihttp/http"
)

const (
	EnvAddr        = "MINIHTTP_ADDR"
	EnvMaxConns    = "MINIHTTP_MAX_CONNS"
	EnvReadTimeout = "MINIHTTP_READ_TIMEOUT"
	EnvPagesDir    = "MINIHTTP_PAGES_DIR"
	EnvTelemetry   = "MINIHTTP_TELEMETRY"
	EnvLogLevel    = "MINIHTTP_LOG_LEVEL"
	EnvServiceName = "OTEL_SERVICE_NAME"
)

type Config struct {
	Addr        string
	MaxConns    int
	ReadTimeout time.Duration
	PagesDir    string
	Telemetry   bool
	LogLevel    slog.Level
	ServiceName string
}

func Default() Config {
	return Config{
		Addr:        http.DefaultAddr,
		PagesDir:    ".",
		LogLevel:    slog.LevelInfo,
		ServiceName: "minihttp",
	}
}

// Load reads the configuration from the environment. Unset variables keep
// their defaults; malformed ones are an error.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvAddr); ok && v != "" {
		cfg.Addr = v
	}

	if v, ok := lookup(EnvMaxConns); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("config: %s must be a non-negative integer, got %q", EnvMaxConns, v)
		}
		cfg.MaxConns = n
	}

	if v, ok := lookup(EnvReadTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return cfg, fmt.Errorf("config: %s must be a non-negative duration, got %q", EnvReadTimeout, v)
		}
		cfg.ReadTimeout = d
	}

	if v, ok := lookup(EnvPagesDir); ok && v != "" {
		cfg.PagesDir = v
	}

	if v, ok := lookup(EnvTelemetry); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("config: %s must be a boolean, got %q", EnvTelemetry, v)
		}
		cfg.Telemetry = enabled
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", EnvLogLevel, err)
		}
	}

	if v, ok := lookup(EnvServiceName); ok && v != "" {
		cfg.ServiceName = v
	}

	return cfg, nil
}
