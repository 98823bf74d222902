// Package cmdutil provides shared plumbing for dittoauth commands.
package cmdutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittoauth/internal/cli/output"
	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/internal/telemetry"
	"github.com/marmos91/dittoauth/pkg/config"
	"github.com/marmos91/dittoauth/pkg/metrics"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	Output     string
	Verbose    bool
}

// GetOutputFormat returns the parsed --output format.
func GetOutputFormat() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// ExitError carries a process exit status through cobra's error return.
// main exits with Code without printing anything.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode returns the status main should exit with for err.
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if err != nil {
		return 1
	}
	return 0
}

// Runtime is the per-invocation process state: configuration, logging,
// tracing and metrics.
type Runtime struct {
	Config      *config.Config
	AuthMetrics metrics.AuthMetrics
	TSMetrics   metrics.TimestampMetrics

	shutdownTelemetry func(context.Context) error
}

// Start loads the configuration at path (empty for the default location)
// and initializes logging, tracing and metrics from it.
func Start(ctx context.Context, path, version string) (*Runtime, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return StartWithConfig(ctx, cfg, version)
}

// StartWithConfig initializes the runtime from an already loaded config.
func StartWithConfig(ctx context.Context, cfg *config.Config, version string) (*Runtime, error) {
	level := cfg.Logging.Level
	if Flags.Verbose {
		level = "DEBUG"
	}
	if err := logger.Init(logger.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dittoauth",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	return &Runtime{
		Config:            cfg,
		AuthMetrics:       metrics.NewAuthMetrics(),
		TSMetrics:         metrics.NewTimestampMetrics(),
		shutdownTelemetry: shutdown,
	}, nil
}

// Close flushes spans and writes the metrics textfile. Errors are logged.
func (rt *Runtime) Close(ctx context.Context) {
	if rt == nil {
		return
	}
	if rt.shutdownTelemetry != nil {
		if err := rt.shutdownTelemetry(ctx); err != nil {
			logger.Warn("telemetry shutdown error", logger.Err(err))
		}
	}
	if rt.Config.Metrics.Enabled {
		if err := metrics.WriteTextfile(rt.Config.Metrics.Textfile); err != nil {
			logger.Warn("metrics export failed", logger.Path(rt.Config.Metrics.Textfile), logger.Err(err))
		}
	}
}
