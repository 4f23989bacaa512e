package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/cozy/cozy-build/internal/logger"
	"github.com/cozy/cozy-build/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type BuildCmd struct {
	SettingsFlags `embed:""`
	Tracing       bool `help:"export build traces and metrics over OTLP" default:"false" env:"COZY_BUILD_TRACING"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	logger := setupLogging(globals)
	ctx = logger.WithContext(ctx)

	shutdown := startTelemetry(ctx, c.Tracing, globals.Version)
	defer shutdown()

	resolved, err := c.resolve(globals)
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}

	logger.Info().
		Str("mode", string(resolved.Env.Mode)).
		Strs("flags", resolved.Env.EnabledFlags).
		Str("output", resolved.Project.OutputDir).
		Msg("Starting build")

	pipeline, err := newPipeline(resolved)
	if err != nil {
		return fmt.Errorf("failed to create asset pipeline: %w", err)
	}

	started := time.Now()
	if err := pipeline.Build(ctx); err != nil {
		return err
	}

	logger.Info().Dur("duration", time.Since(started)).Msg("Build complete")
	return nil
}

func setupLogging(globals *Globals) zerolog.Logger {
	l := logger.Setup(globals.Debug)
	log.Logger = l
	return l
}

// startTelemetry returns a function flushing the exporters, which is a no-op
// when tracing is disabled.
func startTelemetry(ctx context.Context, enabled bool, version string) func() {
	if !enabled {
		return func() {}
	}

	shutdown, err := telemetry.InitTelemetry(ctx, "cozy-build", version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}
