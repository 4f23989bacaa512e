package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

type WatchCmd struct {
	SettingsFlags `embed:""`
	Tracing       bool `help:"export build traces and metrics over OTLP" default:"false" env:"COZY_BUILD_TRACING"`
}

func (c *WatchCmd) Run(ctx context.Context, globals *Globals) error {
	logger := setupLogging(globals)
	ctx = logger.WithContext(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := startTelemetry(ctx, c.Tracing, globals.Version)
	defer shutdown()

	resolved, err := c.resolve(globals)
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}

	pipeline, err := newPipeline(resolved)
	if err != nil {
		return fmt.Errorf("failed to create asset pipeline: %w", err)
	}

	err = pipeline.Watch(ctx)
	logger.Info().Msg("Stopped watching")
	return err
}
