// Command autoui records desktop interactions and replays them with
// visual verification.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/autoui/internal/artifacts"
	"github.com/GriffinCanCode/autoui/internal/config"
	"github.com/GriffinCanCode/autoui/internal/logging"
)

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	envFile   string
	artifacts string
	logLevel  string
	logFormat string
	watch     string

	cfg    *config.Config
	layout artifacts.Layout
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "autoui",
		Short:             "Record and replay desktop UI interactions with visual verification",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.envFile, "env", "", "env file to load before reading the environment")
	f.StringVar(&a.artifacts, "artifacts", "", "artifacts root directory (overrides ARTIFACTS_DIR)")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	f.StringVar(&a.watch, "watch", "", "serve live progress over websocket on this address")

	root.AddCommand(a.recordCmd(), a.replayCmd(), a.compareCmd(), a.locateCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if a.envFile != "" {
		a.cfg, err = config.Load(a.envFile)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.artifacts != "" {
		a.cfg.ArtifactsDir = a.artifacts
	}
	if a.logLevel != "" {
		a.cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.LogFormat = a.logFormat
	}
	if a.watch != "" {
		a.cfg.WatchAddr = a.watch
	}

	if _, err := logging.Setup(logging.Options{
		Level:  a.cfg.LogLevel,
		Format: a.cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	}); err != nil {
		return err
	}

	a.layout = artifacts.New(a.cfg.ArtifactsDir)
	if err := a.layout.Ensure(); err != nil {
		slog.Error("failed to create artifact directories", "root", a.cfg.ArtifactsDir, "error", err)
		return err
	}
	return nil
}
