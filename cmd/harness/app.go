package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/decision-harness/internal/config"
	"github.com/danielpatrickdp/decision-harness/internal/logging"
)

// #region app

// app holds state shared by every subcommand.
type app struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{stdout: stdout, stderr: stderr, logger: logging.Discard()}

	a.root = &cobra.Command{
		Use:   "harness",
		Short: "Deterministic learning, decision and replay harness",
		Long: `harness trains a policy against a deterministic environment, records every
episode in an append-only replay log, and verifies that the log can be
replayed action for action.

Exit codes: 0 ok, 1 replay divergence, 2 usage or IO error.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)

	a.root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML configuration file")
	a.root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	a.root.AddCommand(
		a.newTrainCmd(),
		a.newReplayCmd(),
		a.newRunCmd(),
		a.newServeCmd(),
		a.newInspectCmd(),
		a.newFuseCmd(),
	)
	return a
}

func (a *app) execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.root.SetArgs(args)
	return a.root.ExecuteContext(ctx)
}

func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.NewLogger(cfg.LogOptions(), a.stderr)
	return nil
}

// #endregion app

// #region output
func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

// #endregion output
