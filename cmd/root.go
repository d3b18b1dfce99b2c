// Package cmd defines the contest-digest command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/contest-digest/internal/app"
	"github.com/JakeFAU/contest-digest/internal/config"
	"github.com/JakeFAU/contest-digest/internal/logging"
)

// runner is the slice of *app.App the command drives.
type runner interface {
	Run(ctx context.Context) (app.Report, error)
	Close() error
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (runner, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "contest-digest",
		Short: "Writes a weekly digest of upcoming programming contests.",
		Long: `contest-digest collects upcoming contests from Codeforces, AtCoder and
Luogu, keeps those starting within the next seven days and writes a plain
text digest to the configured output.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDigest(cmd.Context(), cfgFile)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	return cmd
}

func runDigest(ctx context.Context, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("Error closing application services", zap.Error(cerr))
		}
	}()

	report, err := a.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("digest complete", zap.String("run_id", report.RunID), zap.String("uri", report.URI))
	return nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if logger, lerr := logging.New(logging.Config{Level: logging.DefaultLevel}); lerr == nil {
			logger.Error("Command execution failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
