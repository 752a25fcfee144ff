package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/figaro/internal/app"
	"github.com/vovakirdan/figaro/internal/config"
	figarolog "github.com/vovakirdan/figaro/internal/log"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "figaro",
		Short:        "Live channel status board",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(flags), newDevServerCmd(flags))
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live view",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags, overrides)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}
			return run(cmd.Context(), logger, cfg.Addr, "figaro", application.Run)
		},
	}
	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&overrides.FeedURL, "feed-url", "", "upstream feed WebSocket URL")
	cmd.Flags().StringVar(&overrides.StatusURL, "status-url", "", "status change endpoint")
	cmd.Flags().StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	cmd.Flags().DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}

func newDevServerCmd(flags *rootFlags) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Serve a random feed and status endpoint for development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags, overrides)
			if err != nil {
				return err
			}
			if err := cfg.ValidateDev(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			dev, err := app.NewDevServer(&cfg, logger)
			if err != nil {
				return err
			}
			return run(cmd.Context(), logger, cfg.Dev.Addr, "figaro devserver", dev.Run)
		},
	}
	cmd.Flags().StringVar(&overrides.Dev.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().DurationVar(&overrides.Dev.Delay, "delay", 0, "delay between frames")
	cmd.Flags().StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	return cmd
}

// loadConfig resolves configuration and builds the logger from it.
func loadConfig(flags *rootFlags, overrides config.Config) (config.Config, *zerolog.Logger, error) {
	bootstrap := figarolog.New(flags.logLevel, "console")

	cfg, path, err := config.Load(bootstrap, flags.configPath)
	if err != nil {
		return cfg, nil, err
	}
	overrides.LogLevel = flags.logLevel
	cfg.UpdateFrom(overrides)

	logger := figarolog.New(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func run(parent context.Context, logger *zerolog.Logger, addr, name string, fn func(context.Context) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", addr).Msgf("starting %s", name)
	if err := fn(ctx); err != nil {
		logger.Error().Err(err).Msgf("%s exited with error", name)
		return err
	}
	logger.Info().Msgf("%s stopped", name)
	return nil
}
