// Command sockecho runs an echo server or client over stream or datagram
// sockets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/OpenListTeam/gosock/internal/config"
	"github.com/OpenListTeam/gosock/manager/sockets"
)

type globalFlags struct {
	configPath string
	network    string
	logLevel   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:          "sockecho",
		Short:        "echo server and client over raw sockets",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to YAML config")
	root.PersistentFlags().StringVar(&g.network, "network", "", "override network (tcp or udp)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log level")

	root.AddCommand(
		&cobra.Command{
			Use:   "server",
			Short: "run the echo server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(cmd.Context(), g, func(ctx context.Context, logger *zap.Logger, cfg config.Config) error {
					return runServer(ctx, logger, cfg)
				})
			},
		},
		&cobra.Command{
			Use:   "client",
			Short: "send one message and print the echo",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(cmd.Context(), g, func(ctx context.Context, logger *zap.Logger, cfg config.Config) error {
					reply, err := runClient(ctx, logger, cfg)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(reply))
					return err
				})
			},
		},
	)
	return root
}

// withRuntime loads configuration, builds the logger and installs a signal
// handler before calling fn.
func withRuntime(parent context.Context, g globalFlags, fn func(context.Context, *zap.Logger, config.Config) error) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	sockets.SetLogger(logger.Named("sockets"))

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, logger, cfg)
}

func loadConfig(g globalFlags) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.network != "" {
		cfg.Network = config.Network(g.network)
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
