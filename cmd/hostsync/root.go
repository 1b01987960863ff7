// Package main provides the CLI entrypoint for hostsync.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	godbus "github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/hostsync/internal/config"
	"github.com/jmylchreest/hostsync/internal/transport"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		bus        string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hostsync",
	Short: "Guest to host platform service bridge tools",
	Long: `hostsync talks to the host platform service that hostsyncd feeds.

It can run a reference host on the bus, encode a compositor state file the
way the daemon would send it, and read or write the host clipboard.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logging
		setupLogger()

		// Load configuration
		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if globalOpts.bus != "" {
			cfg.Service.Bus = globalOpts.bus
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/hostsync/hostsyncd.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.bus, "bus", "",
		`Bus to use: "session", "system" or a D-Bus address (default from config)`)
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// dialBus opens the configured bus. The returned function releases it.
func dialBus() (*godbus.Conn, func(), error) {
	conn, err := transport.Dial(cfg.Service.Bus)
	if err != nil {
		return nil, nil, err
	}

	release := func() {}
	switch cfg.Service.Bus {
	case "", "session", "system":
	default:
		release = func() { _ = conn.Close() }
	}
	return conn, release, nil
}

// connectHost returns a binder to the running platform service.
func connectHost(ctx context.Context) (*transport.DBusBinder, func(), error) {
	conn, release, err := dialBus()
	if err != nil {
		return nil, nil, err
	}

	b, err := transport.Connect(ctx, conn, cfg.TransportService(), cfg.Transport.CallTimeout.Duration(), logger)
	if err != nil {
		release()
		if errors.Is(err, transport.ErrServiceUnavailable) {
			return nil, nil, fmt.Errorf("no platform service running as %s (start one with 'hostsync host')", cfg.Service.Name)
		}
		return nil, nil, err
	}
	return b, release, nil
}
