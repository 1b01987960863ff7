// Package main is the entry point for the hostsyncd guest daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/hostsync/internal/config"
	"github.com/jmylchreest/hostsync/internal/daemon"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/hostsync/hostsyncd.toml)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("hostsyncd version", version)
		os.Exit(0)
	}

	// Set up structured logging; the level follows the config and its reloads
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting hostsyncd", "version", version)

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}
	if l, err := config.ParseLevel(cfg.Log.Level); err == nil {
		level.Set(l)
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	d := daemon.New(cfg, logger, level)
	d.SetConfigPath(path)

	if err := d.Run(ctx); err != nil {
		logger.Error("hostsyncd exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("hostsyncd stopped")
}
