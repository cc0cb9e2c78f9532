// Package main is the production entry point for the TrueStream audio visualizer.
//
// TrueStream loads one audio or video source at a time, plays it and drives
// a synthwave scene from the live frequency spectrum:
// - Event-driven communication between pipeline and UI
// - Dependency injection for testability
// - MVP pattern for UI decoupling
//
// Build:
//
//	go build -o build/truestream ./cmd
//
// Run:
//
//	./build/truestream --file track.mp3
//	./build/truestream --headless --null-audio --url https://example.com/a.ogg
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/truestream/internal/app"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "truestream",
		Short:         "Audio-reactive synthwave visualizer",
		Version:       app.GetVersionInfo().FullString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := app.LoadConfig(configPath, cmd.Flags())
			if err != nil {
				return reportError("load configuration", err)
			}
			return run(cmd.Context(), config)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a YAML configuration file")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("headless", false, "play without a window until the track ends")
	flags.Bool("null-audio", false, "discard decoded audio instead of opening a device")
	flags.String("file", "", "local audio or video file to load at startup")
	flags.String("url", "", "remote audio to fetch and load at startup")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	cmd.MarkFlagsMutuallyExclusive("file", "url")

	return cmd
}

func run(parent context.Context, config app.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create the application with dependency injection
	application, err := app.NewApplication(config)
	if err != nil {
		return reportError("create application", err)
	}

	// Ensure a graceful shutdown
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	// Run application (blocks until the window is closed or a signal arrives)
	if err := application.Run(ctx); err != nil {
		return reportError("run", err)
	}
	return nil
}

func reportError(step string, err error) error {
	fmt.Fprintf(os.Stderr, "truestream: %s: %v\n", step, err)
	return err
}
