package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"secretgrab/internal/browser"
	"secretgrab/internal/capture"
	"secretgrab/internal/logging"
	"secretgrab/internal/secrets"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// grabber is the part of the session manager the grab command drives.
type grabber interface {
	Grab(ctx context.Context) ([]capture.Record, error)
	Shutdown(ctx context.Context) error
}

// newGrabber is swapped out in tests.
var newGrabber = func(bc browser.Config, base *zap.Logger) grabber {
	return browser.NewSessionManager(bc, logging.For(base, logging.CategoryBrowser)).
		WithExtractor(capture.NewExtractor(logging.For(base, logging.CategoryCapture)))
}

// commandContext cancels on SIGINT/SIGTERM and after the --timeout deadline.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runGrab(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	boot := logging.For(logger, logging.CategoryBoot)
	mgr := newGrabber(cfg.BrowserConfig(), logger)
	defer func() {
		if err := mgr.Shutdown(context.Background()); err != nil {
			boot.Warn("Browser shutdown failed", zap.Error(err))
		}
	}()

	records, err := mgr.Grab(ctx)
	if err != nil {
		return fmt.Errorf("failed to grab secrets: %w", err)
	}

	writer := secrets.NewWriter(fsys, cfg.Output.Dir, logging.For(logger, logging.CategoryOutput))
	if cfg.Output.SaveRaw && len(records) > 0 {
		if err := writer.WriteRaw(capture.Encode(records)); err != nil {
			return fmt.Errorf("failed to save raw captures: %w", err)
		}
	}

	return summarize(cmd, writer, records)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	data, err := afero.ReadFile(fsys, args[0])
	if err != nil {
		return fmt.Errorf("failed to read captures: %w", err)
	}
	records, err := capture.Decode(string(data))
	if err != nil {
		return fmt.Errorf("failed to decode captures %s: %w", args[0], err)
	}
	logging.For(logger, logging.CategoryCapture).Info("Loaded captures",
		zap.String("file", args[0]), zap.Int("count", len(records)))

	writer := secrets.NewWriter(fsys, cfg.Output.Dir, logging.For(logger, logging.CategoryOutput))
	return summarize(cmd, writer, records)
}

func summarize(cmd *cobra.Command, writer *secrets.Writer, records []capture.Record) error {
	views, err := secrets.NewSummarizer(writer, logging.For(logger, logging.CategorySecrets)).Summarize(records)
	if err != nil {
		return fmt.Errorf("failed to write secrets: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(views, writer.Dir()))
	return nil
}
