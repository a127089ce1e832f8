package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/aecwatch/internal/watcher"
	"github.com/dshills/aecwatch/pkg/types"
)

// DefaultDrainTimeout bounds how long shutdown waits for the last batches
const DefaultDrainTimeout = 30 * time.Second

var drainTimeout time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project root and process changes as they settle",
	Long: `Watch the project root for new and modified files. Files already present
are processed first. Changes are collected until the tree has been quiet for
the debounce interval, then processed as one batch.

On SIGINT or SIGTERM the running batch finishes and anything still pending is
processed before exit, bounded by --drain-timeout.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&drainTimeout, "drain-timeout", DefaultDrainTimeout, "maximum time to finish pending work on shutdown")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := func(ctx context.Context, batch watcher.Batch) []string {
		result := a.pipeline.ProcessBatch(ctx, batch.Paths)
		_ = a.pipeline.RecordBatch(ctx, result, types.TriggerWatch, a.cfg.Root)
		for _, ge := range result.GroupErrors {
			a.logger.Error("group resolution failed", "group", ge.Group.String(), "error", ge.Err)
		}
		return result.Retry
	}

	b, err := watcher.New(watcher.Config{
		Root:       a.cfg.Root,
		Source:     watcher.NewFSNotifySource(a.filter, a.logger),
		Filter:     a.filter,
		Handler:    handler,
		Debounce:   a.cfg.Debounce,
		MaxRetries: a.cfg.MaxRetries,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}

	// The batcher outlives ctx so shutdown can drain through Stop
	if err := b.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down", "drain_timeout", drainTimeout)
	case <-b.Done():
		return errors.New("watcher stopped unexpectedly")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := b.Stop(drainCtx); err != nil {
		return fmt.Errorf("shutdown did not finish: %w", err)
	}
	return nil
}
