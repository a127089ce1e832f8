package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/aecwatch/internal/indexer"
	"github.com/dshills/aecwatch/internal/watcher"
	"github.com/dshills/aecwatch/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Process every accepted file under a directory once",
	Long: `Walk a directory (default: the configured root) and run every accepted file
through the pipeline as a single batch. Unchanged files are skipped, so a
rescan only costs a hash per file. --dry-run reports what would be
classified without touching the database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

var dryRun bool

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify into an in-memory store; nothing is saved")
}

// scanOutput is the JSON output for scan
type scanOutput struct {
	BatchID    string   `json:"batch_id"`
	Found      int      `json:"files_found"`
	Completed  int      `json:"completed"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Retry      int      `json:"retry"`
	Partial    bool     `json:"partial"`
	DurationMS int64    `json:"duration_ms"`
	Errors     []string `json:"errors,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	root := a.cfg.Root
	if len(args) == 1 {
		root = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := watcher.Walk(ctx, root, a.filter)
	if err != nil {
		return err
	}
	result := a.pipeline.ProcessBatch(ctx, paths)
	_ = a.pipeline.RecordBatch(context.WithoutCancel(ctx), result, types.TriggerScan, root)

	out := scanOutput{
		BatchID:    result.ID.String(),
		Found:      len(paths),
		Completed:  len(result.Completed),
		Skipped:    len(result.Skipped),
		Failed:     len(result.Failed),
		Retry:      len(result.Retry),
		Partial:    result.Partial(),
		DurationMS: result.Duration.Milliseconds(),
		Errors:     result.Errors,
	}
	if jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		printScan(cmd.OutOrStdout(), out, result)
	}

	if len(result.Failed) > 0 || len(result.Retry) > 0 {
		return fmt.Errorf("%d files failed, %d need a retry", len(result.Failed), len(result.Retry))
	}
	return nil
}

func printScan(w io.Writer, out scanOutput, result *indexer.BatchResult) {
	fmt.Fprintf(w, "Scanned %d files in %dms (batch %s)\n", out.Found, out.DurationMS, out.BatchID)
	fmt.Fprintf(w, "  completed: %d\n", out.Completed)
	fmt.Fprintf(w, "  skipped:   %d\n", out.Skipped)
	fmt.Fprintf(w, "  failed:    %d\n", out.Failed)
	if out.Retry > 0 {
		fmt.Fprintf(w, "  retry:     %d\n", out.Retry)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
	for _, ge := range result.GroupErrors {
		fmt.Fprintf(w, "  group %s: %v\n", ge.Group, ge.Err)
	}
}

// writeJSON writes v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
