package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mfenderov/docsync/internal/ingestion"
	"github.com/mfenderov/docsync/internal/runlock"
)

var syncSchemes []string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync grant schemes into the search indices once",
	Long: `Fetch the live documents of each configured scheme, compare them with the
stored manifest, remove what disappeared, index what is new or updated, and
save the new manifest.

Examples:
  # Sync every configured scheme
  docsync sync

  # Sync selected schemes only
  docsync sync --scheme vetVisits --scheme woodlandOffer`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringSliceVar(&syncSchemes, "scheme", nil, "scheme to sync (repeatable, default: all)")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	release, err := runlock.New(cfg.Sync.LockFile).TryAcquire()
	if err != nil {
		if errors.Is(err, runlock.ErrLocked) {
			return fmt.Errorf("%w (lock file %s)", err, cfg.Sync.LockFile)
		}
		return err
	}
	defer release()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	if err := a.indices.ensure(ctx); err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}

	slog.Debug("sync command starting", "schemes", syncSchemes)
	start := time.Now()

	results, err := a.runner.Run(ctx, syncSchemes...)
	if err != nil {
		return err
	}

	printResults(cmd.OutOrStdout(), results, time.Since(start))
	return nil
}

func printResults(w io.Writer, results ingestion.Results, elapsed time.Duration) {
	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", bold("Sync complete:"))
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "  %s %s: %s\n", fail("✗"), r.Scheme, r.Error)
			continue
		}
		fmt.Fprintf(w, "  %s %s: %d added, %d chunks, %d removed, %d skipped\n",
			ok("✓"), r.Scheme, r.DocumentsAdded, r.ChunkCount, r.Removed, r.Skipped)
	}

	docs, chunks := results.Totals()
	fmt.Fprintf(w, "  Total: %d documents, %d chunks\n", docs, chunks)
	fmt.Fprintf(w, "  Duration: %v\n", elapsed.Round(time.Millisecond))
}
