package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest [scheme]",
	Short: "Print stored manifests",
	Long: `Without arguments, list the stored manifest files. With a scheme name,
print that scheme's manifest as JSON.

Examples:
  docsync manifest
  docsync manifest vetVisits`,
	Args: cobra.MaximumNArgs(1),
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	store, err := newManifestStore(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		keys, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list manifests: %w", err)
		}
		for _, k := range keys {
			fmt.Fprintln(out, k)
		}
		return nil
	}

	scheme, ok := cfg.Scheme(args[0])
	if !ok {
		return fmt.Errorf("unknown scheme %q", args[0])
	}
	m, err := store.Get(ctx, scheme.ManifestFile)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
