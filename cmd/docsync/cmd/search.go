package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mfenderov/docsync/internal/elasticsearch"
	"github.com/mfenderov/docsync/pkg/models"
)

var (
	searchLimit   int
	searchFormat  string
	searchSummary bool
	searchHybrid  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed grant scheme chunks",
	Long: `Search the full text index, or the summary index with --summary.

Examples:
  # Basic search
  docsync search "hedgerow funding"

  # Search summaries, limit results
  docsync search "woodland" --summary --limit 5

  # Hybrid keyword and vector search, JSON output
  docsync search "vet visit" --hybrid --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
	searchCmd.Flags().BoolVar(&searchSummary, "summary", false, "Search the summary index")
	searchCmd.Flags().BoolVar(&searchHybrid, "hybrid", false, "Combine keyword and vector search")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	cfg := GetConfig()

	ix, err := newIndices(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	client := ix.full
	if searchSummary {
		client = ix.summary
	}

	records, err := search(ctx, client, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintf(out, "Found %d results in %s:\n\n", len(records), client.Index())
	for i, r := range records {
		fmt.Fprintf(out, "─── Result %d ───\n", i+1)
		fmt.Fprintf(out, "Title:   %s\n", r.Title)
		fmt.Fprintf(out, "Scheme:  %s\n", r.SchemeName)
		fmt.Fprintf(out, "URL:     %s\n", r.SourceURL)
		fmt.Fprintf(out, "ID:      %s\n", r.ID)

		text := r.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Fprintf(out, "Chunk:\n%s\n\n", text)
	}
	return nil
}

func search(ctx context.Context, client *elasticsearch.Client, query string) ([]models.IndexedRecord, error) {
	if !searchHybrid {
		return client.Search(ctx, query, searchLimit)
	}

	embedder, err := newEmbedder(GetConfig())
	if err != nil {
		return nil, err
	}
	vector, err := embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("query embedding failed, using keyword search", "error", err)
		return client.Search(ctx, query, searchLimit)
	}
	return client.HybridSearch(ctx, query, vector, searchLimit)
}
