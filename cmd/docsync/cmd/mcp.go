package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfenderov/docsync/internal/mcp"
	"github.com/mfenderov/docsync/internal/runlock"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server over stdio.

Tools:
  - gather_data: Sync all or selected schemes
  - search_chunks: Search the full or summary index
  - get_chunk: Get a specific chunk by ID

Example:
  docsync mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, mcp.Deps{
		Full:     a.indices.full,
		Summary:  a.indices.summary,
		Embedder: a.embedder,
		Syncer:   a.runner,
		Lock:     runlock.New(cfg.Sync.LockFile),
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
