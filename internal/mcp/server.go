package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mfenderov/docsync/internal/ingestion"
	"github.com/mfenderov/docsync/internal/runlock"
	"github.com/mfenderov/docsync/pkg/models"
)

const (
	indexFull    = "full"
	indexSummary = "summary"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Searcher reads chunks back from one index.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.IndexedRecord, error)
	HybridSearch(ctx context.Context, query string, queryEmbedding []float32, limit int) ([]models.IndexedRecord, error)
	GetChunk(ctx context.Context, id string) (*models.IndexedRecord, error)
}

// Embedder embeds search queries for hybrid search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Syncer runs schemes by name, or all of them with no names.
type Syncer interface {
	Run(ctx context.Context, names ...string) (ingestion.Results, error)
}

// Deps are the services behind the tools. Embedder is optional; without it
// search is keyword only.
type Deps struct {
	Full     Searcher
	Summary  Searcher
	Embedder Embedder
	Syncer   Syncer
	Lock     *runlock.Lock
}

// Server wraps the MCP server with sync and search tools.
type Server struct {
	mcpServer *server.MCPServer
	deps      Deps
}

// NewServer creates a new MCP server and registers its tools.
func NewServer(config Config, deps Deps) (*Server, error) {
	if deps.Full == nil || deps.Summary == nil {
		return nil, errors.New("full and summary searchers are required")
	}
	if deps.Syncer == nil {
		return nil, errors.New("syncer is required")
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		deps:      deps,
	}

	gatherTool := mcp.NewTool("gather_data",
		mcp.WithDescription("Sync configured grant schemes into the search indices. Returns documents added and chunks produced per scheme."),
		mcp.WithString("schemes",
			mcp.Description("Comma separated scheme names to sync (default: all)"),
		),
	)
	mcpServer.AddTool(gatherTool, s.gatherHandler)

	searchTool := mcp.NewTool("search_chunks",
		mcp.WithDescription("Search indexed grant scheme chunks by query."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithString("index",
			mcp.Description("Index to search: full or summary (default: full)"),
			mcp.Enum(indexFull, indexSummary),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	getChunkTool := mcp.NewTool("get_chunk",
		mcp.WithDescription("Get a specific chunk by ID"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Chunk ID to retrieve"),
		),
		mcp.WithString("index",
			mcp.Description("Index holding the chunk: full or summary (default: full)"),
			mcp.Enum(indexFull, indexSummary),
		),
	)
	mcpServer.AddTool(getChunkTool, s.getChunkHandler)

	return s, nil
}

func (s *Server) gatherHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var names []string
	for _, name := range strings.Split(req.GetString("schemes", ""), ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	results, err := s.handleGather(ctx, names)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("gather data failed: %v", err)), nil
	}
	return jsonResult(results.ByScheme())
}

func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	searcher, err := s.searcher(req.GetString("index", indexFull))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limit := req.GetInt("limit", 10)

	records, err := s.handleSearch(ctx, searcher, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(records)
}

func (s *Server) getChunkHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	searcher, err := s.searcher(req.GetString("index", indexFull))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := searcher.GetChunk(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get chunk failed: %v", err)), nil
	}
	if record == nil {
		return mcp.NewToolResultError(fmt.Sprintf("chunk not found: %s", id)), nil
	}
	return jsonResult(record)
}

// handleGather runs the sync under the run lock.
func (s *Server) handleGather(ctx context.Context, names []string) (ingestion.Results, error) {
	if s.deps.Lock != nil {
		release, err := s.deps.Lock.TryAcquire()
		if err != nil {
			return nil, err
		}
		defer release()
	}
	return s.deps.Syncer.Run(ctx, names...)
}

// handleSearch uses hybrid search when the query can be embedded.
func (s *Server) handleSearch(ctx context.Context, searcher Searcher, query string, limit int) ([]models.IndexedRecord, error) {
	if s.deps.Embedder == nil {
		return searcher.Search(ctx, query, limit)
	}

	vector, err := s.deps.Embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("query embedding failed, using keyword search", "error", err)
		return searcher.Search(ctx, query, limit)
	}
	return searcher.HybridSearch(ctx, query, vector, limit)
}

func (s *Server) searcher(index string) (Searcher, error) {
	switch index {
	case indexFull, "":
		return s.deps.Full, nil
	case indexSummary:
		return s.deps.Summary, nil
	default:
		return nil, fmt.Errorf("unknown index %q, want %s or %s", index, indexFull, indexSummary)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
