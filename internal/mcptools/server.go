package mcptools

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/gedex/internal/metrics"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with all 5 genealogy tools registered.
func NewMCPServer(svc *GenealogyService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "gedex",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_file",
		Description: "Parse a genealogy document and load its records into the relationship graph used by the other tools. Returns record counts, unrecognized and dangling references, and graph statistics.",
	}, svc.ParseFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "count_unparsed",
		Description: "Count the lines of a document that match neither the tag-line nor the reference-line grammar. Does not check structure.",
	}, svc.CountUnparsed)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_records",
		Description: "Search records of the loaded document by name or cross-reference substring. Optionally filter by entity kind and limit results.",
	}, svc.QueryRecords)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_lineage",
		Description: "Walk fathers and mothers (ancestors) or children (descendants) from a record. Returns one chain per reachable record up to the given number of generations.",
	}, svc.GetLineage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_trees",
		Description: "Return the family trees of the loaded document: groups of records connected by any relationship, with their founders.",
	}, svc.GetTrees)

	return server
}

// NewHTTPHandler serves the MCP streamable HTTP transport at / and, when m is
// non-nil, Prometheus metrics at /metrics.
func NewHTTPHandler(server *mcp.Server, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	))
	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}
	return mux
}

// RunMCPServer starts an HTTP server exposing the genealogy MCP tools.
func RunMCPServer(ctx context.Context, svc *GenealogyService, addr string, m *metrics.Metrics, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           NewHTTPHandler(NewMCPServer(svc), m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Info("mcp server listening", "addr", addr)
	}
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunStdio serves the genealogy MCP tools over stdin/stdout until the client
// disconnects or ctx is canceled.
func RunStdio(ctx context.Context, svc *GenealogyService) error {
	return NewMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
