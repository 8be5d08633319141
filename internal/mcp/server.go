package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/scholarrag/internal/indexer"
	"github.com/dshills/scholarrag/internal/logging"
	"github.com/dshills/scholarrag/internal/searcher"
	"github.com/dshills/scholarrag/internal/storage"
	"github.com/dshills/scholarrag/internal/summarizer"
)

const (
	// ServerName is the MCP server name
	ServerName = "scholarrag"
	// DefaultK is the retrieval depth used when a tool call omits k
	DefaultK = 12
)

// ServerVersion is the advertised server version, set by the CLI at startup
var ServerVersion = "dev"

// Deps are the application components the tools call into
type Deps struct {
	Storage    storage.Storage
	Indexer    *indexer.Indexer
	Searcher   *searcher.Searcher
	Summarizer *summarizer.Orchestrator
	Logger     *logging.Logger
	DefaultK   int
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	storage    storage.Storage
	indexer    *indexer.Indexer
	searcher   *searcher.Searcher
	summarizer *summarizer.Orchestrator
	log        *logging.Logger
	defaultK   int
}

// NewServer creates a new MCP server over already-built components
func NewServer(deps Deps) (*Server, error) {
	if deps.Storage == nil || deps.Indexer == nil || deps.Searcher == nil || deps.Summarizer == nil {
		return nil, errors.New("mcp server requires storage, indexer, searcher and summarizer")
	}
	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}
	k := deps.DefaultK
	if k <= 0 {
		k = DefaultK
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:        mcpServer,
		storage:    deps.Storage,
		indexer:    deps.Indexer,
		searcher:   deps.Searcher,
		summarizer: deps.Summarizer,
		log:        log,
		defaultK:   k,
	}
	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until the client disconnects.
// Closing storage and the summarizer is left to the caller.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("mcp server listening on stdio", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestDocxTool(), s.handleIngestDocx)
	s.mcp.AddTool(ingestDocumentTool(), s.handleIngestDocument)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(summarizeTool(), s.handleSummarize)
	s.mcp.AddTool(getSummaryTool(), s.handleGetSummary)
	s.mcp.AddTool(getDocumentTool(), s.handleGetDocument)
	s.mcp.AddTool(deleteDocumentTool(), s.handleDeleteDocument)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
