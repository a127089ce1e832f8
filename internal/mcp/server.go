package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/aecwatch/internal/indexer"
	"github.com/dshills/aecwatch/internal/storage"
	"github.com/dshills/aecwatch/internal/watcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "aecwatch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	pipeline *indexer.Pipeline
	filter   *watcher.Filter
	scanLock indexer.ScanLock
	logger   *slog.Logger
}

// NewServer creates a server over store. Scans requested through the
// scan_project tool run through pipeline and walk with filter; a nil filter
// uses the default extensions and exclusions.
func NewServer(store storage.Storage, pipeline *indexer.Pipeline, filter *watcher.Filter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		storage:  store,
		pipeline: pipeline,
		filter:   filter,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio and blocks until stdin closes. The
// caller owns the store.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(getByPathTool(), s.handleGetByPath)
	s.mcp.AddTool(getByGroupTool(), s.handleGetByGroup)
	s.mcp.AddTool(getCurrentRevisionsTool(), s.handleGetCurrentRevisions)
	s.mcp.AddTool(listProjectsTool(), s.handleListProjects)
	s.mcp.AddTool(scanProjectTool(), s.handleScanProject)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
