// Package mcp exposes the diagram workspace to agents as MCP tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/mermaid-studio/internal/workspace"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes diagram tools over a workspace.
type Server struct {
	ws  *workspace.Workspace
	mcp *server.MCPServer
}

// NewServer creates a new MCP server bound to ws.
func NewServer(ws *workspace.Workspace) *Server {
	s := &Server{ws: ws}

	s.mcp = server.NewMCPServer(
		"mstudio",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(extractDiagramTool, s.handleExtractDiagram)
	s.mcp.AddTool(parseSegmentsTool, s.handleParseSegments)
	s.mcp.AddTool(renderDiagramTool, s.handleRenderDiagram)
	s.mcp.AddTool(generateDiagramTool, s.handleGenerateDiagram)
	s.mcp.AddTool(getDocumentTool, s.handleGetDocument)
	s.mcp.AddTool(updateDocumentTool, s.handleUpdateDocument)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
