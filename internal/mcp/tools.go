package mcp

import "github.com/mark3labs/mcp-go/mcp"

// extractDiagramTool defines the extract_diagram MCP tool.
var extractDiagramTool = mcp.NewTool("extract_diagram",
	mcp.WithDescription("Extract the Mermaid diagram source an assistant reply contributes. The last ```mermaid block wins; a reply that itself starts with a diagram keyword is taken whole."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Reply text, usually Markdown with fenced code blocks"),
	),
)

// parseSegmentsTool defines the parse_segments MCP tool.
var parseSegmentsTool = mcp.NewTool("parse_segments",
	mcp.WithDescription("Split a message into ordered text, diagram and code segments. Returns JSON."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Message text"),
	),
)

// renderDiagramTool defines the render_diagram MCP tool.
var renderDiagramTool = mcp.NewTool("render_diagram",
	mcp.WithDescription("Render Mermaid source to SVG without changing the workspace document."),
	mcp.WithString("source",
		mcp.Required(),
		mcp.Description("Mermaid diagram source"),
	),
	mcp.WithString("theme",
		mcp.Description("Render theme (defaults to the workspace theme)"),
		mcp.Enum("dark", "light"),
	),
)

// generateDiagramTool defines the generate_diagram MCP tool.
var generateDiagramTool = mcp.NewTool("generate_diagram",
	mcp.WithDescription("Send a chat turn to the diagram assistant and wait for its reply. A diagram in the reply replaces the workspace document."),
	mcp.WithString("prompt",
		mcp.Required(),
		mcp.Description("What to draw or change"),
	),
)

// getDocumentTool defines the get_document MCP tool.
var getDocumentTool = mcp.NewTool("get_document",
	mcp.WithDescription("Get the workspace document and its latest render state. Returns JSON."),
	mcp.WithBoolean("include_markup",
		mcp.Description("Include the last successful SVG markup (default false)"),
	),
)

// updateDocumentTool defines the update_document MCP tool.
var updateDocumentTool = mcp.NewTool("update_document",
	mcp.WithDescription("Replace the workspace document source, as if edited by hand. It is re-rendered after the usual debounce."),
	mcp.WithString("source",
		mcp.Required(),
		mcp.Description("New Mermaid diagram source"),
	),
)
