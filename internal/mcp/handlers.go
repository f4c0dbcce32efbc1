package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/mermaid-studio/internal/content"
	"github.com/ziadkadry99/mermaid-studio/internal/diagrams"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

// documentState is the get_document payload.
type documentState struct {
	Document diagrams.Document `json:"document"`
	Type     string            `json:"type"`
	Theme    render.Theme      `json:"theme"`
	Render   render.Snapshot   `json:"render"`
}

// handleExtractDiagram returns the diagram source carried by a reply.
func (s *Server) handleExtractDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	src, ok := content.Extract(text)
	if !ok {
		return mcp.NewToolResultError("No Mermaid diagram found in the text."), nil
	}
	return mcp.NewToolResultText(src), nil
}

// handleParseSegments splits a message into segments.
func (s *Server) handleParseSegments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}
	return jsonResult(content.Parse(text))
}

// handleRenderDiagram renders source once through the workspace engine.
func (s *Server) handleRenderDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: source"), nil
	}
	if strings.TrimSpace(source) == "" {
		return mcp.NewToolResultError(render.ErrEmptySource.Error()), nil
	}
	theme := render.Theme(request.GetString("theme", ""))

	markup, err := s.ws.RenderOnce(ctx, source, theme)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %s", render.Detail(err))), nil
	}
	return mcp.NewToolResultText(string(markup)), nil
}

// handleGenerateDiagram runs one conversation turn and waits for its reply.
func (s *Server) handleGenerateDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: prompt"), nil
	}

	turn, err := s.ws.SendTurn(ctx, prompt)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot start turn: %v", err)), nil
	}
	reply, err := turn.Wait(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("waiting for reply: %v", err)), nil
	}
	if terr := turn.Err(); terr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s (%v)", reply.Content, terr)), nil
	}

	var sb strings.Builder
	sb.WriteString(reply.Content)
	if src, ok := turn.Source(); ok {
		sb.WriteString("\n\n--- Adopted diagram ---\n")
		sb.WriteString(src)
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetDocument reports the document and its render state.
func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := s.ws.Document()
	state := documentState{
		Document: doc,
		Type:     doc.Type(),
		Theme:    s.ws.Theme(),
		Render:   s.ws.Display(),
	}
	if !request.GetBool("include_markup", false) {
		state.Render.Markup = ""
	}
	return jsonResult(state)
}

// handleUpdateDocument replaces the document source.
func (s *Server) handleUpdateDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: source"), nil
	}
	doc := s.ws.Edit(source)
	return mcp.NewToolResultText(fmt.Sprintf("Document updated to revision %d (%s).", doc.Revision, typeOrUnknown(doc.Type()))), nil
}

func typeOrUnknown(t string) string {
	if t == "" {
		return "unrecognised diagram type"
	}
	return t
}

// jsonResult encodes v without HTML escaping so markup stays readable.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}
