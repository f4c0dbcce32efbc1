package api

import (
	"net/http"
	"strings"

	"github.com/ziadkadry99/mermaid-studio/internal/conversation"
)

// generatedMessage is reported with every successful generation.
const generatedMessage = "Diagram generated successfully"

// handleGenerateDiagram is the stateless backend endpoint. It answers one
// prompt against the history the caller supplies and keeps no state.
func (a *API) handleGenerateDiagram(w http.ResponseWriter, r *http.Request) {
	var wire conversation.GenerateDiagramRequest
	if err := decodeJSON(w, r, &wire); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(wire.Prompt) == "" {
		writeError(w, http.StatusBadRequest, conversation.ErrEmptyPrompt.Error())
		return
	}

	req, err := conversation.FromWire(wire)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := a.assistant.Generate(r.Context(), req)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = conversation.ErrEmptyReply
	}
	if err != nil {
		if r.Context().Err() != nil {
			a.log.Info("generate-diagram cancelled by client")
			return
		}
		a.log.Error("generate-diagram failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate diagram: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, conversation.GenerateDiagramResponse{
		Content: reply,
		Success: true,
		Message: generatedMessage,
	})
}
