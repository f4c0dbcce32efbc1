package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ziadkadry99/mermaid-studio/internal/content"
	"github.com/ziadkadry99/mermaid-studio/internal/conversation"
	"github.com/ziadkadry99/mermaid-studio/internal/diagrams"
	"github.com/ziadkadry99/mermaid-studio/internal/export"
	"github.com/ziadkadry99/mermaid-studio/internal/highlight"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
	"github.com/ziadkadry99/mermaid-studio/internal/viewport"
)

// segmentView is a message segment with highlighted HTML for code and
// diagram blocks.
type segmentView struct {
	content.Segment
	HTML string `json:"html,omitempty"`
}

type messageView struct {
	Index     int               `json:"index"`
	Role      conversation.Role `json:"role"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Segments  []segmentView     `json:"segments"`
}

type documentResponse struct {
	diagrams.Document
	Type string `json:"type"`
}

type turnRequest struct {
	Content string `json:"content"`
}

type turnResponse struct {
	Prompt  conversation.Message `json:"prompt"`
	Reply   conversation.Message `json:"reply"`
	Source  string               `json:"source,omitempty"`
	Adopted bool                 `json:"adopted"`
	Error   string               `json:"error,omitempty"`
}

type sourceRequest struct {
	Source string       `json:"source"`
	Theme  render.Theme `json:"theme,omitempty"`
}

type selectRequest struct {
	Message int `json:"message"`
	Segment int `json:"segment"`
}

type themeRequest struct {
	Theme render.Theme `json:"theme"`
}

type textRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Source string `json:"source"`
	Found  bool   `json:"found"`
}

type markupResponse struct {
	Markup render.Markup `json:"markup"`
}

func newDocumentResponse(d diagrams.Document) documentResponse {
	return documentResponse{Document: d, Type: d.Type()}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "mermaid"})
}

func (a *API) handleMessages(w http.ResponseWriter, r *http.Request) {
	theme := a.ws.Theme()
	views := a.ws.MessageViews()
	out := make([]messageView, 0, len(views))
	for _, v := range views {
		mv := messageView{
			Index:     v.Index,
			Role:      v.Role,
			Content:   v.Content,
			CreatedAt: v.CreatedAt,
			Segments:  make([]segmentView, len(v.Segments)),
		}
		for i, seg := range v.Segments {
			mv.Segments[i] = segmentView{Segment: seg, HTML: a.highlightSegment(seg, theme)}
		}
		out = append(out, mv)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) highlightSegment(seg content.Segment, theme render.Theme) string {
	var lang string
	switch seg.Kind {
	case content.KindDiagram:
		lang = "mermaid"
	case content.KindCode:
		lang = seg.Language
		if lang == "" {
			lang = "plaintext"
		}
	default:
		return ""
	}
	html, err := highlight.HTML(seg.Content, lang, theme)
	if err != nil {
		a.log.Warn("highlight failed", "language", lang, "error", err)
		return ""
	}
	return html
}

func (a *API) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := a.ws.SendTurn(r.Context(), req.Content)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	reply, err := turn.Wait(r.Context())
	if err != nil {
		// The turn keeps going; its reply arrives over the websocket.
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	}

	resp := turnResponse{Prompt: turn.Prompt, Reply: reply}
	resp.Source, resp.Adopted = turn.Source()
	if terr := turn.Err(); terr != nil {
		resp.Error = terr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newDocumentResponse(a.ws.Document()))
}

func (a *API) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(a.ws.Edit(req.Source)))
}

func (a *API) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := a.ws.SelectDiagram(req.Message, req.Segment)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc))
}

func (a *API) handleRender(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.ws.Display())
}

// handleRenderOnce renders arbitrary source without touching the document.
func (a *API) handleRenderOnce(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	markup, err := a.ws.RenderOnce(r.Context(), req.Source, req.Theme)
	if err != nil {
		status := http.StatusBadGateway
		var se *render.SyntaxError
		switch {
		case errors.As(err, &se):
			status = http.StatusUnprocessableEntity
		case statusFor(err) == http.StatusBadRequest:
			status = http.StatusBadRequest
		}
		writeError(w, status, render.Detail(err))
		return
	}
	writeJSON(w, http.StatusOK, markupResponse{Markup: markup})
}

func (a *API) handleTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := a.ws.SetTheme(req.Theme)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc))
}

func (a *API) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.ws.Viewport().State())
}

func (a *API) handleGesture(w http.ResponseWriter, r *http.Request) {
	var g viewport.Gesture
	if err := decodeJSON(w, r, &g); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := a.ws.ApplyGesture(g)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleSegments(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, content.Parse(req.Text))
}

func (a *API) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	src, ok := content.Extract(req.Text)
	writeJSON(w, http.StatusOK, extractResponse{Source: src, Found: ok})
}

func (a *API) handleExportSVG(w http.ResponseWriter, r *http.Request) {
	data, err := export.SVG(a.ws.Display().Markup)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", export.SVGContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.SVGFilename+`"`)
	w.Write(data)
}

func (a *API) handleExportTranscript(w http.ResponseWriter, r *http.Request) {
	page, err := export.Transcript(a.ws.Messages(), export.TranscriptOptions{
		Theme:   a.ws.Theme(),
		Diagram: a.ws.Display().Markup,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}
