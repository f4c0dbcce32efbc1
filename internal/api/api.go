// Package api exposes a workspace over HTTP and a websocket, plus the
// stateless generate-diagram backend endpoint.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ziadkadry99/mermaid-studio/internal/conversation"
	"github.com/ziadkadry99/mermaid-studio/internal/workspace"
)

// requestTimeout bounds plain request/response handlers. Turn requests
// and the websocket are not subject to it.
const requestTimeout = 60 * time.Second

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// API serves one workspace. assistant answers the stateless backend
// endpoint and may be nil, in which case that endpoint is not mounted.
type API struct {
	ws          *workspace.Workspace
	assistant   conversation.Assistant
	log         *slog.Logger
	checkOrigin func(r *http.Request) bool
}

// New creates an API for ws.
func New(ws *workspace.Workspace, assistant conversation.Assistant, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		ws:        ws,
		assistant: assistant,
		log:       logger.With("component", "api"),
	}
}

// SetOriginCheck decides which browser origins may open the websocket.
// Without it only same-origin pages and non-browser clients connect.
func (a *API) SetOriginCheck(fn func(r *http.Request) bool) {
	a.checkOrigin = fn
}

// RegisterRoutes mounts all routes onto the given router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/", a.ServeIndex)
	r.Get("/ws", a.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		if a.assistant != nil {
			r.Post("/generate-diagram", a.handleGenerateDiagram)
		}
		r.Post("/turns", a.handleTurn)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/messages", a.handleMessages)
			r.Get("/document", a.handleGetDocument)
			r.Put("/document", a.handlePutDocument)
			r.Post("/document/select", a.handleSelect)
			r.Get("/render", a.handleRender)
			r.Post("/render", a.handleRenderOnce)
			r.Put("/theme", a.handleTheme)
			r.Get("/viewport", a.handleGetViewport)
			r.Post("/viewport", a.handleGesture)
			r.Post("/segments", a.handleSegments)
			r.Post("/extract", a.handleExtract)
			r.Get("/export/svg", a.handleExportSVG)
			r.Get("/export/transcript", a.handleExportTranscript)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with the backend's {"detail": ...} error shape.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, conversation.ErrorResponse{Detail: detail})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps workspace and conversation errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, conversation.ErrTurnInFlight):
		return http.StatusConflict
	case errors.Is(err, conversation.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, conversation.ErrEmptyPrompt),
		errors.Is(err, workspace.ErrInvalidTheme),
		errors.Is(err, workspace.ErrNotDiagram):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrNoSuchSegment):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var errMissingGesture = errors.New("viewport frame needs a gesture")

type unknownFrameError struct {
	Type string
}

func (e *unknownFrameError) Error() string {
	return "unknown message type: " + e.Type
}
