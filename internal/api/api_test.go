package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/mermaid-studio/internal/content"
	"github.com/ziadkadry99/mermaid-studio/internal/conversation"
	"github.com/ziadkadry99/mermaid-studio/internal/export"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
	"github.com/ziadkadry99/mermaid-studio/internal/viewport"
	"github.com/ziadkadry99/mermaid-studio/internal/workspace"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type echoEngine struct{}

func (echoEngine) Name() string { return "echo" }

func (echoEngine) Render(ctx context.Context, req render.Request) (render.Markup, error) {
	if strings.Contains(req.Source, "BROKEN") {
		return "", &render.SyntaxError{Message: "Parse error on line 1", Line: 1}
	}
	return render.Markup(`<svg data-theme="` + string(req.Options.Theme) + `">` + req.Source + `</svg>`), nil
}

const diagramReply = "Here you go:\n```mermaid\ngraph LR\n  A-->B\n```"

func replyWith(text string) conversation.Assistant {
	return conversation.AssistantFunc(func(ctx context.Context, req conversation.GenerateRequest) (string, error) {
		return text, nil
	})
}

func setupTest(t *testing.T, assistant conversation.Assistant) (chi.Router, *workspace.Workspace) {
	t.Helper()
	if assistant == nil {
		assistant = replyWith(diagramReply)
	}
	ws := workspace.New(echoEngine{}, assistant, workspace.Config{Debounce: time.Millisecond})
	t.Cleanup(ws.Close)

	r := chi.NewRouter()
	New(ws, assistant, nil).RegisterRoutes(r)
	return r, ws
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	r, _ := setupTest(t, nil)
	w := do(t, r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])
}

func TestServeIndex(t *testing.T) {
	r, _ := setupTest(t, nil)
	w := do(t, r, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Mermaid Studio")
}

func TestDocumentEditRenders(t *testing.T) {
	r, ws := setupTest(t, nil)

	w := do(t, r, http.MethodPut, "/api/document", sourceRequest{Source: "sequenceDiagram\n  A->>B: hi"})
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[documentResponse](t, w)
	assert.Equal(t, "sequenceDiagram", doc.Type)
	assert.Equal(t, int64(2), doc.Revision)

	require.Eventually(t, func() bool {
		return ws.Display().SettledRevision == doc.Revision
	}, waitFor, tick)

	w = do(t, r, http.MethodGet, "/api/render", nil)
	snap := decode[render.Snapshot](t, w)
	assert.Contains(t, string(snap.Markup), "A->>B")
	assert.Empty(t, snap.Error)

	w = do(t, r, http.MethodGet, "/api/document", nil)
	assert.Equal(t, "sequenceDiagram\n  A->>B: hi", decode[documentResponse](t, w).Source)
}

func TestDocumentFailureKeepsMarkup(t *testing.T) {
	r, ws := setupTest(t, nil)
	require.Eventually(t, func() bool { return ws.Display().HasMarkup() }, waitFor, tick)

	w := do(t, r, http.MethodPut, "/api/document", sourceRequest{Source: "graph TD\n  BROKEN"})
	require.Equal(t, http.StatusOK, w.Code)
	rev := decode[documentResponse](t, w).Revision

	require.Eventually(t, func() bool { return ws.Display().SettledRevision == rev }, waitFor, tick)
	snap := decode[render.Snapshot](t, do(t, r, http.MethodGet, "/api/render", nil))
	assert.Equal(t, "Parse error on line 1", snap.Error)
	assert.Contains(t, string(snap.Markup), "graph TD")
	assert.Less(t, snap.MarkupRevision, snap.SettledRevision)
}

func TestDocumentBadBody(t *testing.T) {
	r, _ := setupTest(t, nil)
	w := do(t, r, http.MethodPut, "/api/document", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode[conversation.ErrorResponse](t, w).Detail)
}

func TestTurnAdoptsDiagram(t *testing.T) {
	r, _ := setupTest(t, nil)

	w := do(t, r, http.MethodPost, "/api/turns", turnRequest{Content: "draw A to B"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[turnResponse](t, w)
	assert.Equal(t, "draw A to B", resp.Prompt.Content)
	assert.Equal(t, conversation.RoleAssistant, resp.Reply.Role)
	assert.True(t, resp.Adopted)
	assert.Equal(t, "graph LR\n  A-->B", resp.Source)

	doc := decode[documentResponse](t, do(t, r, http.MethodGet, "/api/document", nil))
	assert.Equal(t, "graph LR\n  A-->B", doc.Source)
	assert.Equal(t, "generation", string(doc.Origin))
}

func TestTurnFallbackOnFailure(t *testing.T) {
	failing := conversation.AssistantFunc(func(ctx context.Context, req conversation.GenerateRequest) (string, error) {
		return "", errors.New("upstream down")
	})
	r, _ := setupTest(t, failing)

	w := do(t, r, http.MethodPost, "/api/turns", turnRequest{Content: "draw"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[turnResponse](t, w)
	assert.Equal(t, conversation.FallbackReply, resp.Reply.Content)
	assert.False(t, resp.Adopted)
	assert.Contains(t, resp.Error, "upstream down")
}

func TestTurnEmptyPrompt(t *testing.T) {
	r, _ := setupTest(t, nil)
	w := do(t, r, http.MethodPost, "/api/turns", turnRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTurnConflict(t *testing.T) {
	release := make(chan struct{})
	blocking := conversation.AssistantFunc(func(ctx context.Context, req conversation.GenerateRequest) (string, error) {
		<-release
		return "ok", nil
	})
	r, ws := setupTest(t, blocking)
	defer close(release)

	_, err := ws.SendTurn(context.Background(), "first")
	require.NoError(t, err)

	w := do(t, r, http.MethodPost, "/api/turns", turnRequest{Content: "second"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMessagesIncludeHighlightedSegments(t *testing.T) {
	r, _ := setupTest(t, nil)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/turns", turnRequest{Content: "draw"}).Code)

	msgs := decode[[]messageView](t, do(t, r, http.MethodGet, "/api/messages", nil))
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.Empty(t, msgs[0].Segments[0].HTML)

	reply := msgs[1]
	require.Len(t, reply.Segments, 2)
	assert.Equal(t, content.KindText, reply.Segments[0].Kind)
	assert.Equal(t, content.KindDiagram, reply.Segments[1].Kind)
	assert.Contains(t, reply.Segments[1].HTML, "<pre")
}

func TestSelectDiagram(t *testing.T) {
	r, _ := setupTest(t, nil)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/turns", turnRequest{Content: "draw"}).Code)
	do(t, r, http.MethodPut, "/api/document", sourceRequest{Source: "pie\n  \"a\": 1"})

	w := do(t, r, http.MethodPost, "/api/document/select", selectRequest{Message: 1, Segment: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "graph LR\n  A-->B", decode[documentResponse](t, w).Source)

	w = do(t, r, http.MethodPost, "/api/document/select", selectRequest{Message: 1, Segment: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/document/select", selectRequest{Message: 9, Segment: 0})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTheme(t *testing.T) {
	r, ws := setupTest(t, nil)

	w := do(t, r, http.MethodPut, "/api/theme", themeRequest{Theme: render.ThemeLight})
	require.Equal(t, http.StatusOK, w.Code)
	rev := decode[documentResponse](t, w).Revision

	require.Eventually(t, func() bool { return ws.Display().SettledRevision == rev }, waitFor, tick)
	assert.Contains(t, string(ws.Display().Markup), `data-theme="light"`)

	w = do(t, r, http.MethodPut, "/api/theme", themeRequest{Theme: "sepia"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViewport(t *testing.T) {
	r, _ := setupTest(t, nil)

	w := do(t, r, http.MethodPost, "/api/viewport", viewport.Gesture{Kind: "zoom_in"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 1.1, decode[viewport.State](t, w).Scale, 1e-9)

	w = do(t, r, http.MethodPost, "/api/viewport", viewport.Gesture{Kind: "wheel", DeltaY: -100})
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 1.1, decode[viewport.State](t, w).Scale, 1e-9, "wheel without modifier must not zoom")

	w = do(t, r, http.MethodPost, "/api/viewport", viewport.Gesture{Kind: "spin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	st := decode[viewport.State](t, do(t, r, http.MethodGet, "/api/viewport", nil))
	assert.InDelta(t, 1.1, st.Scale, 1e-9)
}

func TestSegmentsAndExtract(t *testing.T) {
	r, _ := setupTest(t, nil)

	segs := decode[[]content.Segment](t, do(t, r, http.MethodPost, "/api/segments", textRequest{Text: diagramReply}))
	require.Len(t, segs, 2)
	assert.Equal(t, content.KindDiagram, segs[1].Kind)

	ex := decode[extractResponse](t, do(t, r, http.MethodPost, "/api/extract", textRequest{Text: diagramReply}))
	assert.True(t, ex.Found)
	assert.Equal(t, "graph LR\n  A-->B", ex.Source)

	ex = decode[extractResponse](t, do(t, r, http.MethodPost, "/api/extract", textRequest{Text: "just words"}))
	assert.False(t, ex.Found)
}

func TestRenderOnce(t *testing.T) {
	r, _ := setupTest(t, nil)

	w := do(t, r, http.MethodPost, "/api/render", sourceRequest{Source: "pie", Theme: render.ThemeLight})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode[markupResponse](t, w).Markup), `data-theme="light"`)

	w = do(t, r, http.MethodPost, "/api/render", sourceRequest{Source: "BROKEN"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Parse error on line 1", decode[conversation.ErrorResponse](t, w).Detail)

	w = do(t, r, http.MethodPost, "/api/render", sourceRequest{Source: "pie", Theme: "sepia"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportSVG(t *testing.T) {
	r, ws := setupTest(t, nil)
	require.Eventually(t, func() bool { return ws.Display().HasMarkup() }, waitFor, tick)

	w := do(t, r, http.MethodGet, "/api/export/svg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.SVGContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), export.SVGFilename)
	assert.True(t, strings.HasPrefix(w.Body.String(), "<?xml"))
}

func TestExportTranscript(t *testing.T) {
	r, _ := setupTest(t, nil)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/turns", turnRequest{Content: "draw A to B"}).Code)

	w := do(t, r, http.MethodGet, "/api/export/transcript", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "draw A to B")
}

func TestGenerateDiagramBackend(t *testing.T) {
	var got conversation.GenerateRequest
	assistant := conversation.AssistantFunc(func(ctx context.Context, req conversation.GenerateRequest) (string, error) {
		got = req
		return "```mermaid\npie\n```", nil
	})
	r, _ := setupTest(t, assistant)

	w := do(t, r, http.MethodPost, "/api/generate-diagram", conversation.GenerateDiagramRequest{
		Prompt: "make it a pie",
		History: []conversation.WireMessage{
			{Role: "user", Content: "draw"},
			{Role: "model", Content: "graph TD"},
			{Role: "user", Content: "make it a pie"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[conversation.GenerateDiagramResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "```mermaid\npie\n```", resp.Content)
	assert.Equal(t, generatedMessage, resp.Message)

	assert.Equal(t, "make it a pie", got.Prompt)
	require.Len(t, got.History, 2)
	assert.Equal(t, conversation.RoleAssistant, got.History[1].Role)
}

func TestGenerateDiagramBackendErrors(t *testing.T) {
	failing := conversation.AssistantFunc(func(ctx context.Context, req conversation.GenerateRequest) (string, error) {
		return "", errors.New("quota exceeded")
	})
	r, _ := setupTest(t, failing)

	w := do(t, r, http.MethodPost, "/api/generate-diagram", conversation.GenerateDiagramRequest{Prompt: "x"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to generate diagram: quota exceeded", decode[conversation.ErrorResponse](t, w).Detail)

	w = do(t, r, http.MethodPost, "/api/generate-diagram", conversation.GenerateDiagramRequest{
		Prompt:  "x",
		History: []conversation.WireMessage{{Role: "robot", Content: "?"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/generate-diagram", conversation.GenerateDiagramRequest{Prompt: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateDiagramNotMountedWithoutAssistant(t *testing.T) {
	ws := workspace.New(echoEngine{}, replyWith("x"), workspace.Config{Debounce: time.Millisecond})
	t.Cleanup(ws.Close)
	r := chi.NewRouter()
	New(ws, nil, nil).RegisterRoutes(r)

	w := do(t, r, http.MethodPost, "/api/generate-diagram", conversation.GenerateDiagramRequest{Prompt: "x"})
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func dialWS(t *testing.T, r http.Handler) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "websocket dial")
	t.Cleanup(func() { conn.Close() })
	return conn
}

type rawEvent struct {
	Type workspace.EventType `json:"type"`
	Data json.RawMessage     `json:"data"`
}

// readUntil reads frames until one satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, match func(rawEvent) bool) rawEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(waitFor))
	for {
		var ev rawEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if match(ev) {
			return ev
		}
	}
}

func TestWebSocketInitialState(t *testing.T) {
	r, _ := setupTest(t, nil)
	conn := dialWS(t, r)

	var types []workspace.EventType
	conn.SetReadDeadline(time.Now().Add(waitFor))
	for i := 0; i < 5; i++ {
		var ev rawEvent
		require.NoError(t, conn.ReadJSON(&ev))
		types = append(types, ev.Type)
	}
	assert.Equal(t, workspace.EventTheme, types[0])
	assert.Equal(t, workspace.EventDocument, types[1])
	assert.Equal(t, workspace.EventViewport, types[3])
	assert.Equal(t, workspace.EventGenerating, types[4])
}

func TestWebSocketEditPushesRender(t *testing.T) {
	r, _ := setupTest(t, nil)
	conn := dialWS(t, r)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "edit", Source: "graph TD\n  X-->Y"}))
	readUntil(t, conn, func(ev rawEvent) bool {
		if ev.Type != workspace.EventRendered {
			return false
		}
		var snap render.Snapshot
		json.Unmarshal(ev.Data, &snap)
		return strings.Contains(string(snap.Markup), "X-->Y")
	})
}

func TestWebSocketMessageStreamsTurn(t *testing.T) {
	r, _ := setupTest(t, nil)
	conn := dialWS(t, r)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "message", Content: "draw"}))
	ev := readUntil(t, conn, func(ev rawEvent) bool {
		if ev.Type != workspace.EventMessage {
			return false
		}
		var m workspace.MessageView
		json.Unmarshal(ev.Data, &m)
		return m.Role == conversation.RoleAssistant
	})
	var m workspace.MessageView
	require.NoError(t, json.Unmarshal(ev.Data, &m))
	assert.Equal(t, 1, m.Index)

	readUntil(t, conn, func(ev rawEvent) bool {
		if ev.Type != workspace.EventDocument {
			return false
		}
		return strings.Contains(string(ev.Data), "A--\\u003eB") || strings.Contains(string(ev.Data), "A-->B")
	})
}

func TestWebSocketViewportFrame(t *testing.T) {
	r, _ := setupTest(t, nil)
	conn := dialWS(t, r)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "viewport", Gesture: &viewport.Gesture{Kind: "zoom_out"}}))
	ev := readUntil(t, conn, func(ev rawEvent) bool {
		if ev.Type != workspace.EventViewport {
			return false
		}
		var st viewport.State
		json.Unmarshal(ev.Data, &st)
		return st.Scale < 1
	})
	var st viewport.State
	require.NoError(t, json.Unmarshal(ev.Data, &st))
	assert.InDelta(t, 0.9, st.Scale, 1e-9)
}

func TestWebSocketErrors(t *testing.T) {
	r, _ := setupTest(t, nil)
	conn := dialWS(t, r)

	isError := func(ev rawEvent) bool { return ev.Type == eventError }

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	ev := readUntil(t, conn, isError)
	assert.Contains(t, string(ev.Data), "invalid message format")

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "dance"}))
	ev = readUntil(t, conn, isError)
	assert.Contains(t, string(ev.Data), "unknown message type")

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "viewport"}))
	ev = readUntil(t, conn, isError)
	assert.Contains(t, string(ev.Data), "gesture")

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "message", Content: ""}))
	ev = readUntil(t, conn, isError)
	assert.NotEmpty(t, ev.Data)
}

func TestWebSocketOriginCheck(t *testing.T) {
	r, _ := setupTest(t, nil)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	header := http.Header{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err, "foreign origin must be refused by default")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	same := http.Header{"Origin": {server.URL}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, same)
	require.NoError(t, err, "same-origin page must connect")
	conn.Close()

	ws := workspace.New(echoEngine{}, replyWith(diagramReply), workspace.Config{Debounce: time.Millisecond})
	t.Cleanup(ws.Close)
	handlers := New(ws, nil, nil)
	handlers.SetOriginCheck(func(r *http.Request) bool {
		return r.Header.Get("Origin") == "https://studio.example"
	})
	allowed := chi.NewRouter()
	handlers.RegisterRoutes(allowed)
	server2 := httptest.NewServer(allowed)
	t.Cleanup(server2.Close)
	wsURL2 := "ws" + strings.TrimPrefix(server2.URL, "http") + "/ws"

	conn, _, err = websocket.DefaultDialer.Dial(wsURL2, http.Header{"Origin": {"https://studio.example"}})
	require.NoError(t, err, "configured origin must connect")
	conn.Close()

	_, _, err = websocket.DefaultDialer.Dial(wsURL2, header)
	assert.Error(t, err)
}
