package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/mermaid-studio/internal/render"
	"github.com/ziadkadry99/mermaid-studio/internal/viewport"
	"github.com/ziadkadry99/mermaid-studio/internal/workspace"
)

// eventError carries a rejected client frame back to its sender only.
const eventError workspace.EventType = "error"

// clientFrame is the incoming WebSocket message format.
type clientFrame struct {
	Type    string            `json:"type"` // message, edit, select, theme or viewport
	Content string            `json:"content,omitempty"`
	Source  string            `json:"source,omitempty"`
	Message int               `json:"message,omitempty"`
	Segment int               `json:"segment,omitempty"`
	Theme   render.Theme      `json:"theme,omitempty"`
	Gesture *viewport.Gesture `json:"gesture,omitempty"`
}

func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// A nil CheckOrigin keeps gorilla's same-origin default.
	upgrader := websocket.Upgrader{CheckOrigin: a.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := a.ws.Subscribe()
	defer unsubscribe()

	// Bring the new surface up to date before any live event.
	for _, e := range a.initialEvents() {
		if err := conn.WriteJSON(e); err != nil {
			a.log.Debug("websocket write", "error", err)
			return
		}
	}

	// From here on only the writer goroutine writes to the connection.
	direct := make(chan workspace.Event, 8)
	stopped := make(chan struct{})
	go a.writeLoop(conn, events, direct, stopped)

	send := func(e workspace.Event) {
		select {
		case direct <- e:
		case <-stopped:
		}
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.log.Warn("websocket read", "error", err)
			}
			return
		}

		var f clientFrame
		if err := json.Unmarshal(msg, &f); err != nil {
			send(errorEvent("invalid message format"))
			continue
		}
		if err := a.handleFrame(r, f); err != nil {
			send(errorEvent(err.Error()))
		}
	}
}

// handleFrame applies one client frame. Its effects reach every surface,
// this one included, through workspace events.
func (a *API) handleFrame(r *http.Request, f clientFrame) error {
	switch f.Type {
	case "message":
		_, err := a.ws.SendTurn(r.Context(), f.Content)
		return err
	case "edit":
		a.ws.Edit(f.Source)
		return nil
	case "select":
		_, err := a.ws.SelectDiagram(f.Message, f.Segment)
		return err
	case "theme":
		_, err := a.ws.SetTheme(f.Theme)
		return err
	case "viewport":
		if f.Gesture == nil {
			return errMissingGesture
		}
		_, err := a.ws.ApplyGesture(*f.Gesture)
		return err
	default:
		return &unknownFrameError{Type: f.Type}
	}
}

func (a *API) writeLoop(conn *websocket.Conn, events <-chan workspace.Event, direct <-chan workspace.Event, stopped chan<- struct{}) {
	defer close(stopped)
	// Unblocks the reader when the workspace closes or a write fails.
	defer conn.Close()

	for {
		var e workspace.Event
		var ok bool
		select {
		case e, ok = <-events:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "workspace closed"))
				return
			}
		case e = <-direct:
		}
		if err := conn.WriteJSON(e); err != nil {
			a.log.Debug("websocket write", "error", err)
			return
		}
	}
}

func (a *API) initialEvents() []workspace.Event {
	return []workspace.Event{
		{Type: workspace.EventTheme, Data: map[string]any{"theme": a.ws.Theme()}},
		{Type: workspace.EventDocument, Data: a.ws.Document()},
		snapshotEvent(a.ws.Display()),
		{Type: workspace.EventViewport, Data: a.ws.Viewport().State()},
		{Type: workspace.EventGenerating, Data: map[string]bool{"generating": a.ws.Generating()}},
	}
}

func snapshotEvent(s render.Snapshot) workspace.Event {
	if s.Error != "" {
		return workspace.Event{Type: workspace.EventRenderFailed, Data: s}
	}
	return workspace.Event{Type: workspace.EventRendered, Data: s}
}

func errorEvent(detail string) workspace.Event {
	return workspace.Event{Type: eventError, Data: map[string]string{"detail": detail}}
}
