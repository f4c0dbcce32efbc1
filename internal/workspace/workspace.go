// Package workspace ties the live diagram document to the render pipeline,
// the viewport and the conversation, and publishes every change as an
// event for display surfaces.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/mermaid-studio/internal/content"
	"github.com/ziadkadry99/mermaid-studio/internal/conversation"
	"github.com/ziadkadry99/mermaid-studio/internal/diagrams"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
	"github.com/ziadkadry99/mermaid-studio/internal/viewport"
)

var (
	// ErrNotDiagram is returned when selecting a segment that is not a diagram.
	ErrNotDiagram = errors.New("segment is not a diagram")
	// ErrNoSuchSegment is returned for an out-of-range message or segment.
	ErrNoSuchSegment = errors.New("no such message segment")
	// ErrInvalidTheme is returned for an unknown theme name.
	ErrInvalidTheme = errors.New("invalid theme")
)

// Config configures a Workspace.
type Config struct {
	Debounce        time.Duration
	RenderTimeout   time.Duration
	GenerateTimeout time.Duration
	Options         render.Options
	Viewport        viewport.Limits
	// InitialSource seeds the document. Defaults to diagrams.DefaultSource.
	InitialSource string
	Logger        *slog.Logger
}

// MessageView is a chat message together with its parsed segments.
type MessageView struct {
	Index int `json:"index"`
	conversation.Message
	Segments []content.Segment `json:"segments"`
}

// Workspace is the single-document editing session.
type Workspace struct {
	engine   render.Engine
	pipeline *render.Pipeline
	view     *viewport.Controller
	conv     *conversation.Orchestrator
	hub      *Hub
	log      *slog.Logger

	mu  sync.Mutex
	doc diagrams.Document
}

// New creates a Workspace and submits the initial document for rendering.
func New(engine render.Engine, assistant conversation.Assistant, cfg Config) *Workspace {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Options.Theme == "" {
		cfg.Options = render.DefaultOptions()
	}
	if cfg.InitialSource == "" {
		cfg.InitialSource = diagrams.DefaultSource
	}

	w := &Workspace{
		engine: engine,
		view:   viewport.New(cfg.Viewport),
		hub:    NewHub(log.With("component", "hub")),
		log:    log.With("component", "workspace"),
	}

	w.pipeline = render.NewPipeline(engine, render.PipelineConfig{
		Debounce:  cfg.Debounce,
		Timeout:   cfg.RenderTimeout,
		Options:   cfg.Options,
		Logger:    log,
		OnSuccess: w.onRendered,
		OnFailure: w.onRenderFailed,
	})

	w.conv = conversation.New(assistant, conversation.Config{
		Timeout:      cfg.GenerateTimeout,
		Logger:       log,
		Adopt:        w.adopt,
		OnMessage:    w.onMessage,
		OnGenerating: w.onGenerating,
	})

	w.setDocument(cfg.InitialSource, diagrams.OriginDefault)
	return w
}

// Document returns the live document.
func (w *Workspace) Document() diagrams.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc
}

// Edit replaces the document with a manual edit.
func (w *Workspace) Edit(source string) diagrams.Document {
	return w.setDocument(source, diagrams.OriginEdit)
}

// SelectDiagram loads a diagram segment of a chat message into the
// document.
func (w *Workspace) SelectDiagram(messageIndex, segmentIndex int) (diagrams.Document, error) {
	msg, ok := w.conv.History().At(messageIndex)
	if !ok {
		return diagrams.Document{}, fmt.Errorf("message %d: %w", messageIndex, ErrNoSuchSegment)
	}
	segs := content.Parse(msg.Content)
	if segmentIndex < 0 || segmentIndex >= len(segs) {
		return diagrams.Document{}, fmt.Errorf("message %d segment %d: %w", messageIndex, segmentIndex, ErrNoSuchSegment)
	}
	seg := segs[segmentIndex]
	if seg.Kind != content.KindDiagram {
		return diagrams.Document{}, fmt.Errorf("message %d segment %d is %s: %w", messageIndex, segmentIndex, seg.Kind, ErrNotDiagram)
	}
	return w.setDocument(seg.Content, diagrams.OriginSelection), nil
}

// Theme returns the theme diagrams are rendered in.
func (w *Workspace) Theme() render.Theme {
	return w.pipeline.Options().Theme
}

// SetTheme switches the render theme and re-renders the document.
func (w *Workspace) SetTheme(theme render.Theme) (diagrams.Document, error) {
	if !theme.Valid() {
		return diagrams.Document{}, fmt.Errorf("%q: %w", theme, ErrInvalidTheme)
	}

	w.mu.Lock()
	rev := w.pipeline.SetOptions(w.pipeline.Options().WithTheme(theme))
	w.doc.Revision = rev
	w.doc.Origin = diagrams.OriginTheme
	w.doc.UpdatedAt = time.Now()
	doc := w.doc
	w.mu.Unlock()

	w.log.Info("theme changed", "theme", theme, "revision", rev)
	w.hub.Publish(Event{Type: EventTheme, Data: map[string]any{"theme": theme}})
	w.hub.Publish(Event{Type: EventDocument, Data: doc})
	return doc, nil
}

func (w *Workspace) setDocument(source string, origin diagrams.Origin) diagrams.Document {
	w.mu.Lock()
	rev := w.pipeline.Submit(source)
	w.doc = diagrams.Document{
		Source:    source,
		Revision:  rev,
		Origin:    origin,
		UpdatedAt: time.Now(),
	}
	doc := w.doc
	w.mu.Unlock()

	w.log.Debug("document updated", "revision", rev, "origin", origin, "type", doc.Type())
	w.hub.Publish(Event{Type: EventDocument, Data: doc})
	return doc
}

func (w *Workspace) adopt(source string) {
	w.setDocument(source, diagrams.OriginGeneration)
}

// SendTurn starts a conversation turn. See conversation.Orchestrator.
func (w *Workspace) SendTurn(ctx context.Context, text string) (*conversation.Turn, error) {
	return w.conv.SendTurn(ctx, text)
}

// Generating reports whether a turn is outstanding.
func (w *Workspace) Generating() bool {
	return w.conv.Generating()
}

// Messages returns the chat history.
func (w *Workspace) Messages() []conversation.Message {
	return w.conv.History().Messages()
}

// MessageViews returns the chat history with parsed segments.
func (w *Workspace) MessageViews() []MessageView {
	msgs := w.Messages()
	out := make([]MessageView, len(msgs))
	for i, m := range msgs {
		out[i] = newMessageView(i, m)
	}
	return out
}

func newMessageView(i int, m conversation.Message) MessageView {
	return MessageView{Index: i, Message: m, Segments: content.Parse(m.Content)}
}

// Display returns what the diagram surface should currently show.
func (w *Workspace) Display() render.Snapshot {
	return w.pipeline.Snapshot()
}

// Viewport returns the zoom/pan controller.
func (w *Workspace) Viewport() *viewport.Controller {
	return w.view
}

// ApplyGesture feeds a viewport gesture and publishes the new state when
// it changed anything.
func (w *Workspace) ApplyGesture(g viewport.Gesture) (viewport.State, error) {
	changed, err := w.view.Apply(g)
	if err != nil {
		return viewport.State{}, err
	}
	st := w.view.State()
	if changed {
		w.hub.Publish(Event{Type: EventViewport, Data: st})
	}
	return st, nil
}

// RenderOnce renders source outside the document, e.g. for previews.
func (w *Workspace) RenderOnce(ctx context.Context, source string, theme render.Theme) (render.Markup, error) {
	opts := w.pipeline.Options()
	if theme != "" {
		if !theme.Valid() {
			return "", fmt.Errorf("%q: %w", theme, ErrInvalidTheme)
		}
		opts = opts.WithTheme(theme)
	}
	return w.engine.Render(ctx, render.Request{
		ID:      "mermaid-" + uuid.NewString(),
		Source:  source,
		Options: opts,
	})
}

// Subscribe registers for workspace events.
func (w *Workspace) Subscribe() (<-chan Event, func()) {
	return w.hub.Subscribe(DefaultSubscriberBuffer)
}

func (w *Workspace) onRendered(res render.Result) {
	w.hub.Publish(Event{Type: EventRendered, Data: w.pipeline.Snapshot()})
}

func (w *Workspace) onRenderFailed(res render.Result) {
	w.hub.Publish(Event{Type: EventRenderFailed, Data: w.pipeline.Snapshot()})
}

func (w *Workspace) onMessage(i int, m conversation.Message) {
	w.hub.Publish(Event{Type: EventMessage, Data: newMessageView(i, m)})
}

func (w *Workspace) onGenerating(v bool) {
	w.hub.Publish(Event{Type: EventGenerating, Data: map[string]bool{"generating": v}})
}

// Close stops generation and rendering and disconnects subscribers.
func (w *Workspace) Close() {
	w.conv.Close()
	w.pipeline.Close()
	w.hub.Close()
}
