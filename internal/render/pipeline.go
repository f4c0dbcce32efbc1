package render

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDebounce is the quiescence window a submission waits out before
// it is dispatched to the engine.
const DefaultDebounce = 500 * time.Millisecond

// Result is the settled outcome of one dispatched revision.
type Result struct {
	Revision int64  `json:"revision"`
	Markup   Markup `json:"-"`
	Err      error  `json:"-"`
	Detail   string `json:"detail,omitempty"`
}

// OK reports whether the render succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Snapshot is what a display surface should currently show: the last
// successful markup plus, if a later render failed, that failure.
type Snapshot struct {
	Revision        int64  `json:"revision"`
	SettledRevision int64  `json:"settled_revision"`
	MarkupRevision  int64  `json:"markup_revision"`
	Markup          Markup `json:"markup,omitempty"`
	Error           string `json:"error,omitempty"`
	Pending         bool   `json:"pending"`
}

// HasMarkup reports whether any render has succeeded yet.
func (s Snapshot) HasMarkup() bool { return s.MarkupRevision > 0 }

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Debounce  time.Duration
	Timeout   time.Duration
	Options   Options
	OnSuccess func(Result)
	OnFailure func(Result)
	Logger    *slog.Logger
	// NewID returns the per-call render instance id. Defaults to a UUID.
	NewID func() string
}

// task is one submission. Its timer drives the debounce and its context
// is cancelled as soon as a newer submission supersedes it.
type task struct {
	revision int64
	source   string
	timer    *time.Timer
	ctx      context.Context
	cancel   context.CancelFunc
}

func (t *task) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.cancel()
}

// Pipeline debounces diagram submissions, dispatches the survivor to an
// Engine and reports each settled revision exactly once. Results for
// revisions older than the newest dispatched one are dropped silently.
type Pipeline struct {
	engine Engine
	cfg    PipelineConfig
	log    *slog.Logger

	base     context.Context
	shutdown context.CancelFunc

	// deliver serialises settlement so callbacks fire in dispatch order.
	deliver sync.Mutex

	mu         sync.Mutex
	opts       Options
	source     string
	hasSource  bool
	revision   int64
	dispatched int64
	pending    *task
	inflight   *task
	closed     bool

	settled   int64
	markup    Markup
	markupRev int64
	detail    string
}

// NewPipeline creates a Pipeline rendering through engine.
func NewPipeline(engine Engine, cfg PipelineConfig) *Pipeline {
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return "mermaid-" + uuid.NewString() }
	}
	if cfg.Options.Theme == "" {
		cfg.Options = DefaultOptions()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	base, shutdown := context.WithCancel(context.Background())
	return &Pipeline{
		engine:   engine,
		cfg:      cfg,
		log:      log.With("component", "render", "engine", engine.Name()),
		base:     base,
		shutdown: shutdown,
		opts:     cfg.Options,
	}
}

// Submit schedules source for rendering and returns its revision. Any
// submission still waiting out its debounce window is discarded. After
// Close, Submit does nothing and returns 0.
func (p *Pipeline) Submit(source string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0
	}
	p.source = source
	p.hasSource = true
	return p.scheduleLocked()
}

// SetOptions swaps the renderer configuration and re-renders the current
// source under the usual debounce, even though the text is unchanged. It
// returns the revision that re-render was given, or the current revision
// when nothing has been submitted yet.
func (p *Pipeline) SetOptions(opts Options) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.opts = opts
	if p.closed || !p.hasSource {
		return p.revision
	}
	return p.scheduleLocked()
}

func (p *Pipeline) scheduleLocked() int64 {
	p.revision++

	if prev := p.pending; prev != nil {
		prev.stop()
		p.log.Debug("render superseded before dispatch", "revision", prev.revision)
	}

	ctx, cancel := context.WithCancel(p.base)
	t := &task{revision: p.revision, source: p.source, ctx: ctx, cancel: cancel}
	p.pending = t
	t.timer = time.AfterFunc(p.cfg.Debounce, func() { p.dispatch(t) })
	return t.revision
}

func (p *Pipeline) dispatch(t *task) {
	p.mu.Lock()
	if p.closed || p.pending != t {
		p.mu.Unlock()
		return
	}
	p.pending = nil
	if prev := p.inflight; prev != nil {
		prev.cancel()
		p.log.Debug("render superseded in flight", "revision", prev.revision)
	}
	p.inflight = t
	p.dispatched = t.revision
	opts := p.opts
	p.mu.Unlock()

	if strings.TrimSpace(t.source) == "" {
		p.settle(t, "", ErrEmptySource)
		return
	}

	ctx := t.ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	req := Request{ID: p.cfg.NewID(), Source: t.source, Options: opts}
	p.log.Debug("render dispatched", "revision", t.revision, "id", req.ID, "theme", opts.Theme)

	start := time.Now()
	markup, err := p.engine.Render(ctx, req)
	p.log.Debug("render returned", "revision", t.revision, "elapsed", time.Since(start), "error", err)

	p.settle(t, markup, err)
}

func (p *Pipeline) settle(t *task, markup Markup, err error) {
	p.deliver.Lock()
	defer p.deliver.Unlock()

	p.mu.Lock()
	if p.inflight == t {
		p.inflight = nil
	}
	if p.closed || t.ctx.Err() != nil || t.revision < p.dispatched {
		p.mu.Unlock()
		p.log.Debug("stale render discarded", "revision", t.revision)
		return
	}
	t.cancel()

	res := Result{Revision: t.revision}
	p.settled = t.revision
	if err != nil {
		res.Err = err
		res.Detail = Detail(err)
		p.detail = res.Detail
	} else {
		res.Markup = markup
		p.markup = markup
		p.markupRev = t.revision
		p.detail = ""
	}
	onSuccess, onFailure := p.cfg.OnSuccess, p.cfg.OnFailure
	p.mu.Unlock()

	if res.OK() {
		p.log.Info("render succeeded", "revision", res.Revision, "bytes", len(res.Markup))
		if onSuccess != nil {
			onSuccess(res)
		}
		return
	}
	p.log.Info("render failed", "revision", res.Revision, "detail", res.Detail)
	if onFailure != nil {
		onFailure(res)
	}
}

// Snapshot returns the state a display surface should show right now.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		Revision:        p.revision,
		SettledRevision: p.settled,
		MarkupRevision:  p.markupRev,
		Markup:          p.markup,
		Error:           p.detail,
		Pending:         p.pending != nil || p.inflight != nil,
	}
}

// Revision returns the most recently assigned revision.
func (p *Pipeline) Revision() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revision
}

// Options returns the renderer configuration currently in force.
func (p *Pipeline) Options() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// Close cancels pending and in-flight renders. Nothing is reported for
// them and later submissions are ignored.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.pending != nil {
		p.pending.stop()
		p.pending = nil
	}
	if p.inflight != nil {
		p.inflight.cancel()
		p.inflight = nil
	}
	p.shutdown()
}
