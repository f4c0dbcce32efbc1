package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ziadkadry99/mermaid-studio/internal/content"
)

// FallbackReply is appended in place of a reply when generation fails.
const FallbackReply = "Sorry, I encountered an error while generating the diagram. Please try again."

// DefaultTimeout bounds one generation call.
const DefaultTimeout = 2 * time.Minute

var (
	// ErrEmptyPrompt rejects a turn with no text.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrTurnInFlight rejects a turn while another is still generating.
	ErrTurnInFlight = errors.New("a turn is already generating")
	// ErrClosed rejects turns after Close.
	ErrClosed = errors.New("conversation is closed")
)

// Config configures an Orchestrator. All hooks are optional and are called
// without internal locks held.
type Config struct {
	Timeout time.Duration
	Logger  *slog.Logger
	// Adopt receives diagram source extracted from a successful reply.
	Adopt func(source string)
	// OnMessage is called after every append, user and assistant alike.
	OnMessage func(index int, m Message)
	// OnGenerating is called when the generating state flips.
	OnGenerating func(generating bool)
	Now          func() time.Time
}

// Turn tracks one user turn until its reply has been appended.
type Turn struct {
	Prompt Message
	Index  int

	done    chan struct{}
	reply   Message
	source  string
	adopted bool
	err     error
}

// Done is closed once the reply (or fallback) has been appended.
func (t *Turn) Done() <-chan struct{} { return t.done }

// Wait blocks until the turn completes or ctx ends.
func (t *Turn) Wait(ctx context.Context) (Message, error) {
	select {
	case <-t.done:
		return t.reply, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Reply returns the appended reply once the turn is done.
func (t *Turn) Reply() (Message, bool) {
	select {
	case <-t.done:
		return t.reply, true
	default:
		return Message{}, false
	}
}

// Source returns the diagram source adopted from the reply, if any.
func (t *Turn) Source() (string, bool) {
	select {
	case <-t.done:
		return t.source, t.adopted
	default:
		return "", false
	}
}

// Err returns the assistant failure that produced a fallback reply.
func (t *Turn) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Orchestrator appends user turns to the History, asks the Assistant for a
// reply and routes extracted diagram source to the Adopt hook. Only one
// turn generates at a time.
type Orchestrator struct {
	assistant Assistant
	history   *History
	cfg       Config
	log       *slog.Logger

	base     context.Context
	shutdown context.CancelFunc

	mu       sync.Mutex
	inflight *Turn
	closed   bool
	wg       sync.WaitGroup
}

// New creates an Orchestrator with an empty history.
func New(assistant Assistant, cfg Config) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	base, shutdown := context.WithCancel(context.Background())
	return &Orchestrator{
		assistant: assistant,
		history:   &History{},
		cfg:       cfg,
		log:       log.With("component", "conversation"),
		base:      base,
		shutdown:  shutdown,
	}
}

// History returns the message log.
func (o *Orchestrator) History() *History { return o.history }

// Generating reports whether a turn is outstanding.
func (o *Orchestrator) Generating() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight != nil
}

// SendTurn appends text as a user message and starts generating a reply in
// the background. The user message is in the history when SendTurn
// returns. Generation is not tied to ctx's cancellation, only to its values,
// so a reply is always appended.
func (o *Orchestrator) SendTurn(ctx context.Context, text string) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPrompt
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.inflight != nil {
		o.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	prior := o.history.Messages()
	msg := Message{Role: RoleUser, Content: text, CreatedAt: o.cfg.Now()}
	t := &Turn{Prompt: msg, done: make(chan struct{})}
	t.Index = o.history.Append(msg)
	o.inflight = t
	o.wg.Add(1)
	o.mu.Unlock()

	o.notifyMessage(t.Index, msg)
	o.notifyGenerating(true)

	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Timeout)
	stop := context.AfterFunc(o.base, cancel)
	go func() {
		defer o.wg.Done()
		defer stop()
		defer cancel()
		o.generate(genCtx, t, GenerateRequest{Prompt: text, History: prior})
	}()
	return t, nil
}

func (o *Orchestrator) generate(ctx context.Context, t *Turn, req GenerateRequest) {
	start := time.Now()
	reply, err := o.assistant.Generate(ctx, req)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyReply
	}

	if err != nil {
		o.log.Error("generation failed", "error", err, "elapsed", time.Since(start))
		t.err = err
		reply = FallbackReply
	} else {
		o.log.Info("generation finished", "elapsed", time.Since(start), "chars", len(reply))
		if source, ok := content.Extract(reply); ok {
			t.source, t.adopted = source, true
			if o.cfg.Adopt != nil {
				o.cfg.Adopt(source)
			}
		} else {
			o.log.Debug("reply contained no diagram")
		}
	}

	msg := Message{Role: RoleAssistant, Content: reply, CreatedAt: o.cfg.Now()}
	idx := o.history.Append(msg)
	t.reply = msg

	// Surfaces hear about the reply before a new turn can start.
	o.notifyMessage(idx, msg)
	o.notifyGenerating(false)

	o.mu.Lock()
	o.inflight = nil
	o.mu.Unlock()
	close(t.done)
}

func (o *Orchestrator) notifyMessage(i int, m Message) {
	if o.cfg.OnMessage != nil {
		o.cfg.OnMessage(i, m)
	}
}

func (o *Orchestrator) notifyGenerating(v bool) {
	if o.cfg.OnGenerating != nil {
		o.cfg.OnGenerating(v)
	}
}

// Close aborts any outstanding generation, waits for its fallback reply to
// be appended and rejects later turns.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.shutdown()
	o.wg.Wait()
}
