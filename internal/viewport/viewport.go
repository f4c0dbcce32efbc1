// Package viewport holds the zoom and pan state of the diagram display.
// It knows nothing about rendering; a new render never resets it.
package viewport

import "sync"

// Default limits applied when a Limits field is zero.
const (
	DefaultMinScale    = 0.5
	DefaultMaxScale    = 5.0
	DefaultStep        = 0.1
	DefaultWheelFactor = -0.001
)

// Point is a pointer position in client coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform is the scale and offset applied to the rendered diagram.
type Transform struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// State is a full snapshot of the controller.
type State struct {
	Transform
	Dragging bool `json:"dragging"`
}

// Limits bounds zoom behaviour.
type Limits struct {
	MinScale    float64 `json:"min_scale" yaml:"min_scale" koanf:"min_scale"`
	MaxScale    float64 `json:"max_scale" yaml:"max_scale" koanf:"max_scale"`
	Step        float64 `json:"step" yaml:"step" koanf:"step"`
	WheelFactor float64 `json:"wheel_factor" yaml:"wheel_factor" koanf:"wheel_factor"`
}

// DefaultLimits returns the stock zoom limits.
func DefaultLimits() Limits {
	return Limits{
		MinScale:    DefaultMinScale,
		MaxScale:    DefaultMaxScale,
		Step:        DefaultStep,
		WheelFactor: DefaultWheelFactor,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MinScale <= 0 {
		l.MinScale = d.MinScale
	}
	if l.MaxScale <= 0 {
		l.MaxScale = d.MaxScale
	}
	if l.MaxScale < l.MinScale {
		l.MaxScale = l.MinScale
	}
	if l.Step <= 0 {
		l.Step = d.Step
	}
	if l.WheelFactor == 0 {
		l.WheelFactor = d.WheelFactor
	}
	return l
}

// Controller is the zoom/pan state machine. It is safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	limits Limits

	t        Transform
	dragging bool
	anchor   Point
	origin   Point
}

// New creates a Controller at scale 1 and offset (0, 0).
func New(limits Limits) *Controller {
	return &Controller{
		limits: limits.withDefaults(),
		t:      Transform{Scale: 1},
	}
}

// Limits returns the limits in force.
func (c *Controller) Limits() Limits {
	return c.limits
}

func (c *Controller) clamp(s float64) float64 {
	if s < c.limits.MinScale {
		return c.limits.MinScale
	}
	if s > c.limits.MaxScale {
		return c.limits.MaxScale
	}
	return s
}

// Wheel applies a wheel event. Without the zoom modifier the event is left
// for normal scrolling and Wheel returns false.
func (c *Controller) Wheel(deltaY float64, zoomModifier bool) bool {
	if !zoomModifier {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Scale = c.clamp(c.t.Scale + deltaY*c.limits.WheelFactor)
	return true
}

// ZoomIn increases the scale by one step.
func (c *Controller) ZoomIn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Scale = c.clamp(c.t.Scale + c.limits.Step)
}

// ZoomOut decreases the scale by one step.
func (c *Controller) ZoomOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Scale = c.clamp(c.t.Scale - c.limits.Step)
}

// PointerDown starts a drag anchored at p.
func (c *Controller) PointerDown(p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = true
	c.anchor = p
	c.origin = Point{X: c.t.OffsetX, Y: c.t.OffsetY}
}

// PointerMove pans while a drag is active and reports whether it did.
func (c *Controller) PointerMove(p Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dragging {
		return false
	}
	c.t.OffsetX = c.origin.X + p.X - c.anchor.X
	c.t.OffsetY = c.origin.Y + p.Y - c.anchor.Y
	return true
}

// PointerUp ends any drag.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = false
}

// PointerLeave ends any drag, exactly like PointerUp.
func (c *Controller) PointerLeave() {
	c.PointerUp()
}

// Reset returns to scale 1, offset (0, 0), not dragging.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = Transform{Scale: 1}
	c.dragging = false
}

// Transform returns the current transform.
func (c *Controller) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// State returns the transform plus drag status.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Transform: c.t, Dragging: c.dragging}
}
