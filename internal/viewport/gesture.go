package viewport

import "fmt"

// Gesture is a single input event in wire form, as sent by display
// surfaces over HTTP or the websocket.
type Gesture struct {
	Kind   string  `json:"kind"`
	DeltaY float64 `json:"delta_y,omitempty"`
	Ctrl   bool    `json:"ctrl,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
}

// Apply feeds g to the controller and reports whether it changed or
// consumed anything.
func (c *Controller) Apply(g Gesture) (bool, error) {
	switch g.Kind {
	case "wheel":
		return c.Wheel(g.DeltaY, g.Ctrl), nil
	case "zoom_in":
		c.ZoomIn()
	case "zoom_out":
		c.ZoomOut()
	case "down":
		c.PointerDown(Point{X: g.X, Y: g.Y})
	case "move":
		return c.PointerMove(Point{X: g.X, Y: g.Y}), nil
	case "up":
		c.PointerUp()
	case "leave":
		c.PointerLeave()
	case "reset":
		c.Reset()
	default:
		return false, fmt.Errorf("unknown gesture %q", g.Kind)
	}
	return true, nil
}
