package diagrams

import "time"

// Origin records which kind of mutation produced a Document.
type Origin string

const (
	OriginDefault    Origin = "default"
	OriginEdit       Origin = "edit"
	OriginGeneration Origin = "generation"
	OriginSelection  Origin = "selection"
	OriginTheme      Origin = "theme"
)

// Document is the single diagram the user is editing and viewing.
// Revision is assigned by the render pipeline and grows with every
// mutation; it is what stale render results are compared against.
type Document struct {
	Source    string    `json:"source"`
	Revision  int64     `json:"revision"`
	Origin    Origin    `json:"origin"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Type returns the diagram keyword the document opens with.
func (d Document) Type() string {
	return DetectType(d.Source)
}
