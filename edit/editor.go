package edit

import (
	"math"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/geometry"
)

// DefaultHitRadius is the pick tolerance in pixels.
const DefaultHitRadius = 6

// HitTest returns the element under p. Keypoints take precedence over
// edges and edges over areas; within a type the nearest element wins.
// Areas are hit when p lies inside their outline.
func HitTest(elements []Element, p spectro.Point, radius float64) (Element, bool) {
	best, bestType, bestDist := -1, Area+1, math.Inf(1)
	for i, e := range elements {
		d, ok := distance(e, p, radius)
		if !ok {
			continue
		}
		if e.Type < bestType || (e.Type == bestType && d < bestDist) {
			best, bestType, bestDist = i, e.Type, d
		}
	}
	if best < 0 {
		return Element{}, false
	}
	return elements[best], true
}

func distance(e Element, p spectro.Point, radius float64) (float64, bool) {
	switch e.Type {
	case Keypoint:
		if len(e.Coords) == 0 {
			return 0, false
		}
		d := p.Distance(e.Coords[0])
		return d, d <= radius
	case Edge:
		if len(e.Coords) < 2 {
			return 0, false
		}
		d := p.SegmentDistance(e.Coords[0], e.Coords[1])
		return d, d <= radius
	case Area:
		return 0, inside(e.Coords, p)
	default:
		return 0, false
	}
}

// inside is the even-odd ray casting test.
func inside(poly []spectro.Point, p spectro.Point) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// Editor edits data-space geometries through a canvas of Size pixels that
// shows Window.
type Editor struct {
	Window spectro.Window
	Size   spectro.Size

	// HitRadius overrides DefaultHitRadius when positive.
	HitRadius float64
}

// Elements returns the editable elements of g in pixel coordinates.
func (ed Editor) Elements(g geometry.Geometry) []Element {
	return Elements(geometry.ToPixels(g, ed.Window, ed.Size), ed.Size)
}

// HitTest returns the element of g under the pixel position p.
func (ed Editor) HitTest(g geometry.Geometry, p spectro.Point) (Element, bool) {
	r := ed.HitRadius
	if r <= 0 {
		r = DefaultHitRadius
	}
	return HitTest(ed.Elements(g), p, r)
}

// Drag moves el of the data-space geometry g by the pointer movement from
// start to end (pixels) and returns the normalized data-space result.
func (ed Editor) Drag(g geometry.Geometry, el Element, start, end spectro.Point) geometry.Geometry {
	ds := spectro.ScalePixelsToWindow(start, ed.Window, ed.Size)
	de := spectro.ScalePixelsToWindow(end, ed.Window, ed.Size)
	return geometry.Normalize(el.Drag(g, ds, de))
}

// Begin starts a drag of el on g at pixel position start. The geometry is
// captured so every Move is computed from the original shape.
func (ed Editor) Begin(g geometry.Geometry, el Element, start spectro.Point) *Session {
	return &Session{
		editor:  ed,
		element: el,
		origin:  geometry.Clone(g),
		start:   start,
		current: geometry.Clone(g),
	}
}

// Session tracks one drag gesture. It is not safe for concurrent use.
type Session struct {
	editor  Editor
	element Element
	origin  geometry.Geometry
	start   spectro.Point
	current geometry.Geometry
}

// Element returns the element being dragged.
func (s *Session) Element() Element { return s.element }

// Move updates the drag to pixel position p and returns the geometry the
// gesture would produce.
func (s *Session) Move(p spectro.Point) geometry.Geometry {
	s.current = s.editor.Drag(s.origin, s.element, s.start, p)
	return s.current
}

// End finishes the gesture at p and returns the final geometry.
func (s *Session) End(p spectro.Point) geometry.Geometry {
	return s.Move(p)
}

// Current returns the geometry after the last Move.
func (s *Session) Current() geometry.Geometry { return s.current }
