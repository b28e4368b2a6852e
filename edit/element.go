// Package edit decomposes a geometry into draggable elements and applies
// pointer drags to them.
//
// Elements are built from a geometry in pixel space so their coordinates
// can be hit-tested against pointer positions. Each element carries a drag
// function that moves the geometry slots it owns by the pointer delta. The
// drag functions are linear in the delta, so they give the same result
// whether applied in pixel or data space; Editor applies them in data space.
package edit

import (
	"fmt"
	"slices"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/geometry"
)

// ElementType classifies an editable element.
type ElementType uint8

const (
	// Keypoint is a single draggable vertex.
	Keypoint ElementType = iota
	// Edge is a segment between two vertices.
	Edge
	// Area is the body of a shape; dragging it translates the shape.
	Area
)

func (t ElementType) String() string {
	switch t {
	case Keypoint:
		return "keypoint"
	case Edge:
		return "edge"
	case Area:
		return "area"
	default:
		return fmt.Sprintf("ElementType(%d)", t)
	}
}

// Element is an editable part of a geometry.
//
// Coords holds one point for a Keypoint, two for an Edge and the outline of
// an Area.
type Element struct {
	ID     string
	Type   ElementType
	Coords []spectro.Point

	drag func(geometry.Geometry, spectro.Point) geometry.Geometry
}

// Drag returns a new geometry with this element moved by end-start.
// Geometries of a different kind than the element was built from are
// returned unchanged.
func (e Element) Drag(g geometry.Geometry, start, end spectro.Point) geometry.Geometry {
	if e.drag == nil {
		return g
	}
	return e.drag(g, end.Sub(start))
}

// part is an element before it is bound to a concrete geometry variant.
type part[T any] struct {
	id     string
	typ    ElementType
	coords []spectro.Point
	move   func(T, spectro.Point) T
}

// lift adapts parts of the i-th child to parts of the parent slice. The
// parent is copied and only index i is replaced.
func lift[T any](i int, parts []part[T]) []part[[]T] {
	out := make([]part[[]T], len(parts))
	for k, p := range parts {
		out[k] = part[[]T]{
			id:     fmt.Sprintf("%d/%s", i, p.id),
			typ:    p.typ,
			coords: p.coords,
			move: func(ts []T, d spectro.Point) []T {
				if i >= len(ts) {
					return ts
				}
				cp := slices.Clone(ts)
				cp[i] = p.move(ts[i], d)
				return cp
			},
		}
	}
	return out
}

func liftAll[T any](items []T, parts func(T) []part[T]) []part[[]T] {
	var out []part[[]T]
	for i, it := range items {
		out = append(out, lift(i, parts(it))...)
	}
	return out
}

// bind turns parts of a variant's coordinates into Elements over the
// Geometry union.
func bind[G geometry.Geometry, T any](parts []part[T], get func(G) T, wrap func(T) G) []Element {
	out := make([]Element, len(parts))
	for k, p := range parts {
		out[k] = Element{
			ID:     p.id,
			Type:   p.typ,
			Coords: p.coords,
			drag: func(g geometry.Geometry, d spectro.Point) geometry.Geometry {
				v, ok := g.(G)
				if !ok {
					return g
				}
				return wrap(p.move(get(v), d))
			},
		}
	}
	return out
}

// Elements decomposes a pixel-space geometry. size is the canvas size; it
// gives TimeStamp and TimeInterval their full-height extent.
func Elements(g geometry.Geometry, size spectro.Size) []Element {
	switch g := g.(type) {
	case geometry.TimeStamp:
		return bind(timeStampParts(g.Coordinates, size.Height),
			func(v geometry.TimeStamp) float64 { return v.Coordinates },
			func(c float64) geometry.TimeStamp { return geometry.TimeStamp{Coordinates: c} })
	case geometry.TimeInterval:
		return bind(timeIntervalParts(g.Coordinates, size.Height),
			func(v geometry.TimeInterval) [2]float64 { return v.Coordinates },
			func(c [2]float64) geometry.TimeInterval { return geometry.TimeInterval{Coordinates: c} })
	case geometry.BoundingBox:
		return bind(boundingBoxParts(g.Coordinates),
			func(v geometry.BoundingBox) [4]float64 { return v.Coordinates },
			func(c [4]float64) geometry.BoundingBox { return geometry.BoundingBox{Coordinates: c} })
	case geometry.Point:
		return bind(positionParts(g.Coordinates),
			func(v geometry.Point) geometry.Position { return v.Coordinates },
			func(c geometry.Position) geometry.Point { return geometry.Point{Coordinates: c} })
	case geometry.MultiPoint:
		return bind(liftAll(g.Coordinates, positionParts),
			func(v geometry.MultiPoint) []geometry.Position { return v.Coordinates },
			func(c []geometry.Position) geometry.MultiPoint { return geometry.MultiPoint{Coordinates: c} })
	case geometry.LineString:
		return bind(lineParts(g.Coordinates),
			func(v geometry.LineString) []geometry.Position { return v.Coordinates },
			func(c []geometry.Position) geometry.LineString { return geometry.LineString{Coordinates: c} })
	case geometry.MultiLineString:
		return bind(liftAll(g.Coordinates, lineParts),
			func(v geometry.MultiLineString) [][]geometry.Position { return v.Coordinates },
			func(c [][]geometry.Position) geometry.MultiLineString { return geometry.MultiLineString{Coordinates: c} })
	case geometry.Polygon:
		return bind(polygonParts(g.Coordinates),
			func(v geometry.Polygon) [][]geometry.Position { return v.Coordinates },
			func(c [][]geometry.Position) geometry.Polygon { return geometry.Polygon{Coordinates: c} })
	case geometry.MultiPolygon:
		return bind(liftAll(g.Coordinates, polygonParts),
			func(v geometry.MultiPolygon) [][][]geometry.Position { return v.Coordinates },
			func(c [][][]geometry.Position) geometry.MultiPolygon { return geometry.MultiPolygon{Coordinates: c} })
	default:
		return nil
	}
}
