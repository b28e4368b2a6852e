// Package geometry defines the annotation shapes drawn over a spectrogram.
//
// Geometry is a closed union of nine variants. Every function in this
// package switches over all nine; callers outside the package cannot add
// variants because the interface has an unexported method.
//
// Coordinates are always in data space: time in seconds and frequency in Hz.
// ToPixels and FromPixels convert to and from a canvas at the drawing and
// editing boundary; converted geometries are never stored.
package geometry

import (
	"errors"

	"github.com/gogpu/spectro"
)

// Errors returned by this package.
var (
	// ErrUnknownKind is returned for a type tag that is not one of the nine variants.
	ErrUnknownKind = errors.New("geometry: unknown kind")

	// ErrKindMismatch is returned by DecodeAs when the encoded kind differs
	// from the requested one.
	ErrKindMismatch = errors.New("geometry: kind mismatch")

	// ErrInvalid is returned by Validate for malformed coordinates.
	ErrInvalid = errors.New("geometry: invalid coordinates")

	// ErrOutsideWindow is returned by LabelPosition for a geometry that does
	// not intersect the window. Callers are expected to filter with
	// Intersects first; seeing this error indicates a bug upstream.
	ErrOutsideWindow = errors.New("geometry: outside window")
)

// Kind is the type tag of a geometry, as used on the wire.
type Kind string

// The nine geometry kinds.
const (
	KindTimeStamp       Kind = "TimeStamp"
	KindTimeInterval    Kind = "TimeInterval"
	KindBoundingBox     Kind = "BoundingBox"
	KindPoint           Kind = "Point"
	KindMultiPoint      Kind = "MultiPoint"
	KindLineString      Kind = "LineString"
	KindMultiLineString Kind = "MultiLineString"
	KindPolygon         Kind = "Polygon"
	KindMultiPolygon    Kind = "MultiPolygon"
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindTimeStamp, KindTimeInterval, KindBoundingBox,
	KindPoint, KindMultiPoint, KindLineString, KindMultiLineString,
	KindPolygon, KindMultiPolygon,
}

// Position is a (time, frequency) pair.
type Position [2]float64

// Pos is a convenience function to create a Position.
func Pos(t, f float64) Position { return Position{t, f} }

// Point returns p as a spectro.Point (X=time, Y=frequency).
func (p Position) Point() spectro.Point { return spectro.Point{X: p[0], Y: p[1]} }

// PositionOf converts a spectro.Point to a Position.
func PositionOf(p spectro.Point) Position { return Position{p.X, p.Y} }

// Add returns p moved by d.
func (p Position) Add(d spectro.Point) Position { return Position{p[0] + d.X, p[1] + d.Y} }

// Geometry is one of TimeStamp, TimeInterval, BoundingBox, Point,
// MultiPoint, LineString, MultiLineString, Polygon or MultiPolygon.
type Geometry interface {
	Kind() Kind
	geometry()
}

// TimeStamp marks a single instant.
type TimeStamp struct {
	Coordinates float64
}

// TimeInterval spans [start, end] in time over all frequencies.
type TimeInterval struct {
	Coordinates [2]float64
}

// BoundingBox is [start time, low freq, end time, high freq].
type BoundingBox struct {
	Coordinates [4]float64
}

// Point is a single position.
type Point struct {
	Coordinates Position
}

// MultiPoint is a set of positions.
type MultiPoint struct {
	Coordinates []Position
}

// LineString is an open polyline.
type LineString struct {
	Coordinates []Position
}

// MultiLineString is a set of polylines.
type MultiLineString struct {
	Coordinates [][]Position
}

// Polygon is an outer ring followed by optional holes. Rings are normally
// closed: the last position repeats the first.
type Polygon struct {
	Coordinates [][]Position
}

// MultiPolygon is a set of polygons.
type MultiPolygon struct {
	Coordinates [][][]Position
}

func (TimeStamp) Kind() Kind       { return KindTimeStamp }
func (TimeInterval) Kind() Kind    { return KindTimeInterval }
func (BoundingBox) Kind() Kind     { return KindBoundingBox }
func (Point) Kind() Kind           { return KindPoint }
func (MultiPoint) Kind() Kind      { return KindMultiPoint }
func (LineString) Kind() Kind      { return KindLineString }
func (MultiLineString) Kind() Kind { return KindMultiLineString }
func (Polygon) Kind() Kind         { return KindPolygon }
func (MultiPolygon) Kind() Kind    { return KindMultiPolygon }

func (TimeStamp) geometry()       {}
func (TimeInterval) geometry()    {}
func (BoundingBox) geometry()     {}
func (Point) geometry()           {}
func (MultiPoint) geometry()      {}
func (LineString) geometry()      {}
func (MultiLineString) geometry() {}
func (Polygon) geometry()         {}
func (MultiPolygon) geometry()    {}

// Map returns a deep copy of g with fx applied to every time coordinate and
// fy to every frequency coordinate. A nil geometry maps to nil.
func Map(g Geometry, fx, fy func(float64) float64) Geometry {
	pos := func(p Position) Position { return Position{fx(p[0]), fy(p[1])} }
	line := func(ps []Position) []Position { return mapSlice(ps, pos) }
	poly := func(rs [][]Position) [][]Position { return mapSlice(rs, line) }

	switch g := g.(type) {
	case TimeStamp:
		return TimeStamp{Coordinates: fx(g.Coordinates)}
	case TimeInterval:
		return TimeInterval{Coordinates: [2]float64{fx(g.Coordinates[0]), fx(g.Coordinates[1])}}
	case BoundingBox:
		c := g.Coordinates
		return BoundingBox{Coordinates: [4]float64{fx(c[0]), fy(c[1]), fx(c[2]), fy(c[3])}}
	case Point:
		return Point{Coordinates: pos(g.Coordinates)}
	case MultiPoint:
		return MultiPoint{Coordinates: line(g.Coordinates)}
	case LineString:
		return LineString{Coordinates: line(g.Coordinates)}
	case MultiLineString:
		return MultiLineString{Coordinates: poly(g.Coordinates)}
	case Polygon:
		return Polygon{Coordinates: poly(g.Coordinates)}
	case MultiPolygon:
		return MultiPolygon{Coordinates: mapSlice(g.Coordinates, poly)}
	default:
		return nil
	}
}

func mapSlice[T any](in []T, f func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

func identity(v float64) float64 { return v }

// Clone returns a deep copy of g.
func Clone(g Geometry) Geometry {
	return Map(g, identity, identity)
}

// Translate returns g moved by d (X seconds, Y hertz).
func Translate(g Geometry, d spectro.Point) Geometry {
	return Map(g,
		func(t float64) float64 { return t + d.X },
		func(f float64) float64 { return f + d.Y },
	)
}

// ToPixels converts g from data space to canvas pixels for a canvas of size
// showing window. Frequency slots become Y pixel coordinates, so a
// BoundingBox's low frequency maps to its larger Y.
func ToPixels(g Geometry, window spectro.Window, size spectro.Size) Geometry {
	return Map(g,
		func(t float64) float64 { return spectro.ScaleTimeToX(t, window, size.Width) },
		func(f float64) float64 { return spectro.ScaleFreqToY(f, window, size.Height) },
	)
}

// FromPixels is the inverse of ToPixels.
func FromPixels(g Geometry, window spectro.Window, size spectro.Size) Geometry {
	return Map(g,
		func(x float64) float64 { return spectro.ScaleXToWindow(x, window, size.Width) },
		func(y float64) float64 { return spectro.ScaleYToWindow(y, window, size.Height) },
	)
}

// Normalize orders the endpoints of TimeInterval and BoundingBox so that
// start <= end and low <= high. Other kinds are returned unchanged.
func Normalize(g Geometry) Geometry {
	switch g := g.(type) {
	case TimeInterval:
		c := g.Coordinates
		return TimeInterval{Coordinates: [2]float64{min(c[0], c[1]), max(c[0], c[1])}}
	case BoundingBox:
		c := g.Coordinates
		return BoundingBox{Coordinates: [4]float64{
			min(c[0], c[2]), min(c[1], c[3]),
			max(c[0], c[2]), max(c[1], c[3]),
		}}
	default:
		return g
	}
}
