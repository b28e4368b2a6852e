package geometry

import (
	"fmt"
	"math"

	"github.com/gogpu/spectro"
)

// Extent returns the smallest window containing g. TimeStamp and
// TimeInterval have no frequency component and take freqRange as their
// frequency extent. ok is false when g has no coordinates.
func Extent(g Geometry, freqRange spectro.Interval) (extent spectro.Window, ok bool) {
	switch g := g.(type) {
	case TimeStamp:
		return spectro.Window{Time: spectro.Interval{Min: g.Coordinates, Max: g.Coordinates}, Freq: freqRange}, true
	case TimeInterval:
		return spectro.Window{Time: spectro.Iv(g.Coordinates[0], g.Coordinates[1]), Freq: freqRange}, true
	case BoundingBox:
		c := g.Coordinates
		return spectro.Win(c[0], c[2], c[1], c[3]), true
	case Point:
		return positionsExtent([]Position{g.Coordinates})
	case MultiPoint:
		return positionsExtent(g.Coordinates)
	case LineString:
		return positionsExtent(g.Coordinates)
	case MultiLineString:
		return positionsExtent(flatten(g.Coordinates))
	case Polygon:
		return positionsExtent(flatten(g.Coordinates))
	case MultiPolygon:
		var all []Position
		for _, poly := range g.Coordinates {
			all = append(all, flatten(poly)...)
		}
		return positionsExtent(all)
	default:
		return spectro.Window{}, false
	}
}

func flatten(rings [][]Position) []Position {
	var out []Position
	for _, r := range rings {
		out = append(out, r...)
	}
	return out
}

func positionsExtent(ps []Position) (spectro.Window, bool) {
	if len(ps) == 0 {
		return spectro.Window{}, false
	}
	w := spectro.Window{
		Time: spectro.Interval{Min: math.Inf(1), Max: math.Inf(-1)},
		Freq: spectro.Interval{Min: math.Inf(1), Max: math.Inf(-1)},
	}
	for _, p := range ps {
		w.Time.Min = min(w.Time.Min, p[0])
		w.Time.Max = max(w.Time.Max, p[0])
		w.Freq.Min = min(w.Freq.Min, p[1])
		w.Freq.Max = max(w.Freq.Max, p[1])
	}
	return w, true
}

// Intersects reports whether the extent of g touches window. Boundaries are
// inclusive so that a TimeStamp on the window edge is still drawn.
func Intersects(g Geometry, window spectro.Window) bool {
	ext, ok := Extent(g, window.Freq)
	if !ok {
		return false
	}
	return closedOverlap(ext.Time, window.Time) && closedOverlap(ext.Freq, window.Freq)
}

func closedOverlap(a, b spectro.Interval) bool {
	return a.Min <= b.Max && a.Max >= b.Min
}

// LabelPosition returns the data-space anchor for a label attached to g: the
// top-left corner of its extent clipped to window.
func LabelPosition(g Geometry, window spectro.Window) (spectro.Point, error) {
	if !Intersects(g, window) {
		return spectro.Point{}, fmt.Errorf("%w: %s", ErrOutsideWindow, kindOf(g))
	}
	ext, _ := Extent(g, window.Freq)
	return spectro.Point{
		X: max(ext.Time.Min, window.Time.Min),
		Y: min(ext.Freq.Max, window.Freq.Max),
	}, nil
}

func kindOf(g Geometry) Kind {
	if g == nil {
		return ""
	}
	return g.Kind()
}

// Validate checks the structural constraints of g: finite coordinates,
// at least one position per MultiPoint, two per LineString and four per
// polygon ring.
func Validate(g Geometry) error {
	switch g := g.(type) {
	case TimeStamp:
		return finite(g.Coordinates)
	case TimeInterval:
		return finite(g.Coordinates[:]...)
	case BoundingBox:
		return finite(g.Coordinates[:]...)
	case Point:
		return validLine([]Position{g.Coordinates}, 1)
	case MultiPoint:
		return validLine(g.Coordinates, 1)
	case LineString:
		return validLine(g.Coordinates, 2)
	case MultiLineString:
		if len(g.Coordinates) == 0 {
			return fmt.Errorf("%w: empty MultiLineString", ErrInvalid)
		}
		for _, l := range g.Coordinates {
			if err := validLine(l, 2); err != nil {
				return err
			}
		}
		return nil
	case Polygon:
		return validPolygon(g.Coordinates)
	case MultiPolygon:
		if len(g.Coordinates) == 0 {
			return fmt.Errorf("%w: empty MultiPolygon", ErrInvalid)
		}
		for _, p := range g.Coordinates {
			if err := validPolygon(p); err != nil {
				return err
			}
		}
		return nil
	default:
		return ErrUnknownKind
	}
}

func finite(vs ...float64) error {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value %v", ErrInvalid, v)
		}
	}
	return nil
}

func validLine(ps []Position, minLen int) error {
	if len(ps) < minLen {
		return fmt.Errorf("%w: need %d positions, have %d", ErrInvalid, minLen, len(ps))
	}
	for _, p := range ps {
		if err := finite(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

func validPolygon(rings [][]Position) error {
	if len(rings) == 0 {
		return fmt.Errorf("%w: polygon without rings", ErrInvalid)
	}
	for _, r := range rings {
		if err := validLine(r, 4); err != nil {
			return err
		}
		if r[0] != r[len(r)-1] {
			return fmt.Errorf("%w: ring is not closed", ErrInvalid)
		}
	}
	return nil
}
