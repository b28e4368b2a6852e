package geometry

import (
	"encoding/json"
	"fmt"
)

type wireGeometry struct {
	Type        Kind            `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Marshal encodes g as {"type": ..., "coordinates": ...}.
func Marshal(g Geometry) ([]byte, error) {
	var coords any
	switch g := g.(type) {
	case TimeStamp:
		coords = g.Coordinates
	case TimeInterval:
		coords = g.Coordinates
	case BoundingBox:
		coords = g.Coordinates
	case Point:
		coords = g.Coordinates
	case MultiPoint:
		coords = nonNil(g.Coordinates)
	case LineString:
		coords = nonNil(g.Coordinates)
	case MultiLineString:
		coords = nonNil(g.Coordinates)
	case Polygon:
		coords = nonNil(g.Coordinates)
	case MultiPolygon:
		coords = nonNil(g.Coordinates)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, g)
	}
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, fmt.Errorf("geometry: marshal %s: %w", g.Kind(), err)
	}
	return json.Marshal(wireGeometry{Type: g.Kind(), Coordinates: raw})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Unmarshal decodes the form produced by Marshal.
func Unmarshal(data []byte) (Geometry, error) {
	var w wireGeometry
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("geometry: unmarshal: %w", err)
	}
	g, err := decode(w.Type, w.Coordinates)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func decode(kind Kind, raw json.RawMessage) (Geometry, error) {
	var (
		g   Geometry
		err error
	)
	switch kind {
	case KindTimeStamp:
		var v TimeStamp
		err = json.Unmarshal(raw, &v.Coordinates)
		g = v
	case KindTimeInterval:
		var v TimeInterval
		err = json.Unmarshal(raw, &v.Coordinates)
		g = v
	case KindBoundingBox:
		var v BoundingBox
		err = json.Unmarshal(raw, &v.Coordinates)
		g = v
	case KindPoint:
		var v Point
		err = json.Unmarshal(raw, &v.Coordinates)
		g = v
	case KindMultiPoint:
		var v MultiPoint
		err = json.Unmarshal(raw, &v.Coordinates)
		g = v
	case KindLineString:
		var v LineString
		err = json.Unmarshal(raw, &v.Coordinates)
		g = v
	case KindMultiLineString:
		var v MultiLineString
		err = json.Unmarshal(raw, &v.Coordinates)
		g = v
	case KindPolygon:
		var v Polygon
		err = json.Unmarshal(raw, &v.Coordinates)
		g = v
	case KindMultiPolygon:
		var v MultiPolygon
		err = json.Unmarshal(raw, &v.Coordinates)
		g = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("geometry: decode %s: %w", kind, err)
	}
	return g, nil
}

// DecodeAs decodes data and asserts the result is a T.
func DecodeAs[T Geometry](data []byte) (T, error) {
	var zero T
	g, err := Unmarshal(data)
	if err != nil {
		return zero, err
	}
	v, ok := g.(T)
	if !ok {
		return zero, fmt.Errorf("%w: have %s, want %s", ErrKindMismatch, g.Kind(), zero.Kind())
	}
	return v, nil
}
