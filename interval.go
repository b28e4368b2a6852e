package spectro

import (
	"fmt"
	"math"
)

// Interval is a closed range [Min, Max] on a single axis (time or frequency).
// A well-formed interval has Min <= Max.
type Interval struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Iv is a convenience function to create an Interval.
// The endpoints are ordered so that the result is always well formed.
func Iv(a, b float64) Interval {
	if a > b {
		a, b = b, a
	}
	return Interval{Min: a, Max: b}
}

// Span returns Max - Min.
func (i Interval) Span() float64 {
	return i.Max - i.Min
}

// Center returns the midpoint of the interval.
func (i Interval) Center() float64 {
	return (i.Min + i.Max) / 2
}

// Contains reports whether v lies in [Min, Max].
func (i Interval) Contains(v float64) bool {
	return v >= i.Min && v <= i.Max
}

// ContainsInterval reports whether o is a subset of i.
func (i Interval) ContainsInterval(o Interval) bool {
	return o.Min >= i.Min && o.Max <= i.Max
}

// Overlaps reports whether the two intervals share more than a single point.
func (i Interval) Overlaps(o Interval) bool {
	return i.Min < o.Max && o.Min < i.Max
}

// Intersect returns the common part of i and o.
// The boolean is false when the intersection is empty or a single point.
func (i Interval) Intersect(o Interval) (Interval, bool) {
	lo := math.Max(i.Min, o.Min)
	hi := math.Min(i.Max, o.Max)
	if lo >= hi {
		return Interval{}, false
	}
	return Interval{Min: lo, Max: hi}, true
}

// Shift returns the interval moved by d.
func (i Interval) Shift(d float64) Interval {
	return Interval{Min: i.Min + d, Max: i.Max + d}
}

// Clamp limits v to [Min, Max].
func (i Interval) Clamp(v float64) float64 {
	return math.Max(i.Min, math.Min(i.Max, v))
}

// String implements fmt.Stringer.
func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g]", i.Min, i.Max)
}
