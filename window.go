package spectro

import "fmt"

// Window is a rectangle in data space: time in seconds × frequency in Hz.
//
// The same type is used for the visible viewport and for the navigable
// bounds. Windows are small values and are always passed by value.
type Window struct {
	Time Interval `json:"time"`
	Freq Interval `json:"freq"`
}

// Win is a convenience function to create a Window from its four edges.
func Win(startTime, endTime, lowFreq, highFreq float64) Window {
	return Window{Time: Iv(startTime, endTime), Freq: Iv(lowFreq, highFreq)}
}

// Contains reports whether the data-space point p (X=time, Y=freq) is inside w.
func (w Window) Contains(p Point) bool {
	return w.Time.Contains(p.X) && w.Freq.Contains(p.Y)
}

// ContainsWindow reports whether o is a subset of w.
func (w Window) ContainsWindow(o Window) bool {
	return w.Time.ContainsInterval(o.Time) && w.Freq.ContainsInterval(o.Freq)
}

// Intersect returns the common part of two windows.
// The boolean is false when they do not overlap on both axes.
func (w Window) Intersect(o Window) (Window, bool) {
	t, ok := w.Time.Intersect(o.Time)
	if !ok {
		return Window{}, false
	}
	f, ok := w.Freq.Intersect(o.Freq)
	if !ok {
		return Window{}, false
	}
	return Window{Time: t, Freq: f}, true
}

// AspectRatio returns time span / frequency span, or 0 for a window with no
// frequency extent.
func (w Window) AspectRatio() float64 {
	fs := w.Freq.Span()
	if fs == 0 {
		return 0
	}
	return w.Time.Span() / fs
}

// Center returns the center of the window in data space.
func (w Window) Center() Point {
	return Point{X: w.Time.Center(), Y: w.Freq.Center()}
}

// String implements fmt.Stringer.
func (w Window) String() string {
	return fmt.Sprintf("time=%v freq=%v", w.Time, w.Freq)
}

// BoundsFor returns the navigable bounds for a task covering taskTime,
// with frequencies from 0 up to the Nyquist frequency of samplerate.
func BoundsFor(taskTime Interval, samplerate float64) Window {
	return Window{
		Time: taskTime,
		Freq: Interval{Min: 0, Max: samplerate / 2},
	}
}

// InitialWindow returns the window shown when a task is first opened:
// the full frequency range and at most maxTimeSpan seconds from the start of
// bounds. A non-positive maxTimeSpan shows all of bounds.
func InitialWindow(bounds Window, maxTimeSpan float64) Window {
	w := bounds
	if maxTimeSpan > 0 && bounds.Time.Span() > maxTimeSpan {
		w.Time.Max = bounds.Time.Min + maxTimeSpan
	}
	return w
}

// AdjustWindowToBounds returns window moved so that it lies inside bounds.
//
// On each axis the window keeps its size and is shifted the least amount
// needed to fit. If the window is larger than bounds on an axis it is
// clipped to bounds on that axis instead; it is never stretched, so the
// aspect ratio on the other axis is untouched.
func AdjustWindowToBounds(window, bounds Window) Window {
	return Window{
		Time: adjustInterval(window.Time, bounds.Time),
		Freq: adjustInterval(window.Freq, bounds.Freq),
	}
}

func adjustInterval(w, b Interval) Interval {
	span := w.Span()
	if span > b.Span() {
		if clipped, ok := w.Intersect(b); ok {
			return clipped
		}
		return b
	}

	switch {
	case w.Min < b.Min:
		return Interval{Min: b.Min, Max: min(b.Min+span, b.Max)}
	case w.Max > b.Max:
		return Interval{Min: max(b.Max-span, b.Min), Max: b.Max}
	default:
		return w
	}
}

// ShiftWindow returns window moved by shift (X seconds, Y hertz).
func ShiftWindow(window Window, shift Point) Window {
	return Window{
		Time: window.Time.Shift(shift.X),
		Freq: window.Freq.Shift(shift.Y),
	}
}

// CenterWindowOn returns window moved so that its center is at p.
func CenterWindowOn(window Window, p Point) Window {
	ht := window.Time.Span() / 2
	hf := window.Freq.Span() / 2
	return Window{
		Time: Interval{Min: p.X - ht, Max: p.X + ht},
		Freq: Interval{Min: p.Y - hf, Max: p.Y + hf},
	}
}

// ScaleWindow returns window with its time span multiplied by timeFactor and
// its frequency span by freqFactor, keeping the center fixed.
// Non-positive factors leave that axis unchanged.
func ScaleWindow(window Window, timeFactor, freqFactor float64) Window {
	return Window{
		Time: scaleInterval(window.Time, timeFactor),
		Freq: scaleInterval(window.Freq, freqFactor),
	}
}

func scaleInterval(i Interval, factor float64) Interval {
	if factor <= 0 || factor == 1 {
		return i
	}
	c := i.Center()
	h := i.Span() * factor / 2
	return Interval{Min: c - h, Max: c + h}
}
