package spectro

// Pixel ↔ data conversions for a canvas showing window.
//
// The transforms are linear: data = min + (pixel / size) * span on the time
// axis. The frequency axis is inverted so that pixel row 0 is the window's
// maximum frequency. A zero canvas extent maps every pixel to the window's
// origin on that axis (time minimum, frequency maximum), and a zero window
// span maps every data value to pixel 0.

// ScaleXToWindow converts a canvas X coordinate to time in seconds.
func ScaleXToWindow(x float64, window Window, width float64) float64 {
	if width == 0 {
		return window.Time.Min
	}
	return window.Time.Min + (x/width)*window.Time.Span()
}

// ScaleYToWindow converts a canvas Y coordinate to frequency in Hz.
func ScaleYToWindow(y float64, window Window, height float64) float64 {
	if height == 0 {
		return window.Freq.Max
	}
	return window.Freq.Max - (y/height)*window.Freq.Span()
}

// ScalePixelsToWindow converts a canvas point to a data-space point.
func ScalePixelsToWindow(p Point, window Window, size Size) Point {
	return Point{
		X: ScaleXToWindow(p.X, window, size.Width),
		Y: ScaleYToWindow(p.Y, window, size.Height),
	}
}

// ScaleTimeToX converts time in seconds to a canvas X coordinate.
func ScaleTimeToX(t float64, window Window, width float64) float64 {
	span := window.Time.Span()
	if span == 0 {
		return 0
	}
	return (t - window.Time.Min) / span * width
}

// ScaleFreqToY converts frequency in Hz to a canvas Y coordinate.
func ScaleFreqToY(f float64, window Window, height float64) float64 {
	span := window.Freq.Span()
	if span == 0 {
		return 0
	}
	return (window.Freq.Max - f) / span * height
}

// ScaleWindowToPixels converts a data-space point to a canvas point.
func ScaleWindowToPixels(p Point, window Window, size Size) Point {
	return Point{
		X: ScaleTimeToX(p.X, window, size.Width),
		Y: ScaleFreqToY(p.Y, window, size.Height),
	}
}

// PixelDeltaToShift converts a pixel displacement into the data-space shift
// that moves the content along with the pointer: dragging right reveals
// earlier times, dragging down reveals higher frequencies.
func PixelDeltaToShift(delta Point, window Window, size Size) Point {
	var s Point
	if size.Width != 0 {
		s.X = -delta.X / size.Width * window.Time.Span()
	}
	if size.Height != 0 {
		s.Y = delta.Y / size.Height * window.Freq.Span()
	}
	return s
}
