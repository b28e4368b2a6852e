package motion

import "github.com/gogpu/spectro"

// Default tuning values.
const (
	// DefaultScrollZoomRate is the exponent applied per wheel delta unit:
	// a delta of d scales the span by exp(d * rate).
	DefaultScrollZoomRate = 0.002
)

type options struct {
	minTimeZoom    float64
	minFreqZoom    float64
	fixedAspect    bool
	scrollZoomRate float64
	onChange       func(spectro.Window)
}

func defaultOptions() options {
	return options{scrollZoomRate: DefaultScrollZoomRate}
}

// Option configures a Controller.
type Option func(*options)

// WithMinZoom sets the smallest time span (seconds) and frequency span (Hz)
// a zoom may produce. Negative values are treated as zero.
func WithMinZoom(timeSpan, freqSpan float64) Option {
	return func(o *options) {
		o.minTimeZoom = max(timeSpan, 0)
		o.minFreqZoom = max(freqSpan, 0)
	}
}

// WithFixedAspect locks zoom selections to the window's aspect ratio.
func WithFixedAspect(fixed bool) Option {
	return func(o *options) {
		o.fixedAspect = fixed
	}
}

// WithScrollZoomRate sets the wheel zoom sensitivity. Non-positive values
// keep the default.
func WithScrollZoomRate(rate float64) Option {
	return func(o *options) {
		if rate > 0 {
			o.scrollZoomRate = rate
		}
	}
}

// WithOnChange registers a callback invoked with the new window after every
// change. It runs on the caller's goroutine without the controller's lock
// held, so it may call back into the controller.
func WithOnChange(fn func(spectro.Window)) Option {
	return func(o *options) {
		o.onChange = fn
	}
}
