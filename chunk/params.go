package chunk

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidParameters is returned when STFT parameters cannot produce a plan.
var ErrInvalidParameters = errors.New("chunk: invalid parameters")

// Auto-STFT defaults.
const (
	// autoWindowSeconds is the analysis window length targeted by AutoSTFT.
	autoWindowSeconds = 0.0213

	// autoOverlapPercent is the overlap used by AutoSTFT.
	autoOverlapPercent = 75
)

// Parameters are the spectrogram processing parameters sent to the tile
// service. They are validated and defaulted by the caller; this package only
// resolves the values that affect planning and builds cache keys from them.
type Parameters struct {
	// WindowSizeSamples is the STFT analysis window length in samples.
	WindowSizeSamples int `json:"window_size_samples"`

	// OverlapPercent is the overlap between consecutive windows, in [0, 100).
	OverlapPercent float64 `json:"overlap_percent"`

	// Samplerate is the target sample rate when Resample is set.
	Samplerate float64 `json:"samplerate"`

	// Resample makes the service resample audio to Samplerate first.
	Resample bool `json:"resample"`

	// AutoSTFT lets the window size and overlap follow the sample rate.
	AutoSTFT bool `json:"auto_stft"`

	// Window is the window function name, e.g. "hann".
	Window string `json:"window,omitempty"`

	// Channel selects the audio channel.
	Channel int `json:"channel"`

	// Scale is the amplitude scale, e.g. "dB".
	Scale string `json:"scale,omitempty"`

	// MinDB and MaxDB clip the colour range.
	MinDB float64 `json:"min_dB"`
	MaxDB float64 `json:"max_dB"`

	// Colormap names the palette the service renders with.
	Colormap string `json:"cmap,omitempty"`
}

// STFT is the resolved short-time Fourier transform configuration.
type STFT struct {
	WindowSize     int
	OverlapPercent float64
	Samplerate     float64
}

// Resolve returns the effective STFT for a recording with the given native
// sample rate.
func (p Parameters) Resolve(recordingSamplerate float64) (STFT, error) {
	sr := recordingSamplerate
	if p.Resample {
		sr = p.Samplerate
	}

	s := STFT{
		WindowSize:     p.WindowSizeSamples,
		OverlapPercent: p.OverlapPercent,
		Samplerate:     sr,
	}
	if p.AutoSTFT && sr > 0 {
		s.WindowSize = nearestPowerOfTwo(autoWindowSeconds * sr)
		s.OverlapPercent = autoOverlapPercent
	}

	if err := s.Validate(); err != nil {
		return STFT{}, err
	}
	return s, nil
}

// Key returns a canonical string for p, stable across processes, suitable
// for building cache keys.
func (p Parameters) Key() string {
	var b strings.Builder
	field := func(name, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
	}
	num := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	field("auto_stft", strconv.FormatBool(p.AutoSTFT))
	field("channel", strconv.Itoa(p.Channel))
	field("cmap", p.Colormap)
	field("max_dB", num(p.MaxDB))
	field("min_dB", num(p.MinDB))
	field("overlap", num(p.OverlapPercent))
	field("resample", strconv.FormatBool(p.Resample))
	field("samplerate", num(p.Samplerate))
	field("scale", p.Scale)
	field("window", p.Window)
	field("window_size", strconv.Itoa(p.WindowSizeSamples))
	return b.String()
}

// Validate checks that s can be planned.
func (s STFT) Validate() error {
	switch {
	case s.WindowSize <= 0:
		return fmt.Errorf("%w: window size %d", ErrInvalidParameters, s.WindowSize)
	case s.OverlapPercent < 0 || s.OverlapPercent >= 100 || math.IsNaN(s.OverlapPercent):
		return fmt.Errorf("%w: overlap %v%%", ErrInvalidParameters, s.OverlapPercent)
	case !(s.Samplerate > 0) || math.IsInf(s.Samplerate, 0):
		return fmt.Errorf("%w: samplerate %v", ErrInvalidParameters, s.Samplerate)
	}
	return nil
}

// HopSize returns the advance between consecutive frames, in samples.
func (s STFT) HopSize() float64 {
	return float64(s.WindowSize) * (1 - s.OverlapPercent/100)
}

// HopDuration returns the advance between consecutive frames, in seconds.
func (s STFT) HopDuration() float64 {
	return s.HopSize() / s.Samplerate
}

// WindowDuration returns the analysis window length in seconds.
func (s STFT) WindowDuration() float64 {
	return float64(s.WindowSize) / s.Samplerate
}

// FreqBins returns the number of frequency bins in one frame.
func (s STFT) FreqBins() int {
	return s.WindowSize/2 + 1
}

// Nyquist returns the highest representable frequency.
func (s STFT) Nyquist() float64 {
	return s.Samplerate / 2
}

func nearestPowerOfTwo(v float64) int {
	if v <= 1 {
		return 1
	}
	return 1 << int(math.Round(math.Log2(v)))
}
