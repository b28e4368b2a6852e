package chunk

import (
	"image"
	"math"

	"github.com/gogpu/spectro"
)

// Planner defaults.
const (
	// DefaultCanvasHeight is the tile height in pixels. Each tile is given a
	// budget of DefaultCanvasHeight² pixels.
	DefaultCanvasHeight = 512

	// DefaultBufferFactor controls the overlap between adjacent buffers:
	// (factor-1) hops plus one window on each side.
	DefaultBufferFactor = 5
)

// Chunk is one tile of the timeline.
type Chunk struct {
	// Interval is the nominal coverage. Intervals of consecutive chunks
	// share their endpoints and together cover [0, duration].
	Interval spectro.Interval

	// Buffer is Interval widened on both sides and clamped to [0, duration].
	// Tiles are fetched for Buffer, not Interval.
	Buffer spectro.Interval

	// Index is the position of the chunk in its plan.
	Index int
}

// State is the per-chunk load state.
//
// Lifecycle: zero value (unready) → IsLoading → IsReady or IsError.
// A parameter change resets every chunk to the zero value.
type State struct {
	IsLoading bool
	IsReady   bool
	IsError   bool
}

// Settled reports whether a load has finished, successfully or not.
func (s State) Settled() bool {
	return s.IsReady || s.IsError
}

// Idle reports whether no load has been attempted yet.
func (s State) Idle() bool {
	return !s.IsLoading && !s.IsReady && !s.IsError
}

// Snapshot is what a renderer needs to draw one chunk: its geometry, its
// state and the decoded tile when one is available.
type Snapshot struct {
	Chunk Chunk
	State State
	Image image.Image
}

// Option configures a Planner.
type Option func(*Planner)

// WithCanvasHeight sets the tile height whose square is the pixel budget.
// Non-positive values are ignored.
func WithCanvasHeight(h int) Option {
	return func(p *Planner) {
		if h > 0 {
			p.canvasHeight = h
		}
	}
}

// WithBufferFactor sets the buffer factor. Values below 1 are ignored.
func WithBufferFactor(f int) Option {
	return func(p *Planner) {
		if f >= 1 {
			p.bufferFactor = f
		}
	}
}

// Planner computes chunk plans. A Planner is immutable and safe for
// concurrent use.
type Planner struct {
	canvasHeight int
	bufferFactor int
}

// NewPlanner creates a planner with the given options.
func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		canvasHeight: DefaultCanvasHeight,
		bufferFactor: DefaultBufferFactor,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ChunkDuration returns the nominal duration of one chunk for s: the number
// of frames that fit in the pixel budget given s.FreqBins() rows, times the
// hop duration.
func (p *Planner) ChunkDuration(s STFT) float64 {
	budget := p.canvasHeight * p.canvasHeight
	frames := max(budget/s.FreqBins(), 1)
	return float64(frames) * s.HopDuration()
}

// BufferWidth returns how far each chunk's buffer extends past its interval.
func (p *Planner) BufferWidth(s STFT) float64 {
	return float64(p.bufferFactor-1)*s.HopDuration() + s.WindowDuration()
}

// Plan partitions [0, duration] into chunks for s. It returns nil when
// duration is not positive. s is assumed valid; see STFT.Validate.
func (p *Planner) Plan(duration float64, s STFT) []Chunk {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil
	}

	cd := p.ChunkDuration(s)
	bw := p.BufferWidth(s)
	n := int(math.Ceil(duration / cd))
	chunks := make([]Chunk, 0, n)

	for i := 0; ; i++ {
		start := float64(i) * cd
		if start >= duration {
			break
		}
		end := math.Min(float64(i+1)*cd, duration)
		chunks = append(chunks, Chunk{
			Interval: spectro.Interval{Min: start, Max: end},
			Buffer: spectro.Interval{
				Min: math.Max(0, start-bw),
				Max: math.Min(duration, end+bw),
			},
			Index: i,
		})
	}
	return chunks
}

// Calculate plans chunks with the default planner for a recording of the
// given duration and STFT settings.
func Calculate(duration float64, windowSizeSamples int, overlapPercent, samplerate float64) ([]Chunk, error) {
	s := STFT{WindowSize: windowSizeSamples, OverlapPercent: overlapPercent, Samplerate: samplerate}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return NewPlanner().Plan(duration, s), nil
}

// Visible returns the index range [first, last] of the chunks whose interval
// overlaps t. ok is false when none do. chunks must be a plan, ordered by
// Index.
func Visible(chunks []Chunk, t spectro.Interval) (first, last int, ok bool) {
	first, last = -1, -1
	for i, c := range chunks {
		if !c.Interval.Overlaps(t) {
			if first >= 0 {
				break
			}
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	return first, last, first >= 0
}

// Expand widens the index range [first, last] by margin chunks on each side,
// clamped to a plan of n chunks.
func Expand(first, last, margin, n int) (int, int) {
	return max(first-margin, 0), min(last+margin, n-1)
}
