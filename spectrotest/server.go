// Package spectrotest provides an in-process tile service for tests and
// demos.
//
// The server synthesizes each recording from a Signal, computes a
// Hann-windowed STFT of the requested segment and answers with a grayscale
// PNG: one column per hop, one row per frequency bin, row 0 at the Nyquist
// frequency. Waveform requests get a min/max envelope image.
package spectrotest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/chunk"
	"github.com/gogpu/spectro/internal/parallel"
	"github.com/gogpu/spectro/tile"
)

// Default dB range used when a request's MinDB is not below MaxDB.
const (
	DefaultMinDB = -120
	DefaultMaxDB = 0
)

// WaveformHeight is the pixel height of waveform tiles.
const WaveformHeight = 128

// maxColumns bounds the width of one tile.
const maxColumns = 1 << 14

// columnBatch is the number of STFT columns computed per pool task.
const columnBatch = 32

// ranger runs fn over [0, n) in batches; workers is the number of distinct
// worker indices fn may see.
type ranger struct {
	workers int
	run     func(n, batch int, fn func(worker, lo, hi int))
}

var sequential = ranger{
	workers: 1,
	run:     func(n, _ int, fn func(worker, lo, hi int)) { fn(0, 0, n) },
}

// Recording is a synthetic recording.
type Recording struct {
	ID         string
	Duration   float64
	Samplerate float64
	Signal     Signal
}

// Server is a running tile service.
type Server struct {
	*httptest.Server

	pool *parallel.Pool

	mu         sync.RWMutex
	recordings map[string]Recording
	fail       func(tile.Request) bool

	requests atomic.Int64
	failures atomic.Int64
}

// NewServer starts a server serving recs. Call Close when done.
func NewServer(recs ...Recording) *Server {
	s := &Server{
		pool:       parallel.New(0),
		recordings: make(map[string]Recording),
	}
	for _, r := range recs {
		s.recordings[r.ID] = r
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /spectrograms/", s.handle(tile.Spectrogram))
	mux.HandleFunc("GET /waveforms/", s.handle(tile.Waveform))
	s.Server = httptest.NewServer(mux)
	return s
}

// Close shuts the server down and releases its workers.
func (s *Server) Close() {
	s.Server.Close()
	s.pool.Close()
}

// Add registers a recording.
func (s *Server) Add(r Recording) {
	s.mu.Lock()
	s.recordings[r.ID] = r
	s.mu.Unlock()
}

// FailWhen makes every request matching fn answer 500. A nil fn clears it.
func (s *Server) FailWhen(fn func(tile.Request) bool) {
	s.mu.Lock()
	s.fail = fn
	s.mu.Unlock()
}

// FailSegmentsContaining fails requests whose segment contains t.
func (s *Server) FailSegmentsContaining(t float64) {
	s.FailWhen(func(r tile.Request) bool { return r.Segment.Contains(t) })
}

// Requests returns the number of tile requests served, failed ones included.
func (s *Server) Requests() int { return int(s.requests.Load()) }

// Failures returns the number of injected failures.
func (s *Server) Failures() int { return int(s.failures.Load()) }

func (s *Server) handle(kind tile.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)

		req, err := tile.ParseQuery(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Kind = kind

		s.mu.RLock()
		rec, ok := s.recordings[req.RecordingID]
		fail := s.fail
		s.mu.RUnlock()
		if !ok {
			http.Error(w, "unknown recording "+req.RecordingID, http.StatusNotFound)
			return
		}
		if fail != nil && fail(req) {
			s.failures.Add(1)
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}

		var img image.Image
		switch kind {
		case tile.Waveform:
			img, err = Waveform(rec, req.Segment, req.Params)
		default:
			img, err = spectrogram(rec, req.Segment, req.Params, ranger{workers: s.pool.Workers(), run: s.pool.Range})
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}
}

func columns(segment spectro.Interval, step float64) (int, error) {
	if !(segment.Span() > 0) {
		return 0, fmt.Errorf("spectrotest: empty segment %v", segment)
	}
	n := int(math.Ceil(segment.Span() / step))
	if n > maxColumns {
		return 0, fmt.Errorf("spectrotest: segment %v needs %d columns", segment, n)
	}
	return max(n, 1), nil
}

// Spectrogram renders the STFT of rec over segment. Column i is the frame
// centered at segment.Min + (i+0.5)*hop; samples outside the recording are
// zero.
func Spectrogram(rec Recording, segment spectro.Interval, p chunk.Parameters) (*image.Gray, error) {
	return spectrogram(rec, segment, p, sequential)
}

// scratch is per-worker STFT state; fourier.FFT is not safe for concurrent use.
type scratch struct {
	fft    *fourier.FFT
	frame  []float64
	coeffs []complex128
}

func spectrogram(rec Recording, segment spectro.Interval, p chunk.Parameters, r ranger) (*image.Gray, error) {
	stft, err := p.Resolve(rec.Samplerate)
	if err != nil {
		return nil, err
	}
	hop := stft.HopDuration()
	cols, err := columns(segment, hop)
	if err != nil {
		return nil, err
	}

	n := stft.WindowSize
	bins := stft.FreqBins()
	lo, hi := p.MinDB, p.MaxDB
	if !(lo < hi) {
		lo, hi = DefaultMinDB, DefaultMaxDB
	}

	taper := window.Hann(ones(n))
	// Hann coherent gain is 1/2, so a unit sine peaks near n/4.
	ref := float64(n) / 4

	work := make([]scratch, r.workers)
	for i := range work {
		work[i] = scratch{
			fft:    fourier.NewFFT(n),
			frame:  make([]float64, n),
			coeffs: make([]complex128, bins),
		}
	}

	img := image.NewGray(image.Rect(0, 0, cols, bins))
	r.run(cols, columnBatch, func(worker, x0, x1 int) {
		sc := &work[worker]
		for x := x0; x < x1; x++ {
			center := segment.Min + (float64(x)+0.5)*hop
			first := center - float64(n)/2/stft.Samplerate
			for j := range sc.frame {
				t := first + float64(j)/stft.Samplerate
				sc.frame[j] = 0
				if t >= 0 && t < rec.Duration && rec.Signal != nil {
					sc.frame[j] = rec.Signal(t) * taper[j]
				}
			}
			sc.coeffs = sc.fft.Coefficients(sc.coeffs, sc.frame)
			for k, c := range sc.coeffs {
				mag := math.Hypot(real(c), imag(c)) / ref
				db := 20 * math.Log10(mag+1e-12)
				v := (db - lo) / (hi - lo)
				v = math.Min(math.Max(v, 0), 1)
				img.SetGray(x, bins-1-k, color.Gray{Y: uint8(math.Round(v * 255))})
			}
		}
	})
	return img, nil
}

// Waveform renders the min/max envelope of rec over segment, one column per
// hop. Row 0 is amplitude +1.
func Waveform(rec Recording, segment spectro.Interval, p chunk.Parameters) (*image.Gray, error) {
	stft, err := p.Resolve(rec.Samplerate)
	if err != nil {
		return nil, err
	}
	hop := stft.HopDuration()
	cols, err := columns(segment, hop)
	if err != nil {
		return nil, err
	}
	perCol := max(int(math.Round(hop*stft.Samplerate)), 1)
	h := WaveformHeight
	row := func(v float64) int {
		v = math.Min(math.Max(v, -1), 1)
		return int(math.Round((1 - v) / 2 * float64(h-1)))
	}

	img := image.NewGray(image.Rect(0, 0, cols, h))
	for x := range cols {
		start := segment.Min + float64(x)*hop
		lo, hi := 0.0, 0.0
		for j := range perCol {
			t := start + float64(j)/stft.Samplerate
			if t < 0 || t >= rec.Duration || rec.Signal == nil {
				continue
			}
			v := rec.Signal(t)
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		for y := row(hi); y <= row(lo); y++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img, nil
}

func ones(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 1
	}
	return s
}
