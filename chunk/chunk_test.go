package chunk

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/spectro"
)

func TestCalculateExample(t *testing.T) {
	// 10 s at 48 kHz, 1024-sample window, 75% overlap.
	chunks, err := Calculate(10, 1024, 75, 48000)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	s := STFT{WindowSize: 1024, OverlapPercent: 75, Samplerate: 48000}
	if got := s.HopSize(); got != 256 {
		t.Errorf("HopSize = %v, want 256", got)
	}
	if got := s.HopDuration(); math.Abs(got-0.005333333) > 1e-6 {
		t.Errorf("HopDuration = %v, want ~5.33ms", got)
	}

	// 512² / 513 bins = 511 frames per chunk.
	wantDuration := 511 * 256.0 / 48000
	if got := NewPlanner().ChunkDuration(s); math.Abs(got-wantDuration) > 1e-12 {
		t.Errorf("ChunkDuration = %v, want %v", got, wantDuration)
	}
	if len(chunks) != 4 {
		t.Fatalf("len(chunks) = %d, want 4", len(chunks))
	}

	bw := 4*256.0/48000 + 1024.0/48000
	if got := chunks[1].Buffer.Min; math.Abs(got-(chunks[1].Interval.Min-bw)) > 1e-12 {
		t.Errorf("chunks[1].Buffer.Min = %v, want %v", got, chunks[1].Interval.Min-bw)
	}
	if chunks[0].Buffer.Min != 0 {
		t.Errorf("first buffer must clamp to 0, got %v", chunks[0].Buffer.Min)
	}
	last := chunks[len(chunks)-1]
	if last.Interval.Max != 10 || last.Buffer.Max != 10 {
		t.Errorf("last chunk = %+v, want interval and buffer ending at 10", last)
	}
}

func TestPlanCoverage(t *testing.T) {
	planner := NewPlanner()
	stfts := []STFT{
		{WindowSize: 1024, OverlapPercent: 75, Samplerate: 48000},
		{WindowSize: 256, OverlapPercent: 50, Samplerate: 8000},
		{WindowSize: 4096, OverlapPercent: 0, Samplerate: 192000},
		{WindowSize: 512, OverlapPercent: 90, Samplerate: 44100},
	}
	durations := []float64{0.001, 0.5, 1, 2.72533, 10, 61.7, 3600}

	for _, s := range stfts {
		for _, d := range durations {
			chunks := planner.Plan(d, s)
			if len(chunks) == 0 {
				t.Fatalf("Plan(%v, %+v) returned no chunks", d, s)
			}
			if chunks[0].Interval.Min != 0 {
				t.Errorf("Plan(%v): first chunk starts at %v", d, chunks[0].Interval.Min)
			}
			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("chunk %d has Index %d", i, c.Index)
				}
				if c.Interval.Max > d {
					t.Errorf("chunk %d exceeds duration: %v > %v", i, c.Interval.Max, d)
				}
				if c.Interval.Min >= c.Interval.Max {
					t.Errorf("chunk %d is empty: %v", i, c.Interval)
				}
				if !c.Buffer.ContainsInterval(c.Interval) {
					t.Errorf("chunk %d buffer %v does not contain interval %v", i, c.Buffer, c.Interval)
				}
				if c.Buffer.Min < 0 || c.Buffer.Max > d {
					t.Errorf("chunk %d buffer %v outside [0, %v]", i, c.Buffer, d)
				}
				if i > 0 && chunks[i-1].Interval.Max != c.Interval.Min {
					t.Errorf("gap between chunk %d and %d: %v vs %v", i-1, i, chunks[i-1].Interval.Max, c.Interval.Min)
				}
			}
			if got := chunks[len(chunks)-1].Interval.Max; got != d {
				t.Errorf("Plan(%v): last chunk ends at %v", d, got)
			}
		}
	}
}

func TestPlanEmpty(t *testing.T) {
	s := STFT{WindowSize: 1024, OverlapPercent: 75, Samplerate: 48000}
	for _, d := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if got := NewPlanner().Plan(d, s); got != nil {
			t.Errorf("Plan(%v) = %d chunks, want nil", d, len(got))
		}
	}
}

func TestPlanDeterministic(t *testing.T) {
	s := STFT{WindowSize: 512, OverlapPercent: 50, Samplerate: 22050}
	a := NewPlanner().Plan(33.3, s)
	b := NewPlanner().Plan(33.3, s)
	if len(a) != len(b) {
		t.Fatalf("plans differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPlannerOptions(t *testing.T) {
	s := STFT{WindowSize: 1024, OverlapPercent: 75, Samplerate: 48000}
	small := NewPlanner(WithCanvasHeight(128), WithBufferFactor(1))
	// 128² / 513 = 31 frames.
	if got, want := small.ChunkDuration(s), 31*256.0/48000; math.Abs(got-want) > 1e-12 {
		t.Errorf("ChunkDuration = %v, want %v", got, want)
	}
	if got, want := small.BufferWidth(s), 1024.0/48000; math.Abs(got-want) > 1e-12 {
		t.Errorf("BufferWidth = %v, want %v", got, want)
	}

	ignored := NewPlanner(WithCanvasHeight(0), WithBufferFactor(0))
	if ignored.canvasHeight != DefaultCanvasHeight || ignored.bufferFactor != DefaultBufferFactor {
		t.Errorf("invalid options should be ignored, got %+v", ignored)
	}
}

func TestCalculateInvalid(t *testing.T) {
	tests := []struct {
		name    string
		ws      int
		overlap float64
		sr      float64
	}{
		{"zero window", 0, 50, 48000},
		{"overlap 100", 1024, 100, 48000},
		{"negative overlap", 1024, -1, 48000},
		{"zero samplerate", 1024, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(10, tt.ws, tt.overlap, tt.sr)
			if !errors.Is(err, ErrInvalidParameters) {
				t.Errorf("Calculate err = %v, want ErrInvalidParameters", err)
			}
		})
	}
}

func TestVisibleAndExpand(t *testing.T) {
	chunks, err := Calculate(10, 1024, 75, 48000)
	if err != nil {
		t.Fatal(err)
	}
	cd := chunks[0].Interval.Max

	first, last, ok := Visible(chunks, spectro.Iv(cd+0.1, 2*cd+0.1))
	if !ok || first != 1 || last != 2 {
		t.Errorf("Visible = %d, %d, %v; want 1, 2, true", first, last, ok)
	}

	// A window that only touches a chunk boundary does not include the neighbor.
	first, last, ok = Visible(chunks, spectro.Iv(0, cd))
	if !ok || first != 0 || last != 0 {
		t.Errorf("Visible boundary = %d, %d, %v; want 0, 0, true", first, last, ok)
	}

	if _, _, ok := Visible(chunks, spectro.Iv(20, 30)); ok {
		t.Error("Visible past the end should report no chunks")
	}

	lo, hi := Expand(0, 0, 1, len(chunks))
	if lo != 0 || hi != 1 {
		t.Errorf("Expand(0, 0) = %d, %d; want 0, 1", lo, hi)
	}
	lo, hi = Expand(1, 2, 1, len(chunks))
	if lo != 0 || hi != 3 {
		t.Errorf("Expand(1, 2) = %d, %d; want 0, 3", lo, hi)
	}
}

func TestState(t *testing.T) {
	var s State
	if !s.Idle() || s.Settled() {
		t.Errorf("zero State should be idle and unsettled")
	}
	s.IsLoading = true
	if s.Idle() || s.Settled() {
		t.Errorf("loading State should be neither idle nor settled")
	}
	if !(State{IsError: true}).Settled() || !(State{IsReady: true}).Settled() {
		t.Error("ready and error states should be settled")
	}
}
