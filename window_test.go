package spectro

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestIntervalIntersect(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Interval
		want   Interval
		wantOK bool
	}{
		{"overlap", Iv(0, 10), Iv(5, 15), Iv(5, 10), true},
		{"inside", Iv(0, 10), Iv(2, 3), Iv(2, 3), true},
		{"disjoint", Iv(0, 1), Iv(2, 3), Interval{}, false},
		{"touching", Iv(0, 1), Iv(1, 2), Interval{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Intersect(tt.b)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Intersect = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIvOrdersEndpoints(t *testing.T) {
	if got := Iv(5, 1); got != (Interval{Min: 1, Max: 5}) {
		t.Errorf("Iv(5, 1) = %v, want [1, 5]", got)
	}
}

func TestAdjustWindowToBounds(t *testing.T) {
	bounds := Win(0, 10, 0, 24000)
	tests := []struct {
		name   string
		window Window
		want   Window
	}{
		{"inside unchanged", Win(2, 4, 1000, 2000), Win(2, 4, 1000, 2000)},
		{"left overhang", Win(-1, 1, 1000, 2000), Win(0, 2, 1000, 2000)},
		{"right overhang", Win(9, 12, 1000, 2000), Win(7, 10, 1000, 2000)},
		{"freq overhang", Win(2, 4, 23000, 26000), Win(2, 4, 21000, 24000)},
		{"too wide clipped", Win(-5, 20, 0, 1000), Win(0, 10, 0, 1000)},
		{"too wide one side", Win(5, 20, 0, 30000), Win(5, 10, 0, 24000)},
		{"outside entirely", Win(20, 40, 0, 1000), Win(0, 10, 0, 1000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustWindowToBounds(tt.window, bounds)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("AdjustWindowToBounds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAdjustWindowToBoundsContainment(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 2000 {
		bounds := Win(r.Float64()*10, 10+r.Float64()*100, 0, 1000+r.Float64()*50000)
		tSpan := r.Float64() * bounds.Time.Span()
		fSpan := r.Float64() * bounds.Freq.Span()
		t0 := -50 + r.Float64()*200
		f0 := -10000 + r.Float64()*100000
		w := Win(t0, t0+tSpan, f0, f0+fSpan)

		got := AdjustWindowToBounds(w, bounds)
		if !bounds.ContainsWindow(got) {
			t.Fatalf("AdjustWindowToBounds(%v, %v) = %v, not contained", w, bounds, got)
		}
		if diff := cmp.Diff(w.Time.Span(), got.Time.Span(), cmpopts.EquateApprox(1e-9, 1e-9)); diff != "" {
			t.Fatalf("time span changed: %s", diff)
		}
		if diff := cmp.Diff(w.Freq.Span(), got.Freq.Span(), cmpopts.EquateApprox(1e-9, 1e-9)); diff != "" {
			t.Fatalf("freq span changed: %s", diff)
		}
	}
}

func TestShiftWindowRoundTrip(t *testing.T) {
	w := Win(2, 4, 0, 12000)
	span := w.Time.Span()
	right := ShiftWindow(w, Pt(span, 0))
	if got, want := right, Win(4, 6, 0, 12000); got != want {
		t.Errorf("ShiftWindow right = %v, want %v", got, want)
	}
	back := ShiftWindow(right, Pt(-span, 0))
	if back != w {
		t.Errorf("ShiftWindow round trip = %v, want %v", back, w)
	}
}

func TestCenterWindowOn(t *testing.T) {
	got := CenterWindowOn(Win(0, 2, 0, 100), Pt(10, 500))
	want := Win(9, 11, 450, 550)
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("CenterWindowOn mismatch (-want +got):\n%s", diff)
	}
}

func TestScaleWindow(t *testing.T) {
	got := ScaleWindow(Win(0, 4, 0, 100), 0.5, 2)
	want := Win(1, 3, -50, 150)
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("ScaleWindow mismatch (-want +got):\n%s", diff)
	}
	if got := ScaleWindow(Win(0, 4, 0, 100), 0, -1); got != Win(0, 4, 0, 100) {
		t.Errorf("ScaleWindow with invalid factors changed the window: %v", got)
	}
}

func TestBoundsAndInitialWindow(t *testing.T) {
	b := BoundsFor(Iv(0, 60), 48000)
	if b.Freq != Iv(0, 24000) {
		t.Errorf("BoundsFor freq = %v, want [0, 24000]", b.Freq)
	}
	w := InitialWindow(b, 10)
	if w.Time != Iv(0, 10) || w.Freq != b.Freq {
		t.Errorf("InitialWindow = %v", w)
	}
	if got := InitialWindow(b, 0); got != b {
		t.Errorf("InitialWindow(b, 0) = %v, want bounds", got)
	}
}

func TestAspectRatio(t *testing.T) {
	if got := Win(0, 2, 0, 1000).AspectRatio(); got != 0.002 {
		t.Errorf("AspectRatio = %v, want 0.002", got)
	}
	if got := Win(0, 2, 5, 5).AspectRatio(); got != 0 {
		t.Errorf("degenerate AspectRatio = %v, want 0", got)
	}
}
