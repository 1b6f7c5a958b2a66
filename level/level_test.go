package level

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestSmoothFromZero(t *testing.T) {
	var v Vector
	raw := []float64{1}

	v = Smooth(v, raw)
	if !near(v[0], 0.3) {
		t.Fatalf("after first update smoothed[0] = %v, want 0.3", v[0])
	}
	v = Smooth(v, raw)
	if !near(v[0], 0.51) {
		t.Fatalf("after second update smoothed[0] = %v, want 0.51", v[0])
	}
	for i := 1; i < Channels; i++ {
		if v[i] != 0 {
			t.Errorf("smoothed[%d] = %v, want 0", i, v[i])
		}
	}
}

func TestSmoothFormula(t *testing.T) {
	var prev Vector
	for i := range prev {
		prev[i] = float64(i) / 20
	}
	raw := []float64{0.9, 0.1, 0.5, 0, 1, 0.25}

	got := Smooth(prev, raw)
	for i := range got {
		var r float64
		if i < len(raw) {
			r = raw[i]
		}
		want := 0.7*prev[i] + 0.3*r
		if !near(got[i], want) {
			t.Errorf("smoothed[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestSmoothIgnoresExtraBuckets(t *testing.T) {
	raw := make([]float64, Channels+8)
	for i := range raw {
		raw[i] = 1
	}
	got := Smooth(Vector{}, raw)
	if len(got) != Channels {
		t.Fatalf("len = %d, want %d", len(got), Channels)
	}
	for i, v := range got {
		if !near(v, 0.3) {
			t.Errorf("smoothed[%d] = %v, want 0.3", i, v)
		}
	}
}

func TestSmoothPropagatesMalformedInput(t *testing.T) {
	got := Smooth(Vector{}, []float64{math.NaN(), -1})
	if !math.IsNaN(got[0]) {
		t.Errorf("smoothed[0] = %v, want NaN", got[0])
	}
	if !near(got[1], -0.3) {
		t.Errorf("smoothed[1] = %v, want -0.3", got[1])
	}
}

func TestSmoothNilRawDecays(t *testing.T) {
	var prev Vector
	prev[3] = 1
	got := Smooth(prev, nil)
	if !near(got[3], 0.7) {
		t.Errorf("smoothed[3] = %v, want 0.7", got[3])
	}
}

func TestDisplayLevels(t *testing.T) {
	var v Vector
	for i := range v {
		v[i] = float64(i)
	}
	d := DisplayLevels(v)
	if len(d) != DisplayBars {
		t.Fatalf("len = %d, want %d", len(d), DisplayBars)
	}
	for i, x := range d {
		if x != float64(i) {
			t.Errorf("display[%d] = %v, want %d", i, x, i)
		}
	}
}

func TestBarHeight(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 4},
		{1, 20},
		{1.7, 20},
		{math.NaN(), 4},
	}
	for _, tt := range tests {
		if got := BarHeight(tt.in); !near(got, tt.want) {
			t.Errorf("BarHeight(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if h := BarHeight(0.5); h <= 4 || h >= 20 {
		t.Errorf("BarHeight(0.5) = %v, want strictly between 4 and 20", h)
	}
}

func TestBarOpacity(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0.2},
		{0.1, 0.2},
		{0.5, 0.85},
		{1, 1.7},
	}
	for _, tt := range tests {
		if got := BarOpacity(tt.in); !near(got, tt.want) {
			t.Errorf("BarOpacity(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
