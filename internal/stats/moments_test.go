package stats

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	var m Mean
	if !math.IsNaN(m.Result()) {
		t.Errorf("empty mean = %f, want NaN", m.Result())
	}

	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		m.Increment(x)
	}
	if m.N() != 8 {
		t.Errorf("N = %d, want 8", m.N())
	}
	if got := m.Result(); math.Abs(got-5.0) > 1e-12 {
		t.Errorf("mean = %f, want 5", got)
	}
}

func TestStandardDeviation(t *testing.T) {
	var s StandardDeviation
	if !math.IsNaN(s.Result()) {
		t.Errorf("empty sd = %f, want NaN", s.Result())
	}

	s.Increment(3.5)
	if got := s.Result(); got != 0 {
		t.Errorf("single-sample sd = %f, want 0", got)
	}

	// Classic example: sample sd of {2,4,4,4,5,5,7,9} is sqrt(32/7).
	var s2 StandardDeviation
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s2.Increment(x)
	}
	want := math.Sqrt(32.0 / 7.0)
	if got := s2.Result(); math.Abs(got-want) > 1e-12 {
		t.Errorf("sd = %f, want %f", got, want)
	}
}

func TestStandardDeviationShiftStability(t *testing.T) {
	// Welford's recurrence should be unaffected by a large common offset.
	var a, b StandardDeviation
	data := []float64{0.2, 0.9, 1.1, 1.4, 2.3}
	for _, x := range data {
		a.Increment(x)
		b.Increment(x + 1e8)
	}
	if got, want := b.Result(), a.Result(); math.Abs(got-want) > 1e-6 {
		t.Errorf("shifted sd = %f, want %f", got, want)
	}
}
