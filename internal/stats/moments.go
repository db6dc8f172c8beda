package stats

import "math"

// Mean is an incremental arithmetic mean. The zero value is ready to use.
type Mean struct {
	n    int64
	mean float64
}

// Increment folds one sample into the running mean.
func (m *Mean) Increment(x float64) {
	m.n++
	m.mean += (x - m.mean) / float64(m.n)
}

// N returns the number of samples seen so far.
func (m *Mean) N() int64 {
	return m.n
}

// Result returns the current mean, or NaN if no samples have been seen.
func (m *Mean) Result() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return m.mean
}

// StandardDeviation is an incremental sample standard deviation using
// Welford's recurrence. It divides by n-1, matching the bias-corrected
// estimator used by the calibration routines that consume it.
// The zero value is ready to use.
type StandardDeviation struct {
	n    int64
	mean float64
	m2   float64
}

// Increment folds one sample into the running variance.
func (s *StandardDeviation) Increment(x float64) {
	s.n++
	delta := x - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (x - s.mean)
}

// N returns the number of samples seen so far.
func (s *StandardDeviation) N() int64 {
	return s.n
}

// Result returns the sample standard deviation. It is NaN with no
// samples and 0 with a single sample.
func (s *StandardDeviation) Result() float64 {
	if s.n == 0 {
		return math.NaN()
	}
	if s.n == 1 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.n-1))
}
