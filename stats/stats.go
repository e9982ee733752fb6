package stats

import "math"

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Statistic is a running mean/variance over a stream of values.
type Statistic struct {
	n    int
	last float64

	// Welford's algorithm
	mean float64
	m2   float64
}

func (s *Statistic) Push(val float64) {
	s.last = val
	s.n++
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
}

func (s *Statistic) Mean() float64 {
	if s.n > 0 {
		return s.mean
	}
	return 0.0
}

// Variance is the sample variance (n-1 denominator).
func (s *Statistic) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

// PopVariance is the population variance (n denominator).
func (s *Statistic) PopVariance() float64 {
	if s.n == 0 {
		return 0.0
	}
	return s.m2 / float64(s.n)
}

func (s *Statistic) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *Statistic) PopStdev() float64 {
	return math.Sqrt(s.PopVariance())
}

func (s *Statistic) Last() float64 {
	return s.last
}

// StandardError returns the standard error of the mean.
func (s *Statistic) StandardError() float64 {
	if s.n == 0 {
		return 0.0
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

func (s *Statistic) Iterations() int {
	return s.n
}
