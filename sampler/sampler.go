// Package sampler draws per-round scores from a golfer's scoring
// distribution.
package sampler

import (
	"encoding/binary"
	"math/rand/v2"

	"lukechampine.com/frand"

	"github.com/domino14/golfsim/golfer"
)

// frandSource adapts a frand RNG to math/rand/v2's Source.
type frandSource struct {
	rng *frand.RNG
	buf [8]byte
}

func (s *frandSource) Uint64() uint64 {
	s.rng.Read(s.buf[:])
	return binary.LittleEndian.Uint64(s.buf[:])
}

// Sampler draws normally distributed round scores. A Sampler owns its
// random source and must not be shared between goroutines.
type Sampler struct {
	r *rand.Rand
}

// New returns a Sampler with its own freshly seeded source.
func New() *Sampler {
	return NewFromSource(&frandSource{rng: frand.New()})
}

// NewFromSource returns a Sampler drawing from src. Useful for
// reproducible runs in tests.
func NewFromSource(src rand.Source) *Sampler {
	return &Sampler{r: rand.New(src)}
}

// Sample returns n independent draws from N(mean, stdDev^2).
func (s *Sampler) Sample(mean, stdDev float64, n int) ([]float64, error) {
	if err := golfer.Validate(mean, stdDev); err != nil {
		return nil, err
	}
	out := make([]float64, max(n, 0))
	for i := range out {
		out[i] = mean + stdDev*s.r.NormFloat64()
	}
	return out, nil
}
