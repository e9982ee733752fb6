// Package golfer holds the field of competitors for a simulated tournament
// along with the outcome statistics accumulated for each of them.
package golfer

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
)

var (
	ErrInvalidStdDev = errors.New("standard deviation must be positive")
	ErrInvalidIndex  = errors.New("skill index must be finite")
)

// Golfer is a competitor with a stationary Gaussian per-round scoring
// distribution. Index is the mean of that distribution; a higher index is
// a better golfer.
type Golfer struct {
	ID     uint32
	Index  float64
	StdDev float64

	Stats
}

func (g *Golfer) String() string {
	return fmt.Sprintf("<Golfer %d (index %.3f, sd %.3f) %v>", g.ID, g.Index, g.StdDev, g.Stats)
}

// Validate checks the scoring distribution parameters.
func Validate(index, stdDev float64) error {
	if math.IsNaN(index) || math.IsInf(index, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidIndex, index)
	}
	if !(stdDev > 0) || math.IsInf(stdDev, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidStdDev, stdDev)
	}
	return nil
}

// Registry is the set of golfers in a field, keyed by ID.
// It is not safe for concurrent mutation.
type Registry struct {
	golfers map[uint32]*Golfer
}

func NewRegistry() *Registry {
	return &Registry{golfers: make(map[uint32]*Golfer)}
}

// Add registers a golfer with zeroed statistics. Re-adding an ID replaces
// the previous entry.
func (r *Registry) Add(id uint32, index, stdDev float64) error {
	if err := Validate(index, stdDev); err != nil {
		return fmt.Errorf("golfer %d: %w", id, err)
	}
	r.golfers[id] = &Golfer{ID: id, Index: index, StdDev: stdDev}
	return nil
}

func (r *Registry) Get(id uint32) (*Golfer, bool) {
	g, ok := r.golfers[id]
	return g, ok
}

func (r *Registry) Len() int {
	return len(r.golfers)
}

// IDs returns all golfer IDs in ascending order. This is the canonical
// iteration order of the field.
func (r *Registry) IDs() []uint32 {
	ids := lo.Keys(r.golfers)
	slices.Sort(ids)
	return ids
}

// Golfers returns the golfers in ID order.
func (r *Registry) Golfers() []*Golfer {
	return lo.Map(r.IDs(), func(id uint32, _ int) *Golfer {
		return r.golfers[id]
	})
}

// StatsCopy returns a private statistics map with a zeroed entry for every
// golfer in the field. Merging it back adds only what was accumulated into it.
func (r *Registry) StatsCopy() map[uint32]*Stats {
	cp := make(map[uint32]*Stats, len(r.golfers))
	for id := range r.golfers {
		cp[id] = &Stats{}
	}
	return cp
}

// Merge adds each per-worker statistics map into the registry.
func (r *Registry) Merge(parts ...map[uint32]*Stats) {
	for _, part := range parts {
		for id, st := range part {
			g, ok := r.golfers[id]
			if !ok {
				panic(fmt.Sprintf("merging stats for unregistered golfer %d", id))
			}
			g.Stats.Merge(st)
		}
	}
}

// Normalize divides every golfer's statistics by n.
func (r *Registry) Normalize(n int) {
	for _, g := range r.golfers {
		g.Stats.Normalize(n)
	}
}

// ResetStats zeroes every golfer's statistics, keeping skill parameters.
func (r *Registry) ResetStats() {
	for _, g := range r.golfers {
		g.Stats = Stats{}
	}
}
