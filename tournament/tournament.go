// Package tournament turns one simulated tournament's round scores into a
// final finishing order, applying the cut.
package tournament

import (
	"cmp"
	"slices"
)

// Entry is one golfer's round scores for a single tournament. Higher
// scores are better.
type Entry struct {
	ID     uint32
	Rounds []float64
}

// CutRule describes the cut. The cut is disabled if either field is zero.
type CutRule struct {
	// Round is the number of rounds played before the cut is made.
	Round int
	// Line is how many golfers survive the cut.
	Line int
}

func (c CutRule) Enabled() bool {
	return c.Round > 0 && c.Line > 0
}

type standing struct {
	id      uint32
	total   float64
	partial float64
}

func byTotal(a, b standing) int {
	return cmp.Compare(b.total, a.total)
}

func byPartial(a, b standing) int {
	return cmp.Compare(b.partial, a.partial)
}

// Resolver ranks tournaments. It keeps scratch space between calls, so a
// Resolver must not be used by more than one goroutine at a time.
type Resolver struct {
	cut       CutRule
	standings []standing
	order     []uint32
}

func NewResolver(cut CutRule) *Resolver {
	return &Resolver{cut: cut}
}

// Resolve returns golfer IDs in finishing order, index 0 being the winner.
// Without a cut, golfers are ordered by total score. With a cut, golfers
// are first ordered by their score through the cut round; the top
// min(Line, len(field)) are then reordered by total score, while those who
// missed the cut keep their cut-round order behind them. Ties keep the
// order of the input entries.
//
// The returned slice is reused by the next call to Resolve.
func (r *Resolver) Resolve(field []Entry) []uint32 {
	r.standings = r.standings[:0]
	for _, e := range field {
		cutRound := min(r.cut.Round, len(e.Rounds))
		st := standing{id: e.ID}
		for i, s := range e.Rounds {
			if i < cutRound {
				st.partial += s
			}
			st.total += s
		}
		r.standings = append(r.standings, st)
	}

	if !r.cut.Enabled() {
		slices.SortStableFunc(r.standings, byTotal)
	} else {
		slices.SortStableFunc(r.standings, byPartial)
		madeCut := r.standings[:min(r.cut.Line, len(r.standings))]
		slices.SortStableFunc(madeCut, byTotal)
	}

	r.order = r.order[:0]
	for _, st := range r.standings {
		r.order = append(r.order, st.id)
	}
	return r.order
}

// Resolve ranks a single tournament. See Resolver.Resolve.
func Resolve(field []Entry, cut CutRule) []uint32 {
	return slices.Clone(NewResolver(cut).Resolve(field))
}
