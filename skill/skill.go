// Package skill estimates a golfer's scoring distribution from their
// recent strokes-gained history. Recent rounds weigh more than old ones.
package skill

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/domino14/golfsim/stats"
)

var ErrNoRounds = errors.New("no rounds to estimate from")

// Round is one historical round.
type Round struct {
	SGTotal float64   `yaml:"sg_total"`
	Date    time.Time `yaml:"date"`
}

// Options control the age-decay weighting.
type Options struct {
	// MaxAge drops rounds older than this.
	MaxAge time.Duration
	// MinRounds is the number of rounds a golfer must exceed for an
	// estimate to be made.
	MinRounds int
	// DecayExp and DecayOffset define the weight of a round that is d
	// days old as (d + DecayOffset) ^ -DecayExp.
	DecayExp    float64
	DecayOffset float64
}

func DefaultOptions() Options {
	return Options{
		MaxAge:      730 * 24 * time.Hour,
		MinRounds:   25,
		DecayExp:    1 / 1.01,
		DecayOffset: 100,
	}
}

// DecayWeights returns normalized weights for rounds of the given ages in
// days. The weights sum to 1.
func DecayWeights(ages []float64, exp, offset float64) []float64 {
	w := make([]float64, len(ages))
	for i, a := range ages {
		w[i] = math.Pow(a+offset, -exp)
	}
	if sum := floats.Sum(w); sum > 0 {
		floats.Scale(1/sum, w)
	}
	return w
}

// Estimate returns the decay-weighted mean of sgTotals as the skill index,
// and their unweighted population standard deviation.
func Estimate(sgTotals, ages []float64, exp, offset float64) (index, stdDev float64, err error) {
	if len(sgTotals) == 0 {
		return 0, 0, ErrNoRounds
	}
	if len(sgTotals) != len(ages) {
		return 0, 0, errors.New("mismatched round and age counts")
	}
	st := &stats.Statistic{}
	for _, sg := range sgTotals {
		st.Push(sg)
	}
	w := DecayWeights(ages, exp, offset)
	return stat.Mean(sgTotals, w), st.PopStdev(), nil
}

// EstimateRounds filters rounds by age relative to asOf and estimates the
// golfer's distribution. ok is false if not enough rounds remain, in which
// case the caller should fall back to another prediction.
func EstimateRounds(rounds []Round, asOf time.Time, opts Options) (index, stdDev float64, ok bool) {
	earliest := asOf.Add(-opts.MaxAge)
	var sgs, ages []float64
	for _, r := range rounds {
		if opts.MaxAge > 0 && !r.Date.After(earliest) {
			continue
		}
		sgs = append(sgs, r.SGTotal)
		ages = append(ages, math.Floor(asOf.Sub(r.Date).Hours()/24))
	}
	if len(sgs) <= opts.MinRounds {
		return 0, 0, false
	}
	index, stdDev, err := Estimate(sgs, ages, opts.DecayExp, opts.DecayOffset)
	if err != nil || !(stdDev > 0) {
		return 0, 0, false
	}
	return index, stdDev, true
}
