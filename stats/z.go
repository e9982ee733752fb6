package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ZVal returns the two-tailed Z-value associated with a specific confidence interval.
// The interval is a number from 0 to 100 percent.
func ZVal(confidenceInterval float64) float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
	}
	area := (1 + (confidenceInterval / 100)) / 2
	zValue := dist.Quantile(area)
	return zValue
}

// ProportionMargin is the half-width of the normal-approximation confidence
// interval for a probability p estimated from n independent trials.
func ProportionMargin(p float64, n int, confidenceInterval float64) float64 {
	if n <= 0 || p <= 0 || p >= 1 {
		return 0
	}
	return ZVal(confidenceInterval) * math.Sqrt(p*(1-p)/float64(n))
}
