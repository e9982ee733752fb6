package golfer

import "fmt"

// Finishing bands. A finish strictly below the band value earns credit.
const (
	Top20Band = 21
	Top10Band = 11
	Top5Band  = 6
	WinBand   = 2
)

// Stats are a golfer's outcome statistics. Until Normalize is called the
// fields are running sums over simulated tournaments; afterwards they are
// averages (AvgFinish, AvgEarnings) and probabilities (the rest).
type Stats struct {
	AvgFinish   float64
	AvgEarnings float64
	Win         float64
	Top5        float64
	Top10       float64
	Top20       float64
	MadeCut     float64
}

func (s Stats) String() string {
	return fmt.Sprintf("finish=%.3f earnings=%.2f win=%.4f top5=%.4f top10=%.4f top20=%.4f cut=%.4f",
		s.AvgFinish, s.AvgEarnings, s.Win, s.Top5, s.Top10, s.Top20, s.MadeCut)
}

// Add records one tournament outcome. finish is 1-based. A golfer made the
// cut if finish <= cutLine+1; only those golfers collect earnings and
// band credit. Bands are cumulative, so a win counts as a top-5, top-10 and
// top-20 as well.
func (s *Stats) Add(finish, cutLine int, earnings float64) {
	s.AvgFinish += float64(finish)
	if finish > cutLine+1 {
		return
	}
	s.AvgEarnings += earnings
	s.MadeCut++
	if finish < Top20Band {
		s.Top20++
		if finish < Top10Band {
			s.Top10++
			if finish < Top5Band {
				s.Top5++
				if finish < WinBand {
					s.Win++
				}
			}
		}
	}
}

// Merge adds o field-wise into s.
func (s *Stats) Merge(o *Stats) {
	s.AvgFinish += o.AvgFinish
	s.AvgEarnings += o.AvgEarnings
	s.Win += o.Win
	s.Top5 += o.Top5
	s.Top10 += o.Top10
	s.Top20 += o.Top20
	s.MadeCut += o.MadeCut
}

// Normalize turns the running sums into per-tournament averages.
// It must be applied exactly once to a set of sums.
func (s *Stats) Normalize(n int) {
	if n <= 0 {
		return
	}
	d := float64(n)
	s.AvgFinish /= d
	s.AvgEarnings /= d
	s.Win /= d
	s.Top5 /= d
	s.Top10 /= d
	s.Top20 /= d
	s.MadeCut /= d
}
