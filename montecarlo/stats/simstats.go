// Package stats presents the results of a tournament simulation.
package stats

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/domino14/golfsim/montecarlo"
	"github.com/domino14/golfsim/stats"
)

// ConfidenceInterval is used for the win probability margin of error.
const ConfidenceInterval = 95

type SortKey int

const (
	ByEarnings SortKey = iota
	ByWin
	ByFinish
	ByMadeCut
)

// ParseSortKey maps a name such as "earnings" to a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(s) {
	case "earnings", "":
		return ByEarnings, nil
	case "win":
		return ByWin, nil
	case "finish":
		return ByFinish, nil
	case "cut":
		return ByMadeCut, nil
	}
	return 0, fmt.Errorf("unknown sort key %q", s)
}

// Row is one golfer's line in the results table.
type Row struct {
	Name string
	montecarlo.Result
	// WinMargin is the half-width of the win probability confidence interval.
	WinMargin float64
}

type SimStats struct {
	rows    []Row
	numSims int
	printer *message.Printer
}

// NewSimStats collects the finished simulation's results. names may be nil
// or incomplete; golfers without a name are shown by ID.
func NewSimStats(sim *montecarlo.Sim, names map[uint32]string) *SimStats {
	n := sim.Params().NumSims
	rows := lo.MapToSlice(sim.Results(), func(id uint32, r montecarlo.Result) Row {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("#%d", id)
		}
		return Row{Name: name, Result: r, WinMargin: stats.ProportionMargin(r.Win, n, ConfidenceInterval)}
	})
	ss := &SimStats{rows: rows, numSims: n, printer: message.NewPrinter(language.English)}
	ss.Sort(ByEarnings)
	return ss
}

// Sort orders the rows, best first. Ties fall back to ID.
func (ss *SimStats) Sort(key SortKey) {
	slices.SortFunc(ss.rows, func(a, b Row) int {
		var c int
		switch key {
		case ByWin:
			c = cmp.Compare(b.Win, a.Win)
		case ByFinish:
			c = cmp.Compare(a.AvgFinish, b.AvgFinish)
		case ByMadeCut:
			c = cmp.Compare(b.MadeCut, a.MadeCut)
		default:
			c = cmp.Compare(b.AvgEarnings, a.AvgEarnings)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (ss *SimStats) Rows() []Row {
	return ss.rows
}

// Table renders the top rows (all of them if top <= 0).
func (ss *SimStats) Table(top int) string {
	var sb strings.Builder
	rows := ss.rows
	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}
	fmt.Fprintf(&sb, "%-24s%-8s%-8s%-16s%-10s%-16s%-8s%-8s%-8s%-8s\n",
		"Golfer", "Index", "SD", "Exp. Earnings", "Exp. Fin", "Win%", "Top5%", "Top10%", "Top20%", "Cut%")
	for _, r := range rows {
		sb.WriteString(ss.printer.Sprintf("%-24s%-8.3f%-8.3f$%-15.0f%-10.2f%-16s%-8.2f%-8.2f%-8.2f%-8.2f\n",
			r.Name, r.Index, r.StdDev, r.AvgEarnings, r.AvgFinish,
			fmt.Sprintf("%.2f ± %.2f", 100*r.Win, 100*r.WinMargin),
			100*r.Top5, 100*r.Top10, 100*r.Top20, 100*r.MadeCut))
	}
	fmt.Fprintf(&sb, "%d simulations\n", ss.numSims)
	return sb.String()
}

// Histogram plots the distribution of one statistic across the field.
func (ss *SimStats) Histogram(w io.Writer, key SortKey, bins, width int) error {
	if len(ss.rows) == 0 {
		return nil
	}
	data := lo.Map(ss.rows, func(r Row, _ int) float64 {
		switch key {
		case ByWin:
			return r.Win
		case ByFinish:
			return r.AvgFinish
		case ByMadeCut:
			return r.MadeCut
		}
		return r.AvgEarnings
	})
	return histogram.Fprint(w, histogram.Hist(bins, data), histogram.Linear(width))
}
