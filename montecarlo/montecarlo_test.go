package montecarlo

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/matryer/is"
	"github.com/pbnjay/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/golfsim/golfer"
	"github.com/domino14/golfsim/payout"
	"github.com/domino14/golfsim/sampler"
	"github.com/domino14/golfsim/stats"
)

// presampled builds a Sim whose rounds have already been drawn.
func presampled(t *testing.T, p Params, purse payout.Table, scores map[uint32][]float64) *Sim {
	t.Helper()
	s, err := New(p)
	require.NoError(t, err)
	for id := range scores {
		require.NoError(t, s.AddGolfer(id, 0, 1))
	}
	require.NoError(t, s.SetPurse(purse))
	s.scores = newScoreTable(p.NumRounds, scores)
	s.phase = phaseSampled
	return s
}

func TestNoCutFinishOrder(t *testing.T) {
	is := is.New(t)
	// A cut line with no cut round has no effect.
	s := presampled(t, Params{NumSims: 1, NumRounds: 1, CutLine: 1}, nil, map[uint32][]float64{
		1: {5.0},
		2: {3.0},
		3: {4.0},
	})
	is.NoErr(s.SimTournaments(context.Background()))
	res := s.Results()
	is.Equal(res[1].AvgFinish, 1.0)
	is.Equal(res[3].AvgFinish, 2.0)
	is.Equal(res[2].AvgFinish, 3.0)
	for _, r := range res {
		is.Equal(r.MadeCut, 1.0)
	}
	is.Equal(res[1].Win, 1.0)
	is.Equal(res[2].Top5, 1.0)
}

func TestCutDecidesOrder(t *testing.T) {
	is := is.New(t)
	s := presampled(t, Params{NumSims: 1, NumRounds: 2, CutRound: 1, CutLine: 1},
		payout.Table{1: 1000, 2: 500}, map[uint32][]float64{
			1: {3.0, 1.0},
			2: {1.0, 5.0},
		})
	is.NoErr(s.SimTournaments(context.Background()))
	res := s.Results()
	is.Equal(res[1].AvgFinish, 1.0)
	is.Equal(res[2].AvgFinish, 2.0)
	is.Equal(res[1].Win, 1.0)
	// Finishing at cutLine+1 still counts as making the cut and gets paid.
	is.Equal(res[2].MadeCut, 1.0)
	is.Equal(res[2].AvgEarnings, 500.0)
}

func TestMissedCutNotPaid(t *testing.T) {
	is := is.New(t)
	s := presampled(t, Params{NumSims: 1, NumRounds: 2, CutRound: 1, CutLine: 1},
		payout.Table{1: 1000, 2: 500, 3: 250}, map[uint32][]float64{
			1: {3.0, 0.0},
			2: {2.0, 0.0},
			3: {1.0, 9.0},
		})
	is.NoErr(s.SimTournaments(context.Background()))
	res := s.Results()
	is.Equal(res[3].AvgFinish, 3.0)
	is.Equal(res[3].MadeCut, 0.0)
	is.Equal(res[3].AvgEarnings, 0.0)
	is.Equal(res[3].Top5, 0.0)
}

func TestPayoutMissingRank(t *testing.T) {
	is := is.New(t)
	s := presampled(t, Params{NumSims: 1, NumRounds: 1, CutRound: 1, CutLine: 3},
		payout.Table{1: 1000, 2: 500}, map[uint32][]float64{
			1: {3.0},
			2: {2.0},
			3: {1.0},
		})
	is.NoErr(s.SimTournaments(context.Background()))
	res := s.Results()
	is.Equal(res[3].AvgFinish, 3.0)
	is.Equal(res[3].MadeCut, 1.0)
	is.Equal(res[3].AvgEarnings, 0.0)
	is.Equal(res[1].AvgEarnings, 1000.0)
}

func sampledTable(numGolfers, sims, rounds int) map[uint32][]float64 {
	smp := sampler.NewFromSource(rand.NewPCG(42, 1024))
	scores := make(map[uint32][]float64, numGolfers)
	for id := 1; id <= numGolfers; id++ {
		draws, err := smp.Sample(float64(id%7)/3, 2.5, sims*rounds)
		if err != nil {
			panic(err)
		}
		scores[uint32(id)] = draws
	}
	return scores
}

func TestThreadCountDoesNotChangeSums(t *testing.T) {
	p := Params{NumSims: 997, NumRounds: 4, CutRound: 2, CutLine: 8}
	purse := payout.Table{1: 1800, 2: 1090, 3: 690, 4: 490, 5: 410, 9: 100}
	scores := sampledTable(23, p.NumSims, p.NumRounds)

	var results []map[uint32]Result
	for _, threads := range []int{1, 2, 7, 64} {
		s := presampled(t, p, purse, scores)
		s.SetThreads(threads)
		require.NoError(t, s.SimTournaments(context.Background()))
		results = append(results, s.Results())
	}
	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestSimTournamentsTotals(t *testing.T) {
	is := is.New(t)
	p := Params{NumSims: 300, NumRounds: 4, CutRound: 2, CutLine: 10}
	s := presampled(t, p, payout.Table{1: 100, 2: 50, 11: 7, 12: 1000},
		sampledTable(30, p.NumSims, p.NumRounds))
	s.SetThreads(4)
	is.NoErr(s.SimTournaments(context.Background()))

	var finishes, wins, top5s, cuts, earnings float64
	for _, r := range s.Results() {
		finishes += r.AvgFinish
		wins += r.Win
		top5s += r.Top5
		cuts += r.MadeCut
		earnings += r.AvgEarnings
	}
	is.Equal(finishes, float64(p.NumSims*30*31/2))
	is.Equal(wins, float64(p.NumSims))
	is.Equal(top5s, float64(p.NumSims*5))
	// cutLine+1 golfers are credited with the cut each time.
	is.Equal(cuts, float64(p.NumSims*11))
	// Rank 12 missed the cut and is never paid.
	is.Equal(earnings, float64(p.NumSims*157))
}

func newField(t *testing.T, p Params, n int) *Sim {
	t.Helper()
	s, err := New(p)
	require.NoError(t, err)
	for id := 1; id <= n; id++ {
		require.NoError(t, s.AddGolfer(uint32(id), float64(id%5)/2, 2.8))
	}
	return s
}

func TestRunInvariants(t *testing.T) {
	is := is.New(t)
	p := Params{NumSims: 2000, NumRounds: 4, CutRound: 2, CutLine: 12}
	s := newField(t, p, 40)
	is.NoErr(s.SetPurse(payout.Table{1: 1000, 2: 600, 3: 400}))
	is.NoErr(s.Run(context.Background()))

	var wins, finishes float64
	for _, r := range s.Results() {
		is.True(r.Win >= 0)
		is.True(r.Win <= r.Top5)
		is.True(r.Top5 <= r.Top10)
		is.True(r.Top10 <= r.Top20)
		is.True(r.Top20 <= r.MadeCut)
		is.True(r.MadeCut <= 1)
		is.True(r.AvgFinish >= 1 && r.AvgFinish <= 40)
		is.True(r.AvgEarnings >= 0 && r.AvgEarnings <= 1000)
		wins += r.Win
		finishes += r.AvgFinish
	}
	is.True(stats.FuzzyEqual(wins, 1))
	is.True(stats.FuzzyEqual(finishes, 40*41/2))
}

func TestBetterGolferWinsMore(t *testing.T) {
	is := is.New(t)
	s, err := New(Params{NumSims: 1000, NumRounds: 4})
	is.NoErr(err)
	is.NoErr(s.AddGolfer(1, 3, 1))
	is.NoErr(s.AddGolfer(2, 0, 1))
	is.NoErr(s.AddGolfer(3, -3, 1))
	is.NoErr(s.Run(context.Background()))
	res := s.Results()
	is.True(res[1].Win > 0.99)
	is.True(res[3].AvgFinish > 2.99)
}

func TestRunNormalizesOnce(t *testing.T) {
	is := is.New(t)
	s := newField(t, Params{NumSims: 500, NumRounds: 2, CutRound: 1, CutLine: 5}, 10)
	is.NoErr(s.Run(context.Background()))
	first := s.Results()

	err := s.Run(context.Background())
	is.True(errors.Is(err, ErrAlreadyRun))
	is.True(errors.Is(s.CalculateResults(context.Background()), ErrAlreadyRun))
	is.Equal(s.Results(), first)

	s.Reset()
	is.NoErr(s.Run(context.Background()))
	var wins float64
	for _, r := range s.Results() {
		wins += r.Win
	}
	is.True(stats.FuzzyEqual(wins, 1))
}

func TestPhasesOutOfOrder(t *testing.T) {
	is := is.New(t)
	s := newField(t, Params{NumSims: 10, NumRounds: 2}, 3)
	is.True(errors.Is(s.SimTournaments(context.Background()), ErrOutOfOrder))
	is.True(errors.Is(s.CalculateResults(context.Background()), ErrOutOfOrder))

	is.NoErr(s.SimRounds(context.Background()))
	is.True(errors.Is(s.SimRounds(context.Background()), ErrOutOfOrder))
	is.True(errors.Is(s.SetNumSims(5), ErrParamsLocked))
	is.True(errors.Is(s.AddGolfer(9, 0, 1), ErrParamsLocked))
	is.True(errors.Is(s.SetPurse(payout.Table{1: 5}), ErrParamsLocked))
	is.Equal(len(s.scores.scores), 3)
	is.Equal(len(s.scores.scores[1]), 20)

	is.NoErr(s.SimTournaments(context.Background()))
	is.True(s.scores == nil)
	is.True(errors.Is(s.Run(context.Background()), ErrOutOfOrder))
	is.NoErr(s.CalculateResults(context.Background()))
	// The field stays frozen after the run until Reset.
	is.True(errors.Is(s.SetNumSims(5), ErrParamsLocked))
	is.True(errors.Is(s.SetPurse(payout.Table{1: 5}), ErrParamsLocked))
	is.True(errors.Is(s.AddGolfer(9, 0, 1), ErrParamsLocked))
	s.Reset()
	is.NoErr(s.SetNumSims(5))
	is.NoErr(s.SetPurse(payout.Table{1: 5}))
	is.NoErr(s.AddGolfer(9, 0, 1))
	is.Equal(s.NumGolfers(), 4)
}

func TestZeroSimsOrRounds(t *testing.T) {
	is := is.New(t)
	for _, p := range []Params{{NumSims: 0, NumRounds: 4}, {NumSims: 100, NumRounds: 0}} {
		s := newField(t, p, 5)
		is.NoErr(s.Run(context.Background()))
		for _, r := range s.Results() {
			is.Equal(r.Stats, golfer.Stats{})
		}
	}
}

func TestEmptyField(t *testing.T) {
	is := is.New(t)
	s, err := New(Params{NumSims: 10, NumRounds: 4, CutRound: 2, CutLine: 5})
	is.NoErr(err)
	is.NoErr(s.Run(context.Background()))
	is.Equal(len(s.Results()), 0)
}

func TestCutLineBeyondField(t *testing.T) {
	is := is.New(t)
	s := newField(t, Params{NumSims: 200, NumRounds: 2, CutRound: 1, CutLine: 500}, 6)
	is.NoErr(s.Run(context.Background()))
	for _, r := range s.Results() {
		is.Equal(r.MadeCut, 1.0)
	}
}

func TestParamValidation(t *testing.T) {
	is := is.New(t)
	_, err := New(Params{NumSims: -1, NumRounds: 4})
	is.True(errors.Is(err, ErrNegativeParam))
	_, err = New(Params{NumSims: 1, NumRounds: 2, CutRound: 3})
	is.True(errors.Is(err, ErrCutRoundTooLate))

	s, err := New(Params{NumSims: 1, NumRounds: 4, CutRound: 2, CutLine: 50})
	is.NoErr(err)
	is.True(errors.Is(s.SetCutRound(5), ErrCutRoundTooLate))
	is.True(errors.Is(s.SetNumRounds(1), ErrCutRoundTooLate))
	is.True(errors.Is(s.SetCutLine(-1), ErrNegativeParam))
	is.True(errors.Is(s.SetNumSims(-10), ErrNegativeParam))
	// Failed setters leave the parameters alone.
	is.Equal(s.Params(), Params{NumSims: 1, NumRounds: 4, CutRound: 2, CutLine: 50})

	is.NoErr(s.SetNumSims(1000))
	is.NoErr(s.SetCutRound(0))
	is.NoErr(s.SetNumRounds(2))
	is.NoErr(s.SetCutLine(65))
	is.Equal(s.Params(), Params{NumSims: 1000, NumRounds: 2, CutRound: 0, CutLine: 65})

	is.True(errors.Is(s.AddGolfer(1, 0, 0), golfer.ErrInvalidStdDev))
	is.True(errors.Is(s.SetPurse(payout.Table{0: 10}), payout.ErrInvalidEntry))
}

func TestThreads(t *testing.T) {
	is := is.New(t)
	s, err := New(Params{})
	is.NoErr(err)
	is.True(s.Threads() >= 1)
	s.SetThreads(0)
	is.Equal(s.Threads(), 1)
	s.SetThreads(-4)
	is.Equal(s.Threads(), 1)
	s.SetThreads(3)
	is.Equal(s.Threads(), 3)
}

func TestChunkBounds(t *testing.T) {
	is := is.New(t)
	type tc struct {
		n, threads int
		bounds     [][2]int
	}
	cases := []tc{
		{10, 4, [][2]int{{0, 3}, {3, 6}, {6, 9}, {9, 10}}},
		{2, 4, [][2]int{{0, 1}, {1, 2}, {2, 2}, {2, 2}}},
		{8, 2, [][2]int{{0, 4}, {4, 8}}},
		{0, 3, [][2]int{{0, 0}, {0, 0}, {0, 0}}},
	}
	for _, c := range cases {
		for th, b := range c.bounds {
			start, end := chunkBounds(c.n, c.threads, th)
			is.Equal([2]int{start, end}, b)
		}
	}
}

func TestNotEnoughMemory(t *testing.T) {
	if memory.TotalMemory() == 0 {
		t.Skip("total memory unknown")
	}
	is := is.New(t)
	s := newField(t, Params{NumSims: 1000, NumRounds: 4}, 3)
	s.SetMemoryFraction(1e-12)
	is.True(errors.Is(s.Run(context.Background()), ErrNotEnoughMemory))

	s.SetMemoryFraction(0)
	is.NoErr(s.Run(context.Background()))
}

func TestAccumulateUnknownGolferPanics(t *testing.T) {
	assert.Panics(t, func() {
		accumulate([]uint32{1, 2}, map[uint32]*golfer.Stats{1: {}}, 2, payout.Table{})
	})
}
