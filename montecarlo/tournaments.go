package montecarlo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/golfsim/golfer"
	"github.com/domino14/golfsim/payout"
	"github.com/domino14/golfsim/tournament"
)

// runConfig is the read-only state each tournament thread works from.
type runConfig struct {
	cut     tournament.CutRule
	cutLine int
	purse   payout.Table
	ids     []uint32
	table   *scoreTable
}

func (s *Sim) runConfig() runConfig {
	ids := s.golfers.IDs()
	cut := tournament.CutRule{Round: s.params.CutRound, Line: s.params.CutLine}
	// Without a cut everyone is credited as having made it.
	cutLine := len(ids)
	if cut.Enabled() {
		cutLine = min(s.params.CutLine, len(ids))
	}
	return runConfig{
		cut:     cut,
		cutLine: cutLine,
		purse:   s.purse,
		ids:     ids,
		table:   s.scores,
	}
}

// accumulate credits every golfer in a finishing order with their result.
func accumulate(order []uint32, st map[uint32]*golfer.Stats, cutLine int, purse payout.Table) {
	for pos, id := range order {
		gs, ok := st[id]
		if !ok {
			panic(fmt.Sprintf("golfer %d finished but is not in the field", id))
		}
		finish := pos + 1
		gs.Add(finish, cutLine, purse.Amount(finish))
	}
}

// simChunk simulates tournaments [start, end) into st.
func simChunk(cfg runConfig, start, end int, st map[uint32]*golfer.Stats) {
	res := tournament.NewResolver(cfg.cut)
	field := make([]tournament.Entry, 0, len(cfg.ids))
	for i := start; i < end; i++ {
		field = cfg.table.Tournament(i, cfg.ids, field)
		accumulate(res.Resolve(field), st, cfg.cutLine, cfg.purse)
	}
}

// chunkBounds splits n simulations into one contiguous range per thread.
// Trailing threads may get an empty range.
func chunkBounds(n, threads, t int) (int, int) {
	size := (n + threads - 1) / threads
	start := min(t*size, n)
	return start, min(start+size, n)
}

// SimTournaments resolves every simulated tournament and accumulates the
// golfers' statistics. Each thread takes a contiguous range of
// simulations and accumulates into its own copy of the stats; the copies
// are summed into the field once all threads finish. The sampled score
// table is released afterwards.
func (s *Sim) SimTournaments(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	if s.phase == phaseDone {
		return ErrAlreadyRun
	}
	if s.phase != phaseSampled {
		return ErrOutOfOrder
	}
	tstart := time.Now()
	numSims := s.params.NumSims
	if s.params.NumRounds == 0 {
		numSims = 0
	}
	cfg := s.runConfig()
	threads := s.threads
	// One slot per thread; each thread writes only its own.
	perThread := make([]map[uint32]*golfer.Stats, threads)

	g := errgroup.Group{}
	for t := range threads {
		st := s.golfers.StatsCopy()
		start, end := chunkBounds(numSims, threads, t)
		g.Go(func() error {
			logger.Debug().Int("thread", t).Int("start", start).Int("end", end).Msg("sim-chunk")
			simChunk(cfg, start, end, st)
			perThread[t] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.golfers.Merge(perThread...)
	s.scores = nil
	s.phase = phaseAccumulated
	logger.Info().Int("tournaments", numSims).Dur("elapsed", time.Since(tstart)).
		Msg("sim-tournaments-done")
	return nil
}
