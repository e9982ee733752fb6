package montecarlo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/golfsim/sampler"
	"github.com/domino14/golfsim/tournament"
)

const bytesPerScore = 8

// scoreTable holds every golfer's sampled rounds for every simulated
// tournament. Tournament i uses rounds [i*rounds, (i+1)*rounds).
type scoreTable struct {
	mu     sync.Mutex
	rounds int
	scores map[uint32][]float64
}

// newScoreTable wraps pre-sampled scores. Every slice must hold a whole
// number of tournaments of the given length.
func newScoreTable(rounds int, scores map[uint32][]float64) *scoreTable {
	if scores == nil {
		scores = make(map[uint32][]float64)
	}
	return &scoreTable{rounds: rounds, scores: scores}
}

func (t *scoreTable) insert(id uint32, scores []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scores[id] = scores
}

// Tournament fills dst with the rounds each golfer in ids played in
// simulation i. The round slices alias the table.
func (t *scoreTable) Tournament(i int, ids []uint32, dst []tournament.Entry) []tournament.Entry {
	dst = dst[:0]
	start, end := i*t.rounds, (i+1)*t.rounds
	for _, id := range ids {
		scores, ok := t.scores[id]
		if !ok {
			panic(fmt.Sprintf("golfer %d missing from score table", id))
		}
		dst = append(dst, tournament.Entry{ID: id, Rounds: scores[start:end]})
	}
	return dst
}

func (s *Sim) checkMemory(ctx context.Context) error {
	if s.memFrac <= 0 {
		return nil
	}
	totalMem := memory.TotalMemory()
	if totalMem == 0 {
		// unknown
		return nil
	}
	need := float64(s.golfers.Len()) * float64(s.params.NumSims) *
		float64(s.params.NumRounds) * bytesPerScore
	allowed := s.memFrac * float64(totalMem)
	zerolog.Ctx(ctx).Debug().Float64("estimated-score-table-bytes", need).
		Uint64("total-system-memory-bytes", totalMem).Msg("score-table-size")
	if need > allowed {
		return fmt.Errorf("%w: need %.0f bytes, allowed %.0f", ErrNotEnoughMemory, need, allowed)
	}
	return nil
}

// SimRounds samples every golfer's rounds for all simulations. Golfers are
// split across threads by ID modulo the thread count, and each thread
// draws from its own random source.
func (s *Sim) SimRounds(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	if s.phase == phaseDone {
		return ErrAlreadyRun
	}
	if s.phase != phaseReady {
		return ErrOutOfOrder
	}
	if err := s.checkMemory(ctx); err != nil {
		return err
	}
	tstart := time.Now()
	threads := s.threads
	size := s.params.NumSims * s.params.NumRounds
	golfers := s.golfers.Golfers()
	table := newScoreTable(s.params.NumRounds, make(map[uint32][]float64, len(golfers)))

	g := errgroup.Group{}
	for t := range threads {
		g.Go(func() error {
			smp := sampler.New()
			for _, gf := range golfers {
				if int(gf.ID%uint32(threads)) != t {
					continue
				}
				draws, err := smp.Sample(gf.Index, gf.StdDev, size)
				if err != nil {
					return fmt.Errorf("sampling golfer %d: %w", gf.ID, err)
				}
				table.insert(gf.ID, draws)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.scores = table
	s.phase = phaseSampled
	logger.Info().Int("player-rounds", size*len(golfers)).
		Dur("elapsed", time.Since(tstart)).Msg("sim-rounds-done")
	return nil
}
