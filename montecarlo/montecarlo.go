// Package montecarlo estimates tournament outcomes by simulation, i.e.
// "simming" the tournament many times over.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/domino14/golfsim/golfer"
	"github.com/domino14/golfsim/payout"
)

/*
	How to simulate:

	Sample every golfer's rounds for every simulated tournament up front.
	Threads split the field by golfer ID.

	Split the simulations into one contiguous chunk per thread. For each
	simulation in a chunk:
		- cut the score table down to that tournament's rounds
		- rank the field, applying the cut
		- credit each golfer's private stats with their finish

	Add up every thread's stats, then divide by the number of simulations.
*/

var (
	ErrNegativeParam   = errors.New("simulation parameters must not be negative")
	ErrCutRoundTooLate = errors.New("cut round is past the final round")
	ErrAlreadyRun      = errors.New("simulation already run; reset before running again")
	ErrOutOfOrder      = errors.New("simulation phase run out of order")
	ErrParamsLocked    = errors.New("cannot change the field or parameters until the simulation is reset")
	ErrNotEnoughMemory = errors.New("not enough memory for score table")
)

// DefaultMemoryFraction is the share of system memory the score table may use.
const DefaultMemoryFraction = 0.5

// Params configure a simulation run.
type Params struct {
	NumSims   int
	NumRounds int
	// CutRound is the number of rounds played before the cut. 0 means no cut.
	CutRound int
	// CutLine is how many golfers make the cut.
	CutLine int
}

func (p Params) Validate() error {
	if p.NumSims < 0 || p.NumRounds < 0 || p.CutRound < 0 || p.CutLine < 0 {
		return fmt.Errorf("%w: %+v", ErrNegativeParam, p)
	}
	if p.CutRound > p.NumRounds {
		return fmt.Errorf("%w: cut after round %d of %d", ErrCutRoundTooLate, p.CutRound, p.NumRounds)
	}
	return nil
}

type phase int

const (
	phaseReady phase = iota
	phaseSampled
	phaseAccumulated
	phaseDone
)

// Sim is a tournament simulator. Add golfers and set the purse, then Run
// it and read the Results. The field and parameters cannot change again
// until Reset. A Sim is not safe for concurrent use; it
// manages its own worker threads.
type Sim struct {
	params  Params
	golfers *golfer.Registry
	purse   payout.Table
	threads int
	memFrac float64

	scores *scoreTable
	phase  phase
}

// New creates a simulator with an empty field.
func New(p Params) (*Sim, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Sim{
		params:  p,
		golfers: golfer.NewRegistry(),
		purse:   payout.Table{},
		threads: max(1, runtime.NumCPU()),
		memFrac: DefaultMemoryFraction,
	}, nil
}

// locked reports whether the field and parameters are frozen. They stay
// frozen from the first phase until Reset.
func (s *Sim) locked() bool {
	return s.phase != phaseReady
}

func (s *Sim) setParams(p Params) error {
	if s.locked() {
		return ErrParamsLocked
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

func (s *Sim) SetNumSims(n int) error {
	p := s.params
	p.NumSims = n
	return s.setParams(p)
}

func (s *Sim) SetNumRounds(n int) error {
	p := s.params
	p.NumRounds = n
	return s.setParams(p)
}

func (s *Sim) SetCutRound(n int) error {
	p := s.params
	p.CutRound = n
	return s.setParams(p)
}

func (s *Sim) SetCutLine(n int) error {
	p := s.params
	p.CutLine = n
	return s.setParams(p)
}

func (s *Sim) Params() Params {
	return s.params
}

// SetThreads sets the number of worker threads. Anything below 1 means a
// single thread.
func (s *Sim) SetThreads(threads int) {
	s.threads = max(1, threads)
}

func (s *Sim) Threads() int {
	return s.threads
}

// SetMemoryFraction caps the score table at this fraction of system
// memory. 0 turns the check off.
func (s *Sim) SetMemoryFraction(f float64) {
	s.memFrac = f
}

// SetPurse replaces the payout table.
func (s *Sim) SetPurse(t payout.Table) error {
	if s.locked() {
		return ErrParamsLocked
	}
	if err := t.Validate(); err != nil {
		return err
	}
	s.purse = t.Clone()
	return nil
}

// AddGolfer adds a golfer to the field. Adding an ID twice replaces the
// first golfer; which parameters survive is not part of the contract.
func (s *Sim) AddGolfer(id uint32, index, stdDev float64) error {
	if s.locked() {
		return ErrParamsLocked
	}
	return s.golfers.Add(id, index, stdDev)
}

func (s *Sim) NumGolfers() int {
	return s.golfers.Len()
}

// Reset zeroes all statistics so the simulation can be run again.
func (s *Sim) Reset() {
	s.golfers.ResetStats()
	s.scores = nil
	s.phase = phaseReady
}

// Run samples rounds, simulates every tournament and normalizes the
// results. It is a blocking function. Running a second time without a
// Reset returns ErrAlreadyRun.
func (s *Sim) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	if s.phase == phaseDone {
		return ErrAlreadyRun
	}
	if s.phase != phaseReady {
		return ErrOutOfOrder
	}
	logger.Info().Int("golfers", s.golfers.Len()).Int("sims", s.params.NumSims).
		Int("rounds", s.params.NumRounds).Int("cut-round", s.params.CutRound).
		Int("cut-line", s.params.CutLine).Int("threads", s.threads).Msg("sim-starting")

	tstart := time.Now()
	if err := s.SimRounds(ctx); err != nil {
		return err
	}
	if err := s.SimTournaments(ctx); err != nil {
		return err
	}
	if err := s.CalculateResults(ctx); err != nil {
		return err
	}
	logger.Info().Dur("elapsed", time.Since(tstart)).Msg("sim-ended")
	return nil
}

// CalculateResults turns accumulated sums into averages and probabilities.
func (s *Sim) CalculateResults(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	if s.phase == phaseDone {
		return ErrAlreadyRun
	}
	if s.phase != phaseAccumulated {
		return ErrOutOfOrder
	}
	s.golfers.Normalize(s.params.NumSims)
	s.phase = phaseDone
	logger.Debug().Int("sims", s.params.NumSims).Msg("results-normalized")
	return nil
}

// Result is a golfer's simulated outcome.
type Result struct {
	ID     uint32
	Index  float64
	StdDev float64
	golfer.Stats
}

// Results returns every golfer's statistics by ID. Before the run has
// completed, the statistics are raw sums rather than averages.
func (s *Sim) Results() map[uint32]Result {
	res := make(map[uint32]Result, s.golfers.Len())
	for _, g := range s.golfers.Golfers() {
		res[g.ID] = Result{ID: g.ID, Index: g.Index, StdDev: g.StdDev, Stats: g.Stats}
	}
	return res
}
