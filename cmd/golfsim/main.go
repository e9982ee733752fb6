package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/domino14/golfsim/config"
	"github.com/domino14/golfsim/field"
	"github.com/domino14/golfsim/montecarlo"
	mcstats "github.com/domino14/golfsim/montecarlo/stats"
	"github.com/domino14/golfsim/payout"
	"github.com/domino14/golfsim/store"
)

const (
	histogramBins  = 15
	histogramWidth = 60
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	ctx := log.Logger.WithContext(context.Background())

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("golfsim")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := zerolog.Ctx(ctx)

	sortKey, err := mcstats.ParseSortKey(cfg.SortBy)
	if err != nil {
		return err
	}

	tstart := time.Now()
	f, err := field.Load(cfg.FieldFile)
	if err != nil {
		return fmt.Errorf("loading field: %w", err)
	}
	competitors := f.Competitors(time.Now(), cfg.Skill)
	estimated := lo.CountBy(competitors, func(c field.Competitor) bool { return c.Estimated })
	logger.Info().Int("golfers", len(competitors)).Int("estimated-from-rounds", estimated).
		Dur("elapsed", time.Since(tstart)).Msg("loaded-field")

	purse := payout.Table{}
	if cfg.PurseFile != "" {
		purse, err = payout.Load(cfg.PurseFile, cfg.PurseTotal)
		if err != nil {
			return fmt.Errorf("loading purse: %w", err)
		}
	}

	sim, err := montecarlo.New(cfg.Sim)
	if err != nil {
		return err
	}
	if cfg.Threads > 0 {
		sim.SetThreads(cfg.Threads)
	}
	sim.SetMemoryFraction(cfg.MemoryFraction)
	for _, c := range competitors {
		if err := sim.AddGolfer(c.ID, c.Index, c.StdDev); err != nil {
			return err
		}
	}
	if err := sim.SetPurse(purse); err != nil {
		return err
	}
	fingerprint := store.Fingerprint(cfg.Sim, sim.Results(), purse)

	if err := sim.Run(ctx); err != nil {
		return err
	}

	ss := mcstats.NewSimStats(sim, f.Names())
	ss.Sort(sortKey)
	fmt.Print(ss.Table(cfg.Top))
	if cfg.Histogram {
		if err := ss.Histogram(os.Stdout, sortKey, histogramBins, histogramWidth); err != nil {
			return err
		}
	}

	save := cfg.Save
	if !save {
		save, err = confirm("Save results? y/n: ")
		if err != nil {
			return err
		}
	}
	if !save {
		return nil
	}

	name := cfg.Tournament
	if name == "" {
		name = f.Tournament
	}
	results := lo.Map(ss.Rows(), func(r mcstats.Row, _ int) montecarlo.Result { return r.Result })
	return saveResults(ctx, cfg.DBPath, store.Tournament{
		Name:        name,
		SimDate:     time.Now(),
		Params:      cfg.Sim,
		Purse:       purse.Total(),
		Fingerprint: fingerprint,
	}, results)
}

func confirm(prompt string) (bool, error) {
	rl, err := readline.New(prompt)
	if err != nil {
		return false, err
	}
	defer rl.Close()
	line, err := rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

func saveResults(ctx context.Context, dbPath string, t store.Tournament, results []montecarlo.Result) error {
	logger := zerolog.Ctx(ctx)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return err
	}
	db, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if prev, err := db.LatestByFingerprint(ctx, t.Fingerprint); err == nil {
		logger.Info().Int64("sim-tournament-id", prev).Msg("identical-inputs-saved-before")
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err = db.SavePredictions(ctx, t, results)
	return err
}
