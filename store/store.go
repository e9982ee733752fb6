// Package store saves simulated tournament predictions to SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/domino14/golfsim/montecarlo"
)

const schema = `
CREATE TABLE IF NOT EXISTS sim_tournaments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	sim_date INTEGER NOT NULL,
	num_sims INTEGER NOT NULL,
	num_rounds INTEGER NOT NULL,
	cut_round INTEGER NOT NULL,
	cut_line INTEGER NOT NULL,
	purse REAL NOT NULL,
	fingerprint TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS sim_tournaments_fingerprint ON sim_tournaments(fingerprint);
CREATE TABLE IF NOT EXISTS tournament_player_predictions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sim_tournament_id INTEGER NOT NULL REFERENCES sim_tournaments(id),
	dg_id INTEGER NOT NULL,
	x_earnings REAL NOT NULL,
	sim_win REAL NOT NULL,
	sim_top5 REAL NOT NULL,
	sim_top10 REAL NOT NULL,
	sim_top20 REAL NOT NULL,
	sim_made_cut REAL NOT NULL,
	x_finish REAL NOT NULL,
	sg_index REAL NOT NULL,
	sg_sd REAL NOT NULL,
	sim_date INTEGER NOT NULL
);
`

const writeAttempts = 5

var ErrNotFound = errors.New("simulated tournament not found")

// Tournament describes one saved simulation run.
type Tournament struct {
	ID          int64
	Name        string
	SimDate     time.Time
	Params      montecarlo.Params
	Purse       float64
	Fingerprint uint64
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DateToInt encodes a date as YYYYMMDD.
func DateToInt(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// IntToDate decodes a YYYYMMDD date.
func IntToDate(i int) time.Time {
	return time.Date(i/10000, time.Month(i/100%100), i%100, 0, 0, 0, 0, time.UTC)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// SavePredictions stores a tournament and its golfers' results in one
// transaction, returning the new tournament's ID. Busy databases are
// retried.
func (s *Store) SavePredictions(ctx context.Context, t Tournament, results []montecarlo.Result) (int64, error) {
	logger := zerolog.Ctx(ctx)
	var id int64
	err := retry.Do(
		func() error {
			var err error
			id, err = s.savePredictions(ctx, t, results)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(writeAttempts),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Err(err).Uint("n", n).Msg("database-busy-try-again")
		}),
	)
	if err != nil {
		return 0, err
	}
	logger.Info().Int64("sim-tournament-id", id).Int("golfers", len(results)).Msg("saved-predictions")
	return id, nil
}

func (s *Store) savePredictions(ctx context.Context, t Tournament, results []montecarlo.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	simDate := DateToInt(t.SimDate)
	res, err := tx.ExecContext(ctx, `INSERT INTO sim_tournaments
		(name, sim_date, num_sims, num_rounds, cut_round, cut_line, purse, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, simDate, t.Params.NumSims, t.Params.NumRounds, t.Params.CutRound,
		t.Params.CutLine, t.Purse, fingerprintString(t.Fingerprint))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tournament_player_predictions
		(sim_tournament_id, dg_id, x_earnings, sim_win, sim_top5, sim_top10, sim_top20,
		 sim_made_cut, x_finish, sg_index, sg_sd, sim_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, r := range results {
		_, err := stmt.ExecContext(ctx, id, r.ID, r.AvgEarnings, r.Win, r.Top5, r.Top10,
			r.Top20, r.MadeCut, r.AvgFinish, r.Index, r.StdDev, simDate)
		if err != nil {
			return 0, fmt.Errorf("saving golfer %d: %w", r.ID, err)
		}
	}
	return id, tx.Commit()
}

// Tournament loads a saved tournament.
func (s *Store) Tournament(ctx context.Context, id int64) (Tournament, error) {
	var t Tournament
	var simDate int
	var fp string
	err := s.db.QueryRowContext(ctx, `SELECT id, name, sim_date, num_sims, num_rounds,
		cut_round, cut_line, purse, fingerprint FROM sim_tournaments WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &simDate, &t.Params.NumSims, &t.Params.NumRounds,
			&t.Params.CutRound, &t.Params.CutLine, &t.Purse, &fp)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.SimDate = IntToDate(simDate)
	if _, err := fmt.Sscanf(fp, "%x", &t.Fingerprint); err != nil {
		return t, fmt.Errorf("bad fingerprint %q: %w", fp, err)
	}
	return t, nil
}

// LatestByFingerprint finds the most recent run with identical inputs.
func (s *Store) LatestByFingerprint(ctx context.Context, fingerprint uint64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sim_tournaments WHERE fingerprint = ?
		ORDER BY id DESC LIMIT 1`, fingerprintString(fingerprint)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// Predictions loads the saved results for a tournament, best expected
// earnings first.
func (s *Store) Predictions(ctx context.Context, tournamentID int64) ([]montecarlo.Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dg_id, x_earnings, sim_win, sim_top5, sim_top10,
		sim_top20, sim_made_cut, x_finish, sg_index, sg_sd FROM tournament_player_predictions
		WHERE sim_tournament_id = ? ORDER BY x_earnings DESC, dg_id`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []montecarlo.Result
	for rows.Next() {
		var r montecarlo.Result
		if err := rows.Scan(&r.ID, &r.AvgEarnings, &r.Win, &r.Top5, &r.Top10, &r.Top20,
			&r.MadeCut, &r.AvgFinish, &r.Index, &r.StdDev); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
