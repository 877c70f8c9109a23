// Package store records runs in a SQLite database.
//
// Every run gets a row with its seed and constants, every frame a row with
// the timings printed on the per-frame log line, and every verification
// violation a row of its own. A recorded seed replays the run exactly.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"github.com/sbl8/blackhole/core"
	"github.com/sbl8/blackhole/sim"
)

// ErrNoRun is returned when frames are recorded before BeginRun.
var ErrNoRun = errors.New("store: no run started")

const schema = `
CREATE TABLE IF NOT EXISTS runs(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	seed INTEGER NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	satellites INTEGER NOT NULL,
	sub_steps INTEGER NOT NULL,
	delta_time REAL NOT NULL,
	backend TEXT NOT NULL,
	workers INTEGER NOT NULL,
	tolerance REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS frames(
	run_id INTEGER NOT NULL REFERENCES runs(id),
	frame INTEGER NOT NULL,
	total_ms REAL NOT NULL,
	moving_ms REAL NOT NULL,
	coloring_ms REAL NOT NULL,
	verified INTEGER NOT NULL,
	ok INTEGER NOT NULL,
	PRIMARY KEY(run_id, frame)
);
CREATE TABLE IF NOT EXISTS violations(
	run_id INTEGER NOT NULL REFERENCES runs(id),
	frame INTEGER NOT NULL,
	kind TEXT NOT NULL,
	idx INTEGER NOT NULL,
	x INTEGER NOT NULL,
	y INTEGER NOT NULL,
	diff REAL NOT NULL,
	message TEXT NOT NULL
);`

// RunInfo describes a run at its start.
type RunInfo struct {
	Seed      uint64
	Params    core.Params
	Backend   string
	Workers   int
	Tolerance float32
}

// FrameRecord is one row of the frames table.
type FrameRecord struct {
	Frame    uint64
	Total    time.Duration
	Moving   time.Duration
	Coloring time.Duration
	Verified bool
	OK       bool
}

// ViolationRecord is one row of the violations table.
type ViolationRecord struct {
	Frame   uint64
	Kind    string
	Index   int
	X, Y    int
	Diff    float64
	Message string
}

// Store is a run recorder. It implements sim.Observer.
type Store struct {
	db    *sql.DB
	runID int64
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// one connection keeps ":memory:" databases shared and writes serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, multierr.Append(fmt.Errorf("store: schema: %w", err), db.Close())
	}
	return &Store{db: db}, nil
}

// BeginRun inserts a run row and makes it the target of later frames.
func (s *Store) BeginRun(info RunInfo) (int64, error) {
	p := info.Params
	res, err := s.db.Exec(`INSERT INTO runs(started_at, seed, width, height, satellites, sub_steps, delta_time, backend, workers, tolerance)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		time.Now().UTC().Format(time.RFC3339Nano), int64(info.Seed),
		p.Width, p.Height, p.SatelliteCount, p.SubSteps, p.DeltaTime,
		info.Backend, info.Workers, float64(info.Tolerance))
	if err != nil {
		return 0, fmt.Errorf("store: begin run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: begin run: %w", err)
	}
	s.runID = id
	return id, nil
}

// RunID returns the current run, or 0.
func (s *Store) RunID() int64 {
	return s.runID
}

// ObserveFrame records res and its violations in one transaction.
func (s *Store) ObserveFrame(res *sim.FrameResult, _ []core.Satellite, _ *core.Frame) (err error) {
	if s.runID == 0 {
		return ErrNoRun
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: frame %d: %w", res.Frame, err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	_, err = tx.Exec(`INSERT INTO frames(run_id, frame, total_ms, moving_ms, coloring_ms, verified, ok) VALUES(?,?,?,?,?,?,?)`,
		s.runID, int64(res.Frame), ms(res.Total), ms(res.Moving), ms(res.Coloring), res.Verified, res.OK())
	if err != nil {
		return fmt.Errorf("store: frame %d: %w", res.Frame, err)
	}

	for _, v := range res.Report.Violations {
		_, err = tx.Exec(`INSERT INTO violations(run_id, frame, kind, idx, x, y, diff, message) VALUES(?,?,?,?,?,?,?,?)`,
			s.runID, int64(res.Frame), v.Kind.String(), v.Index, v.X, v.Y, float64(v.Diff), v.String())
		if err != nil {
			return fmt.Errorf("store: frame %d violation: %w", res.Frame, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: frame %d: %w", res.Frame, err)
	}
	return nil
}

// Frames returns the recorded frames of a run in frame order.
func (s *Store) Frames(runID int64) ([]FrameRecord, error) {
	rows, err := s.db.Query(`SELECT frame, total_ms, moving_ms, coloring_ms, verified, ok FROM frames WHERE run_id = ? ORDER BY frame`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var (
			r                       FrameRecord
			frame                   int64
			total, moving, coloring float64
		)
		if err := rows.Scan(&frame, &total, &moving, &coloring, &r.Verified, &r.OK); err != nil {
			return nil, err
		}
		r.Frame = uint64(frame)
		r.Total, r.Moving, r.Coloring = fromMs(total), fromMs(moving), fromMs(coloring)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Violations returns the recorded violations of a run.
func (s *Store) Violations(runID int64) ([]ViolationRecord, error) {
	rows, err := s.db.Query(`SELECT frame, kind, idx, x, y, diff, message FROM violations WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ViolationRecord
	for rows.Next() {
		var (
			r     ViolationRecord
			frame int64
		)
		if err := rows.Scan(&frame, &r.Kind, &r.Index, &r.X, &r.Y, &r.Diff, &r.Message); err != nil {
			return nil, err
		}
		r.Frame = uint64(frame)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Seed returns the seed a run was started with.
func (s *Store) Seed(runID int64) (uint64, error) {
	var seed int64
	err := s.db.QueryRow(`SELECT seed FROM runs WHERE id = ?`, runID).Scan(&seed)
	return uint64(seed), err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func fromMs(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}
