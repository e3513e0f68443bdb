package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gsim-cloning/evacsim/sim"
)

// RunInfo describes a run for the runs table.
type RunInfo struct {
	Seed       int64
	Population int
	Clones     int
	Schedule   string
	Root       int
}

// SQLiteIndex records per-tick divergence samples of one run into a SQLite
// database. A database can hold many runs, keyed by a random run id.
type SQLiteIndex struct {
	db     *sql.DB
	runID  string
	insert *sql.Stmt
}

// OpenSQLite opens (or creates) the database at path and registers a new run.
func OpenSQLite(path string, info RunInfo) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, runID: uuid.NewString()}
	if _, err := db.Exec(`INSERT INTO runs(run_id,seed,population,clones,schedule,root,started_at) VALUES(?,?,?,?,?,?,?)`,
		s.runID, info.Seed, info.Population, info.Clones, info.Schedule, info.Root, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	s.insert, err = db.Prepare(`INSERT OR REPLACE INTO divergence(run_id,tick,clone,parent,owned,copied_active,copied_passive,pruned) VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			population INTEGER NOT NULL,
			clones INTEGER NOT NULL,
			schedule TEXT NOT NULL,
			root INTEGER NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS clones (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			clone INTEGER NOT NULL,
			parent INTEGER NOT NULL,
			weight INTEGER NOT NULL,
			mst_parent INTEGER NOT NULL,
			gate_ticks TEXT NOT NULL,
			PRIMARY KEY (run_id, clone)
		);`,
		`CREATE TABLE IF NOT EXISTS divergence (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			tick INTEGER NOT NULL,
			clone INTEGER NOT NULL,
			parent INTEGER NOT NULL,
			owned INTEGER NOT NULL,
			copied_active INTEGER NOT NULL,
			copied_passive INTEGER NOT NULL,
			pruned INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick, clone)
		);`,
		`CREATE INDEX IF NOT EXISTS divergence_clone ON divergence(run_id, clone, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RunID returns the id this run's rows are stored under.
func (s *SQLiteIndex) RunID() string { return s.runID }

// RecordClones stores each clone's gate schedule, the parent it is processed
// against under sched (the same parent the divergence rows carry) with the
// schedule distance to it, and its parent in the minimum spanning tree.
func (s *SQLiteIndex) RecordClones(sched sim.Schedule, h *sim.Hierarchy, params []sim.GateSchedule) error {
	parents := make([]sim.CloneID, len(params))
	for i := range parents {
		parents[i] = sim.NoParent
	}
	for _, e := range sched.Edges {
		parents[e.Child] = e.Parent
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO clones(run_id,clone,parent,weight,mst_parent,gate_ticks) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range params {
		ticks, err := json.Marshal([]int(p))
		if err != nil {
			return err
		}
		weight := 0
		if parent := parents[i]; parent != sim.NoParent {
			weight = p.Diff(params[parent])
		}
		if _, err := stmt.Exec(s.runID, i, int(parents[i]), weight, int(h.Parent[i]), string(ticks)); err != nil {
			return fmt.Errorf("clone %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// RecordDivergence implements sim.DivergenceSink. One transaction per tick.
func (s *SQLiteIndex) RecordDivergence(tick int, samples []sim.DivergenceSample) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt := tx.Stmt(s.insert)
	for _, d := range samples {
		if _, err := stmt.Exec(s.runID, tick, int(d.Clone), int(d.Parent), d.Owned, d.CopiedActive, d.CopiedPassive, d.Pruned); err != nil {
			return fmt.Errorf("clone %d: %w", d.Clone, err)
		}
	}
	return tx.Commit()
}

// Close releases the prepared statement and the database.
func (s *SQLiteIndex) Close() error {
	_ = s.insert.Close()
	return s.db.Close()
}
