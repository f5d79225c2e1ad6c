// Package store persists replay logs in SQLite so a training run can be
// replayed by a later process.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/decision-harness/internal/logging"
	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	parent_id     TEXT,
	policy_kind   TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS replay_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT NOT NULL,
	episode_id      INTEGER NOT NULL,
	policy_snapshot BLOB,
	episode_trace   TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	UNIQUE (run_id, episode_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS active_run (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	run_id        TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region types

// RunRecord describes one training run.
type RunRecord struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	ParentID   string    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	PolicyKind string    `json:"policy_kind" yaml:"policy_kind"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Episodes   int       `json:"episodes" yaml:"episodes"`
}

// #endregion types

// #region store-struct
// Store manages replay logs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-migrated database.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region begin-run
// BeginRun records a new run and makes it the active one. parentID may be
// empty; otherwise it must name an existing run.
func (s *Store) BeginRun(policyKind, parentID string) (RunRecord, error) {
	rec := RunRecord{
		RunID:      uuid.New().String(),
		ParentID:   parentID,
		PolicyKind: policyKind,
		CreatedAt:  time.Now().UTC(),
	}

	var parentPtr interface{}
	if parentID != "" {
		parentPtr = parentID
	}

	tx, err := s.db.Begin()
	if err != nil {
		return RunRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, parent_id, policy_kind, created_at) VALUES (?, ?, ?, ?)`,
		rec.RunID, parentPtr, policyKind, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_run (id, run_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET run_id = excluded.run_id`,
		rec.RunID,
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RunRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion begin-run

// #region append
// Append stores entry under runID. Episode ids must strictly increase
// within a run.
func (s *Store) Append(runID string, entry state.LogEntry) error {
	trace, err := json.Marshal(entry.EpisodeTrace)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	var snap interface{}
	if len(entry.PolicySnapshot) > 0 {
		snap = []byte(entry.PolicySnapshot)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("check run: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("append run %s: %w", runID, ErrRunNotFound)
	}

	var last sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(episode_id) FROM replay_log WHERE run_id = ?`, runID).Scan(&last); err != nil {
		return fmt.Errorf("last episode: %w", err)
	}
	if last.Valid && int64(entry.EpisodeID) <= last.Int64 {
		return fmt.Errorf("append run %s: episode %d after %d", runID, entry.EpisodeID, last.Int64)
	}

	_, err = tx.Exec(
		`INSERT INTO replay_log (run_id, episode_id, policy_snapshot, episode_trace, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, entry.EpisodeID, snap, string(trace), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return tx.Commit()
}

// runSink binds a Store to one run.
type runSink struct {
	store *Store
	runID string
}

func (r runSink) Append(entry state.LogEntry) error {
	return r.store.Append(r.runID, entry)
}

// Sink returns a logging.Sink that appends to runID.
func (s *Store) Sink(runID string) logging.Sink {
	return runSink{store: s, runID: runID}
}

// #endregion append

// #region entries
// Entries returns the log of runID in episode order.
func (s *Store) Entries(runID string) ([]state.LogEntry, error) {
	if _, err := s.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT episode_id, policy_snapshot, episode_trace
		 FROM replay_log WHERE run_id = ? ORDER BY episode_id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []state.LogEntry{}
	for rows.Next() {
		var e state.LogEntry
		var snap []byte
		var trace string
		if err := rows.Scan(&e.EpisodeID, &snap, &trace); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if len(snap) > 0 {
			e.PolicySnapshot = state.PolicySnapshot(snap).Clone()
		}
		if err := json.Unmarshal([]byte(trace), &e.EpisodeTrace); err != nil {
			return nil, fmt.Errorf("unmarshal trace of episode %d: %w", e.EpisodeID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion entries

// #region runs
// GetRun retrieves a run by id.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	var rec RunRecord
	var parentID sql.NullString
	var createdStr string

	err := s.db.QueryRow(
		`SELECT r.run_id, r.parent_id, r.policy_kind, r.created_at,
		        (SELECT COUNT(*) FROM replay_log l WHERE l.run_id = r.run_id)
		 FROM runs r WHERE r.run_id = ?`, runID,
	).Scan(&rec.RunID, &parentID, &rec.PolicyKind, &createdStr, &rec.Episodes)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// Active reads the most recently begun (or selected) run.
func (s *Store) Active() (RunRecord, error) {
	var runID string
	err := s.db.QueryRow(`SELECT run_id FROM active_run WHERE id = 1`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get active: %w", ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetRun(runID)
}

// SetActive points the active run at an existing run.
func (s *Store) SetActive(runID string) error {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check run: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("set active %s: %w", runID, ErrRunNotFound)
	}

	_, err = s.db.Exec(
		`INSERT INTO active_run (id, run_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET run_id = excluded.run_id`, runID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT r.run_id, r.parent_id, r.policy_kind, r.created_at,
		        (SELECT COUNT(*) FROM replay_log l WHERE l.run_id = r.run_id)
		 FROM runs r ORDER BY r.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var parentID sql.NullString
		var createdStr string
		if err := rows.Scan(&rec.RunID, &parentID, &rec.PolicyKind, &createdStr, &rec.Episodes); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if parentID.Valid {
			rec.ParentID = parentID.String
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion runs
