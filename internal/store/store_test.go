package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/decision-harness/internal/env"
	"github.com/danielpatrickdp/decision-harness/internal/exploration"
	"github.com/danielpatrickdp/decision-harness/internal/learning"
	"github.com/danielpatrickdp/decision-harness/internal/logging"
	"github.com/danielpatrickdp/decision-harness/internal/policy"
	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/update"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id int) state.LogEntry {
	st := state.State{CurrentStep: 0, ObservedSignal: 1, PreviousAction: state.ActionWait}
	next := state.State{CurrentStep: 1, ObservedSignal: 1, PreviousAction: state.ActionWait, AccumulatedReward: 1}
	return state.LogEntry{
		EpisodeID:      id,
		PolicySnapshot: state.PolicySnapshot(`{"action":"WAIT"}`),
		EpisodeTrace: state.EpisodeTrace{
			{Step: 0, State: st, Action: state.ActionWait, Reward: 1, NextState: next, Mode: state.ModeExplore},
		},
	}
}

// #region run-tests
func TestBeginRunAndActive(t *testing.T) {
	s := tempDB(t)

	rec, err := s.BeginRun("table", "")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if rec.RunID == "" {
		t.Fatal("expected non-empty run ID")
	}
	if rec.ParentID != "" {
		t.Fatalf("expected empty parent, got %s", rec.ParentID)
	}

	cur, err := s.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if cur.RunID != rec.RunID || cur.PolicyKind != "table" {
		t.Fatalf("expected %s/table, got %s/%s", rec.RunID, cur.RunID, cur.PolicyKind)
	}
}

func TestBeginRunWithParentAndSetActive(t *testing.T) {
	s := tempDB(t)

	first, err := s.BeginRun("table", "")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	second, err := s.BeginRun("table", first.RunID)
	if err != nil {
		t.Fatalf("BeginRun child: %v", err)
	}

	cur, _ := s.Active()
	if cur.RunID != second.RunID {
		t.Fatalf("expected active %s, got %s", second.RunID, cur.RunID)
	}
	if cur.ParentID != first.RunID {
		t.Fatalf("expected parent %s, got %s", first.RunID, cur.ParentID)
	}

	if err := s.SetActive(first.RunID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	cur, _ = s.Active()
	if cur.RunID != first.RunID {
		t.Fatalf("expected active %s after SetActive, got %s", first.RunID, cur.RunID)
	}
}

func TestSetActiveNonExistent(t *testing.T) {
	s := tempDB(t)
	err := s.SetActive("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestActiveEmptyStore(t *testing.T) {
	s := tempDB(t)
	_, err := s.Active()
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := tempDB(t)
	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := s.BeginRun("fixed", "")
		if err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
		ids = append(ids, rec.RunID)
	}
	if err := s.Append(ids[1], entry(0)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != ids[2] || runs[1].RunID != ids[1] {
		t.Fatalf("expected newest first, got %s, %s", runs[0].RunID, runs[1].RunID)
	}
	if runs[1].Episodes != 1 {
		t.Fatalf("expected 1 episode, got %d", runs[1].Episodes)
	}
}

// #endregion run-tests

// #region entry-tests
func TestAppendAndEntries(t *testing.T) {
	s := tempDB(t)
	rec, _ := s.BeginRun("fixed", "")

	for _, id := range []int{0, 1, 4} {
		if err := s.Append(rec.RunID, entry(id)); err != nil {
			t.Fatalf("Append %d: %v", id, err)
		}
	}

	got, err := s.Entries(rec.RunID)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[2].EpisodeID != 4 {
		t.Fatalf("expected episode 4 last, got %d", got[2].EpisodeID)
	}
	want := entry(4)
	if !got[2].PolicySnapshot.Equal(want.PolicySnapshot) {
		t.Fatalf("snapshot mismatch: %s", got[2].PolicySnapshot)
	}
	if got[2].EpisodeTrace[0] != want.EpisodeTrace[0] {
		t.Fatalf("trace mismatch: %+v", got[2].EpisodeTrace[0])
	}
}

func TestAppendRejectsNonIncreasingEpisode(t *testing.T) {
	s := tempDB(t)
	rec, _ := s.BeginRun("fixed", "")
	if err := s.Append(rec.RunID, entry(2)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(rec.RunID, entry(2)); err == nil {
		t.Fatal("expected error for duplicate episode id")
	}
	if err := s.Append(rec.RunID, entry(1)); err == nil {
		t.Fatal("expected error for decreasing episode id")
	}
}

func TestAppendUnknownRun(t *testing.T) {
	s := tempDB(t)
	err := s.Append("missing", entry(0))
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestAppendEmptySnapshot(t *testing.T) {
	s := tempDB(t)
	rec, _ := s.BeginRun("fixed", "")
	e := entry(0)
	e.PolicySnapshot = nil
	if err := s.Append(rec.RunID, e); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, _ := s.Entries(rec.RunID)
	if got[0].PolicySnapshot != nil {
		t.Fatalf("expected nil snapshot, got %s", got[0].PolicySnapshot)
	}
}

func TestEntriesUnknownRun(t *testing.T) {
	s := tempDB(t)
	_, err := s.Entries("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSinkMatchesInMemoryLog(t *testing.T) {
	s := tempDB(t)
	rec, _ := s.BeginRun("table", "")

	train := func(sink logging.Sink) {
		cfg := env.DefaultConfig()
		cfg.RewardedAction = state.ActionCommit
		loop := learning.NewLoop(env.NewSignal(cfg), policy.NewTable(), update.NewLearner(),
			exploration.NewStrategy(exploration.DefaultMinVisits), sink)
		if err := loop.Train(3, 5); err != nil {
			t.Fatalf("Train: %v", err)
		}
	}

	mem := logging.NewReplayLog()
	train(mem)
	train(s.Sink(rec.RunID))

	got, err := s.Entries(rec.RunID)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	want := mem.Entries()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].PolicySnapshot.Equal(want[i].PolicySnapshot) {
			t.Fatalf("entry %d snapshot mismatch", i)
		}
		if got[i].EpisodeTrace.Len() != want[i].EpisodeTrace.Len() {
			t.Fatalf("entry %d trace length mismatch", i)
		}
		for j := range want[i].EpisodeTrace {
			if got[i].EpisodeTrace[j] != want[i].EpisodeTrace[j] {
				t.Fatalf("entry %d step %d mismatch", i, j)
			}
		}
	}
}

// #endregion entry-tests

// #region failure-tests
func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

// corruptDB opens an in-memory SQLite with full schema via NewStoreWithDB.
// Returns the Store and raw *sql.DB so tests can drop tables.
func corruptDB(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	s := NewStoreWithDB(db)
	t.Cleanup(func() { db.Close() })
	return s, db
}

func TestBeginRun_InsertFails(t *testing.T) {
	s, db := corruptDB(t)
	db.Exec("DROP TABLE runs")

	if _, err := s.BeginRun("fixed", ""); err == nil {
		t.Fatal("expected error when runs table is missing")
	}
}

func TestBeginRun_SetActiveFails(t *testing.T) {
	s, db := corruptDB(t)
	db.Exec("DROP TABLE active_run")

	if _, err := s.BeginRun("fixed", ""); err == nil {
		t.Fatal("expected error when active_run table is missing")
	}
	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected rollback to leave no runs, got %d", len(runs))
	}
}

func TestEntries_BadTraceJSON(t *testing.T) {
	s, db := corruptDB(t)
	rec, err := s.BeginRun("fixed", "")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	_, err = db.Exec(
		`INSERT INTO replay_log (run_id, episode_id, episode_trace, created_at) VALUES (?, 0, '{not json', '')`,
		rec.RunID,
	)
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	if _, err := s.Entries(rec.RunID); err == nil {
		t.Fatal("expected error for corrupt trace JSON")
	}
}

func TestClosedDB(t *testing.T) {
	s := tempDB(t)
	s.Close()

	if _, err := s.BeginRun("fixed", ""); err == nil {
		t.Fatal("expected BeginRun error on closed DB")
	}
	if err := s.Append("x", entry(0)); err == nil {
		t.Fatal("expected Append error on closed DB")
	}
	if _, err := s.ListRuns(1); err == nil {
		t.Fatal("expected ListRuns error on closed DB")
	}
	if _, err := s.Active(); err == nil {
		t.Fatal("expected Active error on closed DB")
	}
}

func TestNewStore_CorruptDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "corrupt.db")
	os.WriteFile(dbPath, []byte("not a sqlite database, just some bytes padding the header out"), 0644)

	if _, err := NewStore(dbPath); err == nil {
		t.Fatal("expected error for corrupted DB file")
	}
}

// #endregion failure-tests
