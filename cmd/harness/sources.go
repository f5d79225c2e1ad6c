package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/decision-harness/internal/policy"
	"github.com/danielpatrickdp/decision-harness/internal/replay"
	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/store"
)

// #region policy-flags

const (
	policyTable = policy.KindTable
	policyFixed = policy.KindFixed
)

type policyFlags struct {
	kind       string
	action     string
	confidence float64
}

func (f *policyFlags) register(cmd *cobra.Command, defaultKind string) {
	cmd.Flags().StringVar(&f.kind, "policy", defaultKind, "Policy kind: table or fixed")
	cmd.Flags().StringVar(&f.action, "action", string(state.ActionWait), "Action for the fixed policy")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0.5, "Confidence reported by the fixed policy")
}

// restore builds a policy from snap. An empty snapshot gives a fresh policy.
func (f *policyFlags) restore(snap state.PolicySnapshot) (state.Policy, error) {
	switch f.kind {
	case policyTable:
		t, err := policy.RestoreTable(snap)
		if err != nil {
			return nil, err
		}
		return t, nil
	case policyFixed:
		var (
			p   *policy.Fixed
			err error
		)
		if len(snap) == 0 {
			var action state.Action
			if action, err = state.ParseAction(f.action); err != nil {
				return nil, err
			}
			p, err = policy.NewFixed(action, f.confidence)
		} else {
			p, err = policy.RestoreFixed(snap, f.confidence)
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown policy kind %q", f.kind)
	}
}

func (f *policyFlags) factory() replay.PolicyFactory {
	return f.restore
}

// adopt takes the policy kind from l unless --policy was given.
func (f *policyFlags) adopt(cmd *cobra.Command, l loaded) {
	if cmd.Flags().Changed("policy") {
		return
	}
	if k := l.kind(); k != "" {
		f.kind = k
	}
}

// #endregion policy-flags

// #region log-source

// logSource reads a replay log from a JSON file or a SQLite run.
type logSource struct {
	logPath string
	dbPath  string
	runID   string
}

func (s *logSource) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.logPath, "log", "", "Path to an exported JSON replay log")
	cmd.Flags().StringVar(&s.dbPath, "db", "", "Path to the SQLite run store (defaults to store.db_path)")
	cmd.Flags().StringVar(&s.runID, "run", "", "Run id in the store (defaults to the active run)")
}

// explicit reports whether --log or --db was given.
func (s *logSource) explicit() bool {
	return s.logPath != "" || s.dbPath != ""
}

func (s *logSource) empty(defaultDB string) bool {
	return s.logPath == "" && s.db(defaultDB) == ""
}

func (s *logSource) db(defaultDB string) string {
	if s.dbPath != "" {
		return s.dbPath
	}
	return defaultDB
}

// loaded is a log plus the snapshot its first episode started from.
type loaded struct {
	entries []state.LogEntry
	initial state.PolicySnapshot
	run     store.RunRecord
}

// lastSnapshot returns the policy state after the final episode.
func (l loaded) lastSnapshot() state.PolicySnapshot {
	if len(l.entries) == 0 {
		return l.initial
	}
	return l.entries[len(l.entries)-1].PolicySnapshot
}

// kind names the policy that wrote the log: the run record's kind when the
// log came from the store, otherwise the shape of its snapshots.
func (l loaded) kind() string {
	if l.run.PolicyKind != "" {
		return l.run.PolicyKind
	}
	if k := policy.KindOf(l.lastSnapshot()); k != "" {
		return k
	}
	if len(l.entries) > 0 {
		return policy.KindOf(l.entries[0].PolicySnapshot)
	}
	return ""
}

func (s *logSource) load(defaultDB string) (loaded, error) {
	if s.logPath != "" {
		entries, err := replay.LoadLog(s.logPath)
		if err != nil {
			return loaded{}, err
		}
		return loaded{entries: entries}, nil
	}

	path := s.db(defaultDB)
	if path == "" {
		return loaded{}, fmt.Errorf("one of --log or --db is required")
	}
	st, err := store.NewStore(path)
	if err != nil {
		return loaded{}, err
	}
	defer st.Close()
	return loadRun(st, s.runID)
}

// loadRun reads a run and, for resumed runs, the parent's final snapshot.
func loadRun(st *store.Store, runID string) (loaded, error) {
	var (
		run store.RunRecord
		err error
	)
	if runID == "" {
		run, err = st.Active()
	} else {
		run, err = st.GetRun(runID)
	}
	if err != nil {
		return loaded{}, err
	}

	entries, err := st.Entries(run.RunID)
	if err != nil {
		return loaded{}, err
	}
	out := loaded{entries: entries, run: run}
	if run.ParentID != "" {
		parent, err := loadRun(st, run.ParentID)
		if err != nil {
			return loaded{}, fmt.Errorf("load parent run: %w", err)
		}
		out.initial = parent.lastSnapshot()
	}
	return out, nil
}

// servingPolicy restores the final policy of an explicit log source, or
// builds a fresh one when no source was given.
func servingPolicy(cmd *cobra.Command, pf *policyFlags, src *logSource) (state.Policy, error) {
	if !src.explicit() {
		return pf.restore(nil)
	}
	l, err := src.load("")
	if err != nil {
		return nil, err
	}
	pf.adopt(cmd, l)
	return pf.restore(l.lastSnapshot())
}

// #endregion log-source
