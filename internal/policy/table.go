// Package policy holds the reference Policy implementations the harness
// ships with: a fixed-action policy and a deterministic reward table.
package policy

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/decision-harness/internal/confidence"
	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region consistency

// Consistency supplies the reward-consistency figure in [0, 1] that feeds
// confidence scoring. How consistency is measured is the caller's decision.
type Consistency func(s state.State) float64

// FixedConsistency reports the same consistency for every state.
func FixedConsistency(c float64) Consistency {
	return func(state.State) float64 { return c }
}

// #endregion consistency

// #region table-types

// ActionStats accumulates observed reward for one (state, action) pair.
type ActionStats struct {
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// Mean returns the average reward, or 0 with no observations.
func (a ActionStats) Mean() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Total / float64(a.Count)
}

// tableData is the owned value behind a Table and the shape of its snapshot.
type tableData struct {
	Version uint64                                     `json:"version"`
	Entries map[state.Key]map[state.Action]ActionStats `json:"entries"`
}

// Table is a deterministic tabular policy: it accumulates reward per
// (state, action) and selects the action with the highest mean reward.
type Table struct {
	data        tableData
	consistency Consistency
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithConsistency sets the consistency collaborator used by Confidence.
func WithConsistency(c Consistency) TableOption {
	return func(t *Table) { t.consistency = c }
}

// #endregion table-types

// #region constructors

// NewTable returns an empty table. Without WithConsistency every state is
// treated as fully consistent.
func NewTable(opts ...TableOption) *Table {
	t := &Table{
		data:        tableData{Entries: make(map[state.Key]map[state.Action]ActionStats)},
		consistency: FixedConsistency(1.0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RestoreTable rebuilds a table from a snapshot produced by Table.Snapshot.
// A nil or empty snapshot yields an empty table.
func RestoreTable(snap state.PolicySnapshot, opts ...TableOption) (*Table, error) {
	t := NewTable(opts...)
	if len(snap) == 0 || string(snap) == "null" {
		return t, nil
	}
	var data tableData
	if err := json.Unmarshal(snap, &data); err != nil {
		return nil, fmt.Errorf("restore table: %w", err)
	}
	for k, row := range data.Entries {
		for a, stats := range row {
			if !a.Valid() {
				return nil, fmt.Errorf("restore table: %w: action %q under key %s", state.ErrSchemaViolation, a, k)
			}
			if stats.Count < 0 {
				return nil, fmt.Errorf("restore table: %w: negative count under key %s", state.ErrSchemaViolation, k)
			}
		}
	}
	if data.Entries == nil {
		data.Entries = make(map[state.Key]map[state.Action]ActionStats)
	}
	t.data = data
	return t, nil
}

// #endregion constructors

// #region policy-contract

// SelectAction returns the action with the highest mean reward for s. Ties go
// to the earlier action in canonical order; unseen states get WAIT.
func (t *Table) SelectAction(s state.State) state.Action {
	row, ok := t.data.Entries[state.KeyOf(s)]
	if !ok || len(row) == 0 {
		return state.ActionWait
	}
	best := state.Action("")
	bestMean := 0.0
	for _, a := range state.Actions() {
		stats, tried := row[a]
		if !tried || stats.Count == 0 {
			continue
		}
		if best == "" || stats.Mean() > bestMean {
			best, bestMean = a, stats.Mean()
		}
	}
	if best == "" {
		return state.ActionWait
	}
	return best
}

// Update adds reward to the (s, a) cell and bumps the table version.
func (t *Table) Update(s state.State, a state.Action, reward float64) {
	k := state.KeyOf(s)
	row, ok := t.data.Entries[k]
	if !ok {
		row = make(map[state.Action]ActionStats)
		t.data.Entries[k] = row
	}
	stats := row[a]
	stats.Total += reward
	stats.Count++
	row[a] = stats
	t.data.Version++
}

// Snapshot serializes the table. The returned bytes share nothing with the
// live table.
func (t *Table) Snapshot() state.PolicySnapshot {
	data, err := json.Marshal(t.data)
	if err != nil {
		// tableData holds only finite numbers and strings.
		panic(fmt.Sprintf("policy table snapshot: %v", err))
	}
	return state.PolicySnapshot(data)
}

// Confidence scores the evidence behind decisions for s.
func (t *Table) Confidence(s state.State) float64 {
	c, err := confidence.Compute(t.Visits(s), t.consistency(s))
	if err != nil {
		return 0
	}
	return c
}

// #endregion policy-contract

// #region accessors

// Visits returns how many updates touched s across all actions.
func (t *Table) Visits(s state.State) int {
	n := 0
	for _, stats := range t.data.Entries[state.KeyOf(s)] {
		n += stats.Count
	}
	return n
}

// Stats returns the accumulated stats for (s, a).
func (t *Table) Stats(s state.State, a state.Action) ActionStats {
	return t.data.Entries[state.KeyOf(s)][a]
}

// Version counts applied updates.
func (t *Table) Version() uint64 {
	return t.data.Version
}

// #endregion accessors
