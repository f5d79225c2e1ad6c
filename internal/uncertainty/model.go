// Package uncertainty records what the agent does not know. Unknowns are
// counted explicitly, never inferred.
package uncertainty

import "github.com/danielpatrickdp/decision-harness/internal/state"

// #region types

// Snapshot is a point-in-time view of the model.
type Snapshot struct {
	UnseenStateCount        int    `json:"unseen_state_count" yaml:"unseen_state_count"`
	PartialObservationCount uint64 `json:"partial_observation_count" yaml:"partial_observation_count"`
}

// Model tracks unresolved state keys and a monotone partial-observation count.
type Model struct {
	unresolved map[state.Key]struct{}
	partial    uint64
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{unresolved: make(map[state.Key]struct{})}
}

// #endregion

// #region operations

// RegisterState marks st as unresolved. Registering twice is a no-op.
func (m *Model) RegisterState(st state.State) {
	m.unresolved[state.KeyOf(st)] = struct{}{}
}

// MarkObserved resolves st if it is currently unresolved.
func (m *Model) MarkObserved(st state.State) {
	delete(m.unresolved, state.KeyOf(st))
}

// IsUnresolved reports whether st is registered and not yet observed.
func (m *Model) IsUnresolved(st state.State) bool {
	_, ok := m.unresolved[state.KeyOf(st)]
	return ok
}

// RecordPartialObservation increments the partial-observation counter.
func (m *Model) RecordPartialObservation() {
	m.partial++
}

// Snapshot reads the current counts without side effects.
func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		UnseenStateCount:        len(m.unresolved),
		PartialObservationCount: m.partial,
	}
}

// Merge unions other's unresolved set into m and adds its counter.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	for k := range other.unresolved {
		m.unresolved[k] = struct{}{}
	}
	m.partial += other.partial
}

// #endregion
