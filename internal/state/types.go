package state

import (
	"bytes"
	"encoding/json"
)

// #region state
// State is the agent-observable snapshot for one step. It is a value type;
// environments hand out a new State each step.
type State struct {
	CurrentStep       int     `json:"current_step" yaml:"current_step" validate:"gte=0"`
	ObservedSignal    float64 `json:"observed_signal" yaml:"observed_signal" validate:"finite"`
	PreviousAction    Action  `json:"previous_action" yaml:"previous_action" validate:"required,oneof=WAIT EXPLORE COMMIT"`
	AccumulatedReward float64 `json:"accumulated_reward" yaml:"accumulated_reward" validate:"finite,gte=-10,lte=10"`
}

const (
	MinAccumulatedReward = -10.0
	MaxAccumulatedReward = 10.0
)

// #endregion state

// #region transition
// Transition is one step of interaction inside an episode.
type Transition struct {
	Step      int     `json:"step"`
	State     State   `json:"state"`
	Action    Action  `json:"action"`
	Reward    float64 `json:"reward"`
	NextState State   `json:"next_state"`
	Mode      Mode    `json:"mode"`
}

// EpisodeTrace is the ordered transition sequence of one episode.
type EpisodeTrace []Transition

// Len returns the episode length.
func (t EpisodeTrace) Len() int { return len(t) }

// TotalReward sums the per-step rewards.
func (t EpisodeTrace) TotalReward() float64 {
	var total float64
	for _, tr := range t {
		total += tr.Reward
	}
	return total
}

// Actions returns the action taken at each step.
func (t EpisodeTrace) Actions() []Action {
	out := make([]Action, len(t))
	for i, tr := range t {
		out[i] = tr.Action
	}
	return out
}

// Clone returns a copy that shares no backing array with t.
func (t EpisodeTrace) Clone() EpisodeTrace {
	if t == nil {
		return nil
	}
	out := make(EpisodeTrace, len(t))
	copy(out, t)
	return out
}

// #endregion transition

// #region policy-snapshot
// PolicySnapshot is an opaque, serialized view of a policy's learned state.
// The bytes must be valid JSON.
type PolicySnapshot json.RawMessage

// Clone returns a detached copy.
func (p PolicySnapshot) Clone() PolicySnapshot {
	if p == nil {
		return nil
	}
	out := make(PolicySnapshot, len(p))
	copy(out, p)
	return out
}

// Equal reports byte equality.
func (p PolicySnapshot) Equal(o PolicySnapshot) bool {
	return bytes.Equal(p, o)
}

// MarshalJSON emits the snapshot verbatim, or null when empty.
func (p PolicySnapshot) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(p).MarshalJSON()
}

// UnmarshalJSON stores a copy of data.
func (p *PolicySnapshot) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	*p = append((*p)[:0], data...)
	return nil
}

// #endregion policy-snapshot

// #region log-entry
// LogEntry is the durable record needed to reproduce and audit one episode.
type LogEntry struct {
	EpisodeID      int            `json:"episode_id"`
	PolicySnapshot PolicySnapshot `json:"policy_snapshot"`
	EpisodeTrace   EpisodeTrace   `json:"episode_trace"`
}

// Clone deep-copies the entry so the copy does not alias the trace or snapshot.
func (e LogEntry) Clone() LogEntry {
	return LogEntry{
		EpisodeID:      e.EpisodeID,
		PolicySnapshot: e.PolicySnapshot.Clone(),
		EpisodeTrace:   e.EpisodeTrace.Clone(),
	}
}

// #endregion log-entry

// #region step-result

// InfoHiddenFields is the Info key under which an environment lists the State
// fields it could not observe this step. Hidden fields carry a zero value.
const InfoHiddenFields = "hidden_fields"

// StepResult is what an environment returns for one step.
type StepResult struct {
	NextState State
	Reward    float64
	Done      bool
	Info      map[string]any
}

// HiddenFields returns the fields listed under InfoHiddenFields, if any.
func (r StepResult) HiddenFields() []string {
	hidden, _ := r.Info[InfoHiddenFields].([]string)
	return hidden
}

// #endregion step-result
