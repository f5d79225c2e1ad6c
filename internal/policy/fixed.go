package policy

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region fixed

// Fixed always selects the same action and never learns.
type Fixed struct {
	action     state.Action
	confidence float64
}

// NewFixed returns a policy pinned to action with a constant confidence.
func NewFixed(action state.Action, confidence float64) (*Fixed, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("fixed policy: %w: action %q", state.ErrSchemaViolation, action)
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("fixed policy: %w: confidence %v", state.ErrInvalidInput, confidence)
	}
	return &Fixed{action: action, confidence: confidence}, nil
}

// RestoreFixed rebuilds a Fixed policy from its snapshot.
func RestoreFixed(snap state.PolicySnapshot, confidence float64) (*Fixed, error) {
	var data struct {
		Action state.Action `json:"action"`
	}
	if err := json.Unmarshal(snap, &data); err != nil {
		return nil, fmt.Errorf("restore fixed: %w", err)
	}
	return NewFixed(data.Action, confidence)
}

// Action returns the pinned action.
func (f *Fixed) Action() state.Action { return f.action }

func (f *Fixed) SelectAction(state.State) state.Action { return f.action }

func (f *Fixed) Update(state.State, state.Action, float64) {}

func (f *Fixed) Snapshot() state.PolicySnapshot {
	return state.PolicySnapshot(fmt.Sprintf(`{"action":%q}`, string(f.action)))
}

func (f *Fixed) Confidence(state.State) float64 { return f.confidence }

// #endregion fixed
