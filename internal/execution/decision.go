// Package execution serves decisions from a trained policy. Nothing here
// learns or explores.
package execution

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region decision

// Decision is the action served for a state and the evidence behind it.
type Decision struct {
	Action     state.Action `json:"action" yaml:"action"`
	Confidence float64      `json:"confidence" yaml:"confidence"`
}

// DecisionEngine asks a policy for its action and confidence.
type DecisionEngine struct{}

func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{}
}

// Decide validates s, then queries p. An unknown action or a confidence
// outside [0, 1] from the policy is a schema violation.
func (d *DecisionEngine) Decide(p state.Policy, s state.State) (Decision, error) {
	if p == nil {
		return Decision{}, fmt.Errorf("decide: %w: nil policy", state.ErrInvalidInput)
	}
	if err := state.Validate(s); err != nil {
		return Decision{}, fmt.Errorf("decide: %w", err)
	}

	action := p.SelectAction(s)
	if !action.Valid() {
		return Decision{}, fmt.Errorf("decide: %w: policy returned action %q", state.ErrSchemaViolation, action)
	}
	conf := p.Confidence(s)
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return Decision{}, fmt.Errorf("decide: %w: policy returned confidence %v", state.ErrSchemaViolation, conf)
	}
	return Decision{Action: action, Confidence: conf}, nil
}

// #endregion decision
