package update

import (
	"fmt"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region learner

// Learner applies the deterministic policy-update rule to a completed
// episode trace. It holds no state and never touches the environment.
type Learner struct{}

// NewLearner returns a Learner.
func NewLearner() *Learner {
	return &Learner{}
}

// #endregion learner

// #region update-policy

// UpdatePolicy feeds every transition's (state, action, reward) to the policy
// in trace order. The whole trace is validated first: one bad transition
// fails the call before any update is applied.
func (l *Learner) UpdatePolicy(p state.Policy, trace state.EpisodeTrace) error {
	if p == nil {
		return fmt.Errorf("update policy: %w: nil policy", state.ErrInvalidInput)
	}
	for i, tr := range trace {
		if err := state.ValidateTransition(tr); err != nil {
			return fmt.Errorf("update policy: transition %d: %w", i, err)
		}
	}

	for _, tr := range trace {
		p.Update(tr.State, tr.Action, tr.Reward)
	}
	return nil
}

// #endregion update-policy
