// Package explain turns serving decisions into human-readable records.
// An explanation states what was chosen and what is known to be unknown;
// it never claims the choice is correct.
package explain

import (
	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/uncertainty"
)

const (
	Claim      = "Action selected based on available evidence only"
	Disclaimer = "Decision does not imply certainty or optimality"
)

// #region explanation

// Explanation describes one decision.
type Explanation struct {
	State        state.State          `json:"state" yaml:"state"`
	ChosenAction state.Action         `json:"chosen_action" yaml:"chosen_action"`
	Confidence   float64              `json:"confidence" yaml:"confidence"`
	KnownLimits  uncertainty.Snapshot `json:"known_limits" yaml:"known_limits"`
	Claim        string               `json:"claim" yaml:"claim"`
	Disclaimer   string               `json:"disclaimer" yaml:"disclaimer"`
}

// Explainer builds explanations. It is stateless.
type Explainer struct{}

func NewExplainer() *Explainer {
	return &Explainer{}
}

// Explain pairs a decision with the uncertainty snapshot taken when it was made.
func (e *Explainer) Explain(s state.State, action state.Action, confidence float64, limits uncertainty.Snapshot) Explanation {
	return Explanation{
		State:        s,
		ChosenAction: action,
		Confidence:   confidence,
		KnownLimits:  limits,
		Claim:        Claim,
		Disclaimer:   Disclaimer,
	}
}

// #endregion explanation

// #region trace

// Trace is an append-only audit of explanations in decision order.
type Trace struct {
	records []Explanation
}

func NewTrace() *Trace {
	return &Trace{}
}

func (t *Trace) Record(e Explanation) {
	t.records = append(t.records, e)
}

func (t *Trace) Len() int {
	return len(t.records)
}

// Export returns a copy; callers may modify it freely.
func (t *Trace) Export() []Explanation {
	out := make([]Explanation, len(t.records))
	copy(out, t.records)
	return out
}

// #endregion trace
