package execution

import (
	"github.com/danielpatrickdp/decision-harness/internal/explain"
	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/uncertainty"
)

// #region session

// Report summarises one served session.
type Report struct {
	Steps        []StepResult          `json:"steps" yaml:"steps"`
	Explanations []explain.Explanation `json:"explanations" yaml:"explanations"`
	TotalReward  float64               `json:"total_reward" yaml:"total_reward"`
	Done         bool                  `json:"done" yaml:"done"`
	Uncertainty  uncertainty.Snapshot  `json:"uncertainty" yaml:"uncertainty"`
}

// Session runs an executor from the environment's reset state and explains
// every step. States served with zero confidence stay unresolved and count
// as partial observations.
type Session struct {
	exec      *Executor
	model     *uncertainty.Model
	explainer *explain.Explainer
	trace     *explain.Trace
}

// NewSession wraps exec. A nil model starts a fresh one.
func NewSession(exec *Executor, model *uncertainty.Model) *Session {
	if model == nil {
		model = uncertainty.NewModel()
	}
	return &Session{
		exec:      exec,
		model:     model,
		explainer: explain.NewExplainer(),
		trace:     explain.NewTrace(),
	}
}

// Model returns the uncertainty model the session writes to.
func (s *Session) Model() *uncertainty.Model { return s.model }

// Run serves steps until done or the executor cap.
func (s *Session) Run() (Report, error) {
	var rep Report
	cur := s.exec.Reset()
	for s.exec.Steps() < s.exec.MaxSteps() {
		res, err := s.Step(cur)
		if err != nil {
			rep.Explanations = s.Explanations()
			rep.Uncertainty = s.model.Snapshot()
			return rep, err
		}
		rep.Steps = append(rep.Steps, res)
		rep.TotalReward += res.Reward
		if res.Done {
			rep.Done = true
			break
		}
		cur = res.NextState
	}
	rep.Explanations = s.Explanations()
	rep.Uncertainty = s.model.Snapshot()
	return rep, nil
}

// Step serves one state and records its explanation. A failed step leaves
// the model untouched. A next state with hidden fields stays unresolved and
// counts as a partial observation.
func (s *Session) Step(cur state.State) (StepResult, error) {
	res, err := s.exec.RunStep(cur)
	if err != nil {
		return StepResult{}, err
	}
	if res.Decision.Confidence > 0 {
		s.model.MarkObserved(cur)
	} else {
		s.model.RegisterState(cur)
		s.model.RecordPartialObservation()
	}
	if len(res.Hidden) > 0 {
		s.model.RegisterState(res.NextState)
		s.model.RecordPartialObservation()
	}
	s.trace.Record(s.explainer.Explain(cur, res.Decision.Action, res.Decision.Confidence, s.model.Snapshot()))
	return res, nil
}

// Explanations returns a copy of the session's trace.
func (s *Session) Explanations() []explain.Explanation {
	return s.trace.Export()
}

// #endregion session
