package execution

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/danielpatrickdp/decision-harness/internal/logging"
	"github.com/danielpatrickdp/decision-harness/internal/metrics"
	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// ErrStepLimit is returned by RunStep once MaxSteps environment steps have run.
var ErrStepLimit = errors.New("executor step limit reached")

// #region options

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics records every served decision.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// #endregion options

// #region executor

// StepResult is the outcome of one served step.
type StepResult struct {
	Decision  Decision    `json:"decision" yaml:"decision"`
	NextState state.State `json:"next_state" yaml:"next_state"`
	Reward    float64     `json:"reward" yaml:"reward"`
	Done      bool        `json:"done" yaml:"done"`
	Hidden    []string    `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// Executor drives an environment with a fixed policy, bounded by MaxSteps.
type Executor struct {
	env      state.Environment
	policy   state.Policy
	engine   *DecisionEngine
	maxSteps int
	steps    int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewExecutor returns an executor that will step env at most maxSteps times.
func NewExecutor(env state.Environment, policy state.Policy, maxSteps int, opts ...Option) (*Executor, error) {
	if maxSteps < 0 {
		return nil, fmt.Errorf("new executor: %w: max steps %d", state.ErrInvalidInput, maxSteps)
	}
	if env == nil || policy == nil {
		return nil, fmt.Errorf("new executor: %w: nil environment or policy", state.ErrInvalidInput)
	}
	e := &Executor{
		env:      env,
		policy:   policy,
		engine:   NewDecisionEngine(),
		maxSteps: maxSteps,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MaxSteps returns the configured cap.
func (e *Executor) MaxSteps() int { return e.maxSteps }

// Steps returns how many environment steps have run.
func (e *Executor) Steps() int { return e.steps }

// Reset returns the environment's initial state.
func (e *Executor) Reset() state.State { return e.env.Reset() }

// RunStep decides for s and steps the environment with the chosen action.
// Once the cap is reached it returns ErrStepLimit without touching the
// environment.
func (e *Executor) RunStep(s state.State) (StepResult, error) {
	if e.steps >= e.maxSteps {
		return StepResult{}, fmt.Errorf("run step: %w (%d)", ErrStepLimit, e.maxSteps)
	}

	d, err := e.engine.Decide(e.policy, s)
	if err != nil {
		return StepResult{}, fmt.Errorf("run step %d: %w", e.steps, err)
	}

	out := e.env.Step(d.Action)
	e.steps++
	if err := state.Validate(out.NextState); err != nil {
		return StepResult{}, fmt.Errorf("run step %d: next state: %w", e.steps-1, err)
	}
	if math.IsNaN(out.Reward) || math.IsInf(out.Reward, 0) {
		return StepResult{}, fmt.Errorf("run step %d: %w: reward %v", e.steps-1, state.ErrSchemaViolation, out.Reward)
	}

	e.metrics.ObserveDecision(d.Action, d.Confidence)
	e.logger.Debug("served decision",
		"step", e.steps-1,
		"action", d.Action,
		"confidence", d.Confidence,
		"reward", out.Reward,
		"done", out.Done,
	)

	return StepResult{
		Decision:  d,
		NextState: out.NextState,
		Reward:    out.Reward,
		Done:      out.Done,
		Hidden:    out.HiddenFields(),
	}, nil
}

// Run steps from initial until the environment reports done or the cap is
// reached. Hitting the cap is not an error.
func (e *Executor) Run(initial state.State) ([]StepResult, error) {
	var results []StepResult
	s := initial
	for e.steps < e.maxSteps {
		res, err := e.RunStep(s)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if res.Done {
			break
		}
		s = res.NextState
	}
	return results, nil
}

// #endregion executor
