// Package learning drives training: single episodes through EpisodeRunner
// and multi-episode runs with policy updates and logging through Loop.
package learning

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/uncertainty"
)

// #region explorer
// Explorer is the explore/exploit rule the runner consults every step.
// *exploration.Strategy satisfies it.
type Explorer interface {
	Decide(s state.State, step int) state.Mode
	ExploreAction(s state.State) state.Action
	RegisterState(s state.State)
}

// #endregion explorer

// #region runner
// EpisodeRunner runs one bounded episode and collects its trace. It never
// updates the policy.
type EpisodeRunner struct {
	env      state.Environment
	explorer Explorer
	model    *uncertainty.Model
}

// NewEpisodeRunner binds a runner to an environment and exploration rule.
func NewEpisodeRunner(env state.Environment, explorer Explorer) *EpisodeRunner {
	return &EpisodeRunner{env: env, explorer: explorer}
}

// RunEpisode resets the environment and steps it at most maxSteps times,
// stopping early when the environment reports done. Each step asks the
// explorer for a mode, takes the exploration action or the policy's action,
// registers the visit, and appends one transition.
func (r *EpisodeRunner) RunEpisode(p state.Policy, maxSteps int) (state.EpisodeTrace, error) {
	if maxSteps < 0 {
		return nil, fmt.Errorf("run episode: %w: max steps %d", state.ErrInvalidInput, maxSteps)
	}

	current := r.env.Reset()
	if err := state.Validate(current); err != nil {
		return nil, fmt.Errorf("run episode: reset: %w", err)
	}

	trace := make(state.EpisodeTrace, 0, maxSteps)
	for step := 0; step < maxSteps; step++ {
		mode := r.explorer.Decide(current, step)

		var action state.Action
		if mode == state.ModeExplore {
			action = r.explorer.ExploreAction(current)
		} else {
			action = p.SelectAction(current)
		}
		if !action.Valid() {
			return nil, fmt.Errorf("run episode: step %d: %w: %s action %q", step, state.ErrSchemaViolation, mode, action)
		}
		r.explorer.RegisterState(current)

		res := r.env.Step(action)
		if err := state.Validate(res.NextState); err != nil {
			return nil, fmt.Errorf("run episode: step %d: next state: %w", step, err)
		}
		if math.IsNaN(res.Reward) || math.IsInf(res.Reward, 0) {
			return nil, fmt.Errorf("run episode: step %d: %w: reward %v", step, state.ErrSchemaViolation, res.Reward)
		}

		r.recordHidden(res)

		trace = append(trace, state.Transition{
			Step:      step,
			State:     current,
			Action:    action,
			Reward:    res.Reward,
			NextState: res.NextState,
			Mode:      mode,
		})
		current = res.NextState

		if res.Done {
			break
		}
	}
	return trace, nil
}

// SetUncertainty makes the runner record observations with hidden fields in
// m. A nil model disables recording.
func (r *EpisodeRunner) SetUncertainty(m *uncertainty.Model) {
	r.model = m
}

// recordHidden registers a partially observed state as unresolved. The
// hidden values are never filled in.
func (r *EpisodeRunner) recordHidden(res state.StepResult) {
	if r.model == nil || len(res.HiddenFields()) == 0 {
		return
	}
	r.model.RegisterState(res.NextState)
	r.model.RecordPartialObservation()
}

// #endregion runner
