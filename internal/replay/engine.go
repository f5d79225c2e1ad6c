package replay

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielpatrickdp/decision-harness/internal/logging"
	"github.com/danielpatrickdp/decision-harness/internal/metrics"
	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region divergence-error

// ErrDivergence matches any *DivergenceError via errors.Is.
var ErrDivergence = errors.New("replay divergence")

// DivergenceError reports the first step where the current policy did not
// reproduce a logged action.
type DivergenceError struct {
	EpisodeID int
	Step      int
	Expected  state.Action
	Actual    state.Action
	State     state.State
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("replay divergence in episode %d at step %d: expected action '%s', got '%s' for state %+v",
		e.EpisodeID, e.Step, e.Expected, e.Actual, e.State)
}

// Is lets errors.Is(err, ErrDivergence) match.
func (e *DivergenceError) Is(target error) bool {
	return target == ErrDivergence
}

// #endregion divergence-error

// #region options

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records replay outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// #endregion options

// #region engine

// Engine replays logged episodes against the current policy.
type Engine struct {
	env     state.Environment
	policy  state.Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewEngine binds an engine to an environment and the policy under test.
func NewEngine(env state.Environment, policy state.Policy, opts ...Option) *Engine {
	e := &Engine{env: env, policy: policy, logger: logging.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Replay resets the environment and walks the logged trace. At each step the
// policy's action for the logged state must equal the logged action; the
// first mismatch returns a *DivergenceError and nothing past it runs. On a
// match the environment is stepped with that action. The reproduced actions
// are returned in step order.
func (e *Engine) Replay(entry state.LogEntry) ([]state.Action, error) {
	e.env.Reset()

	actions := make([]state.Action, 0, entry.EpisodeTrace.Len())
	for i, tr := range entry.EpisodeTrace {
		if err := state.Validate(tr.State); err != nil {
			e.metrics.ObserveReplay(metrics.ReplayFailed)
			return actions, fmt.Errorf("replay episode %d step %d: %w", entry.EpisodeID, i, err)
		}

		actual := e.policy.SelectAction(tr.State)
		if actual != tr.Action {
			derr := &DivergenceError{
				EpisodeID: entry.EpisodeID,
				Step:      i,
				Expected:  tr.Action,
				Actual:    actual,
				State:     tr.State,
			}
			e.metrics.ObserveReplay(metrics.ReplayDiverged)
			e.logger.Warn("replay diverged",
				"episode_id", entry.EpisodeID,
				"step", i,
				"expected", tr.Action,
				"actual", actual,
				"state_key", state.KeyOf(tr.State).String(),
			)
			return actions, derr
		}

		e.env.Step(actual)
		actions = append(actions, actual)
	}

	e.metrics.ObserveReplay(metrics.ReplayMatched)
	e.logger.Debug("replay matched", "episode_id", entry.EpisodeID, "steps", len(actions))
	return actions, nil
}

// #endregion engine
