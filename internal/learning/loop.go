package learning

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/decision-harness/internal/logging"
	"github.com/danielpatrickdp/decision-harness/internal/metrics"
	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/uncertainty"
	"github.com/danielpatrickdp/decision-harness/internal/update"
)

// ErrLoopBroken is returned by Train after a sink failure. The policy has
// already absorbed the episode whose entry was lost, so the log can no
// longer reproduce it.
var ErrLoopBroken = errors.New("training loop broken by sink failure")

// #region options
// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(loop *Loop) { loop.logger = l }
}

// WithMetrics records episode metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(loop *Loop) { loop.metrics = m }
}

// WithRunID overrides the generated run identifier used in log lines.
func WithRunID(id string) Option {
	return func(loop *Loop) { loop.runID = id }
}

// WithUncertainty records partially observed states in m during training.
func WithUncertainty(m *uncertainty.Model) Option {
	return func(loop *Loop) { loop.uncertainty = m }
}

// #endregion options

// #region loop
// Loop is the top-level training orchestrator. It owns the policy for the
// training lifetime and emits one log entry per episode.
type Loop struct {
	policy  state.Policy
	learner *update.Learner
	runner  *EpisodeRunner
	sink    logging.Sink

	nextEpisode int
	broken      error
	runID       string
	uncertainty *uncertainty.Model
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewLoop wires a training loop. The explorer's counters persist for the
// lifetime of the loop.
func NewLoop(env state.Environment, policy state.Policy, learner *update.Learner, explorer Explorer, sink logging.Sink, opts ...Option) *Loop {
	l := &Loop{
		policy:  policy,
		learner: learner,
		runner:  NewEpisodeRunner(env, explorer),
		sink:    sink,
		runID:   uuid.New().String(),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.runner.SetUncertainty(l.uncertainty)
	return l
}

// RunID identifies this loop in log lines. It never enters the replay log.
func (l *Loop) RunID() string {
	return l.runID
}

// #endregion loop

// #region train
// Train runs episodes sequentially. After each episode the learner updates the
// policy, then the entry {episode id, post-update snapshot, trace} is
// appended to the sink. Episode ids continue across calls. A sink failure
// breaks the loop: that call and every later one fail with ErrLoopBroken.
func (l *Loop) Train(episodes, maxStepsPerEpisode int) error {
	if l.broken != nil {
		return fmt.Errorf("train: %w: %v", ErrLoopBroken, l.broken)
	}
	if episodes < 0 {
		return fmt.Errorf("train: %w: episodes %d", state.ErrInvalidInput, episodes)
	}

	for i := 0; i < episodes; i++ {
		episodeID := l.nextEpisode

		trace, err := l.runner.RunEpisode(l.policy, maxStepsPerEpisode)
		if err != nil {
			return fmt.Errorf("train: episode %d: %w", episodeID, err)
		}
		if err := l.learner.UpdatePolicy(l.policy, trace); err != nil {
			return fmt.Errorf("train: episode %d: %w", episodeID, err)
		}

		entry := state.LogEntry{
			EpisodeID:      episodeID,
			PolicySnapshot: l.policy.Snapshot().Clone(),
			EpisodeTrace:   trace,
		}
		if err := l.sink.Append(entry); err != nil {
			l.broken = fmt.Errorf("episode %d: %w", episodeID, err)
			return fmt.Errorf("train: %w: %w", ErrLoopBroken, l.broken)
		}
		l.nextEpisode++

		l.metrics.ObserveEpisode(trace)
		l.logger.Debug("episode complete",
			"run_id", l.runID,
			"episode_id", episodeID,
			"length", trace.Len(),
			"reward", trace.TotalReward(),
			"explore_steps", countMode(trace, state.ModeExplore),
		)
	}

	l.logger.Info("training complete", "run_id", l.runID, "episodes", episodes, "next_episode", l.nextEpisode)
	return nil
}

// #endregion train

// #region helpers
func countMode(trace state.EpisodeTrace, m state.Mode) int {
	n := 0
	for _, tr := range trace {
		if tr.Mode == m {
			n++
		}
	}
	return n
}

// #endregion helpers
