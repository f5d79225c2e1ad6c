// Package metrics exposes Prometheus instrumentation for training, replay
// and serving. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region constants
const namespace = "harness"

// Replay outcome labels.
const (
	ReplayMatched  = "matched"
	ReplayDiverged = "diverged"
	ReplayFailed   = "error"
)

// #endregion

// #region metrics

// Metrics groups every collector the harness records.
type Metrics struct {
	// EpisodesTotal counts completed training episodes.
	EpisodesTotal prometheus.Counter

	// StepsTotal counts training steps. Labels: mode (EXPLORE, EXPLOIT)
	StepsTotal *prometheus.CounterVec

	// EpisodeReward observes the total reward of each training episode.
	EpisodeReward prometheus.Histogram

	// ReplaysTotal counts replayed log entries. Labels: result
	ReplaysTotal *prometheus.CounterVec

	// DecisionsTotal counts serving decisions. Labels: action
	DecisionsTotal *prometheus.CounterVec

	// DecisionConfidence observes the confidence attached to serving decisions.
	DecisionConfidence prometheus.Histogram
}

// New registers all collectors with reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EpisodesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "episodes_total",
			Help:      "Completed training episodes",
		}),
		StepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "steps_total",
			Help:      "Training steps by exploration mode",
		}, []string{"mode"}),
		EpisodeReward: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "episode_reward",
			Help:      "Total reward per training episode",
			Buckets:   prometheus.LinearBuckets(-10, 2, 11),
		}),
		ReplaysTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "entries_total",
			Help:      "Replayed log entries by result",
		}, []string{"result"}),
		DecisionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "decisions_total",
			Help:      "Serving decisions by action",
		}, []string{"action"}),
		DecisionConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "decision_confidence",
			Help:      "Confidence attached to serving decisions",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

// #endregion

// #region recorders

// ObserveEpisode records one finished training episode.
func (m *Metrics) ObserveEpisode(trace state.EpisodeTrace) {
	if m == nil {
		return
	}
	m.EpisodesTotal.Inc()
	for _, tr := range trace {
		m.StepsTotal.WithLabelValues(string(tr.Mode)).Inc()
	}
	m.EpisodeReward.Observe(trace.TotalReward())
}

// ObserveReplay records the outcome of replaying one entry.
func (m *Metrics) ObserveReplay(result string) {
	if m == nil {
		return
	}
	m.ReplaysTotal.WithLabelValues(result).Inc()
}

// ObserveDecision records one serving decision.
func (m *Metrics) ObserveDecision(action state.Action, confidence float64) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(string(action)).Inc()
	m.DecisionConfidence.Observe(confidence)
}

// #endregion
