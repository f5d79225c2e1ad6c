// Package env provides the deterministic reference environment used by the
// CLI and tests.
package env

import (
	"math"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region config

// RewardMode shapes the reward of the rewarded action. Every mode is a pure
// function of the step and episode counters.
type RewardMode string

const (
	RewardNormal        RewardMode = "normal"        // +1.0
	RewardFlip          RewardMode = "flip"          // -1.0
	RewardOscillate     RewardMode = "oscillate"     // +1.0 on odd steps, -1.0 on even steps
	RewardZero          RewardMode = "zero"          // always 0.0
	RewardContradictory RewardMode = "contradictory" // +1.0 in odd episodes, -1.0 in even ones
)

// RewardModes lists every mode.
func RewardModes() []RewardMode {
	return []RewardMode{RewardNormal, RewardFlip, RewardOscillate, RewardZero, RewardContradictory}
}

// Valid reports whether m is a known mode.
func (m RewardMode) Valid() bool {
	for _, c := range RewardModes() {
		if c == m {
			return true
		}
	}
	return false
}

// Config describes a Signal environment.
type Config struct {
	Horizon        int          // steps until done; <= 0 never reports done
	Signal         float64      // constant observed signal
	RewardedAction state.Action // action that earns the mode's reward; everything else earns 0.0
	RewardMode     RewardMode   // empty means RewardNormal
	Stationary     bool         // repeat the reset observation every step
	// PartialObservability hides the observed signal in every stepped
	// observation. The field reads 0 and is listed in the step's Info.
	PartialObservability bool
}

// DefaultConfig is the quick-run environment: three steps, WAIT rewarded.
func DefaultConfig() Config {
	return Config{
		Horizon:        3,
		Signal:         1.0,
		RewardedAction: state.ActionWait,
		RewardMode:     RewardNormal,
	}
}

// #endregion config

// #region signal

// Signal is a deterministic environment: one action is rewarded, the rest are
// not, and the episode ends after Horizon steps. Accumulated reward is kept
// inside the state's legal range.
type Signal struct {
	cfg      Config
	steps    int
	episodes int
	total    float64
	calls    int
}

// NewSignal returns an environment ready for Reset.
func NewSignal(cfg Config) *Signal {
	if !cfg.RewardedAction.Valid() {
		cfg.RewardedAction = state.ActionWait
	}
	if !cfg.RewardMode.Valid() {
		cfg.RewardMode = RewardNormal
	}
	return &Signal{cfg: cfg}
}

// Reset returns the initial observation. The reset observation is never
// hidden.
func (e *Signal) Reset() state.State {
	e.steps = 0
	e.total = 0
	e.episodes++
	return e.initial()
}

// Step applies action and returns the next observation.
func (e *Signal) Step(action state.Action) state.StepResult {
	e.steps++
	e.calls++

	reward := 0.0
	if action == e.cfg.RewardedAction {
		reward = e.reward()
	}
	e.total = clampReward(e.total + reward)

	done := e.cfg.Horizon > 0 && e.steps >= e.cfg.Horizon
	next := state.State{
		CurrentStep:       e.steps,
		ObservedSignal:    e.cfg.Signal,
		PreviousAction:    action,
		AccumulatedReward: e.total,
	}
	if e.cfg.Stationary {
		next = e.initial()
	}
	info := map[string]any{"step": e.steps}
	if e.cfg.PartialObservability {
		next.ObservedSignal = 0
		info[state.InfoHiddenFields] = []string{state.FieldObservedSignal}
	}
	return state.StepResult{
		NextState: next,
		Reward:    reward,
		Done:      done,
		Info:      info,
	}
}

// reward is what the rewarded action earns at the current counters.
func (e *Signal) reward() float64 {
	switch e.cfg.RewardMode {
	case RewardFlip:
		return -1.0
	case RewardOscillate:
		if e.steps%2 == 0 {
			return -1.0
		}
		return 1.0
	case RewardZero:
		return 0.0
	case RewardContradictory:
		if e.episodes%2 == 0 {
			return -1.0
		}
		return 1.0
	default:
		return 1.0
	}
}

// Calls returns the number of Step calls since construction.
func (e *Signal) Calls() int {
	return e.calls
}

func (e *Signal) initial() state.State {
	return state.State{
		CurrentStep:       0,
		ObservedSignal:    e.cfg.Signal,
		PreviousAction:    state.ActionWait,
		AccumulatedReward: 0,
	}
}

// #endregion signal

// #region helpers
func clampReward(r float64) float64 {
	return math.Max(state.MinAccumulatedReward, math.Min(state.MaxAccumulatedReward, r))
}

// #endregion helpers
