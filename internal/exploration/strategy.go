package exploration

import "github.com/danielpatrickdp/decision-harness/internal/state"

// #region constants

// DefaultMinVisits is the visit threshold below which a state is explored.
const DefaultMinVisits = 2

// #endregion

// #region strategy

// Strategy is the rule-based explore/exploit switch. No randomness: a state
// is explored until it has been registered MinVisitsRequired times.
type Strategy struct {
	minVisits int
	visits    map[state.Key]int
}

// NewStrategy creates a strategy with the given threshold. A threshold below
// zero is treated as zero (always exploit).
func NewStrategy(minVisitsRequired int) *Strategy {
	if minVisitsRequired < 0 {
		minVisitsRequired = 0
	}
	return &Strategy{
		minVisits: minVisitsRequired,
		visits:    make(map[state.Key]int),
	}
}

// MinVisitsRequired returns the configured threshold.
func (s *Strategy) MinVisitsRequired() int {
	return s.minVisits
}

// #endregion

// #region decide

// Decide returns ModeExplore while the state's visit count is below the
// threshold. It reads the counter but never changes it; step is accepted for
// the rule's signature and does not affect the outcome.
func (s *Strategy) Decide(st state.State, step int) state.Mode {
	if s.visits[state.KeyOf(st)] < s.minVisits {
		return state.ModeExplore
	}
	return state.ModeExploit
}

// ExploreAction is the deterministic exploration action: gather information
// without committing.
func (s *Strategy) ExploreAction(st state.State) state.Action {
	return state.ActionWait
}

// #endregion

// #region counters

// RegisterState records one visit to st.
func (s *Strategy) RegisterState(st state.State) {
	s.visits[state.KeyOf(st)]++
}

// Visits returns how many times st has been registered.
func (s *Strategy) Visits(st state.State) int {
	return s.visits[state.KeyOf(st)]
}

// DistinctStates returns the number of states with at least one visit.
func (s *Strategy) DistinctStates() int {
	return len(s.visits)
}

// Merge adds other's visit counts into s. Summation is order-independent, so
// independently collected counters combine deterministically.
func (s *Strategy) Merge(other *Strategy) {
	if other == nil {
		return
	}
	for k, n := range other.visits {
		s.visits[k] += n
	}
}

// #endregion
