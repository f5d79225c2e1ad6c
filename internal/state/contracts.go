package state

// #region environment
// Environment is the opaque stepping function the harness drives.
type Environment interface {
	Reset() State
	Step(a Action) StepResult
}

// #endregion environment

// #region policy
// Policy is the mutable decision/update unit. Implementations need not be
// safe for concurrent use.
type Policy interface {
	SelectAction(s State) Action
	// Update folds one (state, action, reward) observation into the policy.
	Update(s State, a Action, reward float64)
	// Snapshot returns a detached copy of the learned state.
	Snapshot() PolicySnapshot
	// Confidence returns an evidence score in [0, 1].
	Confidence(s State) float64
}

// #endregion policy
