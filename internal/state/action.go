package state

import "fmt"

// #region action
// Action is one of the three symbols the agent may emit. The set is closed.
type Action string

const (
	ActionWait    Action = "WAIT"
	ActionExplore Action = "EXPLORE"
	ActionCommit  Action = "COMMIT"
)

// Actions returns the action set in canonical order. Callers that need a
// deterministic tie-break iterate in this order.
func Actions() []Action {
	return []Action{ActionWait, ActionExplore, ActionCommit}
}

// Valid reports whether a is a member of the action set.
func (a Action) Valid() bool {
	switch a {
	case ActionWait, ActionExplore, ActionCommit:
		return true
	}
	return false
}

// ParseAction converts a raw symbol into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: invalid action %q", ErrSchemaViolation, s)
	}
	return a, nil
}

// #endregion action

// #region mode
// Mode records whether an action came from exploration or exploitation.
type Mode string

const (
	ModeExplore Mode = "EXPLORE"
	ModeExploit Mode = "EXPLOIT"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeExplore || m == ModeExploit
}

// #endregion mode
