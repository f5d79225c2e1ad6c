package state

import "errors"

// #region errors
var (
	// ErrSchemaViolation marks a State or Action that fails its structural or
	// range contract at a boundary crossing.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrInvalidInput marks out-of-range arguments to a pure computation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTrace marks a transition the learner refuses to apply.
	ErrInvalidTrace = errors.New("invalid trace")
)

// #endregion errors
