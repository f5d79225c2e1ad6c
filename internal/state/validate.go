package state

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// #region validator
// stateValidate holds the struct-tag rules for State. Initialized in init()
// with the custom "finite" rule.
var stateValidate *validator.Validate

func init() {
	stateValidate = validator.New(validator.WithRequiredStructEnabled())
	_ = stateValidate.RegisterValidation("finite", validateFinite)
}

func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// #endregion validator

// #region validate-state
// Validate checks s against the state schema. Failures wrap ErrSchemaViolation.
func Validate(s State) error {
	err := stateValidate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(parts, "; "))
}

// #endregion validate-state

// #region validate-transition
// ValidateTransition checks every field of t. Failures wrap ErrInvalidTrace.
func ValidateTransition(t Transition) error {
	if t.Step < 0 {
		return fmt.Errorf("%w: step %d is negative", ErrInvalidTrace, t.Step)
	}
	if err := Validate(t.State); err != nil {
		return fmt.Errorf("%w: step %d state: %v", ErrInvalidTrace, t.Step, err)
	}
	if !t.Action.Valid() {
		return fmt.Errorf("%w: step %d action %q", ErrInvalidTrace, t.Step, t.Action)
	}
	if math.IsNaN(t.Reward) || math.IsInf(t.Reward, 0) {
		return fmt.Errorf("%w: step %d reward %v", ErrInvalidTrace, t.Step, t.Reward)
	}
	if err := Validate(t.NextState); err != nil {
		return fmt.Errorf("%w: step %d next_state: %v", ErrInvalidTrace, t.Step, err)
	}
	if !t.Mode.Valid() {
		return fmt.Errorf("%w: step %d mode %q", ErrInvalidTrace, t.Step, t.Mode)
	}
	return nil
}

// #endregion validate-transition
