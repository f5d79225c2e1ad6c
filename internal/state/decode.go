package state

import (
	"encoding/json"
	"fmt"
	"math"
)

// #region field-names
const (
	FieldCurrentStep       = "current_step"
	FieldObservedSignal    = "observed_signal"
	FieldPreviousAction    = "previous_action"
	FieldAccumulatedReward = "accumulated_reward"
)

// Fields lists the required state fields in canonical order.
func Fields() []string {
	return []string{FieldCurrentStep, FieldObservedSignal, FieldPreviousAction, FieldAccumulatedReward}
}

// #endregion field-names

// #region from-map
// FromMap builds a State from loosely typed input such as a decoded JSON
// object or a protobuf Struct. Every field must be present; the result is
// validated before it is returned.
func FromMap(m map[string]any) (State, error) {
	for _, f := range Fields() {
		if _, ok := m[f]; !ok {
			return State{}, fmt.Errorf("%w: missing state field: %s", ErrSchemaViolation, f)
		}
	}

	step, err := toFloat(m[FieldCurrentStep])
	if err != nil {
		return State{}, fmt.Errorf("%w: %s: %v", ErrSchemaViolation, FieldCurrentStep, err)
	}
	if step != math.Trunc(step) {
		return State{}, fmt.Errorf("%w: %s must be an integer, got %v", ErrSchemaViolation, FieldCurrentStep, step)
	}
	if step < 0 || step >= math.MaxInt64 {
		return State{}, fmt.Errorf("%w: %s out of range, got %v", ErrSchemaViolation, FieldCurrentStep, step)
	}
	signal, err := toFloat(m[FieldObservedSignal])
	if err != nil {
		return State{}, fmt.Errorf("%w: %s: %v", ErrSchemaViolation, FieldObservedSignal, err)
	}
	reward, err := toFloat(m[FieldAccumulatedReward])
	if err != nil {
		return State{}, fmt.Errorf("%w: %s: %v", ErrSchemaViolation, FieldAccumulatedReward, err)
	}
	raw, ok := m[FieldPreviousAction].(string)
	if !ok {
		return State{}, fmt.Errorf("%w: %s must be a string", ErrSchemaViolation, FieldPreviousAction)
	}
	action, err := ParseAction(raw)
	if err != nil {
		return State{}, err
	}

	s := State{
		CurrentStep:       int(step),
		ObservedSignal:    signal,
		PreviousAction:    action,
		AccumulatedReward: reward,
	}
	if err := Validate(s); err != nil {
		return State{}, err
	}
	return s, nil
}

// ToMap is the inverse of FromMap.
func ToMap(s State) map[string]any {
	return map[string]any{
		FieldCurrentStep:       float64(s.CurrentStep),
		FieldObservedSignal:    s.ObservedSignal,
		FieldPreviousAction:    string(s.PreviousAction),
		FieldAccumulatedReward: s.AccumulatedReward,
	}
}

// #endregion from-map

// #region helpers
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// #endregion helpers
