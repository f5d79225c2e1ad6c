// Package fusion combines evidence signals deterministically. Severity keeps
// the worst case, confidence never rises and uncertainty never falls.
package fusion

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrIncompatible is returned when two signals of different types are fused.
var ErrIncompatible = errors.New("signal types cannot be fused")

// ErrInvalidSignal wraps range failures from Validate.
var ErrInvalidSignal = errors.New("invalid signal")

// ContradictionPenalty is added to the uncertainty of fused contradictions.
const ContradictionPenalty = 0.2

// #region types

// Type classifies a signal. Only signals of one type fuse.
type Type string

const (
	TypeObservation   Type = "observation"
	TypeAssertion     Type = "assertion"
	TypeContradiction Type = "contradiction"
)

// Provenance names where a signal came from.
type Provenance string

const (
	ProvenanceSensor Provenance = "sensor"
	ProvenanceHuman  Provenance = "human"
	ProvenanceSystem Provenance = "system"
)

// Signal is one piece of evidence.
type Signal struct {
	Type        Type       `json:"signal_type" yaml:"signal_type" validate:"oneof=observation assertion contradiction"`
	Provenance  Provenance `json:"provenance" yaml:"provenance" validate:"required"`
	Severity    int        `json:"severity" yaml:"severity" validate:"gte=0,lte=10"`
	Confidence  float64    `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
	Uncertainty float64    `json:"uncertainty" yaml:"uncertainty" validate:"gte=0,lte=1"`
}

// #endregion types

// #region validate

var signalValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the ranges of s. NaN fails every range.
func Validate(s Signal) error {
	if math.IsNaN(s.Confidence) || math.IsNaN(s.Uncertainty) {
		return fmt.Errorf("%w: NaN confidence or uncertainty", ErrInvalidSignal)
	}
	err := signalValidate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidSignal, strings.Join(parts, "; "))
}

// #endregion validate

// #region fuse

// Fuse combines two signals of the same type. Provenance is joined as
// "a+b" so the fused signal stays traceable. Contradictions add
// ContradictionPenalty to the uncertainty, capped at 1.
func Fuse(a, b Signal) (Signal, error) {
	if err := Validate(a); err != nil {
		return Signal{}, fmt.Errorf("fuse: %w", err)
	}
	if err := Validate(b); err != nil {
		return Signal{}, fmt.Errorf("fuse: %w", err)
	}
	if a.Type != b.Type {
		return Signal{}, fmt.Errorf("fuse: %w: %s and %s", ErrIncompatible, a.Type, b.Type)
	}

	out := Signal{
		Type:        a.Type,
		Provenance:  a.Provenance + "+" + b.Provenance,
		Severity:    max(a.Severity, b.Severity),
		Confidence:  math.Min(a.Confidence, b.Confidence),
		Uncertainty: math.Max(a.Uncertainty, b.Uncertainty),
	}
	if a.Type == TypeContradiction {
		out.Uncertainty = math.Min(1.0, out.Uncertainty+ContradictionPenalty)
	}
	return out, nil
}

// FuseAll folds signals left to right. One signal is returned as is after
// validation.
func FuseAll(signals []Signal) (Signal, error) {
	if len(signals) == 0 {
		return Signal{}, fmt.Errorf("fuse: %w: no signals", ErrInvalidSignal)
	}
	acc := signals[0]
	if err := Validate(acc); err != nil {
		return Signal{}, fmt.Errorf("fuse: signal 0: %w", err)
	}
	for i, s := range signals[1:] {
		next, err := Fuse(acc, s)
		if err != nil {
			return Signal{}, fmt.Errorf("signal %d: %w", i+1, err)
		}
		acc = next
	}
	return acc, nil
}

// #endregion fuse
