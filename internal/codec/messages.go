package codec

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/decision-harness/internal/explain"
	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/uncertainty"
)

// #region field-names
const (
	fieldAction      = "action"
	fieldConfidence  = "confidence"
	fieldState       = "state"
	fieldKnownLimits = "known_limits"
	fieldClaim       = "claim"
	fieldDisclaimer  = "disclaimer"
	fieldUnseen      = "unseen_state_count"
	fieldPartial     = "partial_observation_count"
)

// #endregion field-names

// #region encode
func limitsMap(s uncertainty.Snapshot) map[string]any {
	return map[string]any{
		fieldUnseen:  float64(s.UnseenStateCount),
		fieldPartial: float64(s.PartialObservationCount),
	}
}

func encodeExplanation(e explain.Explanation) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldAction:      string(e.ChosenAction),
		fieldConfidence:  e.Confidence,
		fieldState:       state.ToMap(e.State),
		fieldKnownLimits: limitsMap(e.KnownLimits),
		fieldClaim:       e.Claim,
		fieldDisclaimer:  e.Disclaimer,
	})
}

func encodeLimits(s uncertainty.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(limitsMap(s))
}

// #endregion encode

// #region decode
func decodeLimits(m map[string]any) (uncertainty.Snapshot, error) {
	unseen, ok := m[fieldUnseen].(float64)
	if !ok {
		return uncertainty.Snapshot{}, fmt.Errorf("decode limits: missing %s", fieldUnseen)
	}
	partial, ok := m[fieldPartial].(float64)
	if !ok {
		return uncertainty.Snapshot{}, fmt.Errorf("decode limits: missing %s", fieldPartial)
	}
	return uncertainty.Snapshot{
		UnseenStateCount:        int(unseen),
		PartialObservationCount: uint64(partial),
	}, nil
}

func decodeExplanation(s *structpb.Struct) (explain.Explanation, error) {
	m := s.AsMap()

	raw, _ := m[fieldAction].(string)
	action, err := state.ParseAction(raw)
	if err != nil {
		return explain.Explanation{}, fmt.Errorf("decode decision: %w", err)
	}
	conf, ok := m[fieldConfidence].(float64)
	if !ok {
		return explain.Explanation{}, fmt.Errorf("decode decision: missing %s", fieldConfidence)
	}
	sm, ok := m[fieldState].(map[string]any)
	if !ok {
		return explain.Explanation{}, fmt.Errorf("decode decision: missing %s", fieldState)
	}
	st, err := state.FromMap(sm)
	if err != nil {
		return explain.Explanation{}, fmt.Errorf("decode decision: %w", err)
	}
	lm, _ := m[fieldKnownLimits].(map[string]any)
	limits, err := decodeLimits(lm)
	if err != nil {
		return explain.Explanation{}, fmt.Errorf("decode decision: %w", err)
	}
	claim, _ := m[fieldClaim].(string)
	disclaimer, _ := m[fieldDisclaimer].(string)

	return explain.Explanation{
		State:        st,
		ChosenAction: action,
		Confidence:   conf,
		KnownLimits:  limits,
		Claim:        claim,
		Disclaimer:   disclaimer,
	}, nil
}

// #endregion decode
