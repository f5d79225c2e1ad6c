// Package confidence scores how well-supported a decision is. The score is
// evidence-weighted, not a probability of being correct: it saturates with
// experience and degrades linearly with reward inconsistency.
package confidence

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region constants

// MaxVisitsForFullConfidence is the visit count at which the visit factor
// saturates.
const MaxVisitsForFullConfidence = 10.0

// #endregion

// #region compute

// Compute maps (visits, reward consistency) to a score in [0, 1], rounded to
// three decimals. Out-of-range arguments are rejected, never clamped.
func Compute(stateVisits int, rewardConsistency float64) (float64, error) {
	if stateVisits < 0 {
		return 0, fmt.Errorf("%w: state_visits must be non-negative, got %d", state.ErrInvalidInput, stateVisits)
	}
	if math.IsNaN(rewardConsistency) || rewardConsistency < 0 || rewardConsistency > 1 {
		return 0, fmt.Errorf("%w: reward_consistency must be in [0.0, 1.0], got %v", state.ErrInvalidInput, rewardConsistency)
	}
	if stateVisits == 0 {
		return 0, nil
	}

	visitFactor := math.Min(float64(stateVisits)/MaxVisitsForFullConfidence, 1.0)
	return round3(visitFactor * rewardConsistency), nil
}

// #endregion

// #region helpers
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// #endregion
