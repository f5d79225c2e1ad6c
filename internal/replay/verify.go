package replay

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region types

// PolicyFactory rebuilds the policy that produced an episode from the
// snapshot logged for the previous episode. prev is nil for the first entry.
type PolicyFactory func(prev state.PolicySnapshot) (state.Policy, error)

// Status labels for EntryResult.
const (
	StatusMatched  = "matched"
	StatusDiverged = "diverged"
	StatusError    = "error"
)

// EntryResult captures the outcome of replaying one log entry.
type EntryResult struct {
	EpisodeID  int
	Status     string
	Steps      int // actions reproduced before stopping
	Divergence *DivergenceError
	Err        error
}

// Summary provides aggregate stats from a verification run.
type Summary struct {
	Total    int
	Matched  int
	Diverged int
	Errors   int
	// FirstDivergence is nil when every entry matched.
	FirstDivergence *DivergenceError
}

// OK reports whether every entry replayed cleanly.
func (s Summary) OK() bool {
	return s.Total == s.Matched
}

// #endregion types

// #region verify

// VerifyLog replays every entry. Entry N runs against a policy rebuilt from
// entry N-1's snapshot, which is the policy state that chose episode N's
// actions. A divergent entry does not stop the remaining entries.
func VerifyLog(env state.Environment, entries []state.LogEntry, factory PolicyFactory, opts ...Option) []EntryResult {
	return VerifyLogFrom(env, nil, entries, factory, opts...)
}

// VerifyLogFrom is VerifyLog for a log that continues an earlier one: the
// first entry runs against a policy rebuilt from initial.
func VerifyLogFrom(env state.Environment, initial state.PolicySnapshot, entries []state.LogEntry, factory PolicyFactory, opts ...Option) []EntryResult {
	results := make([]EntryResult, 0, len(entries))
	prev := initial

	for _, entry := range entries {
		res := EntryResult{EpisodeID: entry.EpisodeID}

		p, err := factory(prev.Clone())
		if err != nil {
			res.Status = StatusError
			res.Err = fmt.Errorf("rebuild policy for episode %d: %w", entry.EpisodeID, err)
			results = append(results, res)
			prev = entry.PolicySnapshot
			continue
		}

		actions, err := NewEngine(env, p, opts...).Replay(entry)
		res.Steps = len(actions)
		var derr *DivergenceError
		switch {
		case err == nil:
			res.Status = StatusMatched
		case errors.As(err, &derr):
			res.Status = StatusDiverged
			res.Divergence = derr
		default:
			res.Status = StatusError
			res.Err = err
		}
		results = append(results, res)
		prev = entry.PolicySnapshot
	}
	return results
}

// Summarize computes aggregate stats from verification results.
func Summarize(results []EntryResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusMatched:
			s.Matched++
		case StatusDiverged:
			s.Diverged++
			if s.FirstDivergence == nil {
				s.FirstDivergence = r.Divergence
			}
		case StatusError:
			s.Errors++
		}
	}
	return s
}

// #endregion verify
