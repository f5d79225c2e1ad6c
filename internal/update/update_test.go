package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/decision-harness/internal/policy"
	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// recordingPolicy captures Update calls in order.
type recordingPolicy struct {
	calls []call
}

type call struct {
	state  state.State
	action state.Action
	reward float64
}

func (r *recordingPolicy) SelectAction(state.State) state.Action { return state.ActionWait }
func (r *recordingPolicy) Update(s state.State, a state.Action, reward float64) {
	r.calls = append(r.calls, call{s, a, reward})
}
func (r *recordingPolicy) Snapshot() state.PolicySnapshot { return state.PolicySnapshot(`{}`) }
func (r *recordingPolicy) Confidence(state.State) float64 { return 0 }

func st(step int) state.State {
	return state.State{CurrentStep: step, ObservedSignal: 1, PreviousAction: state.ActionWait, AccumulatedReward: float64(step)}
}

func trace(n int) state.EpisodeTrace {
	out := make(state.EpisodeTrace, n)
	for i := range out {
		out[i] = state.Transition{
			Step:      i,
			State:     st(i),
			Action:    state.Actions()[i%3],
			Reward:    float64(i) * 0.5,
			NextState: st(i + 1),
			Mode:      state.ModeExploit,
		}
	}
	return out
}

func TestUpdatePolicy_AppliesInOrder(t *testing.T) {
	p := &recordingPolicy{}
	tr := trace(4)

	require.NoError(t, NewLearner().UpdatePolicy(p, tr))

	require.Len(t, p.calls, 4)
	for i, c := range p.calls {
		assert.Equal(t, tr[i].State, c.state)
		assert.Equal(t, tr[i].Action, c.action)
		assert.Equal(t, tr[i].Reward, c.reward)
	}
}

func TestUpdatePolicy_EmptyTraceLeavesSnapshot(t *testing.T) {
	p := policy.NewTable()
	require.NoError(t, NewLearner().UpdatePolicy(p, trace(3)))
	before := p.Snapshot()

	require.NoError(t, NewLearner().UpdatePolicy(p, nil))
	require.NoError(t, NewLearner().UpdatePolicy(p, state.EpisodeTrace{}))

	assert.True(t, before.Equal(p.Snapshot()))
}

func TestUpdatePolicy_InvalidTraceAppliesNothing(t *testing.T) {
	p := &recordingPolicy{}
	tr := trace(3)
	tr[2].Action = "" // missing action on the last transition

	err := NewLearner().UpdatePolicy(p, tr)

	require.ErrorIs(t, err, state.ErrInvalidTrace)
	assert.Empty(t, p.calls, "no partial application")
}

func TestUpdatePolicy_InvalidStateInTrace(t *testing.T) {
	p := &recordingPolicy{}
	tr := trace(2)
	tr[0].State.PreviousAction = ""

	err := NewLearner().UpdatePolicy(p, tr)
	assert.ErrorIs(t, err, state.ErrInvalidTrace)
	assert.Empty(t, p.calls)
}

func TestUpdatePolicy_NilPolicy(t *testing.T) {
	err := NewLearner().UpdatePolicy(nil, trace(1))
	assert.ErrorIs(t, err, state.ErrInvalidInput)
}

func TestUpdatePolicy_Deterministic(t *testing.T) {
	a, b := policy.NewTable(), policy.NewTable()
	require.NoError(t, NewLearner().UpdatePolicy(a, trace(6)))
	require.NoError(t, NewLearner().UpdatePolicy(b, trace(6)))
	assert.Equal(t, string(a.Snapshot()), string(b.Snapshot()))
}
