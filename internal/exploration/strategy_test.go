package exploration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

func st(step int) state.State {
	return state.State{CurrentStep: step, ObservedSignal: 1.0, PreviousAction: state.ActionWait}
}

func TestDecide_Threshold(t *testing.T) {
	s := NewStrategy(2)
	s0 := st(0)

	assert.Equal(t, state.ModeExplore, s.Decide(s0, 0), "0 visits")
	s.RegisterState(s0)
	assert.Equal(t, state.ModeExplore, s.Decide(s0, 1), "1 visit")
	s.RegisterState(s0)
	assert.Equal(t, state.ModeExploit, s.Decide(s0, 2), "2 visits")
}

func TestDecide_DoesNotMutate(t *testing.T) {
	s := NewStrategy(DefaultMinVisits)
	s0 := st(0)
	for i := 0; i < 5; i++ {
		s.Decide(s0, i)
	}
	assert.Equal(t, 0, s.Visits(s0))
	assert.Equal(t, 0, s.DistinctStates())
}

func TestRegisterState_ValueEquality(t *testing.T) {
	s := NewStrategy(2)
	s.RegisterState(st(4))
	s.RegisterState(state.State{CurrentStep: 4, ObservedSignal: 1.0, PreviousAction: "WAIT"})

	assert.Equal(t, 2, s.Visits(st(4)))
	assert.Equal(t, 1, s.DistinctStates())
	assert.Equal(t, state.ModeExploit, s.Decide(st(4), 0))
}

func TestExploreAction_AlwaysWait(t *testing.T) {
	s := NewStrategy(2)
	for i := 0; i < 3; i++ {
		assert.Equal(t, state.ActionWait, s.ExploreAction(st(i)))
	}
}

func TestZeroThreshold_AlwaysExploit(t *testing.T) {
	s := NewStrategy(-3)
	assert.Equal(t, 0, s.MinVisitsRequired())
	assert.Equal(t, state.ModeExploit, s.Decide(st(0), 0))
}

func TestMerge_SumsCounts(t *testing.T) {
	a := NewStrategy(2)
	b := NewStrategy(2)
	a.RegisterState(st(0))
	b.RegisterState(st(0))
	b.RegisterState(st(1))

	a.Merge(b)
	a.Merge(nil)

	assert.Equal(t, 2, a.Visits(st(0)))
	assert.Equal(t, 1, a.Visits(st(1)))
	assert.Equal(t, 1, b.Visits(st(0)), "source untouched")
}
