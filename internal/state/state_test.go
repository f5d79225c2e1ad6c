package state

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() State {
	return State{
		CurrentStep:       2,
		ObservedSignal:    1.0,
		PreviousAction:    ActionWait,
		AccumulatedReward: 2.0,
	}
}

// #region key-tests
func TestKeyOf_ValueEqualStatesShareKey(t *testing.T) {
	a := sampleState()
	b := State{CurrentStep: 2, ObservedSignal: 1.0, PreviousAction: "WAIT", AccumulatedReward: 2.0}
	assert.Equal(t, KeyOf(a), KeyOf(b))
}

func TestKeyOf_EveryFieldContributes(t *testing.T) {
	base := sampleState()
	variants := map[string]State{
		"step":   {CurrentStep: 3, ObservedSignal: 1.0, PreviousAction: ActionWait, AccumulatedReward: 2.0},
		"signal": {CurrentStep: 2, ObservedSignal: 1.5, PreviousAction: ActionWait, AccumulatedReward: 2.0},
		"action": {CurrentStep: 2, ObservedSignal: 1.0, PreviousAction: ActionCommit, AccumulatedReward: 2.0},
		"reward": {CurrentStep: 2, ObservedSignal: 1.0, PreviousAction: ActionWait, AccumulatedReward: 2.5},
	}
	for name, v := range variants {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, KeyOf(base), KeyOf(v))
		})
	}
}

func TestKeyOf_NegativeZero(t *testing.T) {
	a := sampleState()
	a.AccumulatedReward = 0
	b := a
	b.AccumulatedReward = math.Copysign(0, -1)
	assert.Equal(t, KeyOf(a), KeyOf(b))
}

func TestKey_TextRoundTrip(t *testing.T) {
	k := KeyOf(sampleState())
	text, err := k.MarshalText()
	require.NoError(t, err)
	assert.Len(t, text, 64)

	var back Key
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, k, back)
	assert.Error(t, back.UnmarshalText([]byte("abc")))
}

// #endregion key-tests

// #region validate-tests
func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*State)
		ok     bool
	}{
		{"valid", func(*State) {}, true},
		{"negative step", func(s *State) { s.CurrentStep = -1 }, false},
		{"unknown action", func(s *State) { s.PreviousAction = "JUMP" }, false},
		{"empty action", func(s *State) { s.PreviousAction = "" }, false},
		{"reward above range", func(s *State) { s.AccumulatedReward = 10.5 }, false},
		{"reward below range", func(s *State) { s.AccumulatedReward = -10.01 }, false},
		{"reward at bound", func(s *State) { s.AccumulatedReward = -10 }, true},
		{"nan signal", func(s *State) { s.ObservedSignal = math.NaN() }, false},
		{"inf signal", func(s *State) { s.ObservedSignal = math.Inf(1) }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := sampleState()
			tc.mutate(&s)
			err := Validate(s)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaViolation), "got %v", err)
		})
	}
}

func TestValidateTransition(t *testing.T) {
	good := Transition{Step: 0, State: sampleState(), Action: ActionWait, Reward: 1, NextState: sampleState(), Mode: ModeExplore}
	require.NoError(t, ValidateTransition(good))

	missingAction := good
	missingAction.Action = ""
	assert.ErrorIs(t, ValidateTransition(missingAction), ErrInvalidTrace)

	missingMode := good
	missingMode.Mode = ""
	assert.ErrorIs(t, ValidateTransition(missingMode), ErrInvalidTrace)

	badReward := good
	badReward.Reward = math.NaN()
	assert.ErrorIs(t, ValidateTransition(badReward), ErrInvalidTrace)

	badNext := good
	badNext.NextState.PreviousAction = ""
	assert.ErrorIs(t, ValidateTransition(badNext), ErrInvalidTrace)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("COMMIT")
	require.NoError(t, err)
	assert.Equal(t, ActionCommit, a)

	_, err = ParseAction("commit")
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

// #endregion validate-tests

// #region from-map-tests
func TestFromMap(t *testing.T) {
	s, err := FromMap(ToMap(sampleState()))
	require.NoError(t, err)
	assert.Equal(t, sampleState(), s)
}

func TestFromMap_MissingField(t *testing.T) {
	for _, f := range Fields() {
		t.Run(f, func(t *testing.T) {
			m := ToMap(sampleState())
			delete(m, f)
			_, err := FromMap(m)
			require.ErrorIs(t, err, ErrSchemaViolation)
			assert.Contains(t, err.Error(), f)
		})
	}
}

func TestFromMap_WrongTypes(t *testing.T) {
	m := ToMap(sampleState())
	m[FieldCurrentStep] = 1.5
	_, err := FromMap(m)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	m = ToMap(sampleState())
	m[FieldPreviousAction] = 3
	_, err = FromMap(m)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	m = ToMap(sampleState())
	m[FieldObservedSignal] = "high"
	_, err = FromMap(m)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestFromMap_StepOutOfRange(t *testing.T) {
	for _, step := range []float64{1e19, math.MaxInt64, -3} {
		m := ToMap(sampleState())
		m[FieldCurrentStep] = step
		_, err := FromMap(m)
		require.ErrorIs(t, err, ErrSchemaViolation)
		assert.Contains(t, err.Error(), "current_step out of range")
		assert.NotContains(t, err.Error(), "-9223372036854775808")
	}
}

// #endregion from-map-tests

// #region entry-tests
func TestLogEntry_CloneDoesNotAlias(t *testing.T) {
	e := LogEntry{
		EpisodeID:      1,
		PolicySnapshot: PolicySnapshot(`{"version":1}`),
		EpisodeTrace:   EpisodeTrace{{Step: 0, State: sampleState(), Action: ActionWait, Reward: 1, NextState: sampleState(), Mode: ModeExplore}},
	}
	c := e.Clone()
	e.PolicySnapshot[2] = 'X'
	e.EpisodeTrace[0].Reward = 99

	assert.Equal(t, `{"version":1}`, string(c.PolicySnapshot))
	assert.Equal(t, 1.0, c.EpisodeTrace[0].Reward)
}

func TestLogEntry_JSONFieldNames(t *testing.T) {
	e := LogEntry{
		EpisodeID:      0,
		PolicySnapshot: PolicySnapshot(`{}`),
		EpisodeTrace:   EpisodeTrace{{Step: 0, State: sampleState(), Action: ActionWait, Reward: 1, NextState: sampleState(), Mode: ModeExploit}},
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "episode_id")
	assert.Contains(t, raw, "policy_snapshot")
	trace := raw["episode_trace"].([]any)
	require.Len(t, trace, 1)
	tr := trace[0].(map[string]any)
	for _, f := range []string{"step", "state", "action", "reward", "next_state", "mode"} {
		assert.Contains(t, tr, f)
	}
	assert.Equal(t, "EXPLOIT", tr["mode"])

	var back LogEntry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e, back)
}

func TestEpisodeTrace_TotalReward(t *testing.T) {
	tr := EpisodeTrace{{Reward: 1}, {Reward: 0.5}, {Reward: -0.25}}
	assert.Equal(t, 1.25, tr.TotalReward())
	assert.Equal(t, 3, tr.Len())
}

// #endregion entry-tests
