package policy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

func st(step int) state.State {
	return state.State{CurrentStep: step, ObservedSignal: 1, PreviousAction: state.ActionWait}
}

// #region table-tests
func TestTable_UnseenStateWaits(t *testing.T) {
	p := NewTable()
	assert.Equal(t, state.ActionWait, p.SelectAction(st(0)))
	assert.Equal(t, 0.0, p.Confidence(st(0)))
}

func TestTable_SelectsHighestMean(t *testing.T) {
	p := NewTable()
	s := st(0)
	p.Update(s, state.ActionWait, 0.2)
	p.Update(s, state.ActionCommit, 1.0)
	p.Update(s, state.ActionCommit, 0.8)
	p.Update(s, state.ActionExplore, 0.5)

	assert.Equal(t, state.ActionCommit, p.SelectAction(s))
	assert.Equal(t, ActionStats{Total: 1.8, Count: 2}, p.Stats(s, state.ActionCommit))
	assert.Equal(t, 4, p.Visits(s))
	assert.Equal(t, uint64(4), p.Version())
}

func TestTable_TieBreaksCanonically(t *testing.T) {
	p := NewTable()
	s := st(0)
	p.Update(s, state.ActionCommit, 1.0)
	p.Update(s, state.ActionExplore, 1.0)
	assert.Equal(t, state.ActionExplore, p.SelectAction(s))

	p.Update(s, state.ActionWait, 1.0)
	assert.Equal(t, state.ActionWait, p.SelectAction(s))
}

func TestTable_SnapshotIsDetached(t *testing.T) {
	p := NewTable()
	p.Update(st(0), state.ActionWait, 1)
	snap := p.Snapshot()
	frozen := string(snap)

	p.Update(st(0), state.ActionWait, 1)
	p.Update(st(1), state.ActionCommit, -1)

	assert.Equal(t, frozen, string(snap))
	assert.NotEqual(t, frozen, string(p.Snapshot()))
}

func TestTable_SnapshotDeterministic(t *testing.T) {
	build := func() *Table {
		p := NewTable()
		for i := 0; i < 5; i++ {
			p.Update(st(i), state.Actions()[i%3], float64(i)/3)
		}
		return p
	}
	assert.Equal(t, string(build().Snapshot()), string(build().Snapshot()))
}

func TestTable_RestoreRoundTrip(t *testing.T) {
	p := NewTable()
	p.Update(st(0), state.ActionCommit, 2)
	p.Update(st(1), state.ActionExplore, 1)

	r, err := RestoreTable(p.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, string(p.Snapshot()), string(r.Snapshot()))
	assert.Equal(t, state.ActionCommit, r.SelectAction(st(0)))
	assert.Equal(t, p.Version(), r.Version())
}

func TestTable_RestoreEmpty(t *testing.T) {
	for _, snap := range []state.PolicySnapshot{nil, state.PolicySnapshot("null")} {
		r, err := RestoreTable(snap)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), r.Version())
	}
}

func TestTable_RestoreRejectsGarbage(t *testing.T) {
	_, err := RestoreTable(state.PolicySnapshot(`{not json`))
	assert.Error(t, err)

	key := state.KeyOf(st(0)).String()
	_, err = RestoreTable(state.PolicySnapshot(`{"version":1,"entries":{"` + key + `":{"JUMP":{"total":1,"count":1}}}}`))
	assert.ErrorIs(t, err, state.ErrSchemaViolation)
}

func TestTable_ConfidenceUsesCollaborator(t *testing.T) {
	p := NewTable(WithConsistency(FixedConsistency(0.5)))
	s := st(0)
	for i := 0; i < 4; i++ {
		p.Update(s, state.ActionWait, 1)
	}
	assert.Equal(t, 0.2, p.Confidence(s))

	bad := NewTable(WithConsistency(FixedConsistency(2)))
	bad.Update(s, state.ActionWait, 1)
	assert.Equal(t, 0.0, bad.Confidence(s), "invalid consistency yields no confidence")
}

// #endregion table-tests

// #region fixed-tests
func TestFixed(t *testing.T) {
	p, err := NewFixed(state.ActionWait, 0.5)
	require.NoError(t, err)

	before := p.Snapshot()
	p.Update(st(0), state.ActionCommit, 5)
	assert.Equal(t, state.ActionWait, p.SelectAction(st(3)))
	assert.Equal(t, 0.5, p.Confidence(st(3)))
	assert.True(t, before.Equal(p.Snapshot()))
	assert.JSONEq(t, `{"action":"WAIT"}`, string(before))
}

func TestFixed_Invalid(t *testing.T) {
	_, err := NewFixed("JUMP", 0.5)
	assert.ErrorIs(t, err, state.ErrSchemaViolation)
	_, err = NewFixed(state.ActionWait, 1.5)
	assert.ErrorIs(t, err, state.ErrInvalidInput)
	_, err = NewFixed(state.ActionWait, math.NaN())
	assert.ErrorIs(t, err, state.ErrInvalidInput)
}

func TestRestoreFixed(t *testing.T) {
	orig, err := NewFixed(state.ActionCommit, 0.5)
	require.NoError(t, err)

	p, err := RestoreFixed(orig.Snapshot(), 0.25)
	require.NoError(t, err)
	assert.Equal(t, state.ActionCommit, p.Action())
	assert.Equal(t, 0.25, p.Confidence(st(0)))

	_, err = RestoreFixed(state.PolicySnapshot(`{"action":"JUMP"}`), 0.5)
	assert.ErrorIs(t, err, state.ErrSchemaViolation)
	_, err = RestoreFixed(state.PolicySnapshot(`not json`), 0.5)
	assert.Error(t, err)
}

// #endregion fixed-tests

// #region kind-tests
func TestKindOf(t *testing.T) {
	fixed, err := NewFixed(state.ActionCommit, 0.5)
	require.NoError(t, err)
	table := NewTable()
	table.Update(st(0), state.ActionWait, 1)

	cases := map[string]struct {
		snap state.PolicySnapshot
		want string
	}{
		"fixed":       {fixed.Snapshot(), KindFixed},
		"table":       {table.Snapshot(), KindTable},
		"empty table": {NewTable().Snapshot(), KindTable},
		"empty":       {nil, ""},
		"unknown":     {state.PolicySnapshot(`{"weights":[1,2]}`), ""},
		"not json":    {state.PolicySnapshot(`nope`), ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.snap))
		})
	}
}

// #endregion kind-tests
