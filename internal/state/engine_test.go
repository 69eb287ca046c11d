package state_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackdownhq/trackdown/internal/state"
	"github.com/trackdownhq/trackdown/internal/types"
)

func TestEffectiveState(t *testing.T) {
	tests := []struct {
		name string
		item types.Item
		want types.UnifiedState
	}{
		{
			name: "modern state wins over legacy status",
			item: types.Item{Status: "open", State: types.StateReadyForQA},
			want: types.StateReadyForQA,
		},
		{name: "legacy todo", item: types.Item{Status: "todo"}, want: types.StatePlanning},
		{name: "legacy backlog", item: types.Item{Status: "backlog"}, want: types.StatePlanning},
		{name: "legacy in_progress", item: types.Item{Status: "in_progress"}, want: types.StateActive},
		{name: "legacy open", item: types.Item{Status: "open"}, want: types.StateActive},
		{name: "legacy completed", item: types.Item{Status: "completed"}, want: types.StateDone},
		{name: "legacy closed", item: types.Item{Status: "closed"}, want: types.StateDone},
		{name: "legacy cancelled", item: types.Item{Status: "cancelled"}, want: types.StateWontDo},
		{name: "legacy wont_do", item: types.Item{Status: "wont_do"}, want: types.StateWontDo},
		{name: "unknown status defaults to active", item: types.Item{Status: "weird"}, want: types.StateActive},
		{name: "empty status defaults to active", item: types.Item{}, want: types.StateActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, state.EffectiveState(&tt.item))
		})
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  types.UnifiedState
		to    types.UnifiedState
		valid bool
	}{
		{"planning to active", types.StatePlanning, types.StateActive, true},
		{"active to ready_for_engineering", types.StateActive, types.StateReadyForEngineering, true},
		{"ready_for_engineering to ready_for_qa", types.StateReadyForEngineering, types.StateReadyForQA, true},
		{"ready_for_qa to ready_for_deployment", types.StateReadyForQA, types.StateReadyForDeployment, true},
		{"ready_for_deployment to done", types.StateReadyForDeployment, types.StateDone, true},
		{"skip is rejected", types.StatePlanning, types.StateReadyForQA, false},
		{"backward is rejected", types.StateReadyForQA, types.StateActive, false},
		{"done is terminal", types.StateDone, types.StateActive, false},
		{"wontdo is terminal", types.StateWontDo, types.StatePlanning, false},
		{"wontdo from planning", types.StatePlanning, types.StateWontDo, true},
		{"wontdo from ready_for_deployment", types.StateReadyForDeployment, types.StateWontDo, true},
		{"unknown target", types.StateActive, types.UnifiedState("bogus"), false},
		{"unknown source", types.UnifiedState("bogus"), types.StateActive, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := state.ValidateTransition(tt.from, tt.to)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.NotEmpty(t, res.Errors)
			}
		})
	}
}

func TestValidateTransitionReportsAllowed(t *testing.T) {
	res := state.ValidateTransition(types.StateActive, types.StateDone)
	require.False(t, res.Valid)
	assert.ElementsMatch(t,
		[]types.UnifiedState{types.StateReadyForEngineering, types.StateWontDo},
		res.AllowedTransitions)
}

func TestApply(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := &types.Item{
		ID:     "ISS-0001",
		Kind:   types.KindIssue,
		Title:  "Legacy issue",
		Status: "open",
	}

	next, err := state.Apply(item, state.Transition{
		To:     types.StateReadyForEngineering,
		Actor:  "alice",
		Reason: "design signed off",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, types.StateReadyForEngineering, next.State)
	require.NotNil(t, next.StateMetadata)
	assert.Equal(t, "alice", next.StateMetadata.TransitionedBy)
	assert.Equal(t, now, next.StateMetadata.TransitionedAt)
	assert.Equal(t, "active", next.StateMetadata.PreviousState)
	assert.Equal(t, "design signed off", next.StateMetadata.TransitionReason)

	// Original untouched: the caller decides what to persist.
	assert.Empty(t, item.State)
	assert.Nil(t, item.StateMetadata)
}

func TestApplyRejectsIllegalTransition(t *testing.T) {
	item := &types.Item{ID: "ISS-0001", Kind: types.KindIssue, Status: "open"}
	_, err := state.Apply(item, state.Transition{To: types.StateDone, Actor: "alice"}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot transition ISS-0001")
}

func TestApplyRequiresActor(t *testing.T) {
	item := &types.Item{ID: "ISS-0001", Kind: types.KindIssue, Status: "open"}
	_, err := state.Apply(item, state.Transition{To: types.StateReadyForEngineering}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actor")
}

func TestValidateStateMetadata(t *testing.T) {
	now := time.Now()

	res := state.ValidateStateMetadata(nil)
	assert.False(t, res.Valid)

	res = state.ValidateStateMetadata(&types.StateMetadata{TransitionedAt: now})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "transitioned_by is required")

	res = state.ValidateStateMetadata(&types.StateMetadata{TransitionedBy: "alice"})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "transitioned_at is required")

	res = state.ValidateStateMetadata(&types.StateMetadata{TransitionedAt: now, TransitionedBy: "alice"})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestCanAutomate(t *testing.T) {
	eligible := &types.StateMetadata{
		TransitionedAt:     time.Now(),
		TransitionedBy:     "alice",
		AutomationEligible: true,
	}

	t.Run("qa tail edges are automatable when flagged", func(t *testing.T) {
		item := &types.Item{State: types.StateReadyForQA, StateMetadata: eligible}
		assert.True(t, state.CanAutomate(item, types.StateReadyForDeployment))
	})

	t.Run("leaving planning always needs a human", func(t *testing.T) {
		item := &types.Item{State: types.StatePlanning, StateMetadata: eligible}
		assert.False(t, state.CanAutomate(item, types.StateActive))
	})

	t.Run("ineligible metadata blocks automation", func(t *testing.T) {
		item := &types.Item{
			State: types.StateReadyForQA,
			StateMetadata: &types.StateMetadata{
				TransitionedAt: time.Now(),
				TransitionedBy: "alice",
			},
		}
		assert.False(t, state.CanAutomate(item, types.StateReadyForDeployment))
	})

	t.Run("wrong target blocks automation", func(t *testing.T) {
		item := &types.Item{State: types.StateReadyForQA, StateMetadata: eligible}
		assert.False(t, state.CanAutomate(item, types.StateDone))
	})
}
