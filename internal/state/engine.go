// Package state implements the unified lifecycle state machine shared by
// epics, issues, and tasks.
//
// Items can carry either the modern state field (plus state_metadata) or the
// legacy single-status field. EffectiveState folds both representations into
// one value so old and migrated items can be queried uniformly.
package state

import (
	"fmt"
	"time"

	"github.com/trackdownhq/trackdown/internal/types"
)

// transitions is the static adjacency table of allowed transitions: one step
// forward along the progression, plus won't_do from any non-terminal state.
// Resolution states (done, won't_do) have no outgoing edges.
var transitions = map[types.UnifiedState][]types.UnifiedState{
	types.StatePlanning:            {types.StateActive, types.StateWontDo},
	types.StateActive:              {types.StateReadyForEngineering, types.StateWontDo},
	types.StateReadyForEngineering: {types.StateReadyForQA, types.StateWontDo},
	types.StateReadyForQA:          {types.StateReadyForDeployment, types.StateWontDo},
	types.StateReadyForDeployment:  {types.StateDone, types.StateWontDo},
	types.StateDone:                {},
	types.StateWontDo:              {},
}

// legacyStates maps legacy status strings to unified states. Anything not in
// the table derives to active: an unknown legacy status means the item was
// being worked in some fashion, and active is the safe middle of the road.
var legacyStates = map[string]types.UnifiedState{
	"planning":    types.StatePlanning,
	"todo":        types.StatePlanning,
	"backlog":     types.StatePlanning,
	"active":      types.StateActive,
	"open":        types.StateActive,
	"in_progress": types.StateActive,
	"completed":   types.StateDone,
	"done":        types.StateDone,
	"closed":      types.StateDone,
	"cancelled":   types.StateWontDo,
	"wont_do":     types.StateWontDo,
}

// automatable lists the transition edges a bot may drive. Entering the
// pipeline and leaving planning always require a human.
var automatable = map[types.UnifiedState]types.UnifiedState{
	types.StateReadyForEngineering: types.StateReadyForQA,
	types.StateReadyForQA:          types.StateReadyForDeployment,
	types.StateReadyForDeployment:  types.StateDone,
}

// EffectiveState returns the unified state used for display and filtering.
// The modern state field wins when present; otherwise the legacy status is
// derived through the fixed mapping.
func EffectiveState(item *types.Item) types.UnifiedState {
	if item.HasState() {
		return item.State
	}
	if s, ok := legacyStates[item.Status]; ok {
		return s
	}
	return types.StateActive
}

// FromLegacyStatus derives a unified state from a legacy status string alone.
func FromLegacyStatus(status string) types.UnifiedState {
	if s, ok := legacyStates[status]; ok {
		return s
	}
	return types.StateActive
}

// AllowedTransitions returns the states reachable from the given state.
func AllowedTransitions(from types.UnifiedState) []types.UnifiedState {
	return append([]types.UnifiedState(nil), transitions[from]...)
}

// TransitionResult reports whether a transition is legal and, when it is
// not, which transitions would have been.
type TransitionResult struct {
	Valid              bool                 `json:"valid"`
	Errors             []string             `json:"errors,omitempty"`
	AllowedTransitions []types.UnifiedState `json:"allowed_transitions"`
}

// ValidateTransition consults the adjacency table. It never mutates: callers
// apply a valid transition by constructing new state metadata and persisting
// the new state through the document store.
func ValidateTransition(from, to types.UnifiedState) TransitionResult {
	res := TransitionResult{AllowedTransitions: AllowedTransitions(from)}
	if !from.IsValid() {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown state: %s", from))
		return res
	}
	if !to.IsValid() {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown state: %s", to))
		return res
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			res.Valid = true
			return res
		}
	}
	if from.IsResolution() {
		res.Errors = append(res.Errors, fmt.Sprintf("%s is a resolution state and cannot transition", from))
	} else {
		res.Errors = append(res.Errors, fmt.Sprintf("invalid transition: %s -> %s", from, to))
	}
	return res
}

// MetadataResult reports state metadata completeness.
type MetadataResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateStateMetadata requires transitioned_at and transitioned_by.
// Incomplete metadata is flagged but never halts processing, so upstream
// policies can warn-but-allow.
func ValidateStateMetadata(md *types.StateMetadata) MetadataResult {
	res := MetadataResult{Valid: true}
	if md == nil {
		return MetadataResult{Errors: []string{"state_metadata is missing"}}
	}
	if md.TransitionedAt.IsZero() {
		res.Valid = false
		res.Errors = append(res.Errors, "transitioned_at is required")
	}
	if md.TransitionedBy == "" {
		res.Valid = false
		res.Errors = append(res.Errors, "transitioned_by is required")
	}
	return res
}

// CanAutomate returns true when a bot is allowed to move the item to
// targetState: the edge must be in the automatable allow-list and the current
// state metadata must be flagged automation-eligible.
func CanAutomate(item *types.Item, targetState types.UnifiedState) bool {
	if item.StateMetadata == nil || !item.StateMetadata.AutomationEligible {
		return false
	}
	next, ok := automatable[EffectiveState(item)]
	return ok && next == targetState
}

// Transition holds the inputs for applying a state change.
type Transition struct {
	To       types.UnifiedState
	Actor    string
	Reviewer string
	Reason   string
	Source   string // automation source, empty for human transitions
}

// Apply validates the transition from the item's effective state and returns
// a copy of the item carrying the new state and freshly synthesized
// metadata. The original item is untouched; the caller persists the copy and
// rebuilds the hierarchy cache. An illegal transition blocks the mutation
// with an error.
func Apply(item *types.Item, tr Transition, now time.Time) (*types.Item, error) {
	from := EffectiveState(item)
	check := ValidateTransition(from, tr.To)
	if !check.Valid {
		return nil, fmt.Errorf("cannot transition %s from %s to %s (allowed: %v)",
			item.ID, from, tr.To, check.AllowedTransitions)
	}
	if tr.Actor == "" {
		return nil, fmt.Errorf("transition requires an actor")
	}
	next := item.Clone()
	next.State = tr.To
	next.StateMetadata = &types.StateMetadata{
		TransitionedAt:   now,
		TransitionedBy:   tr.Actor,
		Reviewer:         tr.Reviewer,
		AutomationSource: tr.Source,
		TransitionReason: tr.Reason,
		PreviousState:    string(from),
	}
	next.UpdatedDate = now
	return next, nil
}
