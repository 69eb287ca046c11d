package hierarchy

import (
	"context"
	"fmt"

	"github.com/trackdownhq/trackdown/internal/graph"
	"github.com/trackdownhq/trackdown/internal/state"
	"github.com/trackdownhq/trackdown/internal/telemetry"
	"github.com/trackdownhq/trackdown/internal/types"
)

// Problem codes reported by ValidateRelationships.
const (
	CodeOrphanedEpic       = "orphaned_epic"
	CodeOrphanedIssue      = "orphaned_issue"
	CodeEpicMismatch       = "epic_mismatch"
	CodeCircularDependency = "circular_dependency"
	CodeIncompleteMetadata = "incomplete_state_metadata"
)

// Problem is one validation finding.
type Problem struct {
	Code    string   `json:"code"`
	ItemID  string   `json:"item_id,omitempty"`
	Message string   `json:"message"`
	Cycle   []string `json:"cycle,omitempty"`
}

// ValidationResult enumerates every structural problem found. Errors make
// the result invalid; warnings are inconsistencies worth fixing but
// non-fatal.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Errors   []Problem `json:"errors"`
	Warnings []Problem `json:"warnings"`
}

// ValidateRelationships scans all items for orphaned parent references
// (errors), epic mismatches between a task/PR and its parent issue
// (warnings), circular dependencies (errors), and incomplete state metadata
// (warnings). It is a read-only diagnostic: it enumerates every problem
// rather than stopping at the first, and it never mutates.
func (r *Resolver) ValidateRelationships(ctx context.Context) (*ValidationResult, error) {
	if err := r.cache.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	done := telemetry.TimeOperation(ctx, "validate_relationships")
	defer done()

	result := &ValidationResult{Errors: []Problem{}, Warnings: []Problem{}}

	for _, item := range r.allSorted() {
		r.checkParentRefs(item, result)
		r.checkStateMetadata(item, result)
	}

	for _, cycle := range graph.DetectCycles(r.cache.AllItems()) {
		result.Errors = append(result.Errors, Problem{
			Code:    CodeCircularDependency,
			ItemID:  cycle[0],
			Message: fmt.Sprintf("circular dependency: %v", cycle),
			Cycle:   cycle,
		})
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// checkParentRefs verifies referential integrity of epic_id/issue_id.
// A reference to a missing item is an error. A task/PR whose epic_id
// disagrees with its parent issue's epic_id is inconsistent but non-fatal,
// so it is a warning.
func (r *Resolver) checkParentRefs(item *types.Item, result *ValidationResult) {
	if item.EpicID != "" && r.cache.Get(types.KindEpic, item.EpicID) == nil {
		result.Errors = append(result.Errors, Problem{
			Code:    CodeOrphanedEpic,
			ItemID:  item.ID,
			Message: fmt.Sprintf("%s references missing epic %s", item.ID, item.EpicID),
		})
	}
	if item.IssueID == "" {
		return
	}
	parent := r.cache.Get(types.KindIssue, item.IssueID)
	if parent == nil {
		result.Errors = append(result.Errors, Problem{
			Code:    CodeOrphanedIssue,
			ItemID:  item.ID,
			Message: fmt.Sprintf("%s references missing issue %s", item.ID, item.IssueID),
		})
		return
	}
	if item.EpicID != "" && parent.EpicID != "" && item.EpicID != parent.EpicID {
		result.Warnings = append(result.Warnings, Problem{
			Code:   CodeEpicMismatch,
			ItemID: item.ID,
			Message: fmt.Sprintf("%s has epic %s but its parent issue %s belongs to epic %s",
				item.ID, item.EpicID, parent.ID, parent.EpicID),
		})
	}
}

// checkStateMetadata flags items whose state is set but whose metadata is
// incomplete. Warn-but-allow: the state engine rejects such metadata at
// transition time, but existing documents still load and query.
func (r *Resolver) checkStateMetadata(item *types.Item, result *ValidationResult) {
	if !item.HasState() {
		return
	}
	md := state.ValidateStateMetadata(item.StateMetadata)
	for _, e := range md.Errors {
		result.Warnings = append(result.Warnings, Problem{
			Code:    CodeIncompleteMetadata,
			ItemID:  item.ID,
			Message: fmt.Sprintf("%s: %s", item.ID, e),
		})
	}
}
