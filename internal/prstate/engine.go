// Package prstate implements the pull request review/merge state machine.
//
// PR status is separate from the unified lifecycle: transitions are gated by
// approval counts, and each status implies a required storage location. The
// engine computes target locations; the document store performs the moves.
package prstate

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/trackdownhq/trackdown/internal/types"
)

// transitions is the fixed PR status transition table. Merged is terminal;
// closed PRs can only be reopened.
var transitions = map[types.PRStatus][]types.PRStatus{
	types.PRStatusDraft:    {types.PRStatusOpen, types.PRStatusClosed},
	types.PRStatusOpen:     {types.PRStatusReview, types.PRStatusClosed},
	types.PRStatusReview:   {types.PRStatusApproved, types.PRStatusOpen, types.PRStatusClosed},
	types.PRStatusApproved: {types.PRStatusMerged, types.PRStatusReview, types.PRStatusClosed},
	types.PRStatusMerged:   {},
	types.PRStatusClosed:   {types.PRStatusOpen},
}

// happyPath is the single-step recommendation chain. Closed is off the happy
// path on purpose: reopening is an explicit human decision.
var happyPath = map[types.PRStatus]types.PRStatus{
	types.PRStatusDraft:    types.PRStatusOpen,
	types.PRStatusOpen:     types.PRStatusReview,
	types.PRStatusReview:   types.PRStatusApproved,
	types.PRStatusApproved: types.PRStatusMerged,
}

// statusDirs maps each status to its storage subpath relative to the PR root.
var statusDirs = map[types.PRStatus]string{
	types.PRStatusDraft:    "draft",
	types.PRStatusOpen:     filepath.Join("active", "open"),
	types.PRStatusReview:   filepath.Join("active", "review"),
	types.PRStatusApproved: filepath.Join("active", "approved"),
	types.PRStatusMerged:   "merged",
	types.PRStatusClosed:   "closed",
}

// IsValidStatusTransition is the bare table lookup, with none of the
// approval business rules applied.
func IsValidStatusTransition(from, to types.PRStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from the given status.
func AllowedTransitions(from types.PRStatus) []types.PRStatus {
	return append([]types.PRStatus(nil), transitions[from]...)
}

// Result reports a validated PR transition. Errors block the transition;
// warnings surface approval shortfalls without blocking.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidateStatusTransition checks the transition table and the approval
// rules for the given PR:
//
//   - targeting approved with zero approvals is a blocking error
//   - targeting approved with some but not all reviewer approvals is valid
//     with a remaining-count warning
//   - targeting merged from anything but approved fails the table lookup and
//     additionally reports that the PR must be approved before merging
func ValidateStatusTransition(pr *types.Item, to types.PRStatus) Result {
	var res Result
	if !to.IsValid() {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown pr_status: %s", to))
		return res
	}
	if !IsValidStatusTransition(pr.PRStatus, to) {
		res.Errors = append(res.Errors, fmt.Sprintf("invalid transition: %s -> %s (allowed: %v)",
			pr.PRStatus, to, AllowedTransitions(pr.PRStatus)))
		if to == types.PRStatusMerged && pr.PRStatus != types.PRStatusApproved {
			res.Errors = append(res.Errors, "PR must be approved before merging")
		}
		return res
	}

	if to == types.PRStatusApproved {
		missing := len(pr.Reviewers) - len(pr.Approvals)
		switch {
		case len(pr.Reviewers) > 0 && len(pr.Approvals) == 0:
			res.Errors = append(res.Errors, "PR has no approvals")
			return res
		case missing > 0:
			res.Warnings = append(res.Warnings, fmt.Sprintf("needs %d more approvals", missing))
		}
	}

	res.Valid = true
	return res
}

// StatusDirectory returns the storage directory a PR with the given status
// must live in, under baseDir. The document store honors this mapping
// whenever pr_status changes; location and status must never diverge.
func StatusDirectory(status types.PRStatus, baseDir string) string {
	dir, ok := statusDirs[status]
	if !ok {
		dir = statusDirs[types.PRStatusDraft]
	}
	return filepath.Join(baseDir, dir)
}

// NextRecommendedStatus suggests the single next step along the happy path
// (draft -> open -> review -> approved -> merged). Returns false once there
// is nothing further to recommend.
func NextRecommendedStatus(pr *types.Item) (types.PRStatus, bool) {
	next, ok := happyPath[pr.PRStatus]
	return next, ok
}

// AutoStatusTransition returns approved when every reviewer has approved the
// PR, and false otherwise. It is a read-only suggestion: callers decide
// whether to apply it.
func AutoStatusTransition(pr *types.Item) (types.PRStatus, bool) {
	if pr.PRStatus != types.PRStatusReview {
		return "", false
	}
	if len(pr.Reviewers) == 0 {
		return "", false
	}
	approved := make(map[string]bool, len(pr.Approvals))
	for _, a := range pr.Approvals {
		approved[a] = true
	}
	for _, r := range pr.Reviewers {
		if !approved[r] {
			return "", false
		}
	}
	return types.PRStatusApproved, true
}

// Apply validates the transition and returns a copy of the PR carrying the
// new status. The caller persists the copy, asks the document store to move
// the file into StatusDirectory(to), and rebuilds the cache.
func Apply(pr *types.Item, to types.PRStatus, now time.Time) (*types.Item, error) {
	res := ValidateStatusTransition(pr, to)
	if !res.Valid {
		return nil, fmt.Errorf("cannot transition %s: %s", pr.ID, res.Errors[0])
	}
	next := pr.Clone()
	next.PRStatus = to
	next.UpdatedDate = now
	return next, nil
}
