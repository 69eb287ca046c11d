// Package types defines core data structures for the td work tracker.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the four work item variants. Every Item carries an
// explicit Kind instead of relying on which parent fields happen to be set.
type Kind string

// Work item kinds
const (
	KindEpic  Kind = "epic"
	KindIssue Kind = "issue"
	KindTask  Kind = "task"
	KindPR    Kind = "pr"
)

// Kinds lists all item kinds in hierarchy order.
var Kinds = []Kind{KindEpic, KindIssue, KindTask, KindPR}

// IsValid checks if the kind value is valid
func (k Kind) IsValid() bool {
	switch k {
	case KindEpic, KindIssue, KindTask, KindPR:
		return true
	}
	return false
}

// Prefix returns the ID prefix for the kind (EP, ISS, TSK, PR).
func (k Kind) Prefix() string {
	switch k {
	case KindEpic:
		return "EP"
	case KindIssue:
		return "ISS"
	case KindTask:
		return "TSK"
	case KindPR:
		return "PR"
	}
	return ""
}

// KindForID derives the kind from an item ID's prefix.
// Returns false if the prefix is not recognized.
func KindForID(id string) (Kind, bool) {
	hyphen := strings.Index(id, "-")
	if hyphen <= 0 {
		return "", false
	}
	switch id[:hyphen] {
	case "EP":
		return KindEpic, true
	case "ISS":
		return KindIssue, true
	case "TSK":
		return KindTask, true
	case "PR":
		return KindPR, true
	}
	return "", false
}

// UnifiedState is the modern lifecycle state shared by epics, issues, and
// tasks. Progression is forward-only; done and won't_do are terminal.
type UnifiedState string

// Unified lifecycle states
const (
	StatePlanning            UnifiedState = "planning"
	StateActive              UnifiedState = "active"
	StateReadyForEngineering UnifiedState = "ready_for_engineering"
	StateReadyForQA          UnifiedState = "ready_for_qa"
	StateReadyForDeployment  UnifiedState = "ready_for_deployment"
	StateDone                UnifiedState = "done"
	StateWontDo              UnifiedState = "won't_do"
)

// IsValid checks if the state value is valid
func (s UnifiedState) IsValid() bool {
	switch s {
	case StatePlanning, StateActive, StateReadyForEngineering,
		StateReadyForQA, StateReadyForDeployment, StateDone, StateWontDo:
		return true
	}
	return false
}

// IsResolution returns true for terminal states (done, won't_do).
func (s UnifiedState) IsResolution() bool {
	return s == StateDone || s == StateWontDo
}

// PRStatus is the review/merge state of a pull request, separate from the
// unified lifecycle. It also determines where the PR document lives on disk.
type PRStatus string

// Pull request statuses
const (
	PRStatusDraft    PRStatus = "draft"
	PRStatusOpen     PRStatus = "open"
	PRStatusReview   PRStatus = "review"
	PRStatusApproved PRStatus = "approved"
	PRStatusMerged   PRStatus = "merged"
	PRStatusClosed   PRStatus = "closed"
)

// IsValid checks if the PR status value is valid
func (s PRStatus) IsValid() bool {
	switch s {
	case PRStatusDraft, PRStatusOpen, PRStatusReview, PRStatusApproved, PRStatusMerged, PRStatusClosed:
		return true
	}
	return false
}

// IsTerminal returns true once a PR can no longer move forward (merged).
func (s PRStatus) IsTerminal() bool {
	return s == PRStatusMerged
}

// StateMetadata records how an item arrived at its current unified state.
// TransitionedAt and TransitionedBy are required whenever State is set.
type StateMetadata struct {
	TransitionedAt     time.Time `yaml:"transitioned_at" json:"transitioned_at"`
	TransitionedBy     string    `yaml:"transitioned_by" json:"transitioned_by"`
	Reviewer           string    `yaml:"reviewer,omitempty" json:"reviewer,omitempty"`
	AutomationSource   string    `yaml:"automation_source,omitempty" json:"automation_source,omitempty"`
	TransitionReason   string    `yaml:"transition_reason,omitempty" json:"transition_reason,omitempty"`
	PreviousState      string    `yaml:"previous_state,omitempty" json:"previous_state,omitempty"`
	AutomationEligible bool      `yaml:"automation_eligible,omitempty" json:"automation_eligible,omitempty"`
}

// Clone returns a deep copy of the metadata.
func (m *StateMetadata) Clone() *StateMetadata {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

// Item represents a trackable work item: an epic, issue, task, or pull
// request, discriminated by Kind. The Description holds the markdown body of
// the backing document; everything else round-trips through frontmatter.
type Item struct {
	ID          string `yaml:"id" json:"id"`
	Kind        Kind   `yaml:"-" json:"kind"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"-" json:"description,omitempty"`

	// Lifecycle: legacy single-status field and/or the modern unified state.
	// When State is set it is authoritative; Status is kept for backward
	// compatibility until migration removes the ambiguity.
	Status        string         `yaml:"status,omitempty" json:"status,omitempty"`
	State         UnifiedState   `yaml:"state,omitempty" json:"state,omitempty"`
	StateMetadata *StateMetadata `yaml:"state_metadata,omitempty" json:"state_metadata,omitempty"`

	// Parent references. EpicID is optional for issues, tasks, and PRs;
	// IssueID is required for tasks and PRs.
	EpicID  string `yaml:"epic_id,omitempty" json:"epic_id,omitempty"`
	IssueID string `yaml:"issue_id,omitempty" json:"issue_id,omitempty"`

	Priority int      `yaml:"priority" json:"priority"` // No omitempty: 0 is valid (P0/critical)
	Assignee string   `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	Tags     []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// Directed relationship edges to other items (any kind).
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	BlockedBy    []string `yaml:"blocked_by,omitempty" json:"blocked_by,omitempty"`
	Blocks       []string `yaml:"blocks,omitempty" json:"blocks,omitempty"`

	// PR-only review state
	PRStatus  PRStatus `yaml:"pr_status,omitempty" json:"pr_status,omitempty"`
	Reviewers []string `yaml:"reviewers,omitempty" json:"reviewers,omitempty"`
	Approvals []string `yaml:"approvals,omitempty" json:"approvals,omitempty"`

	CreatedDate time.Time `yaml:"created_date" json:"created_date"`
	UpdatedDate time.Time `yaml:"updated_date" json:"updated_date"`
}

// HasState returns true when the modern state field is authoritative.
func (i *Item) HasState() bool {
	return i.State != ""
}

// Clone returns a deep copy of the item. State engines and the migration
// engine operate on copies so callers decide what gets persisted.
func (i *Item) Clone() *Item {
	cp := *i
	cp.StateMetadata = i.StateMetadata.Clone()
	cp.Tags = append([]string(nil), i.Tags...)
	cp.Dependencies = append([]string(nil), i.Dependencies...)
	cp.BlockedBy = append([]string(nil), i.BlockedBy...)
	cp.Blocks = append([]string(nil), i.Blocks...)
	cp.Reviewers = append([]string(nil), i.Reviewers...)
	cp.Approvals = append([]string(nil), i.Approvals...)
	return &cp
}

// Validate checks if the item has valid field values
func (i *Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !i.Kind.IsValid() {
		return fmt.Errorf("invalid kind: %s", i.Kind)
	}
	if idKind, ok := KindForID(i.ID); !ok || idKind != i.Kind {
		return fmt.Errorf("id %s does not match kind %s (expected prefix %s-)", i.ID, i.Kind, i.Kind.Prefix())
	}
	if len(i.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if i.Priority < 0 || i.Priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", i.Priority)
	}
	if i.State != "" && !i.State.IsValid() {
		return fmt.Errorf("invalid state: %s", i.State)
	}
	if i.State != "" {
		if i.StateMetadata == nil {
			return fmt.Errorf("state_metadata is required when state is set")
		}
		if i.StateMetadata.TransitionedAt.IsZero() {
			return fmt.Errorf("state_metadata.transitioned_at is required when state is set")
		}
		if i.StateMetadata.TransitionedBy == "" {
			return fmt.Errorf("state_metadata.transitioned_by is required when state is set")
		}
	}
	switch i.Kind {
	case KindEpic:
		if i.EpicID != "" || i.IssueID != "" {
			return fmt.Errorf("epics cannot have parent references")
		}
	case KindIssue:
		if i.IssueID != "" {
			return fmt.Errorf("issues cannot have an issue_id parent")
		}
	case KindTask, KindPR:
		if i.IssueID == "" {
			return fmt.Errorf("%s items require an issue_id", i.Kind)
		}
	}
	if i.Kind == KindPR {
		if i.PRStatus == "" {
			return fmt.Errorf("pull requests require a pr_status")
		}
		if !i.PRStatus.IsValid() {
			return fmt.Errorf("invalid pr_status: %s", i.PRStatus)
		}
	} else if i.PRStatus != "" || len(i.Reviewers) > 0 || len(i.Approvals) > 0 {
		return fmt.Errorf("review fields are only valid on pull requests")
	}
	return nil
}

// SetDefaults applies default values for fields omitted in frontmatter.
// Priority is left alone: 0 is a valid value (P0/critical), so an absent
// priority cannot be distinguished from an explicit P0 after parsing.
func (i *Item) SetDefaults() {
	if i.Status == "" && i.State == "" {
		i.Status = "active"
	}
}
