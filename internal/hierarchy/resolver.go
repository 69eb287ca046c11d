// Package hierarchy answers parent/child/sibling/dependency queries over
// the hierarchy cache and validates relationship integrity.
//
// Every query goes through the cache's EnsureFresh first. Absence is an
// expected result for lookups: unknown IDs come back as nil values, never
// errors. Errors are reserved for cache rebuild failures.
package hierarchy

import (
	"context"
	"sort"

	"github.com/trackdownhq/trackdown/internal/cache"
	"github.com/trackdownhq/trackdown/internal/types"
)

// Resolver answers relationship queries against one injected cache.
type Resolver struct {
	cache *cache.Cache
}

// New creates a resolver over the given cache.
func New(c *cache.Cache) *Resolver {
	return &Resolver{cache: c}
}

// Cache exposes the underlying cache, mainly so mutating callers can
// trigger explicit rebuilds after a write.
func (r *Resolver) Cache() *cache.Cache {
	return r.cache
}

// EpicHierarchy is an epic plus everything attached to it.
type EpicHierarchy struct {
	Epic   *types.Item   `json:"epic"`
	Issues []*types.Item `json:"issues"`
	Tasks  []*types.Item `json:"tasks"`
	PRs    []*types.Item `json:"prs"`
}

// IssueHierarchy is an issue, its optional parent epic, and its children.
type IssueHierarchy struct {
	Issue *types.Item   `json:"issue"`
	Epic  *types.Item   `json:"epic,omitempty"`
	Tasks []*types.Item `json:"tasks"`
	PRs   []*types.Item `json:"prs"`
}

// TaskHierarchy is a task with its parent chain.
type TaskHierarchy struct {
	Task  *types.Item `json:"task"`
	Issue *types.Item `json:"issue,omitempty"`
	Epic  *types.Item `json:"epic,omitempty"`
}

// PRHierarchy is a pull request with its parent chain.
type PRHierarchy struct {
	PR    *types.Item `json:"pr"`
	Issue *types.Item `json:"issue,omitempty"`
	Epic  *types.Item `json:"epic,omitempty"`
}

// GetEpicHierarchy returns the epic and all issues, tasks, and PRs whose
// epic_id equals it, each sublist ordered by creation time ascending.
// Returns nil when the epic does not exist.
func (r *Resolver) GetEpicHierarchy(ctx context.Context, epicID string) (*EpicHierarchy, error) {
	if err := r.cache.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	epic := r.cache.Get(types.KindEpic, epicID)
	if epic == nil {
		return nil, nil
	}
	return &EpicHierarchy{
		Epic:   epic,
		Issues: r.childrenOf(types.KindIssue, epicID, byEpic),
		Tasks:  r.childrenOf(types.KindTask, epicID, byEpic),
		PRs:    r.childrenOf(types.KindPR, epicID, byEpic),
	}, nil
}

// GetIssueHierarchy returns the issue, its parent epic when one is set and
// exists (epic is optional, so a missing epic is tolerated), and its child
// tasks and PRs ordered by creation time.
func (r *Resolver) GetIssueHierarchy(ctx context.Context, issueID string) (*IssueHierarchy, error) {
	if err := r.cache.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	issue := r.cache.Get(types.KindIssue, issueID)
	if issue == nil {
		return nil, nil
	}
	h := &IssueHierarchy{
		Issue: issue,
		Tasks: r.childrenOf(types.KindTask, issueID, byIssue),
		PRs:   r.childrenOf(types.KindPR, issueID, byIssue),
	}
	if issue.EpicID != "" {
		h.Epic = r.cache.Get(types.KindEpic, issue.EpicID)
	}
	return h, nil
}

// GetTaskHierarchy returns the task and its parent chain, walking upward to
// the issue and epic. Missing parents are left nil.
func (r *Resolver) GetTaskHierarchy(ctx context.Context, taskID string) (*TaskHierarchy, error) {
	if err := r.cache.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	task := r.cache.Get(types.KindTask, taskID)
	if task == nil {
		return nil, nil
	}
	h := &TaskHierarchy{Task: task}
	r.resolveParents(task, &h.Issue, &h.Epic)
	return h, nil
}

// GetPRHierarchy returns the PR and its parent chain.
func (r *Resolver) GetPRHierarchy(ctx context.Context, prID string) (*PRHierarchy, error) {
	if err := r.cache.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	pr := r.cache.Get(types.KindPR, prID)
	if pr == nil {
		return nil, nil
	}
	h := &PRHierarchy{PR: pr}
	r.resolveParents(pr, &h.Issue, &h.Epic)
	return h, nil
}

// GetChildren returns the direct children of a parent: for an epic, every
// issue, task, and PR referencing it; for an issue, its tasks and PRs.
// Epics referenced by nothing and leaf kinds return an empty slice.
func (r *Resolver) GetChildren(ctx context.Context, parentID string, parentKind types.Kind) ([]*types.Item, error) {
	if err := r.cache.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	var children []*types.Item
	switch parentKind {
	case types.KindEpic:
		children = append(children, r.childrenOf(types.KindIssue, parentID, byEpic)...)
		children = append(children, r.childrenOf(types.KindTask, parentID, byEpic)...)
		children = append(children, r.childrenOf(types.KindPR, parentID, byEpic)...)
	case types.KindIssue:
		children = append(children, r.childrenOf(types.KindTask, parentID, byIssue)...)
		children = append(children, r.childrenOf(types.KindPR, parentID, byIssue)...)
	}
	return children, nil
}

// GetParent returns the immediate parent of a child: the issue for tasks
// and PRs, the epic for issues. Nil when the child has no parent reference
// or the parent is missing.
func (r *Resolver) GetParent(ctx context.Context, childID string, childKind types.Kind) (*types.Item, error) {
	if err := r.cache.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	child := r.cache.Get(childKind, childID)
	if child == nil {
		return nil, nil
	}
	switch childKind {
	case types.KindIssue:
		if child.EpicID != "" {
			return r.cache.Get(types.KindEpic, child.EpicID), nil
		}
	case types.KindTask, types.KindPR:
		if child.IssueID != "" {
			return r.cache.Get(types.KindIssue, child.IssueID), nil
		}
	}
	return nil, nil
}

// Related groups everything connected to one item.
type Related struct {
	Item         *types.Item   `json:"item"`
	Siblings     []*types.Item `json:"siblings"`
	Dependencies []*types.Item `json:"dependencies"`
	BlockedBy    []*types.Item `json:"blocked_by"`
	Blocks       []*types.Item `json:"blocks"`
	Dependents   []*types.Item `json:"dependents"`
}

// GetRelatedItems returns siblings (same immediate parent), the resolved
// dependency edges, and dependents: the reverse lookup of every item whose
// dependencies contain this ID. Nil when the item does not exist.
func (r *Resolver) GetRelatedItems(ctx context.Context, id string) (*Related, error) {
	if err := r.cache.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	item := r.cache.Lookup(id)
	if item == nil {
		return nil, nil
	}
	rel := &Related{
		Item:         item,
		Siblings:     r.siblingsOf(item),
		Dependencies: r.resolveIDs(item.Dependencies),
		BlockedBy:    r.resolveIDs(item.BlockedBy),
		Blocks:       r.resolveIDs(item.Blocks),
	}
	for _, other := range r.allSorted() {
		if other.ID == id {
			continue
		}
		for _, dep := range other.Dependencies {
			if dep == id {
				rel.Dependents = append(rel.Dependents, other)
				break
			}
		}
	}
	return rel, nil
}

// siblingsOf returns items of the same kind sharing the item's immediate
// parent. Items without a parent have no siblings.
func (r *Resolver) siblingsOf(item *types.Item) []*types.Item {
	var parentID string
	var sel parentSelector
	switch item.Kind {
	case types.KindIssue:
		parentID, sel = item.EpicID, byEpic
	case types.KindTask, types.KindPR:
		parentID, sel = item.IssueID, byIssue
	default:
		return nil
	}
	if parentID == "" {
		return nil
	}
	var siblings []*types.Item
	for _, candidate := range r.childrenOf(item.Kind, parentID, sel) {
		if candidate.ID != item.ID {
			siblings = append(siblings, candidate)
		}
	}
	return siblings
}

type parentSelector func(*types.Item) string

func byEpic(i *types.Item) string  { return i.EpicID }
func byIssue(i *types.Item) string { return i.IssueID }

// childrenOf returns all items of kind whose selected parent field equals
// parentID, ordered by creation time ascending.
func (r *Resolver) childrenOf(kind types.Kind, parentID string, sel parentSelector) []*types.Item {
	var out []*types.Item
	for _, item := range r.cache.All(kind) {
		if sel(item) == parentID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedDate.Before(out[j].CreatedDate)
	})
	return out
}

// resolveParents fills the issue and epic pointers for a task or PR,
// tolerating missing parents. The epic comes from the item itself when set,
// else from the parent issue.
func (r *Resolver) resolveParents(item *types.Item, issue, epic **types.Item) {
	if item.IssueID != "" {
		*issue = r.cache.Get(types.KindIssue, item.IssueID)
	}
	epicID := item.EpicID
	if epicID == "" && *issue != nil {
		epicID = (*issue).EpicID
	}
	if epicID != "" {
		*epic = r.cache.Get(types.KindEpic, epicID)
	}
}

// resolveIDs maps edge IDs to cached items, dropping unresolvable ones.
// validateRelationships is where dangling edges get reported.
func (r *Resolver) resolveIDs(ids []string) []*types.Item {
	var out []*types.Item
	for _, id := range ids {
		if item := r.cache.Lookup(id); item != nil {
			out = append(out, item)
		}
	}
	return out
}

// allSorted returns the union of all kinds sorted by ID for deterministic
// iteration.
func (r *Resolver) allSorted() []*types.Item {
	var out []*types.Item
	for _, kind := range types.Kinds {
		out = append(out, r.cache.All(kind)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
