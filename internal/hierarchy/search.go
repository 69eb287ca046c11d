package hierarchy

import (
	"context"
	"strings"
	"time"

	"github.com/trackdownhq/trackdown/internal/state"
	"github.com/trackdownhq/trackdown/internal/telemetry"
	"github.com/trackdownhq/trackdown/internal/types"
)

// Filters is a predicate set applied over the union of all kinds. Zero
// values mean "no constraint".
type Filters struct {
	Kinds         []types.Kind       `json:"kinds,omitempty"`
	Status        string             `json:"status,omitempty"`
	State         types.UnifiedState `json:"state,omitempty"`
	PRStatus      types.PRStatus     `json:"pr_status,omitempty"`
	Priority      *int               `json:"priority,omitempty"`
	Assignee      string             `json:"assignee,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	CreatedAfter  *time.Time         `json:"created_after,omitempty"`
	CreatedBefore *time.Time         `json:"created_before,omitempty"`
	UpdatedAfter  *time.Time         `json:"updated_after,omitempty"`
	UpdatedBefore *time.Time         `json:"updated_before,omitempty"`
	Text          string             `json:"text,omitempty"`
}

// SearchResult is the matched set plus bookkeeping for display.
type SearchResult struct {
	Items   []*types.Item `json:"items"`
	Count   int           `json:"count"`
	Elapsed time.Duration `json:"elapsed"`
}

// Search filters all cached items. The State filter matches the effective
// state, so legacy-only and migrated items are matched uniformly; the
// Status filter matches the raw legacy field.
func (r *Resolver) Search(ctx context.Context, f Filters) (*SearchResult, error) {
	if err := r.cache.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	done := telemetry.TimeOperation(ctx, "search")
	defer done()

	kinds := f.Kinds
	if len(kinds) == 0 {
		kinds = types.Kinds
	}

	result := &SearchResult{Items: []*types.Item{}}
	for _, kind := range kinds {
		for _, item := range r.cache.All(kind) {
			if matches(item, f) {
				result.Items = append(result.Items, item)
			}
		}
	}
	result.Count = len(result.Items)
	result.Elapsed = time.Since(start)
	return result, nil
}

func matches(item *types.Item, f Filters) bool {
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.State != "" && state.EffectiveState(item) != f.State {
		return false
	}
	if f.PRStatus != "" && item.PRStatus != f.PRStatus {
		return false
	}
	if f.Priority != nil && item.Priority != *f.Priority {
		return false
	}
	if f.Assignee != "" && item.Assignee != f.Assignee {
		return false
	}
	for _, want := range f.Tags {
		if !hasTag(item, want) {
			return false
		}
	}
	if f.CreatedAfter != nil && item.CreatedDate.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && item.CreatedDate.After(*f.CreatedBefore) {
		return false
	}
	if f.UpdatedAfter != nil && item.UpdatedDate.Before(*f.UpdatedAfter) {
		return false
	}
	if f.UpdatedBefore != nil && item.UpdatedDate.After(*f.UpdatedBefore) {
		return false
	}
	if f.Text != "" && !matchesText(item, f.Text) {
		return false
	}
	return true
}

func hasTag(item *types.Item, tag string) bool {
	for _, t := range item.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// matchesText does a case-insensitive substring match over title and body.
func matchesText(item *types.Item, text string) bool {
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(item.Title), needle) ||
		strings.Contains(strings.ToLower(item.Description), needle)
}
