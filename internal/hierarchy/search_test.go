package hierarchy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackdownhq/trackdown/internal/cache"
	"github.com/trackdownhq/trackdown/internal/hierarchy"
	"github.com/trackdownhq/trackdown/internal/types"
)

func searchFixture() *hierarchy.Resolver {
	loader := &fixtureLoader{items: map[types.Kind][]*types.Item{
		types.KindIssue: {
			{ID: "ISS-0001", Kind: types.KindIssue, Title: "Login flow broken", Status: "open",
				Priority: 1, Assignee: "alice", Tags: []string{"auth", "Backend"}, CreatedDate: day(2)},
			{ID: "ISS-0002", Kind: types.KindIssue, Title: "Slow queries", Status: "completed",
				Priority: 2, Assignee: "bob", CreatedDate: day(10)},
		},
		types.KindTask: {
			{ID: "TSK-0001", Kind: types.KindTask, Title: "Fix login handler", IssueID: "ISS-0001",
				Status: "in_progress", Priority: 0, Assignee: "alice", CreatedDate: day(5),
				Description: "The POST endpoint rejects valid sessions."},
		},
		types.KindPR: {
			{ID: "PR-0001", Kind: types.KindPR, Title: "Login fix", IssueID: "ISS-0001",
				PRStatus: types.PRStatusReview, CreatedDate: day(8)},
		},
	}}
	return hierarchy.New(cache.New(loader))
}

func search(t *testing.T, f hierarchy.Filters) *hierarchy.SearchResult {
	t.Helper()
	res, err := searchFixture().Search(context.Background(), f)
	require.NoError(t, err)
	return res
}

func ids(items []*types.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestSearchNoFilters(t *testing.T) {
	res := search(t, hierarchy.Filters{})
	assert.Equal(t, 4, res.Count)
	assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))
}

func TestSearchByKind(t *testing.T) {
	res := search(t, hierarchy.Filters{Kinds: []types.Kind{types.KindTask}})
	assert.Equal(t, []string{"TSK-0001"}, ids(res.Items))
}

func TestSearchByEffectiveState(t *testing.T) {
	// Both "open" and "in_progress" derive to active; the PR has neither
	// status nor state and defaults to active too.
	res := search(t, hierarchy.Filters{State: types.StateActive})
	assert.ElementsMatch(t, []string{"ISS-0001", "TSK-0001", "PR-0001"}, ids(res.Items))

	res = search(t, hierarchy.Filters{State: types.StateDone})
	assert.Equal(t, []string{"ISS-0002"}, ids(res.Items))
}

func TestSearchByLegacyStatus(t *testing.T) {
	res := search(t, hierarchy.Filters{Status: "in_progress"})
	assert.Equal(t, []string{"TSK-0001"}, ids(res.Items))
}

func TestSearchByPRStatus(t *testing.T) {
	res := search(t, hierarchy.Filters{PRStatus: types.PRStatusReview})
	assert.Equal(t, []string{"PR-0001"}, ids(res.Items))
}

func TestSearchByPriorityZero(t *testing.T) {
	p := 0
	res := search(t, hierarchy.Filters{Priority: &p})
	assert.Equal(t, []string{"TSK-0001"}, ids(res.Items), "P0 must be filterable")
}

func TestSearchByAssignee(t *testing.T) {
	res := search(t, hierarchy.Filters{Assignee: "alice"})
	assert.ElementsMatch(t, []string{"ISS-0001", "TSK-0001"}, ids(res.Items))
}

func TestSearchByTagCaseInsensitive(t *testing.T) {
	res := search(t, hierarchy.Filters{Tags: []string{"backend"}})
	assert.Equal(t, []string{"ISS-0001"}, ids(res.Items))

	res = search(t, hierarchy.Filters{Tags: []string{"auth", "backend"}})
	assert.Equal(t, []string{"ISS-0001"}, ids(res.Items), "all tags must match")

	res = search(t, hierarchy.Filters{Tags: []string{"auth", "frontend"}})
	assert.Empty(t, res.Items)
}

func TestSearchByDateRange(t *testing.T) {
	after, before := day(4), day(9)
	res := search(t, hierarchy.Filters{CreatedAfter: &after, CreatedBefore: &before})
	assert.ElementsMatch(t, []string{"TSK-0001", "PR-0001"}, ids(res.Items))
}

func TestSearchByText(t *testing.T) {
	res := search(t, hierarchy.Filters{Text: "LOGIN"})
	assert.ElementsMatch(t, []string{"ISS-0001", "TSK-0001", "PR-0001"}, ids(res.Items))

	// Body text matches too.
	res = search(t, hierarchy.Filters{Text: "post endpoint"})
	assert.Equal(t, []string{"TSK-0001"}, ids(res.Items))
}

func TestSearchCombinedFilters(t *testing.T) {
	res := search(t, hierarchy.Filters{
		Kinds:    []types.Kind{types.KindIssue, types.KindTask},
		Assignee: "alice",
		Text:     "login",
	})
	assert.ElementsMatch(t, []string{"ISS-0001", "TSK-0001"}, ids(res.Items))
}
