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

func resolverFor(items map[types.Kind][]*types.Item) *hierarchy.Resolver {
	return hierarchy.New(cache.New(&fixtureLoader{items: items}))
}

func findProblem(problems []hierarchy.Problem, code, itemID string) *hierarchy.Problem {
	for i := range problems {
		if problems[i].Code == code && problems[i].ItemID == itemID {
			return &problems[i]
		}
	}
	return nil
}

func TestValidateRelationshipsClean(t *testing.T) {
	result, err := fixture().ValidateRelationships(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateRelationshipsOrphans(t *testing.T) {
	r := resolverFor(map[types.Kind][]*types.Item{
		types.KindIssue: {
			{ID: "ISS-0001", Kind: types.KindIssue, Title: "Orphaned", EpicID: "EP-9999"},
		},
		types.KindTask: {
			{ID: "TSK-0001", Kind: types.KindTask, Title: "Dangling", IssueID: "ISS-9999"},
		},
	})
	result, err := r.ValidateRelationships(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Valid)

	require.NotNil(t, findProblem(result.Errors, hierarchy.CodeOrphanedEpic, "ISS-0001"))
	require.NotNil(t, findProblem(result.Errors, hierarchy.CodeOrphanedIssue, "TSK-0001"))
}

func TestValidateRelationshipsEpicMismatchIsWarning(t *testing.T) {
	r := resolverFor(map[types.Kind][]*types.Item{
		types.KindEpic: {
			{ID: "EP-0001", Kind: types.KindEpic, Title: "One"},
			{ID: "EP-0002", Kind: types.KindEpic, Title: "Two"},
		},
		types.KindIssue: {
			{ID: "ISS-0001", Kind: types.KindIssue, Title: "Issue", EpicID: "EP-0001"},
		},
		types.KindTask: {
			{ID: "TSK-0001", Kind: types.KindTask, Title: "Task", IssueID: "ISS-0001", EpicID: "EP-0002"},
		},
	})
	result, err := r.ValidateRelationships(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Valid, "mismatch alone does not invalidate")
	require.NotNil(t, findProblem(result.Warnings, hierarchy.CodeEpicMismatch, "TSK-0001"))
}

func TestValidateRelationshipsCircularDependency(t *testing.T) {
	r := resolverFor(map[types.Kind][]*types.Item{
		types.KindTask: {
			{ID: "TSK-0001", Kind: types.KindTask, Title: "A", IssueID: "ISS-0001", Dependencies: []string{"TSK-0002"}},
			{ID: "TSK-0002", Kind: types.KindTask, Title: "B", IssueID: "ISS-0001", Dependencies: []string{"TSK-0003"}},
			{ID: "TSK-0003", Kind: types.KindTask, Title: "C", IssueID: "ISS-0001", Dependencies: []string{"TSK-0001"}},
		},
		types.KindIssue: {
			{ID: "ISS-0001", Kind: types.KindIssue, Title: "Parent"},
		},
	})
	result, err := r.ValidateRelationships(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Valid)

	var found *hierarchy.Problem
	for i := range result.Errors {
		if result.Errors[i].Code == hierarchy.CodeCircularDependency {
			found = &result.Errors[i]
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Cycle, 4)
	assert.Equal(t, found.Cycle[0], found.Cycle[3])
}

func TestValidateRelationshipsIncompleteMetadataIsWarning(t *testing.T) {
	r := resolverFor(map[types.Kind][]*types.Item{
		types.KindIssue: {
			{
				ID: "ISS-0001", Kind: types.KindIssue, Title: "Half migrated",
				State: types.StateActive,
				StateMetadata: &types.StateMetadata{
					TransitionedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				},
			},
		},
	})
	result, err := r.ValidateRelationships(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.NotNil(t, findProblem(result.Warnings, hierarchy.CodeIncompleteMetadata, "ISS-0001"))
}

func TestValidateRelationshipsEnumeratesAll(t *testing.T) {
	r := resolverFor(map[types.Kind][]*types.Item{
		types.KindIssue: {
			{ID: "ISS-0001", Kind: types.KindIssue, Title: "A", EpicID: "EP-9999"},
			{ID: "ISS-0002", Kind: types.KindIssue, Title: "B", EpicID: "EP-8888"},
		},
	})
	result, err := r.ValidateRelationships(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Errors, 2, "diagnostics never stop at the first problem")
}
