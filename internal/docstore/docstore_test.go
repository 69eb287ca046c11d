package docstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackdownhq/trackdown/internal/docstore"
	"github.com/trackdownhq/trackdown/internal/prstate"
	"github.com/trackdownhq/trackdown/internal/types"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const issueDoc = `---
id: ISS-0001
title: Login flow broken
status: open
priority: 1
assignee: alice
---

The POST endpoint rejects valid sessions.
`

func TestWriteAndParseRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := docstore.NewFileStore(root)

	item := &types.Item{
		ID:       "TSK-0001",
		Kind:     types.KindTask,
		Title:    "Write handler",
		IssueID:  "ISS-0001",
		Status:   "in_progress",
		Priority: 0,
		Tags:     []string{"backend"},
	}
	path := store.ItemPath(item)
	assert.Equal(t, filepath.Join(root, "tasks", "TSK-0001-write-handler.md"), path)
	require.NoError(t, store.WriteFile(path, item, "Implement the POST handler.\n"))

	items, err := store.ParseDirectory(context.Background(), store.KindDir(types.KindTask), types.KindTask)
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, "TSK-0001", got.ID)
	assert.Equal(t, types.KindTask, got.Kind)
	assert.Equal(t, "Write handler", got.Title)
	assert.Equal(t, "ISS-0001", got.IssueID)
	assert.Equal(t, 0, got.Priority)
	assert.Equal(t, []string{"backend"}, got.Tags)
	assert.Equal(t, "Implement the POST handler.", got.Description)
}

func TestParseDirectorySkipsMalformed(t *testing.T) {
	root := t.TempDir()
	store := docstore.NewFileStore(root)

	write(t, filepath.Join(root, "issues", "ISS-0001-login.md"), issueDoc)
	write(t, filepath.Join(root, "issues", "broken.md"), "no frontmatter here\n")
	write(t, filepath.Join(root, "issues", "ISS-0002-no-id.md"), "---\ntitle: Missing id\n---\n")
	write(t, filepath.Join(root, "issues", "notes.txt"), "ignored entirely")

	items, err := store.ParseDirectory(context.Background(), store.KindDir(types.KindIssue), types.KindIssue)
	require.NoError(t, err)
	require.Len(t, items, 1, "malformed documents are skipped, never fatal")
	assert.Equal(t, "ISS-0001", items[0].ID)
}

func TestParseDirectoryMissingDir(t *testing.T) {
	store := docstore.NewFileStore(t.TempDir())
	items, err := store.ParseDirectory(context.Background(), store.KindDir(types.KindEpic), types.KindEpic)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLoadAll(t *testing.T) {
	root := t.TempDir()
	store := docstore.NewFileStore(root)

	write(t, filepath.Join(root, "epics", "EP-0001-auth.md"), "---\nid: EP-0001\ntitle: Auth\n---\n")
	write(t, filepath.Join(root, "issues", "ISS-0001-login.md"), issueDoc)
	write(t, filepath.Join(root, "prs", "active", "review", "PR-0001-fix.md"),
		"---\nid: PR-0001\ntitle: Fix\nissue_id: ISS-0001\npr_status: review\n---\n")

	loaded, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded[types.KindEpic], 1)
	assert.Len(t, loaded[types.KindIssue], 1)
	assert.Empty(t, loaded[types.KindTask])
	require.Len(t, loaded[types.KindPR], 1)
	assert.Equal(t, types.PRStatusReview, loaded[types.KindPR][0].PRStatus)
}

func TestLoadAllUninitialized(t *testing.T) {
	store := docstore.NewFileStore(filepath.Join(t.TempDir(), "nope"))
	_, err := store.LoadAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, docstore.ErrNotInitialized))
}

func TestFindPath(t *testing.T) {
	root := t.TempDir()
	store := docstore.NewFileStore(root)
	write(t, filepath.Join(root, "issues", "ISS-0001-login.md"), issueDoc)

	path, err := store.FindPath(types.KindIssue, "ISS-0001")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "issues", "ISS-0001-login.md"), path)

	_, err = store.FindPath(types.KindIssue, "ISS-9999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, docstore.ErrNotFound))

	// ISS-0001 must not match a document named ISS-00010.
	write(t, filepath.Join(root, "issues", "ISS-00010-other.md"),
		"---\nid: ISS-00010\ntitle: Other\n---\n")
	path, err = store.FindPath(types.KindIssue, "ISS-00010")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "issues", "ISS-00010-other.md"), path)
}

func TestUpdateFileMergesFields(t *testing.T) {
	root := t.TempDir()
	store := docstore.NewFileStore(root)
	path := filepath.Join(root, "issues", "ISS-0001-login.md")
	write(t, path, issueDoc)

	updated, err := store.UpdateFile(path, map[string]interface{}{
		"assignee": "bob",
		"priority": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", updated.Assignee)
	assert.Equal(t, 2, updated.Priority)
	assert.Equal(t, "open", updated.Status, "untouched fields survive")
	assert.Equal(t, "The POST endpoint rejects valid sessions.", updated.Description,
		"the markdown body survives frontmatter updates")
	assert.False(t, updated.UpdatedDate.IsZero())
}

func TestUpdateFileNilDeletesKey(t *testing.T) {
	root := t.TempDir()
	store := docstore.NewFileStore(root)
	path := filepath.Join(root, "issues", "ISS-0001-login.md")
	write(t, path, `---
id: ISS-0001
title: Login flow broken
status: open
state: active
state_metadata:
  transitioned_at: 2026-01-01T00:00:00Z
  transitioned_by: alice
---
`)

	updated, err := store.UpdateFile(path, map[string]interface{}{
		"state":          nil,
		"state_metadata": nil,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.State)
	assert.Nil(t, updated.StateMetadata)
	assert.Equal(t, "open", updated.Status)
}

func TestUpdateFileMissing(t *testing.T) {
	store := docstore.NewFileStore(t.TempDir())
	_, err := store.UpdateFile(filepath.Join(store.Root(), "issues", "nope.md"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, docstore.ErrNotFound))
}

func TestMovePR(t *testing.T) {
	root := t.TempDir()
	store := docstore.NewFileStore(root)
	pr := &types.Item{
		ID:       "PR-0001",
		Kind:     types.KindPR,
		Title:    "Fix login",
		IssueID:  "ISS-0001",
		PRStatus: types.PRStatusReview,
	}
	oldPath := filepath.Join(root, "prs", "active", "review", "PR-0001-fix-login.md")
	write(t, oldPath, "---\nid: PR-0001\ntitle: Fix login\nissue_id: ISS-0001\npr_status: review\n---\n")

	newPath, err := store.MovePR(pr, types.PRStatusApproved)
	require.NoError(t, err)
	assert.Equal(t,
		filepath.Join(prstate.StatusDirectory(types.PRStatusApproved, store.KindDir(types.KindPR)), "PR-0001-fix-login.md"),
		newPath)
	assert.FileExists(t, newPath)
	assert.NoFileExists(t, oldPath)

	// Moving into the directory it already occupies is a no-op.
	pr.PRStatus = types.PRStatusApproved
	again, err := store.MovePR(pr, types.PRStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, newPath, again)
}

func TestItemPathForPRUsesStatusDirectory(t *testing.T) {
	store := docstore.NewFileStore("ws")
	pr := &types.Item{ID: "PR-0002", Kind: types.KindPR, Title: "Draft work", PRStatus: types.PRStatusDraft}
	assert.Equal(t, filepath.Join("ws", "prs", "draft", "PR-0002-draft-work.md"), store.ItemPath(pr))
}

func TestSetDefaultsAppliedOnParse(t *testing.T) {
	root := t.TempDir()
	store := docstore.NewFileStore(root)
	write(t, filepath.Join(root, "issues", "ISS-0001-bare.md"), "---\nid: ISS-0001\ntitle: Bare\n---\n")

	items, err := store.ParseDirectory(context.Background(), store.KindDir(types.KindIssue), types.KindIssue)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "active", items[0].Status)
}
