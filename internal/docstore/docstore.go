// Package docstore reads and writes work item documents: markdown files
// with YAML frontmatter, one item per file, laid out by kind under a
// workspace root. Pull requests additionally live in a subdirectory
// determined by their status.
//
// The store is the only component that touches the filesystem. The core
// reads items through the hierarchy cache and hands mutated copies back
// here for persistence.
package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/trackdownhq/trackdown/internal/debug"
	"github.com/trackdownhq/trackdown/internal/prstate"
	"github.com/trackdownhq/trackdown/internal/types"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotInitialized is returned when the workspace root does not exist.
var ErrNotInitialized = errors.New("workspace not initialized")

const frontmatterDelim = "---"

// Store is the document store contract the core depends on.
type Store interface {
	ParseDirectory(ctx context.Context, path string, kind types.Kind) ([]*types.Item, error)
	LoadAll(ctx context.Context) (map[types.Kind][]*types.Item, error)
	FindPath(kind types.Kind, id string) (string, error)
	UpdateFile(path string, fields map[string]interface{}) (*types.Item, error)
	WriteFile(path string, item *types.Item, body string) error
	MovePR(pr *types.Item, to types.PRStatus) (string, error)
}

// FileStore implements Store over a workspace root directory.
type FileStore struct {
	root string
	now  func() time.Time
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir, now: time.Now}
}

// Root returns the workspace root directory.
func (s *FileStore) Root() string {
	return s.root
}

// KindDir returns the directory documents of the given kind live under.
func (s *FileStore) KindDir(kind types.Kind) string {
	switch kind {
	case types.KindEpic:
		return filepath.Join(s.root, "epics")
	case types.KindIssue:
		return filepath.Join(s.root, "issues")
	case types.KindTask:
		return filepath.Join(s.root, "tasks")
	case types.KindPR:
		return filepath.Join(s.root, "prs")
	}
	return s.root
}

// ParseDirectory returns every parsed document of kind found under path.
// For PRs the status subdirectories are walked recursively. Malformed
// documents are skipped with a diagnostic rather than failing the load.
func (s *FileStore) ParseDirectory(ctx context.Context, path string, kind types.Kind) ([]*types.Item, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var items []*types.Item
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		item, parseErr := s.parseFile(p, kind)
		if parseErr != nil {
			debug.Logf("docstore: skipping %s: %v\n", p, parseErr)
			return nil
		}
		if kind == types.KindPR {
			s.checkPRLocation(p, item)
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing %s documents: %w", kind, err)
	}
	return items, nil
}

// LoadAll parses the four kind directories concurrently.
func (s *FileStore) LoadAll(ctx context.Context) (map[types.Kind][]*types.Item, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, s.root)
	}

	results := make([]kindResult, len(types.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range types.Kinds {
		i, kind := i, kind
		g.Go(func() error {
			items, err := s.ParseDirectory(gctx, s.KindDir(kind), kind)
			if err != nil {
				return err
			}
			results[i] = kindResult{kind: kind, items: items}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[types.Kind][]*types.Item, len(types.Kinds))
	for _, r := range results {
		out[r.kind] = r.items
	}
	return out, nil
}

type kindResult struct {
	kind  types.Kind
	items []*types.Item
}

// FindPath locates the document for the given kind and ID.
func (s *FileStore) FindPath(kind types.Kind, id string) (string, error) {
	var found string
	dir := s.KindDir(kind)
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		name := strings.TrimSuffix(filepath.Base(p), ".md")
		if name == id || strings.HasPrefix(name, id+"-") {
			found = p
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

// UpdateFile merges partial frontmatter fields into the persisted document,
// refreshing updated_date, and returns the resulting item. A nil field value
// removes the key, which is how migration rollback strips state fields.
func (s *FileStore) UpdateFile(path string, fields map[string]interface{}) (*types.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	front, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(front, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s frontmatter: %w", path, err)
	}
	if doc == nil {
		doc = make(map[string]interface{})
	}
	for k, v := range fields {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	doc["updated_date"] = s.now().UTC()

	merged, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := s.writeDocument(path, merged, body); err != nil {
		return nil, err
	}

	kind, _ := types.KindForID(fmt.Sprint(doc["id"]))
	return s.parseFile(path, kind)
}

// WriteFile writes a full document: the item's frontmatter plus the body.
func (s *FileStore) WriteFile(path string, item *types.Item, body string) error {
	front, err := yaml.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", item.ID, err)
	}
	return s.writeDocument(path, front, []byte(body))
}

// ItemPath returns the canonical path for a new item document.
func (s *FileStore) ItemPath(item *types.Item) string {
	name := item.ID
	if slug := slugify(item.Title); slug != "" {
		name += "-" + slug
	}
	dir := s.KindDir(item.Kind)
	if item.Kind == types.KindPR {
		dir = prstate.StatusDirectory(item.PRStatus, dir)
	}
	return filepath.Join(dir, name+".md")
}

// MovePR renames a PR document into the directory its status dictates and
// returns the new path. A PR's location is a deterministic function of its
// status; the two must never diverge. The rename is retried briefly because
// a second CLI invocation can hold the file.
func (s *FileStore) MovePR(pr *types.Item, to types.PRStatus) (string, error) {
	oldPath, err := s.FindPath(types.KindPR, pr.ID)
	if err != nil {
		return "", err
	}
	targetDir := prstate.StatusDirectory(to, s.KindDir(types.KindPR))
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", err
	}
	newPath := filepath.Join(targetDir, filepath.Base(oldPath))
	if newPath == oldPath {
		return oldPath, nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	err = backoff.Retry(func() error {
		return os.Rename(oldPath, newPath)
	}, policy)
	if err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", pr.ID, targetDir, err)
	}
	debug.Logf("docstore: moved %s -> %s\n", oldPath, newPath)
	return newPath, nil
}

func (s *FileStore) parseFile(path string, kind types.Kind) (*types.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	front, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	var item types.Item
	if err := yaml.Unmarshal(front, &item); err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}
	item.Kind = kind
	item.Description = strings.TrimSpace(string(body))
	item.SetDefaults()
	// Only structural problems block the load. Items with incomplete state
	// metadata or dangling references still load so validateRelationships
	// can enumerate every problem instead of stopping at the first.
	if item.ID == "" {
		return nil, fmt.Errorf("document has no id")
	}
	if idKind, ok := types.KindForID(item.ID); !ok || idKind != kind {
		return nil, fmt.Errorf("id %s does not match kind %s", item.ID, kind)
	}
	return &item, nil
}

// checkPRLocation reports when a PR document sits in a directory that does
// not match its pr_status. Frontmatter wins; the divergence is surfaced as a
// diagnostic so validate/move flows can repair it.
func (s *FileStore) checkPRLocation(path string, pr *types.Item) {
	expected := prstate.StatusDirectory(pr.PRStatus, s.KindDir(types.KindPR))
	if filepath.Dir(path) != expected {
		debug.Logf("docstore: %s has pr_status %s but lives in %s (expected %s)\n",
			pr.ID, pr.PRStatus, filepath.Dir(path), expected)
	}
}

// writeDocument assembles frontmatter + body and writes atomically via a
// temp file in the same directory.
func (s *FileStore) writeDocument(path string, front, body []byte) error {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")
	buf.Write(front)
	buf.WriteString(frontmatterDelim + "\n")
	if len(body) > 0 {
		buf.WriteString("\n")
		buf.Write(bytes.TrimSpace(body))
		buf.WriteString("\n")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".td-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// splitFrontmatter separates the YAML frontmatter block from the markdown
// body. The document must open with a "---" line.
func splitFrontmatter(data []byte) (front, body []byte, err error) {
	text := string(data)
	if !strings.HasPrefix(text, frontmatterDelim+"\n") {
		return nil, nil, fmt.Errorf("missing frontmatter delimiter")
	}
	rest := text[len(frontmatterDelim)+1:]
	idx := strings.Index(rest, "\n"+frontmatterDelim)
	if idx < 0 {
		return nil, nil, fmt.Errorf("unterminated frontmatter")
	}
	front = []byte(rest[:idx+1])
	after := rest[idx+1+len(frontmatterDelim):]
	after = strings.TrimPrefix(after, "\n")
	return front, []byte(after), nil
}

func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	return slug
}
