package library

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Library indexes the selectable files under a root directory.
//
// Identifiers are slash-separated paths relative to the root. Hidden entries
// (leading dot) and directories named in the exclude list are never listed,
// resolved or served.
type Library struct {
	root     string
	realRoot string // root with symlinks evaluated

	// refreshMu serializes index rebuilds so an older walk never replaces
	// a newer index.
	refreshMu sync.Mutex
	rewatch   chan struct{}

	mu      sync.RWMutex
	exclude map[string]bool
	files   []string // sorted
}

// New creates a Library rooted at dir and builds the initial index.
func New(dir string, exclude []string) (*Library, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("library: resolve %q: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library: %q is not a directory", root)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}

	l := &Library{
		root:     root,
		realRoot: realRoot,
		rewatch:  make(chan struct{}, 1),
		exclude:  toSet(exclude),
	}
	if _, err := l.Refresh(); err != nil {
		return nil, err
	}
	return l, nil
}

// Root returns the absolute library directory.
func (l *Library) Root() string { return l.root }

// Files returns the indexed identifiers in sorted order.
func (l *Library) Files() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.files)
}

// SetExclude replaces the excluded directory names and rebuilds the index.
func (l *Library) SetExclude(names []string) error {
	l.mu.Lock()
	l.exclude = toSet(names)
	l.mu.Unlock()
	_, err := l.Refresh()

	// Let a running Watch pick up directories that are no longer excluded.
	select {
	case l.rewatch <- struct{}{}:
	default:
	}
	return err
}

// Refresh rebuilds the index from disk. It reports whether the file list
// changed.
func (l *Library) Refresh() (bool, error) {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	l.mu.RLock()
	exclude := l.exclude
	l.mu.RUnlock()

	var files []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			slog.Warn("library: walk error", "path", p, "err", err)
			if d != nil && d.IsDir() && p != l.root {
				return fs.SkipDir
			}
			return nil
		}
		if p == l.root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if hidden(name) || exclude[name] {
				return fs.SkipDir
			}
			return nil
		}
		if hidden(name) || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("library: walk %q: %w", l.root, err)
	}
	slices.Sort(files)

	l.mu.Lock()
	changed := !slices.Equal(l.files, files)
	l.files = files
	l.mu.Unlock()

	if changed {
		slog.Debug("library: index rebuilt", "files", len(files))
	}
	return changed, nil
}

// Resolve reports whether id names a listable regular file and returns its
// canonical identifier. The file system is consulted directly, so files
// created since the last Refresh resolve too. Symlinks are never followed,
// matching what Refresh lists.
func (l *Library) Resolve(id string) (string, bool) {
	rel, ok := l.clean(id)
	if !ok {
		return "", false
	}
	full := filepath.Join(l.root, filepath.FromSlash(rel))
	info, err := os.Lstat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	// A symlinked directory on the way leaves the real path elsewhere.
	real, err := filepath.EvalSymlinks(full)
	if err != nil || real != filepath.Join(l.realRoot, filepath.FromSlash(rel)) {
		return "", false
	}
	return rel, true
}

// Content returns the text of the file named by id. Any read failure yields
// an empty string.
func (l *Library) Content(id string) string {
	rel, ok := l.Resolve(id)
	if !ok {
		slog.Warn("library: content requested for unlistable file, serving empty content", "file", id)
		return ""
	}
	b, err := os.ReadFile(filepath.Join(l.root, filepath.FromSlash(rel)))
	if err != nil {
		slog.Warn("library: read failed, serving empty content", "file", rel, "err", err)
		return ""
	}
	return string(b)
}

// Open implements http.FileSystem over the listable files only. Directories
// and filtered entries report fs.ErrNotExist.
func (l *Library) Open(name string) (http.File, error) {
	rel, ok := l.Resolve(name)
	if !ok {
		return nil, fs.ErrNotExist
	}
	return os.Open(filepath.Join(l.root, filepath.FromSlash(rel)))
}

// --- helpers ----------------------------------------------------------------

// clean normalizes id and rejects anything that escapes the root or passes
// through a hidden or excluded path element.
func (l *Library) clean(id string) (string, bool) {
	id = strings.TrimPrefix(strings.ReplaceAll(id, "\\", "/"), "/")
	if id == "" {
		return "", false
	}
	rel := path.Clean(id)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	parts := strings.Split(rel, "/")
	for i, part := range parts {
		if hidden(part) {
			return "", false
		}
		if i < len(parts)-1 && l.exclude[part] {
			return "", false
		}
	}
	return rel, true
}

func hidden(name string) bool { return strings.HasPrefix(name, ".") }

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out[n] = true
		}
	}
	return out
}
