// Package storage enforces root-containment on the on-disk data layout.
// Every registry file path resolves through a Guard so a crafted record id
// can never address files outside its registry root.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard confines path resolution to a single root directory.
type Guard struct {
	root string
}

// NewGuard creates a guard rooted at dir, creating the directory if needed.
// The root is resolved to an absolute, symlink-free path so containment
// checks compare like with like.
func NewGuard(dir string) (*Guard, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: root directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create root %s: %w", abs, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root symlinks %s: %w", abs, err)
	}
	return &Guard{root: resolved}, nil
}

// Root returns the resolved root directory.
func (g *Guard) Root() string {
	return g.root
}

// Resolve joins the elements under the root and verifies the result stays
// inside it. Elements are single path components: empty elements, elements
// carrying separators, and anything that cleans to a path outside the root
// are rejected.
func (g *Guard) Resolve(elem ...string) (string, error) {
	if len(elem) == 0 {
		return "", fmt.Errorf("storage: no path elements given")
	}
	for _, e := range elem {
		if e == "" {
			return "", fmt.Errorf("storage: empty path element")
		}
		if strings.ContainsAny(e, `/\`) {
			return "", fmt.Errorf("storage: invalid path element %q (contains separator)", e)
		}
	}
	path := filepath.Clean(filepath.Join(append([]string{g.root}, elem...)...))
	rel, err := filepath.Rel(g.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: path %q escapes root %s", filepath.Join(elem...), g.root)
	}
	return path, nil
}
