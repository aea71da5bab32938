package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewGuardCreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "profiles")

	g, err := NewGuard(dir)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	if info, err := os.Stat(g.Root()); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestNewGuardRejectsEmptyRoot(t *testing.T) {
	if _, err := NewGuard(""); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestResolveStaysUnderRoot(t *testing.T) {
	g, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	path, err := g.Resolve("abc-123", "record.json")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasPrefix(path, g.Root()+string(filepath.Separator)) {
		t.Errorf("resolved path %q not under root %q", path, g.Root())
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	g, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	cases := [][]string{
		{},
		{""},
		{".."},
		{"..", "record.json"},
		{"a/b"},
		{`a\b`},
		{"../../etc", "passwd"},
		{"."},
	}
	for _, elems := range cases {
		if _, err := g.Resolve(elems...); err == nil {
			t.Errorf("Resolve(%q) should be rejected", elems)
		}
	}
}

func TestRootResolvesSymlinks(t *testing.T) {
	base := t.TempDir()
	real := filepath.Join(base, "real")
	if err := os.MkdirAll(real, 0o750); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	g, err := NewGuard(link)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(real)
	if err != nil {
		t.Fatal(err)
	}
	if g.Root() != resolved {
		t.Errorf("root %q, want symlink-free %q", g.Root(), resolved)
	}
}
