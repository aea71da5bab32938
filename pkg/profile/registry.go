package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/entrhq/veil/pkg/storage"
)

// ErrNotFound is returned when no record exists for a profile id.
var ErrNotFound = errors.New("profile: record not found")

const (
	recordFile = "profile.json"
	cookieFile = "cookies.json"
)

// Registry is a file-backed store of profiles keyed by id. Every persist
// operation rewrites the complete record; narrow mutations (notes, launched
// flag, cookies) read-modify-write under a per-id lock so a note edit can
// never clobber a concurrent cookie write.
type Registry struct {
	root  string
	guard *storage.Guard

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry opens (creating if needed) a registry rooted at dir.
func NewRegistry(dir string) (*Registry, error) {
	guard, err := storage.NewGuard(dir)
	if err != nil {
		return nil, fmt.Errorf("profile: init registry: %w", err)
	}
	return &Registry{root: guard.Root(), guard: guard, locks: make(map[string]*sync.Mutex)}, nil
}

// lockFor returns the serialization lock for one profile id.
func (r *Registry) lockFor(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// Dir returns the profile's storage directory. It doubles as the browser
// engine's persistent user-data directory.
func (r *Registry) Dir(id string) string {
	return filepath.Join(r.root, id)
}

func (r *Registry) pathFor(id string) (string, error) {
	return r.guard.Resolve(id, recordFile)
}

// Create persists a new profile with a fresh id and launched reset.
func (r *Registry) Create(_ context.Context, p *Profile) (*Profile, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Launched = false
	l := r.lockFor(p.ID)
	l.Lock()
	defer l.Unlock()
	if err := r.write(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get reads a profile by id.
func (r *Registry) Get(_ context.Context, id string) (*Profile, error) {
	return r.read(id)
}

// List returns all readable profiles in directory enumeration order. Corrupt
// or unreadable entries are skipped.
func (r *Registry) List(_ context.Context) ([]*Profile, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("profile: list %s: %w", r.root, err)
	}
	var out []*Profile
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := r.read(e.Name())
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Update replaces the editable fields of the stored record. The id is
// immutable and the storage directory never moves: name is purely a display
// attribute of the record.
func (r *Registry) Update(_ context.Context, id string, p Profile) (*Profile, error) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()
	if _, err := r.read(id); err != nil {
		return nil, err
	}
	p.ID = id
	if err := r.write(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateNotes rewrites only the notes field, preserving everything else.
func (r *Registry) UpdateNotes(_ context.Context, id, notes string) (*Profile, error) {
	return r.mutate(id, func(p *Profile) { p.Notes = notes })
}

// SetLaunched rewrites only the launched flag.
func (r *Registry) SetLaunched(_ context.Context, id string, launched bool) (*Profile, error) {
	return r.mutate(id, func(p *Profile) { p.Launched = launched })
}

// ToggleLaunched flips the launched flag and returns the updated record.
func (r *Registry) ToggleLaunched(_ context.Context, id string) (*Profile, error) {
	return r.mutate(id, func(p *Profile) { p.Launched = !p.Launched })
}

// SetCookies rewrites only the serialized cookie jar.
func (r *Registry) SetCookies(_ context.Context, id string, cookies []Cookie) (*Profile, error) {
	return r.mutate(id, func(p *Profile) { p.Cookies = cookies })
}

// mutate applies fn to the stored record under the per-id lock and rewrites
// the full record.
func (r *Registry) mutate(id string, fn func(*Profile)) (*Profile, error) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()
	p, err := r.read(id)
	if err != nil {
		return nil, err
	}
	fn(p)
	if err := r.write(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes the record and the whole storage directory, including
// accumulated cookies and browser state.
func (r *Registry) Delete(_ context.Context, id string) error {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()
	path, err := r.pathFor(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := os.RemoveAll(r.Dir(id)); err != nil {
		return fmt.Errorf("profile: delete %s: %w", id, err)
	}
	r.mu.Lock()
	delete(r.locks, id)
	r.mu.Unlock()
	return nil
}

func (r *Registry) read(id string) (*Profile, error) {
	path, err := r.pathFor(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("profile: decode %s: %w", path, err)
	}
	return &p, nil
}

// write persists p atomically via a temp file rename. Caller holds the
// per-id lock.
func (r *Registry) write(p *Profile) error {
	path, err := r.pathFor(p.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("profile: ensure %s: %w", filepath.Dir(path), err)
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: encode record %s: %w", p.ID, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("profile: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("profile: atomic rename %s: %w", path, err)
	}
	return nil
}
