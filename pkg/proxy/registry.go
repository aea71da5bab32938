package proxy

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

// ErrNotFound is returned when no record exists for a proxy id.
var ErrNotFound = errors.New("proxy: record not found")

const recordFile = "proxy.json"

// Registry is a file-backed store of proxy records. Each record lives in its
// own id-keyed directory as proxy.json. The directory layout is the source of
// truth; no in-memory cache is kept. Writes to one record serialize under a
// per-id lock so a slow health check can never revert a concurrent edit.
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
		return nil, fmt.Errorf("proxy: init registry: %w", err)
	}
	return &Registry{root: guard.Root(), guard: guard, locks: make(map[string]*sync.Mutex)}, nil
}

// lockFor returns the serialization lock for one record id.
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

func (r *Registry) pathFor(id string) (string, error) {
	return r.guard.Resolve(id, recordFile)
}

// Create persists a new record, assigning an id and derived defaults for any
// fields left empty.
func (r *Registry) Create(_ context.Context, rec *Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Name == "" {
		rec.Name = rec.Addr()
	}
	if rec.Status == "" {
		rec.Status = StatusUnchecked
	}
	if rec.Country == "" {
		rec.Country = CountryUnknown
	}
	l := r.lockFor(rec.ID)
	l.Lock()
	defer l.Unlock()
	if err := r.write(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CreateFromURI parses a raw proxy URI and persists the result with the
// default name host:port.
func (r *Registry) CreateFromURI(ctx context.Context, uri string) (*Record, error) {
	rec, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return r.Create(ctx, rec)
}

// Get reads a record by id.
func (r *Registry) Get(_ context.Context, id string) (*Record, error) {
	path, err := r.pathFor(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("proxy: read %s: %w", path, err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("proxy: decode %s: %w", path, err)
	}
	return &rec, nil
}

// List returns all readable records in directory enumeration order. Corrupt
// or unreadable entries are skipped.
func (r *Registry) List(ctx context.Context) ([]*Record, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("proxy: list %s: %w", r.root, err)
	}
	var out []*Record
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rec, err := r.Get(ctx, e.Name())
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Update replaces the stored record for id with rec. The id is immutable;
// whatever rec carries is overwritten with the addressed id.
func (r *Registry) Update(ctx context.Context, id string, rec Record) (*Record, error) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	rec.ID = id
	if rec.Status == "" {
		rec.Status = StatusUnchecked
	}
	if rec.Country == "" {
		rec.Country = CountryUnknown
	}
	if err := r.write(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetStatus rewrites only the cached health status, preserving everything
// else. Check results land through here so a check that started before an
// edit cannot write the pre-edit record back.
func (r *Registry) SetStatus(ctx context.Context, id string, status Status) (*Record, error) {
	return r.mutate(ctx, id, func(rec *Record) { rec.Status = status })
}

// SetCountry rewrites only the cached geolocation.
func (r *Registry) SetCountry(ctx context.Context, id, country string) (*Record, error) {
	return r.mutate(ctx, id, func(rec *Record) { rec.Country = country })
}

// mutate applies fn to the stored record under the per-id lock and rewrites
// the full record.
func (r *Registry) mutate(ctx context.Context, id string, fn func(*Record)) (*Record, error) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()
	rec, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(rec)
	if err := r.write(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a record and its directory. Profiles referencing the id are
// left untouched; launches against the dangling reference fail explicitly.
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
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		return fmt.Errorf("proxy: delete %s: %w", id, err)
	}
	r.mu.Lock()
	delete(r.locks, id)
	r.mu.Unlock()
	return nil
}

// write persists rec atomically via a temp file rename.
func (r *Registry) write(rec *Record) error {
	path, err := r.pathFor(rec.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("proxy: ensure %s: %w", filepath.Dir(path), err)
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("proxy: encode record %s: %w", rec.ID, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("proxy: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("proxy: atomic rename %s: %w", path, err)
	}
	return nil
}
