package profile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Migrate upgrades any legacy name-keyed profile directories to the id-keyed
// layout. Early layouts used the profile name as the directory key, which
// made renames destructive directory moves; after migration the directory is
// always the id and name is a plain display field.
//
// This is a one-time startup step. Entries that cannot be migrated are left
// in place and skipped. Returns the number of directories migrated.
func (r *Registry) Migrate(_ context.Context) (int, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := r.read(e.Name())
		if err != nil {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.ID == e.Name() {
			continue
		}

		oldDir := filepath.Join(r.root, e.Name())
		newDir := r.Dir(p.ID)
		if _, err := os.Stat(newDir); err == nil {
			// Target already occupied; leave the legacy dir alone.
			continue
		}
		if err := os.Rename(oldDir, newDir); err != nil {
			continue
		}
		l := r.lockFor(p.ID)
		l.Lock()
		err = r.write(p)
		l.Unlock()
		if err != nil {
			return migrated, err
		}
		migrated++
	}
	return migrated, nil
}
