package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// CookiePath returns the location of the profile's incremental cookie
// checkpoint file.
func (r *Registry) CookiePath(id string) string {
	return filepath.Join(r.root, id, cookieFile)
}

// ReadCookies loads the checkpoint file. A missing file is an empty jar, not
// an error.
func (r *Registry) ReadCookies(id string) ([]Cookie, error) {
	b, err := os.ReadFile(r.CookiePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile: read cookies for %s: %w", id, err)
	}
	var cookies []Cookie
	if err := json.Unmarshal(b, &cookies); err != nil {
		return nil, fmt.Errorf("profile: decode cookies for %s: %w", id, err)
	}
	return cookies, nil
}

// AppendCookies merges observed cookies into the checkpoint file, keyed by
// name+domain. Existing entries are never overwritten by this path; only
// net-new cookies are appended. It is a best-effort continuous checkpoint,
// not a transactional store, and the linear scan is an accepted scaling
// limit at typical jar sizes. Returns the number of cookies added.
func (r *Registry) AppendCookies(id string, observed []Cookie) (int, error) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	existing, err := r.ReadCookies(id)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c.Key()] = struct{}{}
	}

	added := 0
	for _, c := range observed {
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		existing = append(existing, c)
		added++
	}
	if added == 0 {
		return 0, nil
	}

	b, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("profile: encode cookies for %s: %w", id, err)
	}
	path := r.CookiePath(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return 0, fmt.Errorf("profile: write cookie temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("profile: atomic rename %s: %w", path, err)
	}
	return added, nil
}
