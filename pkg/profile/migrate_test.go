package profile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// writeLegacyProfile lays out a name-keyed directory the way early versions
// stored profiles.
func writeLegacyProfile(t *testing.T, root, name string, p Profile) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir legacy dir: %v", err)
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal legacy record: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, recordFile), b, 0o600); err != nil {
		t.Fatalf("write legacy record: %v", err)
	}
}

func TestMigrateNameKeyedLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "profiles")
	if err := os.MkdirAll(root, 0o750); err != nil {
		t.Fatal(err)
	}

	// One record with an id but a name-keyed directory, one with no id at
	// all.
	writeLegacyProfile(t, root, "my profile", Profile{ID: "abc-123", Name: "my profile"})
	writeLegacyProfile(t, root, "no-id-yet", Profile{Name: "no-id-yet", Notes: "keep me"})

	reg, err := NewRegistry(root)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	migrated, err := reg.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if migrated != 2 {
		t.Fatalf("expected 2 migrations, got %d", migrated)
	}

	got, err := reg.Get(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("Get migrated profile: %v", err)
	}
	if got.Name != "my profile" {
		t.Errorf("name lost in migration: %q", got.Name)
	}
	if _, err := os.Stat(filepath.Join(root, "my profile")); !os.IsNotExist(err) {
		t.Error("legacy name-keyed directory should be gone")
	}

	all, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 profiles after migration, got %d", len(all))
	}
	for _, p := range all {
		if p.ID == "" {
			t.Error("migrated profile missing id")
		}
		if p.Notes == "keep me" && p.Name != "no-id-yet" {
			t.Errorf("record fields scrambled: %+v", p)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "profiles")
	if err := os.MkdirAll(root, 0o750); err != nil {
		t.Fatal(err)
	}
	writeLegacyProfile(t, root, "legacy", Profile{ID: "id-1", Name: "legacy"})

	reg, err := NewRegistry(root)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := reg.Migrate(context.Background()); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	migrated, err := reg.Migrate(context.Background())
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if migrated != 0 {
		t.Fatalf("second migration should be a no-op, migrated %d", migrated)
	}
}
