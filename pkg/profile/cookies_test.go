package profile

import (
	"context"
	"testing"
)

func TestAppendCookiesDedupByNameAndDomain(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	p, err := reg.Create(ctx, &Profile{Name: "n"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	added, err := reg.AppendCookies(p.ID, []Cookie{
		{Name: "sid", Value: "v1", Domain: "example.com"},
		{Name: "theme", Value: "dark", Domain: "example.com"},
	})
	if err != nil {
		t.Fatalf("AppendCookies: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}

	// Same name+domain with a new value must not overwrite; a new domain is
	// a distinct cookie.
	added, err = reg.AppendCookies(p.ID, []Cookie{
		{Name: "sid", Value: "v2", Domain: "example.com"},
		{Name: "sid", Value: "v1", Domain: "other.com"},
	})
	if err != nil {
		t.Fatalf("AppendCookies: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 added, got %d", added)
	}

	jar, err := reg.ReadCookies(p.ID)
	if err != nil {
		t.Fatalf("ReadCookies: %v", err)
	}
	if len(jar) != 3 {
		t.Fatalf("expected 3 cookies, got %d", len(jar))
	}
	for _, c := range jar {
		if c.Name == "sid" && c.Domain == "example.com" && c.Value != "v1" {
			t.Errorf("incremental path overwrote existing cookie: %+v", c)
		}
	}
}

func TestReadCookiesMissingFile(t *testing.T) {
	reg := newTestRegistry(t)

	jar, err := reg.ReadCookies("never-written")
	if err != nil {
		t.Fatalf("ReadCookies: %v", err)
	}
	if jar != nil {
		t.Errorf("missing checkpoint should read as empty jar, got %+v", jar)
	}
}

func TestAppendCookiesNoNewEntriesLeavesFileAlone(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	p, err := reg.Create(ctx, &Profile{Name: "n"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	seed := []Cookie{{Name: "sid", Value: "v1", Domain: "example.com"}}
	if _, err := reg.AppendCookies(p.ID, seed); err != nil {
		t.Fatalf("AppendCookies: %v", err)
	}

	added, err := reg.AppendCookies(p.ID, seed)
	if err != nil {
		t.Fatalf("AppendCookies: %v", err)
	}
	if added != 0 {
		t.Fatalf("expected no additions, got %d", added)
	}
}
