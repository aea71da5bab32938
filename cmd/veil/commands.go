package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/entrhq/veil/pkg/app"
	"github.com/entrhq/veil/pkg/events"
	"github.com/entrhq/veil/pkg/profile"
)

func listProfiles(ctx context.Context, svc *app.Service) error {
	profiles, err := svc.ListProfiles(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("no profiles")
		return nil
	}
	for _, p := range profiles {
		status := "stopped"
		if p.Launched || svc.ProfileRunning(p.ID) {
			status = "running"
		}
		proxyRef := p.ProxyID
		if proxyRef == "" && p.Proxy != "" {
			proxyRef = p.Proxy
		}
		if proxyRef == "" {
			proxyRef = "direct"
		}
		fmt.Printf("%s  %-20s  %-8s  proxy=%s  cookies=%d\n", p.ID, p.Name, status, proxyRef, len(p.Cookies))
	}
	return nil
}

func createProfile(ctx context.Context, svc *app.Service, args []string) error {
	fs := flag.NewFlagSet("create-profile", flag.ContinueOnError)
	name := fs.String("name", "", "Display name (required)")
	useragent := fs.String("useragent", "", "User-agent override")
	notes := fs.String("notes", "", "Free-form notes")
	proxyID := fs.String("proxy-id", "", "Stored proxy id to egress through")
	proxyURI := fs.String("proxy", "", "Raw proxy URI to egress through")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("create-profile: -name is required")
	}
	p, err := svc.CreateProfile(ctx, &profile.Profile{
		Name:      *name,
		UserAgent: *useragent,
		Notes:     *notes,
		ProxyID:   *proxyID,
		Proxy:     *proxyURI,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created profile %s (%s)\n", p.ID, p.Name)
	return nil
}

func editProfile(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("edit-profile: profile id required")
	}
	id := args[0]
	cur, err := svc.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("edit-profile", flag.ContinueOnError)
	name := fs.String("name", cur.Name, "Display name")
	useragent := fs.String("useragent", cur.UserAgent, "User-agent override")
	notes := fs.String("notes", cur.Notes, "Free-form notes")
	proxyID := fs.String("proxy-id", cur.ProxyID, "Stored proxy id")
	proxyURI := fs.String("proxy", cur.Proxy, "Raw proxy URI")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	next := *cur
	next.Name = *name
	next.UserAgent = *useragent
	next.Notes = *notes
	next.ProxyID = *proxyID
	next.Proxy = *proxyURI
	if _, err := svc.EditProfile(ctx, id, next); err != nil {
		return err
	}
	fmt.Printf("updated profile %s\n", id)
	return nil
}

func updateNote(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("note: profile id and text required")
	}
	if _, err := svc.UpdateProfileNotes(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
		return err
	}
	fmt.Printf("updated notes for %s\n", args[0])
	return nil
}

func deleteProfile(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("delete-profile: profile id required")
	}
	if err := svc.DeleteProfile(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted profile %s\n", args[0])
	return nil
}

func launchProfile(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("launch: profile id required")
	}
	id := args[0]

	svc.OnProfileClosed(func(ev events.ProfileClosed) {
		fmt.Printf("session ended with %d cookies captured\n", len(ev.Cookies))
	})
	sess, err := svc.LaunchProfile(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("profile %s launched, waiting for the browser to close...\n", id)
	select {
	case <-sess.Done():
		fmt.Printf("profile %s closed\n", id)
	case <-ctx.Done():
	}
	return nil
}

func listProxies(ctx context.Context, svc *app.Service) error {
	proxies, err := svc.ListProxies(ctx)
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		fmt.Println("no proxies")
		return nil
	}
	for _, rec := range proxies {
		fmt.Printf("%s  %-20s  %-30s  %-12s  %s\n", rec.ID, rec.Name, rec.ServerURL(), rec.Status, rec.Country)
	}
	return nil
}

func addProxy(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("add-proxy: proxy URI required")
	}
	rec, err := svc.CreateProxyFromURI(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("created proxy %s (%s)\n", rec.ID, rec.Name)
	return nil
}

func deleteProxy(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("delete-proxy: proxy id required")
	}
	if err := svc.DeleteProxy(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted proxy %s\n", args[0])
	return nil
}

func testProxy(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("test-proxy: proxy URI required")
	}
	status, err := svc.TestProxy(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func checkProxy(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("check-proxy: proxy id required")
	}
	rec, err := svc.CheckProxy(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", rec.Name, rec.Status)
	return nil
}

func resolveCountry(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("country: proxy id required")
	}
	rec, err := svc.ResolveCountry(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", rec.Name, rec.Country)
	return nil
}
