// Package app assembles the profile and proxy registries, the proxy checker,
// the session orchestrator, and the event relay behind the single boundary
// the UI-facing transport calls.
package app

import (
	"context"

	"github.com/entrhq/veil/pkg/config"
	"github.com/entrhq/veil/pkg/events"
	"github.com/entrhq/veil/pkg/logging"
	"github.com/entrhq/veil/pkg/profile"
	"github.com/entrhq/veil/pkg/proxy"
	"github.com/entrhq/veil/pkg/session"
)

// Service is the boundary facade. One call yields one result; the only
// asynchronous notification is the ProfileClosed event observed through
// OnProfileClosed.
type Service struct {
	cfg          *config.Config
	profiles     *profile.Registry
	proxies      *proxy.Registry
	checker      *proxy.Checker
	relay        *events.Relay
	orchestrator *session.Orchestrator
	log          *logging.Logger
}

// New builds a service over cfg, creating the on-disk layout if needed and
// migrating any legacy name-keyed profile directories.
func New(cfg *config.Config, engine session.Engine) (*Service, error) {
	logging.SetDirectory(cfg.LogsDir())
	log, _ := logging.NewLogger("app")

	profiles, err := profile.NewRegistry(cfg.ProfilesDir())
	if err != nil {
		return nil, err
	}
	if n, err := profiles.Migrate(context.Background()); err != nil {
		log.Warnf("profile layout migration: %v", err)
	} else if n > 0 {
		log.Infof("migrated %d legacy profile directories", n)
	}

	proxies, err := proxy.NewRegistry(cfg.ProxiesDir())
	if err != nil {
		return nil, err
	}

	relay := events.NewRelay()
	orch := session.NewOrchestrator(engine, profiles, proxies, relay, session.Options{
		Headless:          cfg.Headless,
		StartURL:          cfg.StartURL,
		NavigationTimeout: cfg.NavigationTimeout,
	})

	return &Service{
		cfg:          cfg,
		profiles:     profiles,
		proxies:      proxies,
		checker:      proxy.NewChecker(cfg.CheckURL, cfg.GeoEndpoint, cfg.CheckTimeout),
		relay:        relay,
		orchestrator: orch,
		log:          log,
	}, nil
}

// ListProfiles returns all persisted profiles.
func (s *Service) ListProfiles(ctx context.Context) ([]*profile.Profile, error) {
	return s.profiles.List(ctx)
}

// GetProfile returns one profile by id.
func (s *Service) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	return s.profiles.Get(ctx, id)
}

// CreateProfile persists a new profile.
func (s *Service) CreateProfile(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	return s.profiles.Create(ctx, p)
}

// EditProfile replaces a profile's editable fields.
func (s *Service) EditProfile(ctx context.Context, id string, p profile.Profile) (*profile.Profile, error) {
	return s.profiles.Update(ctx, id, p)
}

// UpdateProfileNotes rewrites only a profile's notes.
func (s *Service) UpdateProfileNotes(ctx context.Context, id, notes string) (*profile.Profile, error) {
	return s.profiles.UpdateNotes(ctx, id, notes)
}

// DeleteProfile removes a profile, its storage directory, and its cookies.
func (s *Service) DeleteProfile(ctx context.Context, id string) error {
	return s.profiles.Delete(ctx, id)
}

// LaunchProfile starts a browser session for the profile.
func (s *Service) LaunchProfile(ctx context.Context, id string) (*session.Session, error) {
	return s.orchestrator.Launch(ctx, id)
}

// ProfileRunning reports whether the profile has a live session.
func (s *Service) ProfileRunning(id string) bool {
	return s.orchestrator.Running(id)
}

// ListProxies returns all persisted proxy records.
func (s *Service) ListProxies(ctx context.Context) ([]*proxy.Record, error) {
	return s.proxies.List(ctx)
}

// CreateProxy persists a proxy from explicit fields.
func (s *Service) CreateProxy(ctx context.Context, rec *proxy.Record) (*proxy.Record, error) {
	return s.proxies.Create(ctx, rec)
}

// CreateProxyFromURI parses a raw proxy URI and persists the result.
func (s *Service) CreateProxyFromURI(ctx context.Context, uri string) (*proxy.Record, error) {
	return s.proxies.CreateFromURI(ctx, uri)
}

// EditProxy replaces a proxy record's fields. Identity is unchanged, so
// profiles referencing the id keep working.
func (s *Service) EditProxy(ctx context.Context, id string, rec proxy.Record) (*proxy.Record, error) {
	return s.proxies.Update(ctx, id, rec)
}

// DeleteProxy removes a proxy record. Profiles referencing it keep the
// dangling id; launching them fails with a clear error.
func (s *Service) DeleteProxy(ctx context.Context, id string) error {
	return s.proxies.Delete(ctx, id)
}

// TestProxy health-checks a raw proxy URI and returns the resulting status.
// Transport failures are a NotWorking status, never an error; only a
// malformed URI fails the call.
func (s *Service) TestProxy(ctx context.Context, uri string) (proxy.Status, error) {
	rec, err := proxy.ParseURI(uri)
	if err != nil {
		return "", err
	}
	return s.checker.Check(ctx, rec), nil
}

// CheckProxy health-checks a stored proxy and persists the new status. Only
// the status field is written, so an edit landing during the check survives.
func (s *Service) CheckProxy(ctx context.Context, id string) (*proxy.Record, error) {
	rec, err := s.proxies.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.proxies.SetStatus(ctx, id, s.checker.Check(ctx, rec))
}

// ResolveProxyCountry looks up the geolocation of a raw proxy URI's host.
func (s *Service) ResolveProxyCountry(ctx context.Context, uri string) (string, error) {
	rec, err := proxy.ParseURI(uri)
	if err != nil {
		return "", err
	}
	return s.checker.Country(ctx, rec), nil
}

// ResolveCountry looks up and persists the country of a stored proxy. Like
// CheckProxy, the write touches only the country field.
func (s *Service) ResolveCountry(ctx context.Context, id string) (*proxy.Record, error) {
	rec, err := s.proxies.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.proxies.SetCountry(ctx, id, s.checker.Country(ctx, rec))
}

// OnProfileClosed registers the active observer for termination events.
// Events fired while no observer is registered are dropped; the registry is
// the durable source of truth for launched state.
func (s *Service) OnProfileClosed(fn func(events.ProfileClosed)) {
	s.relay.Subscribe(fn)
}

// Shutdown best-effort terminates all live browser sessions.
func (s *Service) Shutdown(ctx context.Context) {
	s.orchestrator.Shutdown(ctx)
}
