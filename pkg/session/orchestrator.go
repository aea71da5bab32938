package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/veil/pkg/events"
	"github.com/entrhq/veil/pkg/logging"
	"github.com/entrhq/veil/pkg/profile"
	"github.com/entrhq/veil/pkg/proxy"
)

var (
	// ErrProfileNotFound means the launch target has no record; no process
	// is started.
	ErrProfileNotFound = errors.New("session: profile not found")
	// ErrProxyNotFound means the profile references a proxy id that no
	// longer resolves. The launch fails rather than silently falling back
	// to direct egress.
	ErrProxyNotFound = errors.New("session: referenced proxy not found")
	// ErrAlreadyRunning means a session for this profile id is live; only
	// one browser process may own a storage directory at a time.
	ErrAlreadyRunning = errors.New("session: profile already running")
)

// Default orchestration parameters, mirroring the engine's usual bounds.
const (
	DefaultStartURL          = "https://www.google.com"
	DefaultNavigationTimeout = 30 * time.Second
)

// Options tunes orchestration behavior.
type Options struct {
	Headless          bool
	StartURL          string
	NavigationTimeout time.Duration
}

// Session is the transient pairing of a launched profile with a live browser
// process. It exists only while the process is alive.
type Session struct {
	ProfileID string
	StartedAt time.Time

	handle Handle
	once   sync.Once
	done   chan struct{}
}

// Done is closed after the session's termination has been fully reconciled:
// cookies persisted, launched flag cleared, event emitted.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Orchestrator launches browser processes for profiles and reconciles
// persisted state when they exit. Distinct profile ids run fully
// independently; a single id has at most one live session.
type Orchestrator struct {
	engine   Engine
	profiles *profile.Registry
	proxies  *proxy.Registry
	relay    *events.Relay
	opts     Options
	log      *logging.Logger

	mu     sync.Mutex
	active map[string]*Session
}

// NewOrchestrator wires an orchestrator over the given collaborators.
func NewOrchestrator(engine Engine, profiles *profile.Registry, proxies *proxy.Registry, relay *events.Relay, opts Options) *Orchestrator {
	if opts.StartURL == "" {
		opts.StartURL = DefaultStartURL
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	log, _ := logging.NewLogger("session")
	return &Orchestrator{
		engine:   engine,
		profiles: profiles,
		proxies:  proxies,
		relay:    relay,
		opts:     opts,
		log:      log,
		active:   make(map[string]*Session),
	}
}

// Launch starts a browser process for the profile and returns once the
// session is live (or failed). The returned session ends only when the
// process exits; termination is reconciled asynchronously.
func (o *Orchestrator) Launch(ctx context.Context, id string) (*Session, error) {
	sess := &Session{ProfileID: id, done: make(chan struct{})}

	// Reserve the id before any slow work so two concurrent launches of the
	// same profile cannot both reach the engine.
	o.mu.Lock()
	if _, live := o.active[id]; live {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, id)
	}
	o.active[id] = sess
	o.mu.Unlock()

	release := func() {
		o.mu.Lock()
		delete(o.active, id)
		o.mu.Unlock()
	}

	prof, err := o.profiles.Get(ctx, id)
	if err != nil {
		release()
		if errors.Is(err, profile.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
		}
		return nil, err
	}

	opts := LaunchOptions{
		UserDataDir: o.profiles.Dir(id),
		Headless:    o.opts.Headless,
		UserAgent:   prof.UserAgent,
	}
	if err := o.resolveProxy(ctx, prof, &opts); err != nil {
		release()
		return nil, err
	}

	o.log.Infof("launching profile %s (%s)", id, prof.Name)
	handle, err := o.engine.Launch(ctx, opts)
	if err != nil {
		release()
		return nil, fmt.Errorf("session: browser failed to start for %s: %w", id, err)
	}
	sess.handle = handle
	sess.StartedAt = time.Now()

	// Cookie continuity: seed the checkpoint file and the fresh context
	// with the jar captured from the previous session.
	if len(prof.Cookies) > 0 {
		if _, err := o.profiles.AppendCookies(id, prof.Cookies); err != nil {
			o.log.Warnf("profile %s: seed cookie checkpoint: %v", id, err)
		}
		if err := handle.AddCookies(prof.Cookies); err != nil {
			o.log.Warnf("profile %s: load cookies: %v", id, err)
		}
	}

	// The launched flag must be set before the close watcher is registered:
	// a process that dies at startup fires the watcher immediately, and the
	// termination path has to observe (and clear) the flag, never race a
	// later write of it.
	if _, err := o.profiles.SetLaunched(ctx, id, true); err != nil {
		o.log.Warnf("profile %s: mark launched: %v", id, err)
	}

	handle.OnRequest(func() { o.checkpointCookies(id, handle) })
	handle.OnClose(func() { o.finish(sess) })

	if err := handle.Navigate(o.opts.StartURL, o.opts.NavigationTimeout); err != nil {
		// A profile that fails to load a page is closed, not hung. Tear the
		// process down and take the normal termination path so launched
		// never dangles.
		o.log.Errorf("profile %s: navigation failed: %v", id, err)
		_ = handle.Close()
		o.finish(sess)
		return sess, nil
	}

	return sess, nil
}

// resolveProxy fills opts with the profile's egress configuration. A
// registry reference wins over an embedded URI; no reference means direct
// egress.
func (o *Orchestrator) resolveProxy(ctx context.Context, prof *profile.Profile, opts *LaunchOptions) error {
	var rec *proxy.Record
	switch {
	case prof.ProxyID != "":
		var err error
		rec, err = o.proxies.Get(ctx, prof.ProxyID)
		if err != nil {
			if errors.Is(err, proxy.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrProxyNotFound, prof.ProxyID)
			}
			return err
		}
	case prof.Proxy != "":
		var err error
		rec, err = proxy.ParseURI(prof.Proxy)
		if err != nil {
			return err
		}
	default:
		return nil
	}

	opts.ProxyServer = rec.ServerURL()
	opts.ProxyUsername = rec.Username
	opts.ProxyPassword = rec.Password
	return nil
}

// checkpointCookies merges the context's current cookies into the on-disk
// checkpoint. Best effort: failures are logged, never surfaced.
func (o *Orchestrator) checkpointCookies(id string, handle Handle) {
	cookies, err := handle.Cookies()
	if err != nil {
		o.log.Debugf("profile %s: snapshot cookies: %v", id, err)
		return
	}
	if len(cookies) == 0 {
		return
	}
	if _, err := o.profiles.AppendCookies(id, cookies); err != nil {
		o.log.Debugf("profile %s: checkpoint cookies: %v", id, err)
	}
}

// finish reconciles a terminated session exactly once: it folds the cookie
// checkpoint into the profile record, clears the launched flag, and emits
// one ProfileClosed event.
func (o *Orchestrator) finish(sess *Session) {
	sess.once.Do(func() {
		id := sess.ProfileID
		ctx := context.Background()

		cookies, err := o.profiles.ReadCookies(id)
		if err != nil {
			o.log.Warnf("profile %s: read cookie checkpoint: %v", id, err)
		}
		if _, err := o.profiles.SetCookies(ctx, id, cookies); err != nil {
			o.log.Warnf("profile %s: persist cookies: %v", id, err)
		}
		if _, err := o.profiles.SetLaunched(ctx, id, false); err != nil {
			o.log.Warnf("profile %s: clear launched: %v", id, err)
		}

		o.mu.Lock()
		delete(o.active, id)
		o.mu.Unlock()

		o.log.Infof("profile %s closed (%d cookies)", id, len(cookies))
		o.relay.Publish(events.ProfileClosed{ProfileID: id, Cookies: cookies})
		close(sess.done)
	})
}

// Running reports whether a session for the profile id is live.
func (o *Orchestrator) Running(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[id]
	return ok
}

// ActiveCount returns the number of live sessions.
func (o *Orchestrator) ActiveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

// Shutdown best-effort terminates every live browser process so none are
// orphaned on exit. Each close takes the normal termination path.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	sessions := make([]*Session, 0, len(o.active))
	for _, s := range o.active {
		sessions = append(sessions, s)
	}
	o.mu.Unlock()

	for _, s := range sessions {
		if s.handle == nil {
			continue
		}
		_ = s.handle.Close()
		o.finish(s)
		select {
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}
