package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/veil/pkg/profile"
)

// PlaywrightEngine drives real browser processes through Playwright. Each
// Launch opens a persistent context rooted at the profile's storage
// directory, so browser-internal state survives across launches alongside
// the application-level cookie jar.
type PlaywrightEngine struct {
	mu sync.Mutex
	pw *playwright.Playwright
}

// NewPlaywrightEngine returns an engine; the Playwright driver is installed
// and started lazily on first launch.
func NewPlaywrightEngine() *PlaywrightEngine {
	return &PlaywrightEngine{}
}

func (e *PlaywrightEngine) ensureRunning() (*playwright.Playwright, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pw != nil {
		return e.pw, nil
	}
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("session: install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("session: start playwright: %w", err)
	}
	e.pw = pw
	return pw, nil
}

// Launch opens a persistent Chromium context for the given options.
func (e *PlaywrightEngine) Launch(_ context.Context, opts LaunchOptions) (Handle, error) {
	pw, err := e.ensureRunning()
	if err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:   playwright.Bool(opts.Headless),
		NoViewport: playwright.Bool(true),
	}
	if opts.ProxyServer != "" {
		px := &playwright.Proxy{Server: opts.ProxyServer}
		if opts.ProxyUsername != "" || opts.ProxyPassword != "" {
			px.Username = playwright.String(opts.ProxyUsername)
			px.Password = playwright.String(opts.ProxyPassword)
		}
		launchOpts.Proxy = px
	}
	if opts.UserAgent != "" {
		launchOpts.UserAgent = playwright.String(opts.UserAgent)
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir, launchOpts)
	if err != nil {
		return nil, fmt.Errorf("session: launch persistent context: %w", err)
	}

	var page playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = bctx.NewPage()
		if err != nil {
			_ = bctx.Close()
			return nil, fmt.Errorf("session: open page: %w", err)
		}
	}

	return &playwrightHandle{ctx: bctx, page: page}, nil
}

// Stop shuts down the Playwright driver. Live contexts should be closed
// first.
func (e *PlaywrightEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pw == nil {
		return nil
	}
	err := e.pw.Stop()
	e.pw = nil
	return err
}

type playwrightHandle struct {
	ctx  playwright.BrowserContext
	page playwright.Page
}

func (h *playwrightHandle) AddCookies(cookies []profile.Cookie) error {
	converted := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		oc := playwright.OptionalCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: playwright.String(c.Domain),
			Path:   playwright.String(c.Path),
		}
		if c.Path == "" {
			oc.Path = playwright.String("/")
		}
		if c.Expires != 0 {
			oc.Expires = playwright.Float(c.Expires)
		}
		if c.HTTPOnly {
			oc.HttpOnly = playwright.Bool(true)
		}
		if c.Secure {
			oc.Secure = playwright.Bool(true)
		}
		if ss := sameSiteFromString(c.SameSite); ss != nil {
			oc.SameSite = ss
		}
		converted = append(converted, oc)
	}
	return h.ctx.AddCookies(converted)
}

func (h *playwrightHandle) Cookies() ([]profile.Cookie, error) {
	raw, err := h.ctx.Cookies()
	if err != nil {
		return nil, err
	}
	out := make([]profile.Cookie, 0, len(raw))
	for _, c := range raw {
		pc := profile.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			pc.SameSite = string(*c.SameSite)
		}
		out = append(out, pc)
	}
	return out, nil
}

func (h *playwrightHandle) Navigate(url string, timeout time.Duration) error {
	_, err := h.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (h *playwrightHandle) OnRequest(fn func()) {
	h.page.OnRequest(func(playwright.Request) { fn() })
}

func (h *playwrightHandle) OnClose(fn func()) {
	h.ctx.OnClose(func(playwright.BrowserContext) { fn() })
}

func (h *playwrightHandle) Close() error {
	return h.ctx.Close()
}

func sameSiteFromString(s string) *playwright.SameSiteAttribute {
	switch s {
	case "Strict":
		return playwright.SameSiteAttributeStrict
	case "Lax":
		return playwright.SameSiteAttributeLax
	case "None":
		return playwright.SameSiteAttributeNone
	default:
		return nil
	}
}
