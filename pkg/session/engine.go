// Package session orchestrates per-profile browser processes: launching an
// engine bound to a profile's storage directory, proxy, and user-agent,
// checkpointing cookies while the process runs, and reconciling persisted
// state exactly once when it exits.
package session

import (
	"context"
	"time"

	"github.com/entrhq/veil/pkg/profile"
)

// Engine is the opaque browser-automation capability the orchestrator drives.
// The production implementation is Playwright; tests substitute a fake.
type Engine interface {
	// Launch starts one browser process bound to a persistent user-data
	// directory and returns a handle to its initial page context.
	Launch(ctx context.Context, opts LaunchOptions) (Handle, error)
}

// LaunchOptions carries everything a profile contributes to its browser
// process. ProxyServer holds scheme://host:port only; credentials travel
// separately so they never appear in process arguments.
type LaunchOptions struct {
	UserDataDir   string
	Headless      bool
	ProxyServer   string
	ProxyUsername string
	ProxyPassword string
	UserAgent     string
}

// Handle is a live browser process. All methods act on its initial page
// context.
type Handle interface {
	// AddCookies loads cookies into the context before first navigation.
	AddCookies(cookies []profile.Cookie) error
	// Cookies snapshots all cookies currently held by the context.
	Cookies() ([]profile.Cookie, error)
	// Navigate drives the page to url, bounded by timeout.
	Navigate(url string, timeout time.Duration) error
	// OnRequest registers fn to run on every outbound page request.
	OnRequest(fn func())
	// OnClose registers fn to run when the process disconnects. The engine
	// fires it once, whether the user closed the window, the process
	// crashed, or Close was called.
	OnClose(fn func())
	// Close terminates the process.
	Close() error
}
