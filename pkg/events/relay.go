// Package events delivers asynchronous session lifecycle notifications to
// the single active observer, decoupling process-exit callbacks from the
// synchronous calls that started the session.
package events

import (
	"sync"

	"github.com/entrhq/veil/pkg/profile"
)

// ProfileClosed is emitted at most once per launch, when a profile's browser
// process has terminated and its final cookie snapshot has been persisted.
type ProfileClosed struct {
	ProfileID string
	Cookies   []profile.Cookie
}

// Relay fans termination events to at most one observer. Delivery is
// at-most-once per event: if no observer is registered when an event fires,
// the event is dropped. The persisted profile record remains the durable
// source of truth, so a returning observer re-reads the registry instead of
// replaying missed events.
type Relay struct {
	mu       sync.Mutex
	observer func(ProfileClosed)
}

// NewRelay creates an empty relay with no observer.
func NewRelay() *Relay {
	return &Relay{}
}

// Subscribe installs fn as the current observer, replacing any previous one.
func (r *Relay) Subscribe(fn func(ProfileClosed)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// Unsubscribe removes the current observer. Subsequent events are dropped.
func (r *Relay) Unsubscribe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = nil
}

// Publish delivers ev to the current observer, if any. Events for the same
// profile arrive in the order they are published; events for different
// profiles may interleave. Reports whether the event was delivered.
func (r *Relay) Publish(ev ProfileClosed) bool {
	r.mu.Lock()
	fn := r.observer
	r.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(ev)
	return true
}
