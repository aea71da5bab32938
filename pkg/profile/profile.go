// Package profile persists browsing identities. Each profile owns an
// id-keyed directory holding its record (profile.json), its incremental
// cookie checkpoint (cookies.json), and the browser engine's own user-data
// state, so a profile's whole identity survives across launches and is
// destroyed as a unit on delete.
package profile

// Profile is a persisted browsing identity. The on-disk record is the sole
// source of truth; anything held in memory is a cache that must reconcile
// with it after every mutation.
type Profile struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	UserAgent string   `json:"useragent,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	ProxyID   string   `json:"proxyId,omitempty"`
	Proxy     string   `json:"proxy,omitempty"` // raw proxy URI, used when no ProxyID is set
	Launched  bool     `json:"launched"`
	Cookies   []Cookie `json:"cookies,omitempty"`
}

// Cookie is one entry of a profile's cookie jar. Name+Domain is the identity
// used for deduplication; the remaining fields are carried opaquely for the
// browser engine.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Key returns the dedup identity of the cookie.
func (c Cookie) Key() string {
	return c.Name + "\x00" + c.Domain
}
