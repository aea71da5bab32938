// Package proxy manages reusable network egress definitions: parsing proxy
// URIs, persisting proxy records on disk, and probing live proxies for
// reachability and geolocation.
package proxy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Status is the cached health of a proxy. It is only updated by an explicit
// check, never implicitly on read.
type Status string

const (
	StatusUnchecked  Status = "Unchecked"
	StatusWorking    Status = "Working"
	StatusNotWorking Status = "Not working"
)

// CountryUnknown is the geolocation placeholder until a lookup succeeds.
const CountryUnknown = "Unknown"

// ErrMalformedURI is returned when a proxy URI cannot be parsed.
var ErrMalformedURI = errors.New("proxy: malformed proxy URI")

// Record is a persisted proxy definition. Its identity (ID) is independent of
// the connection fields, so editing host, port, or credentials never changes
// which profiles reference it.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Status   Status `json:"status"`
	Country  string `json:"country"`
}

// ParseURI parses "scheme://[user:pass@]host:port" into an id-less record.
// Callers assign identity and a default name before persisting.
func ParseURI(uri string) (*Record, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" || rest == "" {
		return nil, fmt.Errorf("%w: missing scheme separator in %q", ErrMalformedURI, uri)
	}

	var username, password string
	hostPort := rest
	// Split on the last '@' so passwords containing '@' survive.
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		username, password, _ = strings.Cut(rest[:at], ":")
		hostPort = rest[at+1:]
	}

	host, portStr, ok := strings.Cut(hostPort, ":")
	if !ok || host == "" || portStr == "" {
		return nil, fmt.Errorf("%w: missing host:port in %q", ErrMalformedURI, uri)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("%w: port %q is not numeric", ErrMalformedURI, portStr)
	}

	return &Record{
		Protocol: scheme,
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Status:   StatusUnchecked,
		Country:  CountryUnknown,
	}, nil
}

// Addr returns "host:port", also the default display name for parsed records.
func (r *Record) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HasAuth reports whether the record carries credentials.
func (r *Record) HasAuth() bool {
	return r.Username != "" || r.Password != ""
}

// TransportURL rebuilds the full proxy URI, embedding credentials when
// present. It round-trips with ParseURI for well-formed input, including a
// user with no password.
func (r *Record) TransportURL() string {
	if !r.HasAuth() {
		return r.ServerURL()
	}
	cred := r.Username
	if r.Password != "" {
		cred += ":" + r.Password
	}
	return fmt.Sprintf("%s://%s@%s:%d", r.Protocol, cred, r.Host, r.Port)
}

// ServerURL returns "scheme://host:port" with credentials stripped. This is
// the form handed to the browser process, keeping credentials out of process
// arguments; authentication happens through the engine's auth step instead.
func (r *Record) ServerURL() string {
	return fmt.Sprintf("%s://%s:%d", r.Protocol, r.Host, r.Port)
}
