package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"
)

// Default endpoints, overridable through configuration.
const (
	DefaultCheckURL    = "https://httpbin.org/ip"
	DefaultGeoEndpoint = "https://ipinfo.io"
	DefaultTimeout     = 15 * time.Second
)

// Checker probes live proxies. Failures are data, not faults: Check degrades
// to StatusNotWorking and Country to "Unknown", so a caller cannot tell a dead
// proxy from a dead checker. That collapse is intentional.
type Checker struct {
	checkURL    string
	geoEndpoint string
	timeout     time.Duration
}

// NewChecker builds a checker against the given IP-echo URL and geolocation
// endpoint. Empty arguments fall back to the defaults.
func NewChecker(checkURL, geoEndpoint string, timeout time.Duration) *Checker {
	if checkURL == "" {
		checkURL = DefaultCheckURL
	}
	if geoEndpoint == "" {
		geoEndpoint = DefaultGeoEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{checkURL: checkURL, geoEndpoint: geoEndpoint, timeout: timeout}
}

// Check issues one request through the proxy to the IP-echo endpoint. Any 2xx
// response means Working; everything else, including transport errors, means
// NotWorking. It never returns an error.
func (c *Checker) Check(ctx context.Context, rec *Record) Status {
	client, err := c.clientFor(rec)
	if err != nil {
		return StatusNotWorking
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.checkURL, nil)
	if err != nil {
		return StatusNotWorking
	}
	resp, err := client.Do(req)
	if err != nil {
		return StatusNotWorking
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StatusNotWorking
	}
	return StatusWorking
}

// Country resolves the proxy host's geolocation. Any failure degrades to
// "Unknown". The lookup goes direct, keyed by the proxy's host.
func (c *Checker) Country(ctx context.Context, rec *Record) string {
	lookupURL := fmt.Sprintf("%s/%s/json", strings.TrimRight(c.geoEndpoint, "/"), rec.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return CountryUnknown
	}
	client := &http.Client{Timeout: c.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return CountryUnknown
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CountryUnknown
	}
	var body struct {
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Country == "" {
		return CountryUnknown
	}
	return body.Country
}

// clientFor builds an HTTP client whose transport egresses through rec.
// SOCKS5 proxies dial through x/net/proxy; HTTP(S) proxies use the standard
// CONNECT path with credentials in the proxy URL.
func (c *Checker) clientFor(rec *Record) (*http.Client, error) {
	var transport *http.Transport

	switch strings.ToLower(rec.Protocol) {
	case "socks5", "socks5h", "socks":
		var auth *xproxy.Auth
		if rec.HasAuth() {
			auth = &xproxy.Auth{User: rec.Username, Password: rec.Password}
		}
		dialer, err := xproxy.SOCKS5("tcp", rec.Addr(), auth, xproxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("proxy: socks5 dialer for %s: %w", rec.Addr(), err)
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(xproxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	default:
		u, err := url.Parse(rec.TransportURL())
		if err != nil {
			return nil, fmt.Errorf("proxy: transport URL for %s: %w", rec.Addr(), err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}

	return &http.Client{Transport: transport, Timeout: c.timeout}, nil
}
