package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// proxyRecordFor points a record at a test server acting as an HTTP proxy.
func proxyRecordFor(t *testing.T, srv *httptest.Server) *Record {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return &Record{Protocol: "http", Host: u.Hostname(), Port: port}
}

func TestCheck_WorkingProxy(t *testing.T) {
	// The test server plays a forward proxy: any request it answers with
	// 200 counts as a working egress.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewChecker("http://example.invalid/ip", "", 2*time.Second)
	rec := proxyRecordFor(t, srv)

	assert.Equal(t, StatusWorking, checker.Check(context.Background(), rec))
}

func TestCheck_UnreachableProxy(t *testing.T) {
	checker := NewChecker("http://example.invalid/ip", "", 500*time.Millisecond)
	rec := &Record{Protocol: "http", Host: "127.0.0.1", Port: 1} // nothing listens here

	assert.Equal(t, StatusNotWorking, checker.Check(context.Background(), rec))
}

func TestCheck_NonSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	checker := NewChecker("http://example.invalid/ip", "", 2*time.Second)
	rec := proxyRecordFor(t, srv)

	assert.Equal(t, StatusNotWorking, checker.Check(context.Background(), rec))
}

func TestCheck_UnreachableSocksProxy(t *testing.T) {
	checker := NewChecker("http://example.invalid/ip", "", 500*time.Millisecond)
	rec := &Record{Protocol: "socks5", Host: "127.0.0.1", Port: 1, Username: "u", Password: "p"}

	assert.Equal(t, StatusNotWorking, checker.Check(context.Background(), rec))
}

func TestCountry_Resolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/10.0.0.5/json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":"10.0.0.5","country":"DE"}`))
	}))
	defer srv.Close()

	checker := NewChecker("", srv.URL, 2*time.Second)
	rec := &Record{Protocol: "http", Host: "10.0.0.5", Port: 8080}

	assert.Equal(t, "DE", checker.Country(context.Background(), rec))
}

func TestCountry_DegradesToUnknown(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "invalid body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
		{
			name: "empty country",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"country":""}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			checker := NewChecker("", srv.URL, 2*time.Second)
			rec := &Record{Protocol: "http", Host: "10.0.0.5", Port: 8080}
			assert.Equal(t, CountryUnknown, checker.Country(context.Background(), rec))
		})
	}
}

func TestCountry_EndpointDown(t *testing.T) {
	checker := NewChecker("", "http://127.0.0.1:1", 500*time.Millisecond)
	rec := &Record{Protocol: "http", Host: "10.0.0.5", Port: 8080}

	assert.Equal(t, CountryUnknown, checker.Country(context.Background(), rec))
}
