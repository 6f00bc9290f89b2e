package server

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveClientAddr(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trusted := parseTrustedProxies([]string{"10.0.0.0/8", "203.0.113.10", "nope", "1.2.3.4/99", " "}, logger)
	assert.Len(t, trusted, 2)

	tests := []struct {
		name    string
		remote  string
		xff     string
		proxies trustedProxies
		want    string
	}{
		{"no proxies uses peer", "198.51.100.10:1234", "203.0.113.5", nil, "198.51.100.10"},
		{"untrusted peer ignores header", "198.51.100.10:1234", "203.0.113.5", trusted, "198.51.100.10"},
		{"trusted peer uses header", "203.0.113.10:1234", "198.51.100.7", trusted, "198.51.100.7"},
		{"right-most untrusted hop", "10.1.2.3:80", "192.0.2.1, 198.51.100.1, 10.9.9.9", trusted, "198.51.100.1"},
		{"all hops trusted uses left-most", "10.1.2.3:80", "10.0.0.1, 10.0.0.2", trusted, "10.0.0.1"},
		{"malformed hop stops the chain", "10.1.2.3:80", "192.0.2.1, garbage", trusted, "10.1.2.3"},
		{"missing header keeps peer", "10.1.2.3:80", "", trusted, "10.1.2.3"},
		{"ipv6 peer with zone", "[fe80::1%eth0]:9000", "", nil, "fe80::1"},
		{"ipv4-mapped peer", "[::ffff:10.0.0.5]:80", "192.0.2.9", trusted, "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			got, ok := resolveClientAddr(req, tt.proxies)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestResolveClientAddr_NoPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = ""
	_, ok := resolveClientAddr(req, nil)
	assert.False(t, ok)
}
