package interceptors

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"mentorhub/backend/internal/audit"
)

func TestTrustedRealIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		remote  string
		header  string
		want    string
	}{
		{"no trusted proxies ignores header", nil, "203.0.113.7:4000", "198.51.100.1", "203.0.113.7"},
		{"untrusted peer ignores header", trusted, "203.0.113.7:4000", "198.51.100.1", "203.0.113.7"},
		{"trusted peer forwards client", trusted, "10.1.2.3:4000", "198.51.100.1", "198.51.100.1"},
		{"trusted peer without header", trusted, "10.1.2.3:4000", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = audit.ClientIP(r)
			}))
			req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
			req.RemoteAddr = tt.remote
			if tt.header != "" {
				req.Header.Set("X-Forwarded-For", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("client IP = %q, want %q", got, tt.want)
			}
		})
	}
}
