package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIPDirect(t *testing.T) {
	r := NewClientIPResolver()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4321"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	if got := r.ClientIP(req); got != "203.0.113.9" {
		t.Errorf("ClientIP = %q, want direct peer; forwarded header from untrusted peer must be ignored", got)
	}
}

func TestClientIPTrustedProxy(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.2"}, "198.51.100.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"garbage forwarded", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.1"},
		{"no headers", nil, "10.0.0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewClientIPResolver()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:9000"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := r.ClientIP(req); got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	r := NewClientIPResolver()
	if err := r.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}
	if err := r.AddTrustedProxy("bogus"); err == nil {
		t.Error("AddTrustedProxy accepted invalid CIDR")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4321"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := r.ClientIP(req); got != "198.51.100.1" {
		t.Errorf("ClientIP = %q, want forwarded address after trusting proxy range", got)
	}
}

func TestHeadersApplied(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP response")
	}
}
