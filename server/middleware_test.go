package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuthDisabled(t *testing.T) {
	cfg := &authConfig{enabled: false}
	h := adminAuth(okHandler(), cfg)

	req := httptest.NewRequest(http.MethodGet, "/admin/catalog/sync", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("disabled auth should pass through, got %d", rec.Code)
	}
}

func TestAdminAuthToken(t *testing.T) {
	cfg := &authConfig{adminToken: "secret-token", enabled: true}
	h := adminAuth(okHandler(), cfg)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid token", "secret-token", http.StatusOK},
		{"wrong token", "wrong", http.StatusUnauthorized},
		{"missing token", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/catalog/sync", nil)
			if tt.token != "" {
				req.Header.Set("X-Admin-Token", tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestAdminAuthBasic(t *testing.T) {
	cfg := &authConfig{adminUsername: "admin", adminPassword: "hunter2", enabled: true}
	h := adminAuth(okHandler(), cfg)

	req := httptest.NewRequest(http.MethodGet, "/admin/catalog/sync", nil)
	req.SetBasicAuth("admin", "hunter2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid basic auth rejected: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/catalog/sync", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password accepted: %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header on 401")
	}
}

func TestRateLimiterAllow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &rateLimiterConfig{enabled: true, requestsPerIP: 2, window: time.Minute}
	limiter := newIPRateLimiter(ctx, cfg)

	if !limiter.allow("1.2.3.4") || !limiter.allow("1.2.3.4") {
		t.Fatal("first two requests should be allowed")
	}
	if limiter.allow("1.2.3.4") {
		t.Error("third request should be rate limited")
	}
	if !limiter.allow("5.6.7.8") {
		t.Error("different IP should not be affected")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &rateLimiterConfig{enabled: false, requestsPerIP: 1, window: time.Minute}
	limiter := newIPRateLimiter(ctx, cfg)

	for i := 0; i < 10; i++ {
		if !limiter.allow("1.2.3.4") {
			t.Fatal("disabled limiter should always allow")
		}
	}
}

func TestCORSPermissivePreflight(t *testing.T) {
	cfg := &corsConfig{permissive: true}
	h := withCORSConfig(okHandler(), cfg)

	req := httptest.NewRequest(http.MethodOptions, "/vods", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("permissive CORS origin = %q, want *", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSRestricted(t *testing.T) {
	cfg := &corsConfig{permissive: false, allowedOrigins: []string{"https://app.example.com", "*.trusted.com"}}
	h := withCORSConfig(okHandler(), cfg)

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://app.example.com", true},
		{"https://sub.trusted.com", true},
		{"https://evil.com", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/vods", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin")
		if tt.allowed && got != tt.origin {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", tt.origin, got, tt.origin)
		}
		if !tt.allowed && got != "" {
			t.Errorf("origin %s: Allow-Origin = %q, want empty", tt.origin, got)
		}
	}
}
