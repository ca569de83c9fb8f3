package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// authConfig gates the admin surface. Auth is optional for local development
// but the loader logs loudly when it is off.
type authConfig struct {
	adminUsername string
	adminPassword string
	adminToken    string
	enabled       bool
}

func loadAuthConfig() *authConfig {
	cfg := &authConfig{
		adminUsername: os.Getenv("ADMIN_USERNAME"),
		adminPassword: os.Getenv("ADMIN_PASSWORD"),
		adminToken:    os.Getenv("ADMIN_TOKEN"),
	}
	cfg.enabled = (cfg.adminUsername != "" && cfg.adminPassword != "") || cfg.adminToken != ""
	if !cfg.enabled {
		slog.Warn("admin endpoints unprotected; set ADMIN_USERNAME+ADMIN_PASSWORD or ADMIN_TOKEN")
	}
	return cfg
}

// adminAuth accepts either an X-Admin-Token header or basic auth credentials.
// Comparisons are constant-time. With no credentials configured it passes
// everything through.
func adminAuth(next http.Handler, cfg *authConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.enabled {
			next.ServeHTTP(w, r)
			return
		}

		if cfg.adminToken != "" {
			if tok := r.Header.Get("X-Admin-Token"); tok != "" &&
				subtle.ConstantTimeCompare([]byte(tok), []byte(cfg.adminToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}

		if cfg.adminUsername != "" && cfg.adminPassword != "" {
			if user, pass, ok := r.BasicAuth(); ok {
				userOK := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.adminUsername)) == 1
				passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.adminPassword)) == 1
				if userOK && passOK {
					next.ServeHTTP(w, r)
					return
				}
			}
		}

		w.Header().Set("WWW-Authenticate", `Basic realm="peak-tender admin"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		slog.Warn("admin auth failed", slog.String("path", r.URL.Path), slog.String("remote_addr", r.RemoteAddr))
	})
}

type rateLimiterConfig struct {
	enabled       bool
	requestsPerIP int
	window        time.Duration
}

func loadRateLimiterConfig() *rateLimiterConfig {
	cfg := &rateLimiterConfig{
		enabled:       os.Getenv("RATE_LIMIT_ENABLED") != "0",
		requestsPerIP: getEnvInt("RATE_LIMIT_REQUESTS_PER_IP", 10),
		window:        time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
	if cfg.requestsPerIP <= 0 {
		cfg.requestsPerIP = 10
	}
	if cfg.window <= 0 {
		cfg.window = time.Minute
	}
	return cfg
}

// ipRateLimiter tracks request timestamps per caller IP over a sliding
// window. State is in-memory; the analyze/import endpoints it protects are
// admin-only and the service runs as a single instance.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cfg      *rateLimiterConfig
}

type visitor struct {
	requests []time.Time
	lastSeen time.Time
}

func newIPRateLimiter(ctx context.Context, cfg *rateLimiterConfig) *ipRateLimiter {
	rl := &ipRateLimiter{visitors: make(map[string]*visitor), cfg: cfg}
	go rl.evictLoop(ctx)
	return rl
}

func (rl *ipRateLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-ctx.Done():
			return
		}
	}
}

// evictIdle drops IPs that have been quiet for two full windows.
func (rl *ipRateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-2 * rl.cfg.window)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *ipRateLimiter) allow(ip string) bool {
	if !rl.cfg.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &visitor{requests: []time.Time{now}, lastSeen: now}
		return true
	}

	// Keep only requests still inside the window.
	cutoff := now.Add(-rl.cfg.window)
	kept := v.requests[:0]
	for _, t := range v.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	v.requests = kept
	v.lastSeen = now

	if len(v.requests) >= rl.cfg.requestsPerIP {
		return false
	}
	v.requests = append(v.requests, now)
	return true
}

func rateLimitMiddleware(next http.Handler, limiter *ipRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !limiter.allow(ip) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too Many Requests - rate limit exceeded", http.StatusTooManyRequests)
			slog.Warn("rate limit exceeded", slog.String("ip", ip), slog.String("path", r.URL.Path))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop so limits hold behind a
// reverse proxy, then strips any port.
func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = fwd
		if idx := strings.Index(fwd, ","); idx >= 0 {
			ip = fwd[:idx]
		}
		ip = strings.TrimSpace(ip)
	}
	if idx := strings.LastIndex(ip, ":"); idx >= 0 {
		ip = ip[:idx]
	}
	return ip
}

// corsConfig is permissive for dev (ENV unset/dev) and origin-listed
// otherwise; CORS_PERMISSIVE overrides the mode either way.
type corsConfig struct {
	allowedOrigins []string
	permissive     bool
}

func loadCORSConfig() *corsConfig {
	mode := strings.ToLower(os.Getenv("ENV"))
	cfg := &corsConfig{permissive: mode == "" || mode == "dev" || mode == "development"}

	if v := os.Getenv("CORS_PERMISSIVE"); v != "" {
		cfg.permissive = v == "1" || v == "true"
	}
	for _, origin := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.allowedOrigins = append(cfg.allowedOrigins, origin)
		}
	}
	if !cfg.permissive && len(cfg.allowedOrigins) == 0 {
		slog.Warn("CORS restricted with no CORS_ALLOWED_ORIGINS; cross-origin requests will be blocked")
	}
	return cfg
}

const corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
const corsHeaders = "Content-Type, Authorization, X-Admin-Token, X-Correlation-ID"

func withCORSConfig(next http.Handler, cfg *corsConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		switch {
		case cfg.permissive:
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", corsMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
		case origin != "" && isOriginAllowed(origin, cfg.allowedOrigins):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", corsMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isOriginAllowed matches exact origins plus "*.domain" wildcard entries,
// which also cover the bare domain on either scheme.
func isOriginAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if origin == a {
			return true
		}
		if strings.HasPrefix(a, "*.") {
			domain := a[2:]
			if strings.HasSuffix(origin, "."+domain) || origin == "https://"+domain || origin == "http://"+domain {
				return true
			}
		}
	}
	return false
}
