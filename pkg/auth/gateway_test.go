package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chatrelay/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(cfg SecConfig, req *http.Request) *httptest.ResponseRecorder {
	logger.Init()
	h := AuthenticateRequestMiddleware(cfg)(okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestOpenModeAdmitsAnyCaller(t *testing.T) {
	cfg := NewSecConfig(nil, 100, 100, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	if w := serve(cfg, req); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := NewSecConfig(nil, 100, 100, nil, []string{"secret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	if w := serve(cfg, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("no key: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.Header.Set("X-API-Key", "wrong")
	if w := serve(cfg, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.Header.Set("X-API-Key", "secret")
	if w := serve(cfg, req); w.Code != http.StatusOK {
		t.Fatalf("x-api-key: status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	if w := serve(cfg, req); w.Code != http.StatusOK {
		t.Fatalf("bearer: status = %d, want 200", w.Code)
	}
}

func TestHealthEndpointsBypassAuth(t *testing.T) {
	cfg := NewSecConfig(nil, 100, 100, nil, []string{"secret"})
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if w := serve(cfg, req); w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, w.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := NewSecConfig([]string{"https://app.example.com"}, 100, 100, nil, []string{"secret"})
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(cfg, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}

	// unlisted origins get no CORS headers
	req = httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(cfg, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin for unlisted origin: %q", got)
	}
}

func TestIPWhitelist(t *testing.T) {
	cfg := NewSecConfig(nil, 100, 100, []string{"10.0.0.1"}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.RemoteAddr = "10.0.0.2:4444"
	if w := serve(cfg, req); w.Code != http.StatusForbidden {
		t.Fatalf("blocked ip: status = %d, want 403", w.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.RemoteAddr = "10.0.0.1:4444"
	if w := serve(cfg, req); w.Code != http.StatusOK {
		t.Fatalf("whitelisted ip: status = %d, want 200", w.Code)
	}
}

func TestRateLimitExhaustion(t *testing.T) {
	cfg := NewSecConfig(nil, 1, 2, nil, nil)
	h := AuthenticateRequestMiddleware(cfg)(okHandler())
	logger.Init()

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests should pass: %v", codes)
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %v", codes)
	}
}

func TestNewSecConfigFillsRateDefaults(t *testing.T) {
	cfg := NewSecConfig(nil, 0, 0, nil, nil)
	if cfg.RPS != DefaultRPS || cfg.Burst != DefaultBurst {
		t.Fatalf("rps=%v burst=%d, want defaults %d/%d", cfg.RPS, cfg.Burst, DefaultRPS, DefaultBurst)
	}

	// an unset rate limit must still admit a normal trickle of requests
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.RemoteAddr = "192.0.2.9:1000"
	if w := serve(cfg, req); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
