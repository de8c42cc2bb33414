package auth

import (
	"net/http"
	"strings"
)

// SecConfig mirrors the security-related configuration used to drive
// authentication, CORS and rate limiting behavior. Put here so limiter.go
// and gateway.go can reference the shared type.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	APIKeys        map[string]struct{}
}

// Open reports whether the gateway runs without API keys. With no keys
// configured every caller is admitted; rate limiting then keys on client IP.
func (c SecConfig) Open() bool { return len(c.APIKeys) == 0 }

// Rate limit defaults applied when the config leaves them unset.
const (
	DefaultRPS   = 5
	DefaultBurst = 10
)

// NewSecConfig builds a SecConfig from flat configuration values, filling
// in the rate limit defaults so the gateway never runs with a zero rate.
func NewSecConfig(origins []string, rps float64, burst int, whitelist []string, keys []string) SecConfig {
	if rps <= 0 {
		rps = DefaultRPS
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	cfg := SecConfig{
		AllowedOrigins: origins,
		RPS:            rps,
		Burst:          burst,
		IPWhitelist:    whitelist,
	}
	if len(keys) > 0 {
		cfg.APIKeys = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			k = strings.TrimSpace(k)
			if k != "" {
				cfg.APIKeys[k] = struct{}{}
			}
		}
	}
	return cfg
}

// apiKey extracts the caller's key, preferring Authorization: Bearer over
// X-API-Key.
func apiKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		if k := strings.TrimSpace(auth[7:]); k != "" {
			return k
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
