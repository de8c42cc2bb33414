package app

import (
	"fmt"
	"net/url"
	"os"

	"chatrelay/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	// DB path must be present
	if p := eff.DBPath; p == "" {
		return fmt.Errorf("database path is empty: set --db flag, CHATRELAY_DB_PATH env, or server.db_path in config")
	}

	// the webhook URL is the one required setting
	wu := eff.Config.Webhook.URL
	if wu == "" {
		return fmt.Errorf("webhook url is empty: set webhook.url in config or CHATRELAY_WEBHOOK_URL env")
	}
	u, err := url.Parse(wu)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("webhook url %q must be an absolute http(s) URL", wu)
	}

	// CA file must be readable when configured
	if ca := eff.Config.Webhook.CAFile; ca != "" {
		if _, err := os.Stat(ca); err != nil {
			return fmt.Errorf("webhook ca file not accessible: %w", err)
		}
	}

	// TLS cert/key presence check if one is set
	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	return nil
}
