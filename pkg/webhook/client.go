// Package webhook relays chat turns to the configured automation webhook
// over HTTPS, optionally trusting a custom corporate CA, and classifies
// transport failures into stable error codes.
package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
)

// Error codes reported by Send. Handlers map these onto HTTP statuses.
const (
	ErrCodeCert           = "cert"
	ErrCodeDNS            = "dns"
	ErrCodeRefused        = "refused"
	ErrCodeTimeout        = "timeout"
	ErrCodeUpstreamStatus = "upstream_status"
	ErrCodeOther          = "other"
)

// DefaultTimeout bounds a single webhook round trip.
const DefaultTimeout = 30 * time.Second

// Error wraps a failed webhook exchange with a classification code and,
// for upstream_status, the HTTP status the webhook returned.
type Error struct {
	Code   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Code == ErrCodeUpstreamStatus {
		return fmt.Sprintf("webhook: upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("webhook: %s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config carries the webhook endpoint settings resolved at startup.
type Config struct {
	URL         string
	CACertFile  string
	Timeout     time.Duration
	Development bool
}

// Payload is the JSON body posted to the webhook for one chat turn.
type Payload struct {
	Message     string              `json:"message"`
	SessionID   string              `json:"sessionId"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	FullMessage string              `json:"fullMessage,omitempty"`
}

// Client posts chat turns to the webhook. The CA bundle, when configured,
// is loaded once at construction.
type Client struct {
	cfg      Config
	base     *http.Client
	insecure *http.Client
}

// New builds a Client from cfg. A configured CA certificate file is read
// and appended to the system pool; an unreadable or unparsable file is an
// error rather than a silent fallback to system roots.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook: url not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	tr := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.CACertFile != "" {
		pem, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("webhook: read ca cert: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("webhook: no certificates parsed from %s", cfg.CACertFile)
		}
		tr.TLSClientConfig = &tls.Config{RootCAs: pool}
		logger.Info("webhook_ca_loaded", "file", cfg.CACertFile)
	}
	c := &Client{
		cfg:  cfg,
		base: &http.Client{Transport: tr, Timeout: cfg.Timeout},
	}
	if cfg.Development {
		c.insecure = &http.Client{
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
			Timeout: cfg.Timeout,
		}
	}
	return c, nil
}

// Send posts the payload and returns the raw response body. Certificate
// failures in development mode trigger a single retry with verification
// disabled; production never downgrades.
func (c *Client) Send(ctx context.Context, p Payload) (json.RawMessage, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, &Error{Code: ErrCodeOther, Err: err}
	}
	raw, err := c.post(ctx, c.base, body)
	if err == nil {
		return raw, nil
	}
	var werr *Error
	if c.insecure != nil && errors.As(err, &werr) && werr.Code == ErrCodeCert {
		logger.Warn("webhook_cert_error_dev_retry", "url", c.cfg.URL, "error", werr.Err)
		return c.post(ctx, c.insecure, body)
	}
	return nil, err
}

func (c *Client) post(ctx context.Context, hc *http.Client, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Code: ErrCodeOther, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		cerr := classify(err)
		logger.Error("webhook_request_failed", "url", c.cfg.URL, "code", cerr.Code, "error", err)
		return nil, cerr
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: ErrCodeOther, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error("webhook_upstream_status", "url", c.cfg.URL, "status", resp.StatusCode)
		return nil, &Error{Code: ErrCodeUpstreamStatus, Status: resp.StatusCode}
	}
	logger.Info("webhook_response_received", "url", c.cfg.URL, "status", resp.StatusCode, "duration", time.Since(start).String(), "bytes", len(raw))
	return raw, nil
}

func classify(err error) *Error {
	var certInvalid x509.CertificateInvalidError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certInvalid) || errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return &Error{Code: ErrCodeCert, Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Code: ErrCodeDNS, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Code: ErrCodeRefused, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: ErrCodeTimeout, Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &Error{Code: ErrCodeTimeout, Err: err}
	}
	return &Error{Code: ErrCodeOther, Err: err}
}
