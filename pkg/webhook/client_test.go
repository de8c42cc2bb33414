package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
)

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	logger.Init()
	c, err := New(Config{URL: url, Timeout: timeout})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestSendForwardsPayloadAndReturnsBody(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"pong"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5*time.Second)
	raw, err := c.Send(context.Background(), Payload{Message: "ping", SessionID: "s1"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(raw) != `{"reply":"pong"}` {
		t.Fatalf("raw body = %s", raw)
	}
	if got.Message != "ping" || got.SessionID != "s1" {
		t.Fatalf("payload not forwarded: %+v", got)
	}
}

func TestSendUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5*time.Second)
	_, err := c.Send(context.Background(), Payload{Message: "x", SessionID: "s"})
	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if werr.Code != ErrCodeUpstreamStatus || werr.Status != http.StatusInternalServerError {
		t.Fatalf("code=%s status=%d", werr.Code, werr.Status)
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 50*time.Millisecond)
	_, err := c.Send(context.Background(), Payload{Message: "x", SessionID: "s"})
	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if werr.Code != ErrCodeTimeout {
		t.Fatalf("code = %s, want timeout", werr.Code)
	}
}

func TestSendConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, time.Second)
	_, err := c.Send(context.Background(), Payload{Message: "x", SessionID: "s"})
	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if werr.Code != ErrCodeRefused {
		t.Fatalf("code = %s, want refused", werr.Code)
	}
}

func TestSendDNSFailure(t *testing.T) {
	c := newTestClient(t, "http://chatrelay-does-not-exist.invalid/webhook", time.Second)
	_, err := c.Send(context.Background(), Payload{Message: "x", SessionID: "s"})
	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if werr.Code != ErrCodeDNS {
		t.Fatalf("code = %s, want dns", werr.Code)
	}
}

func TestSendCertErrorSurfacedInProduction(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer srv.Close()

	// self-signed cert, no CA configured, production mode: no downgrade
	c := newTestClient(t, srv.URL, 5*time.Second)
	_, err := c.Send(context.Background(), Payload{Message: "x", SessionID: "s"})
	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if werr.Code != ErrCodeCert {
		t.Fatalf("code = %s, want cert", werr.Code)
	}
}

func TestSendDevModeRetriesInsecureOnce(t *testing.T) {
	var handled int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&handled, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer srv.Close()

	logger.Init()
	c, err := New(Config{URL: srv.URL, Timeout: 5 * time.Second, Development: true})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	raw, err := c.Send(context.Background(), Payload{Message: "x", SessionID: "s"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(raw) != `{"reply":"ok"}` {
		t.Fatalf("raw body = %s", raw)
	}
	// the verified attempt fails during the handshake, so exactly one
	// request reaches the handler: the single insecure retry
	if n := atomic.LoadInt32(&handled); n != 1 {
		t.Fatalf("handler served %d requests, want 1", n)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestBuildFullMessage(t *testing.T) {
	if got := BuildFullMessage("hi", nil); got != "" {
		t.Fatalf("no attachments should produce no digest, got %q", got)
	}
	atts := []models.Attachment{
		{ID: "a1", Name: "report.pdf", MimeType: "application/pdf", SizeBytes: 2048, Category: models.CategoryPDF},
		{ID: "a2", Name: "data.csv", MimeType: "text/csv", SizeBytes: 100},
	}
	got := BuildFullMessage("summarize these", atts)
	for _, want := range []string{
		"summarize these",
		"ATTACHED DOCUMENTS:",
		`1. DOCUMENT: "report.pdf"`,
		"Category: pdf",
		"Size: 2.0 KB",
		"ID: a1",
		`2. DOCUMENT: "data.csv"`,
		"Category: unknown",
		"base64",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("digest missing %q:\n%s", want, got)
		}
	}
}
