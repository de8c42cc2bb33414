package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"chatrelay/internal/retention"
	"chatrelay/pkg/config"
	"chatrelay/pkg/files"
	"chatrelay/pkg/store"
	"chatrelay/pkg/webhook"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	relay *webhook.Client

	srv *http.Server
}

// New initializes resources that do not require a running context (config
// validation, session store, webhook client). It does not start the HTTP
// server; call Run to start it and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// open store
	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	relay, err := webhook.New(webhook.Config{
		URL:         eff.Config.Webhook.URL,
		CACertFile:  eff.Config.Webhook.CAFile,
		Timeout:     eff.Config.Webhook.Timeout.Duration(),
		Development: eff.Config.Development(),
	})
	if err != nil {
		return nil, err
	}

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate, relay: relay}
	return a, nil
}

// Validator builds the upload validator from the effective config.
func (a *App) Validator() files.Validator {
	return files.Validator{MaxSize: a.eff.Config.Upload.MaxSize.Int64()}
}

// Run starts the retention runner (if enabled) and the HTTP server, and
// blocks until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.eff.Config.Retention.Enabled {
		r, err := retention.New(a.eff.Config.Retention)
		if err != nil {
			return err
		}
		r.Start(ctx)
	}

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(shutCtx)
		_ = store.Close()
		return nil
	case err := <-errCh:
		_ = store.Close()
		return err
	}
}
