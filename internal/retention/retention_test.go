package retention

import (
	"testing"
	"time"

	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
)

func TestNewValidation(t *testing.T) {
	logger.Init()

	if _, err := New(config.RetentionConfig{Cron: "not a cron", Period: "720h"}); err == nil {
		t.Fatalf("expected error for invalid cron")
	}
	if _, err := New(config.RetentionConfig{Period: ""}); err == nil {
		t.Fatalf("expected error for empty period")
	}
	if _, err := New(config.RetentionConfig{Period: "soon"}); err == nil {
		t.Fatalf("expected error for unparsable period")
	}
	if _, err := New(config.RetentionConfig{Period: "-1h"}); err == nil {
		t.Fatalf("expected error for negative period")
	}

	r, err := New(config.RetentionConfig{Period: "720h"})
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if r.cron != "0 2 * * *" {
		t.Fatalf("default cron = %q", r.cron)
	}
	if r.period != 720*time.Hour {
		t.Fatalf("period = %v", r.period)
	}
}

func TestRunOnceKeepsFreshSessions(t *testing.T) {
	logger.Init()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.SaveSession(models.Session{ID: "fresh"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	r, err := New(config.RetentionConfig{Period: "1h"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := r.RunOnce(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := store.GetSession("fresh"); err != nil {
		t.Fatalf("fresh session purged: %v", err)
	}
}

func TestRunOnceDryRunNeverDeletes(t *testing.T) {
	logger.Init()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.SaveSession(models.Session{ID: "s1"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// a period of one nanosecond makes every session a purge candidate on
	// the next run; dry-run must still keep it
	r, err := New(config.RetentionConfig{Period: "1ns", DryRun: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	time.Sleep(time.Millisecond)
	if err := r.RunOnce(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := store.GetSession("s1"); err != nil {
		t.Fatalf("dry run deleted session: %v", err)
	}
}

func TestRunOncePurgesIdleSessions(t *testing.T) {
	logger.Init()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.SaveSession(models.Session{ID: "idle"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	r, err := New(config.RetentionConfig{Period: "1ns"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	time.Sleep(time.Millisecond)
	if err := r.RunOnce(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := store.GetSession("idle"); err == nil {
		t.Fatalf("idle session survived purge")
	}
}
