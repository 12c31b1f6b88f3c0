package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DSN", "postgres://localhost/engagements")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("APP_ENV", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("SCHEDULING_SLOT_MINUTES", "")
	t.Setenv("NOTIFY_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "development" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.HTTP.Port != 7090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Scheduling.SlotMinutes != 30 {
		t.Errorf("slot minutes = %d", cfg.Scheduling.SlotMinutes)
	}
	if cfg.Notify.Timeout != 5*time.Second {
		t.Errorf("notify timeout = %s", cfg.Notify.Timeout)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DB_DSN")
	}
}

func TestLoadRejectsSlotSize(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DSN", "postgres://localhost/engagements")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("SCHEDULING_SLOT_MINUTES", "1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected slot size validation error")
	}
}

func TestParseList(t *testing.T) {
	got := parseList(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("parseList = %v", got)
	}
}
