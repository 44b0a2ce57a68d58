package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "OUTBOX_DRIVER", "PROBE_INTERVAL", "CORS_ORIGINS", "SEED_USERS", "BACKEND_URL"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Mode != ModeOffline || c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.OutboxDriver != "file" || c.OutboxPath == "" {
		t.Fatalf("unexpected outbox defaults: %q %q", c.OutboxDriver, c.OutboxPath)
	}
	if c.ProbeInterval != 5*time.Second || !c.SeedUsers {
		t.Fatalf("unexpected probe/seed defaults: %s %v", c.ProbeInterval, c.SeedUsers)
	}
	if len(c.CORSOrigins) != 1 || c.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors defaults: %v", c.CORSOrigins)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("BACKEND_URL", "https://quiz.example/")
	t.Setenv("PROBE_INTERVAL", "30")
	t.Setenv("HTTP_TIMEOUT", "750ms")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("SEED_USERS", "")

	c := FromEnv()
	if c.Mode != ModeOnline || c.SeedUsers {
		t.Fatalf("online mode should not seed users by default: %+v", c)
	}
	if c.BackendURL != "https://quiz.example" {
		t.Fatalf("trailing slash not trimmed: %q", c.BackendURL)
	}
	if c.ProbeInterval != 30*time.Second || c.HTTPTimeout != 750*time.Millisecond {
		t.Fatalf("durations: %s %s", c.ProbeInterval, c.HTTPTimeout)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors: %v", c.CORSOrigins)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "no")
	if envBool("X_BOOL", true) {
		t.Fatalf("envBool should parse no")
	}
	t.Setenv("X_BOOL", "maybe")
	if !envBool("X_BOOL", true) {
		t.Fatalf("envBool should fall back to default")
	}
	t.Setenv("X_DUR", "-5s")
	if envDuration("X_DUR", time.Minute) != time.Minute {
		t.Fatalf("negative duration should fall back")
	}
}
