package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("LAUNCH_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://launch:launch@db:5432/launch?sslmode=disable")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("LAUNCH_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LAUNCH_CHAT_COOLDOWN", "7s")
	t.Setenv("LAUNCH_RECENT_LIMIT", "4")

	path := writeConfig(t, `
port: "8086"
logLevel: "info"
databaseURL: "postgres://ignored"
policy:
  reactionWindow: "45s"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q, want 9090", cfg.Port)
	}
	if !strings.HasPrefix(cfg.DatabaseURL, "postgres://launch:") {
		t.Fatalf("databaseURL not overridden: %q", cfg.DatabaseURL)
	}
	if cfg.StoreDriver != StorePostgres || cfg.RateLimitBackend != RateLimitRedis || cfg.NotifyDriver != NotifyNone {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("corsOrigins = %v", cfg.CORSOrigins)
	}

	policy, err := ParsePolicy(cfg.Policy)
	if err != nil {
		t.Fatalf("parse policy: %v", err)
	}
	if policy.ChatCooldown != 7*time.Second || policy.ReactionWindow != 45*time.Second {
		t.Fatalf("unexpected policy durations: %+v", policy)
	}
	if policy.Buckets.RecentLimit != 4 || policy.ReactionCooldown != 0 {
		t.Fatalf("unexpected policy: %+v", policy)
	}
}

func TestLoadMemoryDriversNeedNoBackends(t *testing.T) {
	path := writeConfig(t, `
port: "8086"
storeDriver: memory
rateLimitBackend: memory
jwtSecret: "`+testSecret+`"
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("load config: %v", err)
	}
}

func TestValidateConfigRejects(t *testing.T) {
	base := FileConfig{
		Port:             "8086",
		StoreDriver:      StoreMemory,
		RateLimitBackend: RateLimitMemory,
		NotifyDriver:     NotifyNone,
		JWTSecret:        testSecret,
	}
	if err := validateConfig(base); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*FileConfig)
		want   string
	}{
		{"missing port", func(c *FileConfig) { c.Port = "" }, "port"},
		{"postgres without dsn", func(c *FileConfig) { c.StoreDriver = StorePostgres }, "databaseURL"},
		{"unknown store", func(c *FileConfig) { c.StoreDriver = "sqlite" }, "storeDriver"},
		{"redis limiter without addr", func(c *FileConfig) { c.RateLimitBackend = RateLimitRedis }, "redisAddr"},
		{"amqp without url", func(c *FileConfig) { c.NotifyDriver = NotifyAMQP }, "amqpURL"},
		{"short secret", func(c *FileConfig) { c.JWTSecret = "short" }, "jwtSecret"},
		{"bad leeway", func(c *FileConfig) { c.JWTLeeway = "soon" }, "jwtLeeway"},
		{"bad cooldown", func(c *FileConfig) { c.Policy.ChatCooldown = "five" }, "chatCooldown"},
		{"negative window", func(c *FileConfig) { c.Policy.ReactionWindow = "-1s" }, "reactionWindow"},
		{"negative limit", func(c *FileConfig) { c.Policy.UpcomingLimit = -1 }, "limits"},
		{"inverted buckets", func(c *FileConfig) {
			c.Policy.ImminentWindow = "12h"
			c.Policy.UpcomingWindow = "6h"
		}, "upcomingWindow"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := validateConfig(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
