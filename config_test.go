package goEnroll

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigNeedsKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "PrivateKey") {
		t.Fatalf("expected missing key error, got %v", err)
	}
	valid := testConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("test config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }, "AccessTTL"},
		{"refresh not longer than access", func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL }, "greater than AccessTTL"},
		{"unknown signing method", func(c *Config) { c.JWT.SigningMethod = "rs256" }, "SigningMethod"},
		{"short hs256 key", func(c *Config) { c.JWT.PrivateKey = []byte("short") }, "32 bytes"},
		{"empty prefix", func(c *Config) { c.Session.RedisPrefix = "" }, "RedisPrefix"},
		{"low memory", func(c *Config) { c.Password.Memory = 1024 }, "Memory"},
		{"short salt", func(c *Config) { c.Password.SaltLength = 8 }, "SaltLength"},
		{"negative min length", func(c *Config) { c.Password.MinLength = -1 }, "MinLength"},
		{"login throttle without window", func(c *Config) {
			c.Security.MaxLoginAttempts = 3
			c.Security.LoginCooldownDuration = 0
		}, "LoginCooldownDuration"},
		{"refresh throttle without window", func(c *Config) {
			c.Security.MaxRefreshAttempts = 3
			c.Security.RefreshWindow = 0
		}, "RefreshWindow"},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, "BufferSize"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	_, rdb := newTestRedis(t)

	if _, err := New().WithConfig(testConfig()).WithStore(newTestStore(t)).Build(); err == nil {
		t.Fatal("expected missing redis to fail")
	}
	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected missing store to fail")
	}

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithStore(newTestStore(t))
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected a second Build to fail")
	}
}

func TestBuilderCopiesConfig(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.JWT.AccessTTL = 2 * time.Minute

	e, err := New().WithConfig(cfg).WithRedis(rdb).WithStore(newTestStore(t)).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()

	cfg.JWT.PrivateKey[0] = 'X'
	pair, _, err := e.Register(t.Context(), registerRequest("a@x.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if pair.ExpiresIn != 120 {
		t.Fatalf("expected 120s access lifetime, got %d", pair.ExpiresIn)
	}
	if _, err := e.Authenticate(t.Context(), pair.AccessToken); err != nil {
		t.Fatalf("mutating the caller's key must not affect the engine: %v", err)
	}
}

func TestEngineHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	if err := env.engine.Health(t.Context()); err != nil {
		t.Fatalf("health: %v", err)
	}
	env.mr.Close()
	if err := env.engine.Health(t.Context()); err == nil {
		t.Fatal("expected health to fail without redis")
	}
}

func TestSecurityReportReflectsConfig(t *testing.T) {
	e := newTestEnv(t, func(cfg *Config) {
		cfg.Security.MaxLoginAttempts = 5
		cfg.Security.MaxRefreshAttempts = 0
	}, NewChannelSink(8)).engine

	r := e.SecurityReport()
	if r.SigningAlgorithm != "hs256" || !r.LoginThrottleActive || r.RefreshThrottleActive || !r.AuditEnabled {
		t.Fatalf("unexpected report %+v", r)
	}
	// The test config uses a light argon2 profile.
	if len(r.Warnings) != 1 || !strings.Contains(r.Warnings[0], "argon2") {
		t.Fatalf("expected argon2 warning only, got %v", r.Warnings)
	}

	var nilEngine *Engine
	if got := nilEngine.SecurityReport(); got.SigningAlgorithm != "" {
		t.Fatalf("expected empty report for nil engine, got %+v", got)
	}
}
