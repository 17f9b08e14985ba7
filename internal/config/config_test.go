package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr: got %q", cfg.HTTPAddr)
	}
	if cfg.ResolverTimeout != 10*time.Second {
		t.Fatalf("resolver timeout: got %v", cfg.ResolverTimeout)
	}
	if cfg.ResolverRateLimit != 10 {
		t.Fatalf("resolver rate limit: got %d", cfg.ResolverRateLimit)
	}
	if cfg.RateLimitBackend != "memory" {
		t.Fatalf("rate limit backend: got %q", cfg.RateLimitBackend)
	}
	if cfg.InsecureAcceptTestSignatures || cfg.AllowPlaceholderProofs {
		t.Fatal("insecure modes must default off")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GENESISGRAPH_HTTP_ADDR", ":9999")
	t.Setenv("GENESISGRAPH_RESOLVER_TIMEOUT", "3s")
	t.Setenv("GENESISGRAPH_RATE_LIMIT_REQUESTS", "5")
	t.Setenv("GENESISGRAPH_INSECURE_ACCEPT_TEST_SIGNATURES", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.ResolverTimeout != 3*time.Second || cfg.RateLimitRequests != 5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.InsecureAcceptTestSignatures {
		t.Fatal("insecure flag not applied")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("GENESISGRAPH_RESOLVER_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("invalid duration must fail")
	}
}

func TestLoad_RedisBackendNeedsAddr(t *testing.T) {
	t.Setenv("GENESISGRAPH_RATE_LIMIT_BACKEND", "redis")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "GENESISGRAPH_REDIS_ADDR") {
		t.Fatalf("expected redis addr error, got %v", err)
	}
}
