package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every runtime knob for the verification service. Values come
// from the environment; zero-config runs work with the defaults below.
type Config struct {
	HTTPAddr string

	ResolverTimeout   time.Duration
	ResolverCacheTTL  time.Duration
	ResolverCacheSize int
	ResolverRateLimit int

	RateLimitBackend  string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// VerifyCacheTTL bounds reuse of rendered verification responses for
	// identical request bodies. Zero disables the cache.
	VerifyCacheTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string

	// InsecureAcceptTestSignatures and AllowPlaceholderProofs disable real
	// cryptographic checks for the marked inputs. Never enable in production.
	InsecureAcceptTestSignatures bool
	AllowPlaceholderProofs       bool
}

func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:          getEnv("GENESISGRAPH_HTTP_ADDR", ":8080"),
		ResolverCacheSize: 1024,
		ResolverRateLimit: 10,
		RateLimitBackend:  getEnv("GENESISGRAPH_RATE_LIMIT_BACKEND", "memory"),
		RateLimitRequests: 100,
		RedisAddr:         os.Getenv("GENESISGRAPH_REDIS_ADDR"),
		RedisPassword:     os.Getenv("GENESISGRAPH_REDIS_PASSWORD"),
		PostgresDSN:       os.Getenv("GENESISGRAPH_POSTGRES_DSN"),
	}

	var err error
	if cfg.ResolverTimeout, err = getDuration("GENESISGRAPH_RESOLVER_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ResolverCacheTTL, err = getDuration("GENESISGRAPH_RESOLVER_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitWindow, err = getDuration("GENESISGRAPH_RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.VerifyCacheTTL, err = getDuration("GENESISGRAPH_VERIFY_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ResolverCacheSize, err = getInt("GENESISGRAPH_RESOLVER_CACHE_SIZE", cfg.ResolverCacheSize); err != nil {
		return Config{}, err
	}
	if cfg.ResolverRateLimit, err = getInt("GENESISGRAPH_RESOLVER_RATE_LIMIT", cfg.ResolverRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRequests, err = getInt("GENESISGRAPH_RATE_LIMIT_REQUESTS", cfg.RateLimitRequests); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = getInt("GENESISGRAPH_REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.InsecureAcceptTestSignatures, err = getBool("GENESISGRAPH_INSECURE_ACCEPT_TEST_SIGNATURES", false); err != nil {
		return Config{}, err
	}
	if cfg.AllowPlaceholderProofs, err = getBool("GENESISGRAPH_ALLOW_PLACEHOLDER_PROOFS", false); err != nil {
		return Config{}, err
	}

	switch cfg.RateLimitBackend {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("invalid GENESISGRAPH_RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}
	if cfg.RateLimitBackend == "redis" && cfg.RedisAddr == "" {
		return Config{}, fmt.Errorf("GENESISGRAPH_REDIS_ADDR is required when rate limit backend is redis")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %v", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return d, nil
}
