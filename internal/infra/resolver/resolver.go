// Package resolver turns decentralized identifiers into raw Ed25519 public
// keys. did:key resolution is purely local; did:web resolution fetches a DID
// document over HTTPS under a strict network-security policy.
package resolver

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"genesisgraph/internal/domain"
	"genesisgraph/internal/infra/ratelimit"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 1024

	// DefaultRateLimit is the per-domain did:web request budget within
	// RateWindow.
	DefaultRateLimit = 10
	RateWindow       = time.Minute
)

type Config struct {
	Timeout   time.Duration
	CacheTTL  time.Duration
	CacheSize int
	RateLimit int

	// HTTPClient overrides the default client; tests inject one trusting
	// their own certificates. TLS verification and the redirect policy are
	// non-negotiable either way.
	HTTPClient *http.Client

	// Limiter overrides the per-domain limiter, e.g. to share one across
	// resolver instances.
	Limiter domain.RateLimiter

	Logger *slog.Logger
}

// Resolver owns its key cache and rate-limit state exclusively; both are
// safe for concurrent use.
type Resolver struct {
	timeout   time.Duration
	rateLimit int
	client    *http.Client
	limiter   domain.RateLimiter
	cache     *expirable.LRU[string, []byte]
	logger    *slog.Logger
}

func New(cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	// Redirect-based SSRF is off the table regardless of the injected client.
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Resolver{
		timeout:   cfg.Timeout,
		rateLimit: cfg.RateLimit,
		client:    client,
		limiter:   cfg.Limiter,
		cache:     expirable.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:    cfg.Logger,
	}
}

// Resolve resolves a DID to its raw 32-byte Ed25519 public key. keyFragment
// selects among multiple verification methods in a did:web document; it is
// ignored for did:key.
func (r *Resolver) Resolve(ctx context.Context, did string, keyFragment string) ([]byte, error) {
	parsed, err := domain.ParseDID(did)
	if err != nil {
		return nil, err
	}

	cacheKey := did
	if keyFragment != "" {
		cacheKey = did + "#" + keyFragment
	}
	if key, ok := r.cache.Get(cacheKey); ok {
		return append([]byte(nil), key...), nil
	}

	var key []byte
	switch parsed.Method {
	case domain.MethodKey:
		key, err = resolveDIDKey(parsed.MethodID)
	case domain.MethodWeb:
		key, err = r.resolveDIDWeb(ctx, parsed.MethodID, keyFragment)
	default:
		err = fmt.Errorf("%w: unsupported did method", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: resolved key has %d bytes, want %d",
			domain.ErrResolution, len(key), ed25519.PublicKeySize)
	}

	// The cache holds its own copy so a caller mutating the returned slice
	// cannot poison later resolutions.
	r.cache.Add(cacheKey, append([]byte(nil), key...))
	return key, nil
}

// ClearCache drops every cached key.
func (r *Resolver) ClearCache() {
	r.cache.Purge()
}
