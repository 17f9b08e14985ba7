package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"genesisgraph/internal/config"
	"genesisgraph/internal/domain"
	cryptoinfra "genesisgraph/internal/infra/crypto"
	"genesisgraph/internal/infra/db"
	httpinfra "genesisgraph/internal/infra/http"
	"genesisgraph/internal/infra/ratelimit"
	"genesisgraph/internal/infra/resolver"
	"genesisgraph/internal/usecase"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	store, err := db.NewStore(cfg.PostgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init store: %v\n", err)
		return 1
	}

	var limiter domain.RateLimiter
	switch cfg.RateLimitBackend {
	case "redis":
		limiter, err = ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init redis limiter: %v\n", err)
			return 1
		}
	default:
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	}

	keyResolver := resolver.New(resolver.Config{
		Timeout:   cfg.ResolverTimeout,
		CacheTTL:  cfg.ResolverCacheTTL,
		CacheSize: cfg.ResolverCacheSize,
		RateLimit: cfg.ResolverRateLimit,
		Logger:    logger,
	})

	if cfg.InsecureAcceptTestSignatures {
		logger.Warn("INSECURE: test-marker signatures will be accepted without verification")
	}
	if cfg.AllowPlaceholderProofs {
		logger.Warn("INSECURE: placeholder transparency proofs will be accepted without verification")
	}

	deps := httpinfra.ServerDeps{
		Verify: &usecase.VerifyAttestation{
			Resolver:                     keyResolver,
			Crypto:                       cryptoinfra.NewService(),
			Logger:                       logger,
			InsecureAcceptTestSignatures: cfg.InsecureAcceptTestSignatures,
		},
		Transparency: &usecase.VerifyTransparency{
			Logger:                 logger,
			AllowPlaceholderProofs: cfg.AllowPlaceholderProofs,
		},
		Resolver:    keyResolver,
		RateLimiter: limiter,
		Logger:      logger,
	}
	if store.DB != nil {
		deps.Records = db.NewRecordRepository(store.DB)
	}

	srv := httpinfra.NewServer(cfg, deps)
	logger.Info("starting verification service", "addr", cfg.HTTPAddr)
	if err := srv.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited: %v\n", err)
		return 1
	}
	return 0
}
