package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"genesisgraph/internal/domain"
)

// memoryLimiter is a sliding-window limiter: it keeps the recent request
// timestamps per key and prunes everything older than the window on each
// check. A request is recorded only after it passes the limit check.
type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string][]time.Time
	maxKeys int
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		windows: make(map[string][]time.Time),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := pruneBefore(m.windows[key], cutoff)
	if len(recent) == 0 {
		delete(m.windows, key)
		if len(m.windows) >= m.maxKeys {
			m.gc(cutoff)
		}
		if len(m.windows) >= m.maxKeys {
			return domain.RateLimitDecision{}, errors.New("rate limiter capacity exceeded")
		}
	}

	if len(recent) >= limit {
		m.windows[key] = recent
		return domain.RateLimitDecision{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   recent[0].Add(window),
		}, nil
	}

	recent = append(recent, now)
	m.windows[key] = recent
	return domain.RateLimitDecision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(recent),
		ResetAt:   recent[0].Add(window),
	}, nil
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

func (m *memoryLimiter) gc(cutoff time.Time) {
	for key, stamps := range m.windows {
		if pruned := pruneBefore(stamps, cutoff); len(pruned) == 0 {
			delete(m.windows, key)
		}
	}
}
