package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

const sweepOneIn = 32

// MemoryCooldownLimiter keeps cooldowns in process memory. It is only correct
// for a single instance.
type MemoryCooldownLimiter struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryCooldownLimiter creates an in-process limiter. A nil clock uses
// time.Now.
func NewMemoryCooldownLimiter(window time.Duration, clock func() time.Time) (*MemoryCooldownLimiter, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCooldownLimiter{
		window: window,
		now:    clock,
		last:   make(map[string]time.Time),
	}, nil
}

func (l *MemoryCooldownLimiter) Acquire(_ context.Context, key string) (Result, error) {
	key = cleanPart(key)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.last[key]; ok {
		if elapsed := now.Sub(prev); elapsed < l.window {
			return Result{RetryAfter: l.window - elapsed}, nil
		}
	}
	l.last[key] = now
	if rand.IntN(sweepOneIn) == 0 {
		l.sweepLocked(now)
	}
	return Result{Allowed: true}, nil
}

func (l *MemoryCooldownLimiter) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.last, cleanPart(key))
	l.mu.Unlock()
	return nil
}

// sweepLocked drops entries that can no longer block anyone.
func (l *MemoryCooldownLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-2 * l.window)
	for k, at := range l.last {
		if at.Before(cutoff) {
			delete(l.last, k)
		}
	}
}

func (l *MemoryCooldownLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
