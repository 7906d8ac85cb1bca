package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultPrefix namespaces limiter keys in a shared Redis.
const DefaultPrefix = "launchday:ratelimit"

// Result reports whether a key may act now, and if not, how long until it may.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter enforces a per-key cooldown: after a successful Acquire the same key
// is rejected until the window elapses.
type Limiter interface {
	Acquire(ctx context.Context, key string) (Result, error)
	// Release drops a reservation so a failed action does not cost the caller
	// a cooldown.
	Release(ctx context.Context, key string) error
}

// Key builds the limiter key for one user acting on one event.
func Key(scope, eventID, userID string) string {
	return fmt.Sprintf("%s:%s:%s", cleanPart(scope), cleanPart(eventID), cleanPart(userID))
}

func cleanPart(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

func validateWindow(window time.Duration) error {
	if window <= 0 {
		return errors.New("rate limiter requires a positive window")
	}
	return nil
}
