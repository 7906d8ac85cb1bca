package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackosaurus2014/spacehub-sub018/internal/ratelimit"
	"github.com/jackosaurus2014/spacehub-sub018/internal/util"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/mission"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/notify"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/store"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/tracker"
)

const (
	DefaultChatCooldown     = 5 * time.Second
	DefaultReactionCooldown = 2 * time.Second
	DefaultReactionWindow   = 30 * time.Second
)

// Policy holds the tunable product windows.
type Policy struct {
	ReactionWindow time.Duration
	Buckets        tracker.Windows
}

// Config holds runtime dependencies for the core application.
type Config struct {
	Store           store.Store
	ChatLimiter     ratelimit.Limiter
	ReactionLimiter ratelimit.Limiter
	Notifier        notify.Publisher
	Policy          Policy
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// App is the mission-tracking core: status derivation, dashboard buckets and
// the audience engagement paths.
type App struct {
	store           store.Store
	chatLimiter     ratelimit.Limiter
	reactionLimiter ratelimit.Limiter
	notifier        notify.Publisher
	reactionWindow  time.Duration
	buckets         tracker.Windows
	clock           func() time.Time
}

// New constructs the application. Missing limiters fall back to in-process
// ones, which are only correct for a single instance.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if err := mission.ValidateCatalog(mission.Catalog()); err != nil {
		return nil, fmt.Errorf("phase catalog: %w", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	chatLimiter := cfg.ChatLimiter
	if chatLimiter == nil {
		l, err := ratelimit.NewMemoryCooldownLimiter(DefaultChatCooldown, clock)
		if err != nil {
			return nil, err
		}
		chatLimiter = l
	}
	reactionLimiter := cfg.ReactionLimiter
	if reactionLimiter == nil {
		l, err := ratelimit.NewMemoryCooldownLimiter(DefaultReactionCooldown, clock)
		if err != nil {
			return nil, err
		}
		reactionLimiter = l
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	window := cfg.Policy.ReactionWindow
	if window <= 0 {
		window = DefaultReactionWindow
	}
	return &App{
		store:           cfg.Store,
		chatLimiter:     chatLimiter,
		reactionLimiter: reactionLimiter,
		notifier:        notifier,
		reactionWindow:  window,
		buckets:         cfg.Policy.Buckets,
		clock:           clock,
	}, nil
}

// Now returns the application clock in UTC.
func (a *App) Now() time.Time {
	return a.clock().UTC()
}

func (a *App) loadEvent(ctx context.Context, id string) (domain.Event, error) {
	if id == "" {
		return domain.Event{}, invalidf("event id required")
	}
	e, ok, err := a.store.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("load event %s: %w", id, err)
	}
	if !ok {
		return domain.Event{}, ErrEventNotFound
	}
	return e, nil
}

// acquire takes a cooldown slot. Limiter failures reject the request.
func acquire(ctx context.Context, l ratelimit.Limiter, key string) error {
	res, err := l.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if !res.Allowed {
		return &RateLimitError{RetryAfter: res.RetryAfter}
	}
	return nil
}

func release(ctx context.Context, l ratelimit.Limiter, key string) {
	if err := l.Release(ctx, key); err != nil {
		util.LoggerFromContext(ctx).Warn("rate limit release failed", "key", key, "err", err)
	}
}
