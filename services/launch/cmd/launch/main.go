package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/jackosaurus2014/spacehub-sub018/internal/ratelimit"
	"github.com/jackosaurus2014/spacehub-sub018/internal/usertoken"
	"github.com/jackosaurus2014/spacehub-sub018/internal/util"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/notify"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/store"
	"github.com/jackosaurus2014/spacehub-sub018/services/launch/internal/app"
	"github.com/jackosaurus2014/spacehub-sub018/services/launch/internal/config"
	"github.com/jackosaurus2014/spacehub-sub018/services/launch/internal/security"
	"github.com/jackosaurus2014/spacehub-sub018/services/launch/internal/server"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := util.InitLogger(util.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})

	policy, err := config.ParsePolicy(cfg.Policy)
	if err != nil {
		util.Fatal("failed to parse policy", "err", err)
	}
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		util.Fatal("failed to parse jwt leeway", "err", err)
	}
	tokenVerifier, err := usertoken.NewVerifier(usertoken.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   jwtLeeway,
	})
	if err != nil {
		util.Fatal("failed to init token verifier", "err", err)
	}
	trusted, err := util.ParseProxyAllowlist(cfg.TrustedProxies)
	if err != nil {
		util.Fatal("invalid trusted proxy cidrs", "err", err)
	}

	st, closeStore := openStore(cfg)
	defer closeStore()

	var (
		redisClient *redis.Client
		alerter     *security.AuditAlerter
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
		alerter, err = security.NewAuditAlerter(redisClient, "")
		if err != nil {
			util.Fatal("failed to init security alerter", "err", err)
		}
	}

	chatLimiter, reactionLimiter := buildLimiters(cfg, policy, redisClient)
	notifier := buildNotifier(cfg, redisClient)
	defer notifier.Close()

	appCore, err := app.New(app.Config{
		Store:           st,
		ChatLimiter:     chatLimiter,
		ReactionLimiter: reactionLimiter,
		Notifier:        notifier,
		Policy: app.Policy{
			ReactionWindow: policy.ReactionWindow,
			Buckets:        policy.Buckets,
		},
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		TokenVerifier:  tokenVerifier,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: trusted,
		Alerter:        alerter,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		slog.Info("launch server listening", "addr", addr, "store", cfg.StoreDriver, "rate_limit", cfg.RateLimitBackend, "notify", cfg.NotifyDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	slog.Info("launch server stopped")
}

func openStore(cfg config.FileConfig) (store.Store, func()) {
	if cfg.StoreDriver == config.StoreMemory {
		mem := store.NewMemoryStore()
		seedDemo(mem)
		slog.Warn("using in-memory store; data is lost on restart")
		return mem, func() {}
	}
	gs, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to open database", "err", err)
	}
	return gs, func() {
		if err := gs.Close(); err != nil {
			slog.Warn("close database failed", "err", err)
		}
	}
}

func buildLimiters(cfg config.FileConfig, policy config.Policy, client *redis.Client) (ratelimit.Limiter, ratelimit.Limiter) {
	chatWindow := policy.ChatCooldown
	if chatWindow <= 0 {
		chatWindow = app.DefaultChatCooldown
	}
	reactionWindow := policy.ReactionCooldown
	if reactionWindow <= 0 {
		reactionWindow = app.DefaultReactionCooldown
	}
	if cfg.RateLimitBackend == config.RateLimitMemory {
		slog.Warn("using in-memory rate limiting; only correct for a single instance")
		chat, err := ratelimit.NewMemoryCooldownLimiter(chatWindow, nil)
		if err != nil {
			util.Fatal("failed to init chat limiter", "err", err)
		}
		reaction, err := ratelimit.NewMemoryCooldownLimiter(reactionWindow, nil)
		if err != nil {
			util.Fatal("failed to init reaction limiter", "err", err)
		}
		return chat, reaction
	}
	chat, err := ratelimit.NewRedisCooldownLimiter(client, ratelimit.DefaultPrefix, chatWindow)
	if err != nil {
		util.Fatal("failed to init chat limiter", "err", err)
	}
	reaction, err := ratelimit.NewRedisCooldownLimiter(client, ratelimit.DefaultPrefix, reactionWindow)
	if err != nil {
		util.Fatal("failed to init reaction limiter", "err", err)
	}
	return chat, reaction
}

func buildNotifier(cfg config.FileConfig, client *redis.Client) notify.Publisher {
	switch cfg.NotifyDriver {
	case config.NotifyRedis:
		p, err := notify.NewRedisStreamPublisher(client, notify.RedisStreamConfig{Stream: cfg.NotifyStream})
		if err != nil {
			util.Fatal("failed to init redis notifier", "err", err)
		}
		return p
	case config.NotifyAMQP:
		p, err := notify.NewAMQPPublisher(notify.AMQPConfig{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange})
		if err != nil {
			util.Fatal("failed to init amqp notifier", "err", err)
		}
		return p
	default:
		return notify.Nop{}
	}
}

// seedDemo gives the in-memory store something to show: one launch ten
// minutes out and one flight already underway.
func seedDemo(s *store.MemoryStore) {
	now := time.Now().UTC()
	soon := now.Add(10 * time.Minute)
	underway := now.Add(-90 * time.Second)
	events := []domain.Event{
		{ID: "demo-falcon9", Name: "Starlink Demo", ScheduledAt: &soon, Vehicle: "Falcon 9", Status: domain.EventGo, CreatedAt: now, UpdatedAt: now},
		{ID: "demo-electron", Name: "Rocket Lab Demo", ScheduledAt: &underway, Vehicle: "Electron", Status: domain.EventInProgress, Live: true, CreatedAt: now, UpdatedAt: now},
	}
	for _, e := range events {
		if err := s.SaveEvent(context.Background(), e); err != nil {
			slog.Warn("seed demo event failed", "id", e.ID, "err", err)
		}
	}
}
