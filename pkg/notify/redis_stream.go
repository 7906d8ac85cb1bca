package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

// RedisStreamConfig configures the Redis stream publisher.
type RedisStreamConfig struct {
	Stream string
	MaxLen int64
}

// RedisStreamPublisher appends milestones to a capped Redis stream that
// consumer groups can read independently.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, cfg RedisStreamConfig) (*RedisStreamPublisher, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = "launchday:milestones"
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}, nil
}

func (p *RedisStreamPublisher) PublishMilestone(ctx context.Context, m domain.Milestone) error {
	body, err := encodeMilestone(m)
	if err != nil {
		return err
	}
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id": m.EventID,
			"phase_id": m.PhaseID,
			"at":       m.At.UTC().Format(time.RFC3339Nano),
			"payload":  string(body),
		},
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (p *RedisStreamPublisher) Close() error { return nil }
