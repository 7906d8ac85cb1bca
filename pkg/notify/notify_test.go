package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

func sampleMilestone() domain.Milestone {
	return domain.Milestone{
		EventID:    "ev-1",
		EventName:  "Demo Flight",
		PhaseID:    "max_q",
		PhaseName:  "Max-Q",
		MessageID:  "msg-1",
		OperatorID: "op-1",
		At:         time.Date(2026, 5, 1, 12, 1, 12, 0, time.UTC),
	}
}

func TestRedisStreamPublisherAppendsMilestone(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p, err := NewRedisStreamPublisher(client, RedisStreamConfig{Stream: "test:milestones"})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	ctx := context.Background()
	if err := p.PublishMilestone(ctx, sampleMilestone()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs, err := client.XRange(ctx, "test:milestones", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected one stream entry, got %d", len(msgs))
	}
	values := msgs[0].Values
	if values["event_id"] != "ev-1" || values["phase_id"] != "max_q" {
		t.Fatalf("unexpected stream fields: %+v", values)
	}
	var got domain.Milestone
	if err := json.Unmarshal([]byte(values["payload"].(string)), &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got != sampleMilestone() {
		t.Fatalf("payload mismatch: %+v", got)
	}
}

func TestRedisStreamPublisherReportsRedisErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	p, err := NewRedisStreamPublisher(client, RedisStreamConfig{})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	mr.Close()
	if err := p.PublishMilestone(context.Background(), sampleMilestone()); err == nil {
		t.Fatalf("expected publish to fail when redis is down")
	}
}

func TestAMQPPublishingEnvelope(t *testing.T) {
	msg, err := milestonePublishing(sampleMilestone())
	if err != nil {
		t.Fatalf("build publishing: %v", err)
	}
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
	if msg.MessageId != "msg-1" || routingKey(sampleMilestone()) != "milestone.ev-1" {
		t.Fatalf("unexpected ids: %s %s", msg.MessageId, routingKey(sampleMilestone()))
	}
}

func TestNewAMQPPublisherRequiresURL(t *testing.T) {
	if _, err := NewAMQPPublisher(AMQPConfig{}); err == nil {
		t.Fatalf("expected missing url to fail")
	}
}
