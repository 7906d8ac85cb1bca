package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

// AMQPConfig configures the RabbitMQ publisher.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// AMQPPublisher publishes milestones to a durable topic exchange with routing
// key "milestone.<eventID>".
type AMQPPublisher struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("amqp url required")
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		exchange = "launchday.events"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{exchange: exchange, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) PublishMilestone(ctx context.Context, m domain.Milestone) error {
	msg, err := milestonePublishing(m)
	if err != nil {
		return err
	}
	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey(m), false, false, msg); err != nil {
		return fmt.Errorf("publish milestone: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}

func routingKey(m domain.Milestone) string {
	return "milestone." + m.EventID
}

func milestonePublishing(m domain.Milestone) (amqp.Publishing, error) {
	body, err := encodeMilestone(m)
	if err != nil {
		return amqp.Publishing{}, err
	}
	at := m.At
	if at.IsZero() {
		at = time.Now()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    m.MessageID,
		Timestamp:    at.UTC(),
		Type:         "launchday.milestone",
		Body:         body,
	}, nil
}
