package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Account event routing keys
const (
	EventAccountRegistered      = "account.registered"
	EventAccountVerified        = "account.verified"
	EventAccountLocked          = "account.locked"
	EventAccountPasswordReset   = "account.password_reset"
	EventAccountPasswordChanged = "account.password_changed"
	EventAccountDeleted         = "account.deleted"
)

// AccountEvent is the JSON body published for every account lifecycle change
type AccountEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Role       string    `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher broadcasts account events. Publishing is best effort:
// callers log failures and never fail a request because of them.
type EventPublisher interface {
	Publish(ctx context.Context, event AccountEvent) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event AccountEvent) error { return nil }

// AMQPPublisher publishes persistent JSON messages to a durable topic exchange,
// keeping one connection open and redialing lazily after it drops.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange, logger: logger}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connectLocked() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("amqp exchange declare: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event AccountEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

// publishEvent sends event and only logs a failure
func publishEvent(ctx context.Context, publisher EventPublisher, logger *slog.Logger, eventType string, userID, role string) {
	if publisher == nil {
		return
	}
	event := AccountEvent{Type: eventType, UserID: userID, Role: role, OccurredAt: time.Now().UTC()}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish account event",
			slog.String("event", eventType),
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
}
