// Package events publishes domain events to RabbitMQ. Publishing failures are
// logged and returned so callers can ignore them without interrupting the main
// request flow.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const UserRegisteredQueue = "auth.user.registered"

// UserRegisteredEvent carries enough information for downstream consumers
// (mailers, analytics) without querying the primary database.
type UserRegisteredEvent struct {
	UserID       string `json:"user_id"`
	Login        string `json:"login"`
	RegisteredAt string `json:"registered_at"`
}

// Publisher holds a long-lived connection and channel, constructed once at
// startup and injected where needed.
type Publisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger
}

func NewPublisher(url string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(UserRegisteredQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, logger: logger}, nil
}

// PublishUserRegistered sends the event to the registration queue. Safe to call
// on a nil publisher, which makes the broker optional.
func (p *Publisher) PublishUserRegistered(ctx context.Context, event UserRegisteredEvent) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal user registered event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, "", UserRegisteredQueue, false, false, pub); err != nil {
		p.logger.Warn("publish user registered event failed",
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	_ = p.ch.Close()
	_ = p.conn.Close()
}
