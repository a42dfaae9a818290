package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	EventWaitlistJoined    = "waitlist.joined"
	EventCommitmentCreated = "commitment.created"
	EventContactReceived   = "contact.received"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     io.Closer
	ch       amqpChannel
	exchange string
	now      func() time.Time
	log      *zap.Logger
}

func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return newAMQPPublisher(conn, ch, exchange, log), nil
}

func newAMQPPublisher(conn io.Closer, ch amqpChannel, exchange string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, now: time.Now, log: log}
}

func (p *AMQPPublisher) Publish(_ context.Context, routingKey string, payload interface{}) error {
	evt := Event{ID: uuid.NewString(), Type: routingKey, OccurredAt: p.now().UTC(), Data: payload}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    evt.ID,
			Timestamp:    evt.OccurredAt,
			Type:         routingKey,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.log.Warn("Failed to close broker channel", zap.Error(err))
	}
	return p.conn.Close()
}

// NoopPublisher drops events when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// publishBestEffort logs instead of failing the caller.
func publishBestEffort(ctx context.Context, pub EventPublisher, log *zap.Logger, key string, payload interface{}) {
	if err := pub.Publish(ctx, key, payload); err != nil {
		log.Warn("Event publish failed", zap.String("event", key), zap.Error(err))
	}
}
