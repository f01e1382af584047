package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConfigured is returned when no broker URL is set.
var ErrNotConfigured = errors.New("rabbitmq not configured")

// ErrConnectionClosed is returned by Ping once the broker connection is gone.
var ErrConnectionClosed = errors.New("rabbitmq connection closed")

// Publisher sends an event to the named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, event any) error
}

// AMQPPublisher publishes persistent JSON messages to RabbitMQ.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	declared map[string]bool
}

// NewAMQPPublisher dials the broker at url.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	return &AMQPPublisher{conn: conn, declared: make(map[string]bool)}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if !p.declared[queue] {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq queue declare %s: %w", queue, err)
		}
		p.declared[queue] = true
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Ping reports whether the broker connection is still open.
func (p *AMQPPublisher) Ping(context.Context) error {
	if p.conn.IsClosed() {
		return ErrConnectionClosed
	}
	return nil
}

// Close closes the broker connection.
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}
