// Package events publishes placement audit entries to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"roomcore/internal/core"
)

// DefaultQueue receives one message per audited placement operation.
const DefaultQueue = "room.placement"

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Logger receives publish failures.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Message is the JSON body of a published event.
type Message struct {
	Operation  string    `json:"operation"`
	Action     string    `json:"action,omitempty"`
	Status     string    `json:"status"`
	InstanceID string    `json:"instance_id,omitempty"`
	ItemID     string    `json:"item_id,omitempty"`
	ZoneID     string    `json:"zone_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// MessageFrom converts an audit entry to its wire form.
func MessageFrom(entry core.AuditEntry) Message {
	return Message{
		Operation:  entry.Operation,
		Action:     string(entry.Action),
		Status:     string(entry.Status),
		InstanceID: entry.InstanceID,
		ItemID:     entry.ItemID,
		ZoneID:     entry.ZoneID,
		Error:      entry.Error,
		DurationMS: float64(entry.Duration) / float64(time.Millisecond),
		Timestamp:  entry.Timestamp,
	}
}

// Publisher implements core.AuditRecorder on top of an AMQP channel.
type Publisher struct {
	mu     sync.Mutex
	ch     Channel
	conn   *amqp.Connection
	queue  string
	logger Logger
}

// Option customises a Publisher.
type Option func(*Publisher)

// WithQueue overrides the destination queue.
func WithQueue(name string) Option {
	return func(p *Publisher) {
		if name != "" {
			p.queue = name
		}
	}
}

// WithLogger routes publish failures to l.
func WithLogger(l Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// New declares the durable queue on ch and returns a publisher.
func New(ch Channel, opts ...Option) (*Publisher, error) {
	p := &Publisher{ch: ch, queue: DefaultQueue, logger: noopLogger{}}
	for _, opt := range opts {
		opt(p)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", p.queue, err)
	}
	return p, nil
}

// Dial connects to the broker at url and opens a channel.
func Dial(url string, opts ...Option) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	p, err := New(ch, opts...)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// Queue reports the destination queue name.
func (p *Publisher) Queue() string { return p.queue }

// Publish sends one message as a persistent delivery on the default exchange.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.Timestamp,
		Type:         msg.Operation,
		Body:         body,
	})
}

// Record publishes the entry; failures are logged and dropped.
func (p *Publisher) Record(ctx context.Context, entry core.AuditEntry) {
	if err := p.Publish(ctx, MessageFrom(entry)); err != nil {
		p.logger.Error("audit publish failed", "operation", entry.Operation, "error", err)
	}
}

// Close releases the channel and, when dialled, the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
