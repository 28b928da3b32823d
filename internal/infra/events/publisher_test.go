package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"roomcore/internal/core"
	"roomcore/pkg/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	durable    bool
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	f.declared = append(f.declared, name)
	f.durable = durable
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type captureLogger struct{ errors []string }

func (c *captureLogger) Error(msg string, _ ...any) { c.errors = append(c.errors, msg) }

func TestPublisherRecordsAuditEntries(t *testing.T) {
	ch := &fakeChannel{}
	p, err := New(ch)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != DefaultQueue || !ch.durable {
		t.Fatalf("expected durable %s declared, got %v", DefaultQueue, ch.declared)
	}

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.Record(context.Background(), core.AuditEntry{
		Operation:  "place_item",
		Action:     domain.ActionPlace,
		Status:     core.AuditStatusSuccess,
		InstanceID: "abc",
		ItemID:     "pool",
		ZoneID:     "yard",
		Duration:   1500 * time.Microsecond,
		Timestamp:  at,
	})
	if len(ch.published) != 1 {
		t.Fatalf("expected one message, got %d", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != "" || got.key != DefaultQueue {
		t.Fatalf("unexpected routing %q/%q", got.exchange, got.key)
	}
	if got.msg.DeliveryMode != amqp.Persistent || got.msg.ContentType != "application/json" || got.msg.Type != "place_item" {
		t.Fatalf("unexpected publishing %+v", got.msg)
	}
	var body Message
	if err := json.Unmarshal(got.msg.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ItemID != "pool" || body.ZoneID != "yard" || body.Status != "success" || body.DurationMS != 1.5 || !body.Timestamp.Equal(at) {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestPublisherLogsFailures(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	log := &captureLogger{}
	p, err := New(ch, WithQueue("audit"), WithLogger(log))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Queue() != "audit" {
		t.Fatalf("expected custom queue, got %s", p.Queue())
	}
	p.Record(context.Background(), core.AuditEntry{Operation: "remove_item"})
	if len(log.errors) != 1 {
		t.Fatalf("expected logged failure, got %v", log.errors)
	}
	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("expected channel closed, err=%v", err)
	}
}

func TestNewFailsWhenQueueCannotBeDeclared(t *testing.T) {
	if _, err := New(&fakeChannel{declareErr: errors.New("access refused")}); err == nil {
		t.Fatalf("expected declare error")
	}
}
