package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to the activity queue. A Publisher built with an
// empty URL is disabled and drops every event, so callers never need to
// check whether a broker is configured.
type Publisher struct {
	url    string
	queue  string
	logger *slog.Logger
}

// NewPublisher returns a publisher for url. Pass "" to disable publishing.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{url: url, queue: ActivityQueue, logger: logger}
}

// Enabled reports whether a broker URL is configured.
func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

// Publish dials the broker, declares the durable queue and publishes ev as a
// persistent JSON message. Errors are logged and returned so the caller can
// choose to ignore them without interrupting the request.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if !p.Enabled() {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("rabbitmq dial failed", "err", err, "event", ev.Type)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("rabbitmq channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.logger.Warn("rabbitmq queue declare failed", "err", err, "queue", p.queue)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.logger.Warn("rabbitmq publish failed", "err", err, "event", ev.Type)
		return err
	}
	return nil
}

// PublishAsync publishes ev on a detached goroutine bounded by timeout. The
// request context is not reused because it is cancelled once the response
// is written.
func (p *Publisher) PublishAsync(ev Event, timeout time.Duration) {
	if !p.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = p.Publish(ctx, ev)
	}()
}
