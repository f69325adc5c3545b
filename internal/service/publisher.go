package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/recipe-app-api/internal/queue"
)

// Publisher delivers recipe activity events.  Implementations must not
// panic; callers log and otherwise ignore returned errors.
type Publisher interface {
	Publish(ctx context.Context, ev queue.RecipeEvent) error
}

// NopPublisher drops every event.  Used when EVENTS_ENABLED is off and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.RecipeEvent) error { return nil }

// AMQPPublisher publishes to RabbitMQ, opening a short-lived connection per
// event.  Messages are persistent on a durable queue.
type AMQPPublisher struct {
	URL    string
	Logger *slog.Logger
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.RecipeEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Logger.Warn("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Logger.Warn("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.RecipeQueueName, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		p.Logger.Warn("rabbitmq: queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.RecipeQueueName, false, false, pub); err != nil {
		p.Logger.Warn("rabbitmq: publish failed", "error", err, "event", ev.Type)
		return err
	}
	return nil
}

// AsyncPublisher hands events to Next on a bounded background queue so a
// slow or absent broker never delays a request.  Events are dropped, and
// logged, when the buffer is full.
type AsyncPublisher struct {
	Next   Publisher
	Logger *slog.Logger
	ch     chan queue.RecipeEvent
}

// NewAsyncPublisher starts one worker draining up to buffer pending events.
// The worker exits when ctx is cancelled.
func NewAsyncPublisher(ctx context.Context, next Publisher, logger *slog.Logger, buffer int) *AsyncPublisher {
	p := &AsyncPublisher{Next: next, Logger: logger, ch: make(chan queue.RecipeEvent, buffer)}
	go p.run(ctx)
	return p
}

func (p *AsyncPublisher) Publish(_ context.Context, ev queue.RecipeEvent) error {
	select {
	case p.ch <- ev:
	default:
		p.Logger.Warn("events: buffer full, dropping event", "event", ev.Type, "recipe_id", ev.RecipeID)
	}
	return nil
}

func (p *AsyncPublisher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.ch:
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := p.Next.Publish(pctx, ev); err != nil {
				p.Logger.Warn("events: publish failed", "event", ev.Type, "recipe_id", ev.RecipeID, "error", err)
			}
			cancel()
		}
	}
}
