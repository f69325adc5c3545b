// Package queue contains the background consumer that listens to the
// recipe.events queue and appends one line per event to a log file.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains RecipeQueueName into LogPath.
type Consumer struct {
    URL     string
    LogPath string // e.g. logs/recipe.log
    Logger  *slog.Logger
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures are retried with exponential backoff capped at 30s, so the API
// keeps serving while the broker is down.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Logger.Warn("recipe-consumer: dial failed", "error", err, "retry_in", backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Logger.Warn("recipe-consumer: consume loop ended; reconnecting", "error", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Logger.Warn("recipe-consumer: set QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(RecipeQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(RecipeQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.HandleMessage(d.Body); err != nil {
                c.Logger.Error("recipe-consumer: handle message failed", "error", err)
                _ = d.Nack(false, false) // no requeue, avoids a poison loop
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleMessage decodes one event and appends it to LogPath.
func (c *Consumer) HandleMessage(body []byte) error {
    var ev RecipeEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatEvent(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatEvent renders ev as a single newline-terminated log line.
func FormatEvent(ev RecipeEvent) string {
    var b strings.Builder
    fmt.Fprintf(&b, "[%s] %s | recipe_id=%d | user_id=%d", ev.OccurredAt, ev.Type, ev.RecipeID, ev.UserID)
    if ev.Title != "" {
        fmt.Fprintf(&b, " | title=%q", ev.Title)
    }
    if len(ev.Tags) > 0 {
        fmt.Fprintf(&b, " | tags=[%s]", strings.Join(ev.Tags, ","))
    }
    if len(ev.Ingredients) > 0 {
        fmt.Fprintf(&b, " | ingredients=[%s]", strings.Join(ev.Ingredients, ","))
    }
    if ev.Image != "" {
        fmt.Fprintf(&b, " | image=%s", ev.Image)
    }
    b.WriteByte('\n')
    return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
