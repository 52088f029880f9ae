package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// Consumer listens to the booking events queue and appends one line per
// event to a log file (logs/booking.log by default).
type Consumer struct {
    URL     string
    Queue   string
    LogPath string
    Log     zerolog.Logger
}

func NewConsumer(url string, log zerolog.Logger) *Consumer {
    return &Consumer{
        URL:     url,
        Queue:   BookingEventsQueue,
        LogPath: filepath.Join("logs", "booking.log"),
        Log:     log.With().Str("component", "booking-consumer").Logger(),
    }
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled.  Broker failures are retried with exponential backoff;
// a message that cannot be handled is rejected without requeue so the
// consumer keeps going.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn().Err(err).Msg("consume loop ended; reconnecting")
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
        c.Log.Warn().Err(err).Msg("set QoS failed")
    }
    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
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
            if err := c.Handle(d.Body); err != nil {
                c.Log.Error().Err(err).Msg("handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body and appends it to the log file.
func (c *Consumer) Handle(body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.BookingID == "" || ev.Type == "" {
        return errors.New("event without booking id or type")
    }
    if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders an event as a single human-friendly log line.
func FormatLine(ev BookingEvent) string {
    return fmt.Sprintf("[%s] Booking %s | booking_id=%s | user_id=%s | room_id=%s | stay=%s..%s | status=%s | total=%s\n",
        ev.OccurredAt, ev.Type, ev.BookingID, ev.UserID, ev.RoomID, ev.StartDate, ev.EndDate, ev.Status, ev.TotalPrice)
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
