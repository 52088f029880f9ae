package queue

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// dialTimeout bounds how long a request waits on an unreachable broker.
const dialTimeout = 3 * time.Second

// Publisher sends booking events to RabbitMQ.  The connection and channel
// are opened lazily and reopened after the broker drops them.  Messages are
// marked as persistent.
type Publisher struct {
    url   string
    queue string
    log   zerolog.Logger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

func NewPublisher(url string, log zerolog.Logger) *Publisher {
    return &Publisher{
        url:   url,
        queue: BookingEventsQueue,
        log:   log.With().Str("component", "booking-publisher").Logger(),
    }
}

// Publish serializes the event and sends it to the booking events queue.
// The function never panics; any error is logged and returned so the caller
// can choose to ignore it.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        p.log.Error().Err(err).Msg("marshal event failed")
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        p.log.Warn().Err(err).Msg("broker unavailable")
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Type:         string(ev.Type),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        p.log.Warn().Err(err).Str("booking_id", ev.BookingID).Msg("publish failed")
        p.reset()
        return err
    }
    return nil
}

// channel returns an open channel, dialing and declaring the queue when
// needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
        return p.ch, nil
    }
    p.reset()

    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
    if err != nil {
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, err
    }
    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}
