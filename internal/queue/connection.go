package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned when publishing without an open channel.
var ErrNotConnected = errors.New("queue not connected")

// topology lists the durable queues and how long the broker keeps an
// unconsumed message in each.
var topology = map[string]time.Duration{
	JobQueueName:    10 * time.Minute,
	ResultQueueName: 5 * time.Minute,
}

const maxRedials = 10

// Connection owns one AMQP connection and channel and redials them when
// the broker drops the link.
type Connection struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	closing bool
	redials int
}

// NewConnection dials RabbitMQ and declares the job and result queues.
func NewConnection(url string) (*Connection, error) {
	c := &Connection{url: url, logger: slog.Default().With("component", "queue")}
	if err := c.dial(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) dial() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err == nil {
		err = declare(ch)
	}
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn, c.ch = conn, ch
	c.mu.Unlock()

	go c.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	c.logger.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

func declare(ch *amqp.Channel) error {
	for name, ttl := range topology {
		args := amqp.Table{"x-message-ttl": int32(ttl.Milliseconds())}
		const durable, autoDelete, exclusive, noWait = true, false, false, false
		if _, err := ch.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}
	return nil
}

// watch waits for the connection to drop and redials with capped
// exponential backoff. A deliberate Close ends it quietly.
func (c *Connection) watch(closed <-chan *amqp.Error) {
	reason, ok := <-closed
	if !ok || reason == nil || c.isClosing() {
		return
	}
	c.logger.Warn("RabbitMQ connection lost, reconnecting", "error", reason)

	for attempt := range maxRedials {
		time.Sleep(min(time.Second<<attempt, 30*time.Second))
		if c.isClosing() {
			return
		}

		c.mu.Lock()
		c.redials++
		c.mu.Unlock()

		if err := c.dial(); err != nil {
			c.logger.Error("reconnect failed", "error", err, "attempt", attempt+1)
			continue
		}
		c.logger.Info("reconnected to RabbitMQ", "attempts", attempt+1)
		return
	}
	c.logger.Error("giving up on RabbitMQ", "attempts", maxRedials)
}

func (c *Connection) isClosing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closing
}

// Channel returns the current channel, which changes after a redial.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ch
}

// IsConnected reports whether the underlying connection is open.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close stops redialing and closes the channel and connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closing = true

	var errs []error
	if c.ch != nil {
		errs = append(errs, c.ch.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	c.ch, c.conn = nil, nil
	return errors.Join(errs...)
}

// PublishJSON publishes data as a persistent JSON message on the default
// exchange, routed to queue.
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.Channel()
	if ch == nil || ch.IsClosed() {
		return ErrNotConnected
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}
	const mandatory, immediate = false, false
	return ch.PublishWithContext(ctx, "", queue, mandatory, immediate, msg)
}

// deliveries starts a consumer on queue. With autoAck false, prefetch
// bounds the unacknowledged deliveries held by this channel.
func (c *Connection) deliveries(queue string, autoAck bool, prefetch int) (<-chan amqp.Delivery, error) {
	ch := c.Channel()
	if ch == nil {
		return nil, ErrNotConnected
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set prefetch on %s: %w", queue, err)
		}
	}
	const exclusive, noLocal, noWait = false, false, false
	msgs, err := ch.Consume(queue, "", autoAck, exclusive, noLocal, noWait, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return msgs, nil
}

// sanitizeURL hides the password of an AMQP URL for logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid-url"
	}
	return u.Redacted()
}
