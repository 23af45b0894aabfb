package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ChunkVault/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeCleanup = "cleanup.exchange"
	ExchangeRetry   = "cleanup.retry.exchange"
	ExchangeDLQ     = "cleanup.dlq.exchange"

	QueueCleanup = "cleanup.queue"
	QueueRetry   = "cleanup.retry.queue"
	QueueDLQ     = "cleanup.dlq.queue"

	RoutingCleanup = "cleanup"
	RoutingRetry   = "cleanup.retry"
	RoutingDLQ     = "cleanup.dlq"
)

type Client struct {
	Conn      *amqp.Connection
	Channel   *amqp.Channel
	publishMu sync.Mutex
}

var publisherMu sync.Mutex
var publisher *Client

func Dial() (*Client, error) {
	conn, err := amqp.Dial(config.AppConfig.RabbitMQURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Client{Conn: conn, Channel: ch}, nil
}

// GetPublisher returns the shared publishing client, redialing when the
// previous connection or channel was closed.
func GetPublisher() (*Client, error) {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	if publisher != nil {
		if !publisher.Conn.IsClosed() && !publisher.Channel.IsClosed() {
			return publisher, nil
		}
		publisher.Close()
		publisher = nil
	}
	client, err := Dial()
	if err != nil {
		return nil, err
	}
	if err := client.DeclareTopology(); err != nil {
		client.Close()
		return nil, err
	}
	publisher = client
	return publisher, nil
}

// ClosePublisher closes the shared publishing client, if any.
func ClosePublisher() {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	publisher.Close()
	publisher = nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}

type binding struct {
	exchange string
	queue    string
	key      string
	args     amqp.Table
}

// topology lists the cleanup queues. Retry messages carry a per-message
// expiration and dead-letter back onto the cleanup queue when it elapses.
var topology = []binding{
	{exchange: ExchangeCleanup, queue: QueueCleanup, key: RoutingCleanup},
	{
		exchange: ExchangeRetry,
		queue:    QueueRetry,
		key:      RoutingRetry,
		args: amqp.Table{
			"x-dead-letter-exchange":    ExchangeCleanup,
			"x-dead-letter-routing-key": RoutingCleanup,
		},
	},
	{exchange: ExchangeDLQ, queue: QueueDLQ, key: RoutingDLQ},
}

func (c *Client) DeclareTopology() error {
	for _, b := range topology {
		if err := c.Channel.ExchangeDeclare(b.exchange, "direct", true, false, false, false, nil); err != nil {
			return err
		}
		if _, err := c.Channel.QueueDeclare(b.queue, true, false, false, false, b.args); err != nil {
			return err
		}
		if err := c.Channel.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) PublishTask(ctx context.Context, body []byte) error {
	return c.publish(ctx, ExchangeCleanup, RoutingCleanup, body, "")
}

func (c *Client) PublishRetry(ctx context.Context, body []byte, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	expiration := fmt.Sprintf("%d", delay.Milliseconds())
	return c.publish(ctx, ExchangeRetry, RoutingRetry, body, expiration)
}

func (c *Client) PublishDLQ(ctx context.Context, body []byte) error {
	return c.publish(ctx, ExchangeDLQ, RoutingDLQ, body, "")
}

func (c *Client) publish(ctx context.Context, exchange, key string, body []byte, expiration string) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}
	if expiration != "" {
		msg.Expiration = expiration
	}
	return c.Channel.PublishWithContext(ctx, exchange, key, false, false, msg)
}
