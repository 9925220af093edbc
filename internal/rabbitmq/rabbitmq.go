package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"gamewatch/internal/config"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

type Client interface {
	Close() error

	DeclareExchange(name, kind string) error
	DeclareQueue(name string) (amqp.Queue, error)
	BindQueue(queueName, exchangeName, routingKey string) error

	Publish(ctx context.Context, exchange, routingKey string, body []byte, headers amqp.Table) error
	Consume(queueName string, consumerTag string) (<-chan amqp.Delivery, error)

	Health() error
}

type client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
	mu      sync.Mutex
	closed  bool
}

func NewClientFromConfig(cfg config.RabbitMQConfig) (Client, error) {
	c := &client{config: cfg}

	c.mu.Lock()
	err := c.connect()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return c, nil
}

// connect dials the broker. Callers hold c.mu.
func (c *client) connect() error {
	amqpURL := fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		c.config.Username,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	conn, err := amqp.DialConfig(amqpURL, amqp.Config{
		Heartbeat: 30 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to RabbitMQ")
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if c.config.PrefetchCount > 0 {
		if err := ch.Qos(c.config.PrefetchCount, 0, false); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	c.conn = conn
	c.channel = ch
	go c.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))

	log.Info().
		Str("host", c.config.Host).
		Int("port", c.config.Port).
		Str("vhost", c.config.VHost).
		Msg("RabbitMQ connection established")

	return nil
}

// watch reconnects with capped exponential backoff after the broker drops us
func (c *client) watch(notify chan *amqp.Error) {
	amqpErr, ok := <-notify
	if !ok {
		return
	}

	log.Warn().
		Str("reason", amqpErr.Reason).
		Int("code", amqpErr.Code).
		Msg("RabbitMQ connection closed, reconnecting")

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		if c.conn != nil && !c.conn.IsClosed() {
			c.mu.Unlock()
			return
		}
		err := c.connect()
		c.mu.Unlock()
		if err == nil {
			log.Info().Msg("Reconnected to RabbitMQ")
			return
		}

		log.Error().Err(err).Dur("backoff", backoff).Msg("Failed to reconnect to RabbitMQ")
		time.Sleep(backoff)
		backoff = min(backoff*2, maxBackoff)
	}
}

// ensure reconnects when the connection is gone. Callers hold c.mu.
func (c *client) ensure() error {
	if c.closed {
		return errors.New("rabbitmq client closed")
	}
	if c.conn == nil || c.channel == nil || c.conn.IsClosed() {
		return c.connect()
	}
	return nil
}

func (c *client) Health() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.channel == nil {
		return errors.New("nil connection or channel")
	}
	if c.conn.IsClosed() {
		return errors.New("connection is closed")
	}
	if c.channel.IsClosed() {
		return errors.New("channel is closed")
	}
	return nil
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			return fmt.Errorf("channel close error: %w", err)
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("connection close error: %w", err)
		}
	}

	log.Info().Msg("RabbitMQ connection and channel closed")
	return nil
}

func (c *client) Publish(ctx context.Context, exchange, routingKey string, body []byte, headers amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(); err != nil {
		return fmt.Errorf("failed to reconnect before publishing: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
		Headers:      headers,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("exchange", exchange).
			Str("routingKey", routingKey).
			Msg("Failed to publish message")
		return err
	}

	log.Debug().
		Str("exchange", exchange).
		Str("routingKey", routingKey).
		Int("size", len(body)).
		Msg("Published message")

	return nil
}

func (c *client) Consume(queueName string, consumerTag string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(); err != nil {
		return nil, fmt.Errorf("failed to reconnect before consuming: %w", err)
	}

	deliveries, err := c.channel.Consume(
		queueName,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume error: %w", err)
	}

	log.Info().
		Str("queue", queueName).
		Str("consumerTag", consumerTag).
		Msg("Started consuming messages")

	return deliveries, nil
}
