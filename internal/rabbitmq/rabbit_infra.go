package rabbitmq

import (
	"fmt"
	"gamewatch/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

func (c *client) DeclareExchange(name, kind string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(); err != nil {
		return fmt.Errorf("failed to reconnect before declaring exchange: %w", err)
	}

	if err := c.channel.ExchangeDeclare(name, kind, true, false, false, false, nil); err != nil {
		log.Error().Err(err).Str("exchange", name).Msg("Failed to declare exchange")
		return err
	}
	log.Info().Str("exchange", name).Str("type", kind).Msg("Declared exchange")
	return nil
}

func (c *client) DeclareQueue(name string) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(); err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to reconnect before declaring queue: %w", err)
	}

	queue, err := c.channel.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		log.Error().Err(err).Str("queue", name).Msg("Failed to declare queue")
		return queue, err
	}
	log.Info().Str("queue", name).Msg("Declared queue")
	return queue, nil
}

func (c *client) BindQueue(queueName, exchangeName, routingKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(); err != nil {
		return fmt.Errorf("failed to reconnect before binding queue: %w", err)
	}

	if err := c.channel.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
		log.Error().
			Err(err).
			Str("queue", queueName).
			Str("exchange", exchangeName).
			Msg("Failed to bind queue")
		return err
	}
	log.Info().
		Str("queue", queueName).
		Str("exchange", exchangeName).
		Str("routingKey", routingKey).
		Msg("Bound queue to exchange")
	return nil
}

// DeclareJobTopology declares the direct exchange and the durable job queue,
// bound with the queue name as routing key
func DeclareJobTopology(c Client, cfg config.RabbitMQConfig) error {
	if err := c.DeclareExchange(cfg.ExchangeName, amqp.ExchangeDirect); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := c.DeclareQueue(cfg.QueueName); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.QueueName, err)
	}
	if err := c.BindQueue(cfg.QueueName, cfg.ExchangeName, cfg.QueueName); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.QueueName, err)
	}
	return nil
}
