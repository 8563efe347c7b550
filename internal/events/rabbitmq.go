package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/assignhub/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQBus publishes and consumes assignment events over a RabbitMQ
// queue.
type RabbitMQBus struct {
	conn            *amqp.Connection
	channel         *amqp.Channel
	queueDurable    bool
	queueAutoDelete bool
}

// NewRabbitMQBus constructs a RabbitMQ event bus from config.
func NewRabbitMQBus(cfg config.RabbitMQConfig) (*RabbitMQBus, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	bus := &RabbitMQBus{
		conn:            conn,
		channel:         ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
	}
	if _, err := bus.declareQueue(); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return bus, nil
}

// Publish sends an event to the assignment events queue.
func (r *RabbitMQBus) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.channel.PublishWithContext(ctx, "", Channel, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   newMessageID(),
		Type:        event.Type,
		Body:        body,
	})
}

// Subscribe consumes events from the assignment events queue until the
// context is cancelled.
func (r *RabbitMQBus) Subscribe(ctx context.Context, handler Handler) error {
	consumerTag := fmt.Sprintf("consumer-%s", newMessageID())
	deliveries, err := r.channel.Consume(Channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			var event Event
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				_ = delivery.Nack(false, false)
				continue
			}
			if err := handler(ctx, event); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the channel and connection.
func (r *RabbitMQBus) Close() error {
	chErr := r.channel.Close()
	connErr := r.conn.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}

func (r *RabbitMQBus) declareQueue() (amqp.Queue, error) {
	return r.channel.QueueDeclare(Channel, r.queueDurable, r.queueAutoDelete, false, false, nil)
}

func newMessageID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}
