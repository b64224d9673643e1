package rabbitMQ

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer is the delivery transport behind the scheduler's Notifier. One
// durable direct exchange, one work queue; the consumer side routes messages
// to owners by the owner_key header.
type Producer struct {
	conn       *amqp.Connection
	Channel    *amqp.Channel
	Exchange   string
	RoutingKey string
}

// Declare dials the broker and sets up the exchange, the work queue and the
// binding between them.
func Declare(url, exchange, queueName, routingKey string, connectTimeout time.Duration) (*Producer, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(connectTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	// основная очередь для передачи сообщений на обработку в consumer
	workQueue, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare work queue: %w", err)
	}

	if err := ch.QueueBind(workQueue.Name, routingKey, exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind work queue: %w", err)
	}

	return &Producer{
		conn:       conn,
		Channel:    ch,
		Exchange:   exchange,
		RoutingKey: routingKey,
	}, nil
}

// Notify publishes one reminder payload for ownerKey. The caller bounds the
// call with ctx; a deadline hit surfaces as an error and counts as a failed
// delivery attempt.
func (p *Producer) Notify(ctx context.Context, ownerKey, payload string) error {
	err := p.Channel.PublishWithContext(
		ctx,
		p.Exchange,
		p.RoutingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "text/plain",
			Timestamp:    time.Now(),
			Headers: amqp.Table{
				"owner_key": ownerKey,
			},
			Body: []byte(payload),
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.Exchange, err)
	}

	return nil
}

func (p *Producer) Close() error {
	if err := p.Channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
