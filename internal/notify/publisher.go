package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// message is the envelope written to the exchange.
type message struct {
	Pattern string            `json:"pattern"`
	Data    domain.OrderEvent `json:"data"`
}

// Publisher sends order events to a topic exchange, using the event type as
// routing key.
type Publisher struct {
	channel  Channel
	exchange string
	log      logrus.FieldLogger
	close    func() error
}

// NewPublisher wraps an already-open channel.
func NewPublisher(ch Channel, exchange string, log logrus.FieldLogger) *Publisher {
	return &Publisher{channel: ch, exchange: exchange, log: log, close: func() error { return nil }}
}

// Dial connects to the broker, declares a durable topic exchange and returns a
// publisher on it.
func Dial(url, exchange string, log logrus.FieldLogger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := NewPublisher(ch, exchange, log)
	p.close = func() error {
		ch.Close()
		return conn.Close()
	}
	return p, nil
}

// Publish implements Hook.
func (p *Publisher) Publish(ctx context.Context, ev domain.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(message{Pattern: ev.Type, Data: ev})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}

	err = p.channel.Publish(p.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		MessageId:    ev.Order.ID.String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	p.log.WithFields(logrus.Fields{
		"exchange": p.exchange,
		"event":    ev.Type,
		"order_id": ev.Order.ID,
	}).Debug("order event published")
	return nil
}

// Close releases the channel and connection opened by Dial.
func (p *Publisher) Close() error {
	return p.close()
}
