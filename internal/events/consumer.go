package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"studyroom/internal/logger"
)

type AMQPConsumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPConsumer binds queue to exchange for keys. An empty queue name asks the
// broker for an exclusive auto-deleted queue, which is what each watching client
// wants.
func NewAMQPConsumer(url, exchange, queue string, keys []string) (*AMQPConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	durable, exclusive := queue != "", queue == ""
	q, err := ch.QueueDeclare(queue, durable, exclusive, exclusive, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, rk := range keys {
		if err := ch.QueueBind(q.Name, rk, exchange, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("bind %s: %w", rk, err)
		}
	}
	return &AMQPConsumer{conn: conn, ch: ch, queue: q.Name}, nil
}

func (c *AMQPConsumer) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
}

func (c *AMQPConsumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Listen decodes deliveries and hands them to fn until ctx ends or the channel
// closes. Undecodable messages are dropped; handler failures are requeued.
func Listen(ctx context.Context, msgs <-chan amqp.Delivery, fn func(Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			ev, err := Decode(d.Body)
			if err != nil {
				logger.Warn("dropping undecodable event", "routing_key", d.RoutingKey, "error", err)
				_ = d.Reject(false)
				continue
			}
			if err := fn(ev); err != nil {
				logger.Error("event handler failed", "routing_key", d.RoutingKey, "event_id", ev.ID, "error", err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
