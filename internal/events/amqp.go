package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const Exchange = "pasmi_events"

type AMQPPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQP connects and declares the durable topic exchange events are
// published to. Routing keys are the event types.
func DialAMQP(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := Message(event, body)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, Exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Message builds the persistent JSON publishing for event.
func Message(event Event, body []byte) amqp.Publishing {
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	return amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		Body:          body,
		MessageId:     fmt.Sprintf("%d", at.UnixNano()),
		CorrelationId: event.OrderID,
		Timestamp:     at.UTC(),
		Type:          event.Type,
		Headers: amqp.Table{
			"x-source": "pasmi-terminal",
		},
	}
}
