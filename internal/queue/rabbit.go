package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rpggio/proofchain/internal/domain/event"
)

const contentType = "application/json"

// Client publishes committed ledger events and consumes them.
type Client interface {
	Publish(ctx context.Context, evt event.Event) error
	Consume(ctx context.Context) (<-chan event.Event, error)
	Close() error
}

var (
	_ Client          = (*RabbitClient)(nil)
	_ event.Publisher = (*RabbitClient)(nil)
)

// RabbitClient is a Client backed by one durable RabbitMQ queue.
type RabbitClient struct {
	conn *amqp.Connection
	q    amqp.Queue
}

// NewRabbitClient connects to RabbitMQ and declares a queue with the given name.
func NewRabbitClient(url string, queueName string) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", queueName, err)
	}
	// publish and consume open their own channels
	ch.Close()
	return &RabbitClient{conn: conn, q: q}, nil
}

// Publish sends evt as a persistent JSON message. The event id doubles as
// the message id so consumers can drop redeliveries.
func (r *RabbitClient) Publish(ctx context.Context, evt event.Event) error {
	msg, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()
	if err := ch.PublishWithContext(ctx, "", r.q.Name, false, false, msg); err != nil {
		return fmt.Errorf("publishing event %s: %w", evt.EventID, err)
	}
	return nil
}

// Consume delivers events until ctx is done. Messages that do not decode
// are rejected without requeue.
func (r *RabbitClient) Consume(ctx context.Context) (<-chan event.Event, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	msgs, err := ch.Consume(r.q.Name, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consuming %s: %w", r.q.Name, err)
	}
	out := make(chan event.Event)
	go func() {
		defer ch.Close()
		forward(ctx, msgs, out)
	}()
	return out, nil
}

// forward decodes deliveries onto out and closes out when ctx is done or
// msgs closes. A delivery caught by cancellation is requeued.
func forward(ctx context.Context, msgs <-chan amqp.Delivery, out chan<- event.Event) {
	defer close(out)
	for {
		var d amqp.Delivery
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			d = msg
		}

		evt, err := decodeEvent(d.Body)
		if err != nil {
			d.Reject(false)
			continue
		}
		select {
		case out <- evt:
			d.Ack(false)
		case <-ctx.Done():
			d.Nack(false, true)
			return
		}
	}
}

func (r *RabbitClient) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func encodeEvent(evt event.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encoding event: %w", err)
	}
	timestamp := evt.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	return amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.EventID,
		Type:         string(evt.Type),
		Timestamp:    timestamp,
		Body:         body,
	}, nil
}

func decodeEvent(body []byte) (event.Event, error) {
	var evt event.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return event.Event{}, fmt.Errorf("decoding event: %w", err)
	}
	if evt.EventID == "" || !evt.Type.Valid() {
		return event.Event{}, fmt.Errorf("decoding event: missing id or unknown type %q", evt.Type)
	}
	return evt, nil
}
