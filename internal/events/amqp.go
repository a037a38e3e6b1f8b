package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

const (
	// DefaultExchange is the fanout exchange change events are published to.
	DefaultExchange = "hiring.changes"
	publishTimeout  = 5 * time.Second
)

// ErrRelayClosed is returned by Relay when the broker closes the delivery
// channel. The relay does not reconnect; the process is expected to restart.
var ErrRelayClosed = errors.New("change event deliveries closed by broker")

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes change events to a RabbitMQ fanout exchange so other
// service instances can forward them to their own subscribers. Delivery is
// best effort; failures are logged.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  Channel
	exchange string
	// origin tags outgoing messages so Relay can skip this instance's own events.
	origin string
	log    *logging.Logger
}

var _ pipeline.Publisher = (*AMQPPublisher)(nil)

// DialAMQP connects to url and declares the exchange.
func DialAMQP(url, exchange string, log *logging.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	p, err := NewAMQPPublisher(ch, exchange, log)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher declares exchange on ch and returns a publisher over it.
func NewAMQPPublisher(ch Channel, exchange string, log *logging.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if log == nil {
		log = logging.NewNop()
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPPublisher{
		channel:  ch,
		exchange: exchange,
		origin:   uuid.NewString(),
		log:      log.With("component", "amqp"),
	}, nil
}

// Publish sends ev as a JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev types.ChangeEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("failed to encode change event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, string(ev.EntityKind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		AppId:        p.origin,
		DeliveryMode: amqp.Transient,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("failed to publish change event", "entity_kind", ev.EntityKind, "entity_id", ev.EntityID, "error", err)
	}
}

// Close closes the channel and, when owned, the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Relay consumes the exchange through a private queue and republishes events
// from other instances to local. It returns nil when ctx is done and
// ErrRelayClosed when the delivery channel closes.
func (p *AMQPPublisher) Relay(ctx context.Context, local pipeline.Publisher) error {
	if p.conn == nil {
		return fmt.Errorf("relay needs a dialed connection")
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close() //nolint:errcheck

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", p.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	return p.forward(ctx, msgs, local)
}

func (p *AMQPPublisher) forward(ctx context.Context, msgs <-chan amqp.Delivery, local pipeline.Publisher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				p.log.Error("change event relay lost its broker channel")
				return ErrRelayClosed
			}
			if ev, ok := p.decode(d); ok {
				local.Publish(ctx, ev)
			}
		}
	}
}

func (p *AMQPPublisher) decode(d amqp.Delivery) (types.ChangeEvent, bool) {
	if d.AppId == p.origin {
		return types.ChangeEvent{}, false
	}
	var ev types.ChangeEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		p.log.Warn("invalid change event", "error", err)
		return types.ChangeEvent{}, false
	}
	return ev, true
}
