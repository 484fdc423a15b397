// Package events publishes domain events to RabbitMQ. Publishing is best
// effort: a failed publish is logged and never fails the business operation.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "socialmaster.events"

const (
	KeyPostGenerated = "post.generated"
	KeyPostPublished = "post.published"
	KeyTokensDebited = "tokens.debited"
)

// Publisher sends JSON events with a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
	Close()
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventProducer publishes to a durable topic exchange.
type EventProducer struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	log      logging.Logger
}

// NewEventProducer dials amqpURL and declares the exchange.
func NewEventProducer(amqpURL, exchange string, log logging.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	p, err := newEventProducer(ch, exchange, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newEventProducer(ch channel, exchange string, log logging.Logger) (*EventProducer, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &EventProducer{channel: ch, exchange: exchange, log: log.With("module", "events")}, nil
}

func (p *EventProducer) Publish(ctx context.Context, routingKey string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.log.Debug(ctx, "event published", "exchange", p.exchange, "routing_key", routingKey)
	return nil
}

func (p *EventProducer) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// EventProducerFallback drops events. It is used when RabbitMQ is not
// configured or unreachable at startup.
type EventProducerFallback struct {
	log logging.Logger
}

func NewEventProducerFallback(log logging.Logger) *EventProducerFallback {
	return &EventProducerFallback{log: log.With("module", "events")}
}

func (p *EventProducerFallback) Publish(ctx context.Context, routingKey string, body any) error {
	p.log.Debug(ctx, "event dropped, broker unavailable", "routing_key", routingKey)
	return nil
}

func (p *EventProducerFallback) Close() {}

// Emit publishes and logs failures instead of returning them.
func Emit(ctx context.Context, p Publisher, log logging.Logger, routingKey string, body any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, body); err != nil {
		log.Warn(ctx, "failed to publish event", "routing_key", routingKey, "error", err)
	}
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
