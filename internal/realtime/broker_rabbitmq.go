package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"slotify/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const rabbitRoutingPrefix = "availability"

// RabbitMQBroker publishes events to a topic exchange. Each instance consumes through
// its own exclusive auto-delete queue bound to every availability key.
type RabbitMQBroker struct {
	conn     *amqp.Connection
	pubCh    *amqp.Channel
	subCh    *amqp.Channel
	exchange string
	pubMu    sync.Mutex
	logger   *logger.Logger
}

func NewRabbitMQBroker(url, exchange string) (*RabbitMQBroker, error) {
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
	return &RabbitMQBroker{
		conn:     conn,
		pubCh:    ch,
		exchange: exchange,
		logger:   logger.GetDefault(),
	}, nil
}

// RoutingKey is availability.<table>.<event_type>
func RoutingKey(event Event) string {
	return fmt.Sprintf("%s.%s.%s", rabbitRoutingPrefix, event.Table, event.Type)
}

func (r *RabbitMQBroker) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	return r.pubCh.PublishWithContext(ctx, r.exchange, RoutingKey(event), false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   event.OccurredAt,
		Body:        body,
	})
}

func (r *RabbitMQBroker) Start(ctx context.Context, deliver func(Event)) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, rabbitRoutingPrefix+".#", r.exchange, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("bind %s: %w", q.Name, err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}
	r.subCh = ch

	go func() {
		for d := range deliveries {
			var event Event
			if err := json.Unmarshal(d.Body, &event); err != nil {
				r.logger.Warn("Dropping malformed realtime event",
					slog.String("routing_key", d.RoutingKey),
					slog.String("error", err.Error()),
				)
				continue
			}
			deliver(event)
		}
	}()

	r.logger.Info("Realtime bus consuming from rabbitmq",
		slog.String("exchange", r.exchange),
		slog.String("queue", q.Name),
	)
	return nil
}

func (r *RabbitMQBroker) Close() error {
	var errs []error
	if r.subCh != nil {
		errs = append(errs, r.subCh.Close())
	}
	if r.pubCh != nil {
		errs = append(errs, r.pubCh.Close())
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
	}
	return errors.Join(errs...)
}
