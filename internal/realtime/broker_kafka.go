package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"slotify/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// KafkaConfig configures the Kafka broker
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	GroupPrefix string
}

// KafkaBroker publishes events to a topic and consumes it with a consumer group unique
// to this instance, so every instance sees every event
type KafkaBroker struct {
	config   KafkaConfig
	producer sarama.SyncProducer
	group    sarama.ConsumerGroup
	cancel   context.CancelFunc
	logger   *logger.Logger
}

func NewKafkaBroker(config KafkaConfig) (*KafkaBroker, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Timeout = 5 * time.Second
	// Events for one activity stay ordered on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaBroker{
		config:   config,
		producer: producer,
		logger:   logger.GetDefault(),
	}, nil
}

func (k *KafkaBroker) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: k.config.Topic,
		Key:   sarama.StringEncoder(event.ChangedScopeID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("table"), Value: []byte(event.Table)},
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
		Timestamp: event.OccurredAt,
	}

	if _, _, err := k.producer.SendMessage(message); err != nil {
		return fmt.Errorf("failed to send realtime event to kafka: %w", err)
	}
	return nil
}

func (k *KafkaBroker) Start(ctx context.Context, deliver func(Event)) error {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	groupID := fmt.Sprintf("%s-%s", k.config.GroupPrefix, uuid.NewString())
	group, err := sarama.NewConsumerGroup(k.config.Brokers, groupID, saramaConfig)
	if err != nil {
		return fmt.Errorf("failed to create kafka consumer group: %w", err)
	}
	k.group = group

	consumeCtx, cancel := context.WithCancel(ctx)
	k.cancel = cancel

	handler := &kafkaGroupHandler{deliver: deliver, logger: k.logger}
	go func() {
		for {
			if err := group.Consume(consumeCtx, []string{k.config.Topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				k.logger.Error("Kafka realtime consumer error", slog.String("error", err.Error()))
			}
			if consumeCtx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range group.Errors() {
			k.logger.Warn("Kafka realtime consumer group error", slog.String("error", err.Error()))
		}
	}()

	k.logger.Info("Realtime bus consuming from kafka",
		slog.String("topic", k.config.Topic),
		slog.String("group_id", groupID),
	)
	return nil
}

func (k *KafkaBroker) Close() error {
	if k.cancel != nil {
		k.cancel()
	}

	var errs []error
	if k.group != nil {
		if err := k.group.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := k.producer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type kafkaGroupHandler struct {
	deliver func(Event)
	logger  *logger.Logger
}

func (h *kafkaGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *kafkaGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *kafkaGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			var event Event
			if err := json.Unmarshal(message.Value, &event); err != nil {
				h.logger.Warn("Dropping malformed realtime event",
					slog.String("topic", message.Topic),
					slog.Int64("offset", message.Offset),
					slog.String("error", err.Error()),
				)
			} else {
				h.deliver(event)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
