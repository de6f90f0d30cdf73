package realtime

import (
	"fmt"

	"slotify/internal/shared/config"

	"github.com/redis/go-redis/v9"
)

// NewBrokerFromConfig picks the broker named by BUS_BROKER. The redis broker reuses the
// application's client.
func NewBrokerFromConfig(cfg *config.Config, redisClient *redis.Client) (Broker, error) {
	switch cfg.Realtime.Broker {
	case "", "memory":
		return NewMemoryBroker(), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("redis broker requested but redis is not connected")
		}
		return NewRedisBroker(redisClient, cfg.Realtime.Channel), nil
	case "kafka":
		return NewKafkaBroker(KafkaConfig{
			Brokers:     cfg.Realtime.KafkaBrokers,
			Topic:       cfg.Realtime.KafkaTopic,
			GroupPrefix: cfg.Realtime.KafkaGroupPrefix,
		})
	case "rabbitmq":
		return NewRabbitMQBroker(cfg.Realtime.RabbitMQURL, cfg.Realtime.RabbitMQExchange)
	default:
		return nil, fmt.Errorf("unknown realtime broker %q", cfg.Realtime.Broker)
	}
}
