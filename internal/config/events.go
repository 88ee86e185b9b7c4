package config

import (
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/quiz-engine/internal/events"
)

// EventConfig holds configuration for event publishing
type EventConfig struct {
	Enabled      bool   // EVENTS_ENABLED
	Publisher    string // EVENTS_PUBLISHER: kafka, gochannel or none
	KafkaBrokers string // KAFKA_BROKERS, comma separated
	AttemptTopic string // ATTEMPT_EVENTS_TOPIC
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

// CreateEventPublisher creates an event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled")
		return events.NewDiscardEventPublisher(logger), nil
	}

	publisherConfig := events.PublisherConfig{
		KafkaBrokers: c.GetKafkaBrokers(),
		TopicName:    c.AttemptTopic,
		Logger:       logger,
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.AttemptTopic)
		return events.NewKafkaEventPublisher(publisherConfig)
	case "gochannel":
		logger.Info("Using in-process event publisher", "topic", c.AttemptTopic)
		publisher, _ := events.NewGoChannelEventPublisher(publisherConfig)
		return publisher, nil
	case "none":
		logger.Info("Event publisher set to none, events are dropped")
		return events.NewDiscardEventPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, events are dropped", "publisher", c.Publisher)
		return events.NewDiscardEventPublisher(logger), nil
	}
}
