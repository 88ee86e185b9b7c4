package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

// ReceivedEvent is an envelope as read back from the topic, payload left undecoded.
type ReceivedEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the payload into dest.
func (e *ReceivedEvent) Decode(dest interface{}) error {
	return json.Unmarshal(e.Data, dest)
}

type EventHandler func(ctx context.Context, event *ReceivedEvent) error

// Consumer dispatches attempt events from a watermill subscriber by event type.
// Messages with no registered handler are acked and dropped.
type Consumer struct {
	subscriber message.Subscriber
	topic      string
	logger     *slog.Logger
	handlers   map[EventType]EventHandler
}

func NewConsumer(subscriber message.Subscriber, topic string, logger *slog.Logger) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		topic:      topic,
		logger:     logger,
		handlers:   make(map[EventType]EventHandler),
	}
}

// Handle must be called before Run.
func (c *Consumer) Handle(eventType EventType, handler EventHandler) {
	c.handlers[eventType] = handler
}

// Run blocks until ctx is cancelled or the subscription closes.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscribe(ctx)
	if err != nil {
		return err
	}
	return c.consume(ctx, messages)
}

// Start subscribes before returning, so events published afterwards are not missed
// by publishers that keep no backlog. The loop runs in the background and its
// result is sent on the returned channel.
func (c *Consumer) Start(ctx context.Context) (<-chan error, error) {
	messages, err := c.subscribe(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- c.consume(ctx, messages) }()
	return done, nil
}

func (c *Consumer) subscribe(ctx context.Context) (<-chan *message.Message, error) {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", c.topic, err)
	}
	return messages, nil
}

func (c *Consumer) consume(ctx context.Context, messages <-chan *message.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.dispatch(msg)
		}
	}
}

func (c *Consumer) dispatch(msg *message.Message) {
	var event ReceivedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Acked so it is not redelivered.
		c.logger.Error("Dropping undecodable event", "message_id", msg.UUID, "error", err)
		msg.Ack()
		return
	}

	handler, ok := c.handlers[event.Type]
	if !ok {
		msg.Ack()
		return
	}

	if err := handler(msg.Context(), &event); err != nil {
		c.logger.Error("Event handler failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		msg.Nack()
		return
	}
	msg.Ack()
}
