package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumer_DispatchesByType(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	publisher, _ := NewGoChannelEventPublisher(PublisherConfig{TopicName: "attempts", Logger: testLogger()})
	defer publisher.Close()

	subscriber, ok := publisher.Subscriber()
	require.True(t, ok)
	assert.Equal(t, "attempts", publisher.Topic())

	received := make(chan AttemptCompletedEvent, 1)
	consumer := NewConsumer(subscriber, publisher.Topic(), testLogger())
	consumer.Handle(EventAttemptCompleted, func(ctx context.Context, event *ReceivedEvent) error {
		var data AttemptCompletedEvent
		if err := event.Decode(&data); err != nil {
			return err
		}
		received <- data
		return nil
	})

	done, err := consumer.Start(ctx)
	require.NoError(t, err)

	// Started events have no handler and are skipped.
	require.NoError(t, publisher.Publish(ctx, NewAttemptStartedEvent(AttemptStartedEvent{AttemptID: 1})))
	require.NoError(t, publisher.Publish(ctx, NewAttemptCompletedEvent(AttemptCompletedEvent{AttemptID: 1, Percentage: 50, EndReason: "completed"})))

	select {
	case data := <-received:
		assert.Equal(t, uint(1), data.AttemptID)
		assert.Equal(t, 50.0, data.Percentage)
	case <-ctx.Done():
		t.Fatal("completed event was not handled")
	}

	cancel()
	assert.NoError(t, <-done)
}
