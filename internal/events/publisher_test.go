package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatermillEventPublisher_GoChannelRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	publisher, pubSub := NewGoChannelEventPublisher(PublisherConfig{TopicName: "attempt-events", Logger: testLogger()})
	defer publisher.Close()

	messages, err := pubSub.Subscribe(ctx, "attempt-events")
	require.NoError(t, err)

	event := NewAttemptCompletedEvent(AttemptCompletedEvent{
		AttemptID:    4,
		QuizID:       2,
		StudentID:    "student-1",
		CorrectCount: 2,
		TotalCount:   3,
		Percentage:   66.67,
		Passed:       true,
		EndReason:    "question_limit",
		CompletedAt:  time.Now().UTC(),
	})
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventAttemptCompleted), msg.Metadata.Get("event_type"))
		assert.Equal(t, "quiz-engine", msg.Metadata.Get("source"))

		var decoded struct {
			Type EventType             `json:"type"`
			Data AttemptCompletedEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, EventAttemptCompleted, decoded.Type)
		assert.Equal(t, uint(4), decoded.Data.AttemptID)
		assert.Equal(t, 66.67, decoded.Data.Percentage)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	publisher := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	require.NoError(t, publisher.Publish(ctx, NewAttemptStartedEvent(AttemptStartedEvent{AttemptID: 1})))
	require.NoError(t, publisher.Publish(ctx, NewAttemptCompletedEvent(AttemptCompletedEvent{AttemptID: 1, EndReason: "completed"})))

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, EventAttemptStarted, published[0].Type)
	assert.Equal(t, EventAttemptCompleted, published[1].Type)
	assert.Equal(t, "completed", published[1].Metadata["end_reason"])
	assert.NotEmpty(t, published[0].ID)

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestGoChannelEventPublisher_RetainsNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	publisher, pubSub := NewGoChannelEventPublisher(PublisherConfig{TopicName: "attempt-events", Logger: testLogger()})
	defer publisher.Close()

	// No subscriber yet, so the message has nowhere to go.
	require.NoError(t, publisher.Publish(ctx, NewAttemptStartedEvent(AttemptStartedEvent{AttemptID: 1})))

	messages, err := pubSub.Subscribe(ctx, "attempt-events")
	require.NoError(t, err)

	select {
	case msg := <-messages:
		t.Fatalf("unexpected replay of message %s", msg.UUID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDiscardEventPublisher(t *testing.T) {
	publisher := NewDiscardEventPublisher(testLogger())

	for i := 0; i < 3; i++ {
		assert.NoError(t, publisher.Publish(context.Background(), NewAttemptStartedEvent(AttemptStartedEvent{AttemptID: uint(i)})))
	}
	assert.NoError(t, publisher.Close())
}
