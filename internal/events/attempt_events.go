package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the attempt lifecycle events published by the engine
type EventType string

const (
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptCompleted EventType = "attempt.completed"
)

const (
	eventSource  = "quiz-engine"
	eventVersion = "1.0"
)

// Event is the envelope shared by every published event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type AttemptStartedEvent struct {
	AttemptID        uint       `json:"attempt_id"`
	QuizID           uint       `json:"quiz_id"`
	ClassID          uint       `json:"class_id"`
	StudentID        string     `json:"student_id"`
	StartedAt        time.Time  `json:"started_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	StartDifficulty  string     `json:"start_difficulty"`
	QuestionsPlanned int        `json:"questions_planned"`
}

// AttemptCompletedEvent feeds recommendation and analytics consumers.
type AttemptCompletedEvent struct {
	AttemptID    uint      `json:"attempt_id"`
	QuizID       uint      `json:"quiz_id"`
	ClassID      uint      `json:"class_id"`
	StudentID    string    `json:"student_id"`
	CorrectCount int       `json:"correct_count"`
	TotalCount   int       `json:"total_count"`
	Percentage   float64   `json:"percentage"`
	Passed       bool      `json:"passed"`
	EndReason    string    `json:"end_reason"`
	CompletedAt  time.Time `json:"completed_at"`
}

func newEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewAttemptStartedEvent(data AttemptStartedEvent) *Event {
	return newEvent(EventAttemptStarted, data)
}

func NewAttemptCompletedEvent(data AttemptCompletedEvent) *Event {
	event := newEvent(EventAttemptCompleted, data)
	event.Metadata = map[string]interface{}{"end_reason": data.EndReason}
	return event
}
