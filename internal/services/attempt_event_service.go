package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// AttemptEventService publishes attempt lifecycle events for downstream consumers
// such as recommendation and reporting. It is registered as a start and completion hook.
type AttemptEventService struct {
	eventPublisher events.EventPublisher
	logger         *slog.Logger
}

func NewAttemptEventService(eventPublisher events.EventPublisher, logger *slog.Logger) *AttemptEventService {
	return &AttemptEventService{
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

func (s *AttemptEventService) OnAttemptStarted(ctx context.Context, attempt *models.Attempt) error {
	s.logger.Debug("Publishing attempt started event", "attempt_id", attempt.ID)

	event := events.NewAttemptStartedEvent(events.AttemptStartedEvent{
		AttemptID:        attempt.ID,
		QuizID:           attempt.QuizID,
		ClassID:          attempt.ClassID,
		StudentID:        attempt.StudentID,
		StartedAt:        attempt.StartedAt,
		ExpiresAt:        attempt.ExpiresAt,
		StartDifficulty:  string(attempt.CurrentDifficulty),
		QuestionsPlanned: attempt.TotalQuestions,
	})
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish attempt started event: %w", err)
	}
	return nil
}

func (s *AttemptEventService) OnAttemptCompleted(ctx context.Context, attempt *models.Attempt, result *AttemptResult) error {
	s.logger.Debug("Publishing attempt completed event", "attempt_id", attempt.ID, "end_reason", result.EndReason)

	event := events.NewAttemptCompletedEvent(events.AttemptCompletedEvent{
		AttemptID:    attempt.ID,
		QuizID:       attempt.QuizID,
		ClassID:      attempt.ClassID,
		StudentID:    attempt.StudentID,
		CorrectCount: result.CorrectCount,
		TotalCount:   result.TotalCount,
		Percentage:   result.Percentage,
		Passed:       result.Passed,
		EndReason:    result.EndReason,
		CompletedAt:  result.CompletedAt,
	})
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish attempt completed event: %w", err)
	}
	return nil
}
