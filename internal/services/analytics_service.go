package services

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/analytics"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
)

const DefaultAtRiskThreshold = 50.0

type analyticsService struct {
	repo            repositories.Repository
	logger          *slog.Logger
	atRiskThreshold float64
	now             func() time.Time
}

func NewAnalyticsService(repo repositories.Repository, logger *slog.Logger, atRiskThreshold float64) AnalyticsService {
	if atRiskThreshold <= 0 || !validThreshold(atRiskThreshold) {
		atRiskThreshold = DefaultAtRiskThreshold
	}
	return &analyticsService{
		repo:            repo,
		logger:          logger,
		atRiskThreshold: atRiskThreshold,
		now:             time.Now,
	}
}

func (s *analyticsService) QuizMetrics(ctx context.Context, quizID uint) (*analytics.QuizMetrics, error) {
	quiz, err := s.repo.Quizzes().GetByID(ctx, nil, quizID)
	if err != nil {
		return nil, storeOrNotFound(err, ErrQuizNotFound, "get quiz", 0, quizID)
	}

	attempts, err := s.repo.Attempts().ListByQuiz(ctx, nil, quizID)
	if err != nil {
		return nil, newStoreError("list quiz attempts", 0, quizID, err)
	}

	metrics := analytics.ComputeQuizMetrics(quizID, attempts, quiz.PassThreshold(), s.now().UTC())
	s.logger.Debug("Computed quiz metrics", "quiz_id", quizID, "attempts", metrics.TotalAttempts)
	return &metrics, nil
}

// ClassMetrics returns zeroed metrics for a class with no attempts; classes are owned upstream.
func (s *analyticsService) ClassMetrics(ctx context.Context, classID uint) (*analytics.ClassMetrics, error) {
	attempts, err := s.repo.Attempts().ListByClass(ctx, nil, classID)
	if err != nil {
		return nil, newStoreError("list class attempts", 0, 0, err)
	}

	metrics := analytics.ComputeClassMetrics(classID, attempts, s.now().UTC())
	return &metrics, nil
}

func (s *analyticsService) AtRiskStudents(ctx context.Context, classID uint, threshold *float64) ([]analytics.AtRiskStudent, error) {
	limit := s.atRiskThreshold
	if threshold != nil {
		if !validThreshold(*threshold) {
			return nil, ValidationErrors{*NewValidationError("threshold", "threshold must be between 0 and 100", *threshold)}
		}
		limit = *threshold
	}

	attempts, err := s.repo.Attempts().ListByClass(ctx, nil, classID)
	if err != nil {
		return nil, newStoreError("list class attempts", 0, 0, err)
	}
	return analytics.FindAtRiskStudents(attempts, limit), nil
}

// validThreshold rejects NaN and infinities along with values outside 0..100.
func validThreshold(threshold float64) bool {
	return !math.IsNaN(threshold) && threshold >= 0 && threshold <= 100
}

func (s *analyticsService) StudentProgress(ctx context.Context, classID uint, studentID string) (*analytics.Progress, error) {
	if studentID == "" {
		return nil, ValidationErrors{*NewValidationError("student_id", "student id is required", studentID)}
	}

	attempts, err := s.repo.Attempts().List(ctx, nil, repositories.AttemptFilters{
		ClassID:   &classID,
		StudentID: &studentID,
	})
	if err != nil {
		return nil, newStoreError("list student attempts", 0, 0, err)
	}

	progress := analytics.ComputeProgress(classID, studentID, attempts)
	return &progress, nil
}
