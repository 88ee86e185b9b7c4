package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/analytics"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) (*SubmitAnswerResponse, error)
	// Complete is idempotent: a completed attempt returns its stored result.
	Complete(ctx context.Context, attemptID uint, studentID string) (*AttemptResult, error)
	GetByID(ctx context.Context, attemptID uint, studentID string) (*AttemptResponse, error)

	// ExpireStale finalizes every in-progress attempt past its deadline and reports how many it closed.
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// GuestQuizService runs the non-adaptive flow. Nothing is persisted beyond the session store.
type GuestQuizService interface {
	Start(ctx context.Context, quizID uint) (*GuestSessionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID string, req *SubmitAnswerRequest) (*SubmitAnswerResponse, error)
	Complete(ctx context.Context, sessionID string) (*AttemptResult, error)
	Abandon(ctx context.Context, sessionID string) error
}

type AnalyticsService interface {
	QuizMetrics(ctx context.Context, quizID uint) (*analytics.QuizMetrics, error)
	ClassMetrics(ctx context.Context, classID uint) (*analytics.ClassMetrics, error)
	// AtRiskStudents uses the configured threshold when threshold is nil.
	AtRiskStudents(ctx context.Context, classID uint, threshold *float64) ([]analytics.AtRiskStudent, error)
	StudentProgress(ctx context.Context, classID uint, studentID string) (*analytics.Progress, error)
}

// CompletionHook is notified once per attempt, after the completion is committed.
type CompletionHook interface {
	OnAttemptCompleted(ctx context.Context, attempt *models.Attempt, result *AttemptResult) error
}

type StartHook interface {
	OnAttemptStarted(ctx context.Context, attempt *models.Attempt) error
}

// ===== REQUEST TYPES =====

type StartAttemptRequest struct {
	QuizID uint `json:"quiz_id" validate:"required"`
}

type SubmitAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Value      string `json:"value" validate:"max=2000"`
}

// ===== RESPONSE TYPES =====

type AttemptResponse struct {
	models.Attempt
	CurrentQuestion  *models.PublicQuestion `json:"current_question,omitempty"`
	RemainingSeconds *int64                 `json:"remaining_seconds,omitempty"`
	Result           *AttemptResult         `json:"result,omitempty"`
}

type AttemptResult struct {
	AttemptID    uint      `json:"attempt_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	QuizID       uint      `json:"quiz_id"`
	CorrectCount int       `json:"correct_count"`
	TotalCount   int       `json:"total_count"`
	Percentage   float64   `json:"percentage"`
	EarnedPoints int       `json:"earned_points"`
	MaxPoints    int       `json:"max_points"`
	Passed       bool      `json:"passed"`
	EndReason    string    `json:"end_reason"`
	CompletedAt  time.Time `json:"completed_at"`
}

type SubmitAnswerResponse struct {
	Correct      bool                   `json:"correct"`
	NextQuestion *models.PublicQuestion `json:"next_question,omitempty"`
	Completed    bool                   `json:"completed"`
	Result       *AttemptResult         `json:"result,omitempty"`
}

type GuestSessionResponse struct {
	SessionID       string                 `json:"session_id"`
	QuizID          uint                   `json:"quiz_id"`
	TotalQuestions  int                    `json:"total_questions"`
	CurrentQuestion *models.PublicQuestion `json:"current_question"`
	ExpiresAt       time.Time              `json:"expires_at"`
}
