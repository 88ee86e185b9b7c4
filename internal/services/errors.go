package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Quiz and question errors
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrQuizHasNoQuestions = errors.New("quiz has no questions")
	ErrQuestionNotFound   = errors.New("question not found")

	// Attempt specific errors
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptAccessDenied     = errors.New("access denied to attempt")
	ErrAlreadyAttempted        = errors.New("quiz already attempted")
	ErrAttemptAlreadyCompleted = errors.New("attempt already completed")
	ErrAttemptTimeExpired      = errors.New("attempt time has expired")
	ErrQuestionNotCurrent      = errors.New("question is not the current question of the attempt")
	ErrQuestionAlreadyAnswered = errors.New("question already answered")

	// Guest session errors
	ErrSessionNotFound  = errors.New("guest session not found")
	ErrSessionCompleted = errors.New("guest session already completed")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// AlreadyAttemptedError carries the id of the attempt that blocked a new start.
type AlreadyAttemptedError struct {
	AttemptID uint   `json:"attempt_id"`
	QuizID    uint   `json:"quiz_id"`
	StudentID string `json:"student_id"`
}

func (e *AlreadyAttemptedError) Error() string {
	return fmt.Sprintf("student %s already attempted quiz %d (attempt %d)", e.StudentID, e.QuizID, e.AttemptID)
}

func (e *AlreadyAttemptedError) Unwrap() error {
	return ErrAlreadyAttempted
}

// StoreError wraps a persistence failure with the operation it interrupted.
type StoreError struct {
	Op        string
	AttemptID uint
	QuizID    uint
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s (attempt %d, quiz %d): %v", e.Op, e.AttemptID, e.QuizID, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func (pe *PermissionError) Unwrap() error {
	return ErrAttemptAccessDenied
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func newStoreError(op string, attemptID, quizID uint, err error) error {
	return &StoreError{Op: op, AttemptID: attemptID, QuizID: quizID, Err: err}
}

// storeOrNotFound maps a repository miss to notFound and wraps anything else.
func storeOrNotFound(err, notFound error, op string, attemptID, quizID uint) error {
	if repositories.IsNotFoundError(err) {
		return notFound
	}
	return newStoreError(op, attemptID, quizID, err)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrAttemptAccessDenied)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrQuestionNotCurrent) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyAttempted) ||
		errors.Is(err, ErrAttemptAlreadyCompleted) ||
		errors.Is(err, ErrQuestionAlreadyAnswered) ||
		errors.Is(err, ErrAttemptTimeExpired) ||
		errors.Is(err, ErrSessionCompleted) ||
		errors.Is(err, ErrQuizHasNoQuestions)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
