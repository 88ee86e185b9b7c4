package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrExhausted means every question of the pool has already been asked.
	ErrExhausted = errors.New("question pool exhausted")

	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Repository groups the stores used by the attempt engine.
// The tx argument taken by every store method is the handle passed to the WithTransaction
// callback, or nil outside a transaction. Stores that do not use gorm ignore it.
type Repository interface {
	Quizzes() QuizRepository
	Questions() QuestionRepository
	Attempts() AttemptRepository

	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	Ping(ctx context.Context) error
}

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	QuizID    *uint      `json:"quiz_id"`
	ClassID   *uint      `json:"class_id"`
	StudentID *string    `json:"student_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// IsNotFoundError reports whether err means a lookup found nothing, for either store.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}
