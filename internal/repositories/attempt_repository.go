package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"gorm.io/gorm"
)

// AttemptRepository stores attempts and their append-only answers.
type AttemptRepository interface {
	// CreateIfAbsent inserts attempt unless the student already has one for the quiz.
	// It reports false, without error, when an attempt already exists.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) (bool, error)

	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) // Include answers
	// GetForUpdate loads the attempt with its answers and holds a row lock until tx ends.
	GetForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	GetByStudentAndQuiz(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) (*models.Attempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error

	// AppendAnswer returns ErrDuplicate when the question was already answered in the attempt.
	AppendAnswer(ctx context.Context, tx *gorm.DB, answer *models.Answer) error

	// Query operations, answers included
	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]models.Attempt, error)
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]models.Attempt, error)
	ListByClass(ctx context.Context, tx *gorm.DB, classID uint) ([]models.Attempt, error)

	// ListExpired returns in-progress attempts whose deadline is at or before now.
	ListExpired(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]models.Attempt, error)
}
