package repositories

import (
	"context"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository is read-only for the engine; Create exists for content seeding.
type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error)
	CountByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error)

	// GetRandomByDifficulty draws uniformly from the quiz pool at difficulty, skipping excludeIDs.
	// When nothing matches the difficulty it draws from the rest of the pool instead,
	// and returns ErrExhausted once every pool question is excluded.
	GetRandomByDifficulty(ctx context.Context, tx *gorm.DB, quizID uint, difficulty models.DifficultyLevel, excludeIDs []uint) (*models.Question, error)

	// GetRandomSet returns up to count distinct pool questions in random order.
	GetRandomSet(ctx context.Context, tx *gorm.DB, quizID uint, count int) ([]*models.Question, error)
}

type QuizRepository interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	ListByClass(ctx context.Context, tx *gorm.DB, classID uint) ([]*models.Quiz, error)
}
