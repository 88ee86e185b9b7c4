package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type Store struct {
	db        *gorm.DB
	quizzes   repositories.QuizRepository
	questions repositories.QuestionRepository
	attempts  repositories.AttemptRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		quizzes:   NewQuizPostgreSQL(db),
		questions: NewQuestionPostgreSQL(db),
		attempts:  NewAttemptPostgreSQL(db),
	}
}

// AutoMigrate creates or updates the engine tables, including the partial unique
// index that allows one live attempt per student and quiz.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&models.Quiz{},
		&models.Question{},
		&models.Attempt{},
		&models.Answer{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) Quizzes() repositories.QuizRepository       { return s.quizzes }
func (s *Store) Questions() repositories.QuestionRepository { return s.questions }
func (s *Store) Attempts() repositories.AttemptRepository   { return s.attempts }

func (s *Store) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func getDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
