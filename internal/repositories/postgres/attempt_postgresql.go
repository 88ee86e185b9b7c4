package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

// CreateIfAbsent relies on the partial unique index on (student_id, quiz_id).
func (a *AttemptPostgreSQL) CreateIfAbsent(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) (bool, error) {
	result := getDB(a.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(attempt)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := getDB(a.db, tx).WithContext(ctx).
		Preload("Answers", orderAnswers).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	db := getDB(a.db, tx).WithContext(ctx)

	var attempt models.Attempt
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	if err := orderAnswers(db.Where("attempt_id = ?", id)).Find(&attempt.Answers).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByStudentAndQuiz(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := getDB(a.db, tx).WithContext(ctx).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Preload("Answers", orderAnswers).
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Update saves the attempt row only. Answers are written through AppendAnswer.
func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	return getDB(a.db, tx).WithContext(ctx).Omit(clause.Associations).Save(attempt).Error
}

func (a *AttemptPostgreSQL) AppendAnswer(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	err := getDB(a.db, tx).WithContext(ctx).Create(answer).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repositories.ErrDuplicate
	}
	return err
}

func (a *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]models.Attempt, error) {
	query := getDB(a.db, tx).WithContext(ctx).Model(&models.Attempt{})
	query = a.applyFilters(query, filters)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var attempts []models.Attempt
	if err := query.Order("id ASC").Preload("Answers", orderAnswers).Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]models.Attempt, error) {
	return a.List(ctx, tx, repositories.AttemptFilters{QuizID: &quizID})
}

func (a *AttemptPostgreSQL) ListByClass(ctx context.Context, tx *gorm.DB, classID uint) ([]models.Attempt, error) {
	return a.List(ctx, tx, repositories.AttemptFilters{ClassID: &classID})
}

func (a *AttemptPostgreSQL) ListExpired(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]models.Attempt, error) {
	query := getDB(a.db, tx).WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.AttemptInProgress, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var attempts []models.Attempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.ClassID != nil {
		query = query.Where("class_id = ?", *filters.ClassID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}

func orderAnswers(db *gorm.DB) *gorm.DB {
	return db.Order("answered_at ASC, id ASC")
}
