package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	return getDB(q.db, tx).WithContext(ctx).Create(question).Error
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	if err := getDB(q.db, tx).WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	var questions []*models.Question
	if err := getDB(q.db, tx).WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) CountByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error) {
	var count int64
	err := getDB(q.db, tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	return count, err
}

func (q *QuestionPostgreSQL) GetRandomByDifficulty(ctx context.Context, tx *gorm.DB, quizID uint, difficulty models.DifficultyLevel, excludeIDs []uint) (*models.Question, error) {
	question, err := q.drawOne(ctx, tx, quizID, &difficulty, excludeIDs)
	if err == nil {
		return question, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Nothing left at this level, fall back to the remaining pool
	question, err = q.drawOne(ctx, tx, quizID, nil, excludeIDs)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrExhausted
	}
	return question, err
}

func (q *QuestionPostgreSQL) GetRandomSet(ctx context.Context, tx *gorm.DB, quizID uint, count int) ([]*models.Question, error) {
	var questions []*models.Question
	query := getDB(q.db, tx).WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("RANDOM()")
	if count > 0 {
		query = query.Limit(count)
	}
	if err := query.Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) drawOne(ctx context.Context, tx *gorm.DB, quizID uint, difficulty *models.DifficultyLevel, excludeIDs []uint) (*models.Question, error) {
	query := getDB(q.db, tx).WithContext(ctx).Where("quiz_id = ?", quizID)
	if difficulty != nil {
		query = query.Where("difficulty = ?", *difficulty)
	}
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	var question models.Question
	if err := query.Order("RANDOM()").Take(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}
