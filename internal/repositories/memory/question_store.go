package memory

import (
	"context"
	"math/rand/v2"
	"slices"
	"sort"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type questionStore struct {
	s *Store
}

func (q *questionStore) Create(ctx context.Context, _ *gorm.DB, question *models.Question) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()

	data := q.s.data
	if question.ID == 0 {
		data.nextQuestionID++
		question.ID = data.nextQuestionID
	} else if _, exists := data.questions[question.ID]; exists {
		return repositories.ErrDuplicate
	} else if question.ID > data.nextQuestionID {
		data.nextQuestionID = question.ID
	}

	now := time.Now().UTC()
	question.CreatedAt, question.UpdatedAt = now, now
	data.questions[question.ID] = *question
	return nil
}

func (q *questionStore) GetByID(ctx context.Context, _ *gorm.DB, id uint) (*models.Question, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()

	question, ok := q.s.data.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &question, nil
}

func (q *questionStore) ListByQuiz(ctx context.Context, _ *gorm.DB, quizID uint) ([]*models.Question, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()

	return q.pool(quizID, nil, nil), nil
}

func (q *questionStore) CountByQuiz(ctx context.Context, _ *gorm.DB, quizID uint) (int64, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()

	return int64(len(q.pool(quizID, nil, nil))), nil
}

func (q *questionStore) GetRandomByDifficulty(ctx context.Context, _ *gorm.DB, quizID uint, difficulty models.DifficultyLevel, excludeIDs []uint) (*models.Question, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()

	candidates := q.pool(quizID, &difficulty, excludeIDs)
	if len(candidates) == 0 {
		candidates = q.pool(quizID, nil, excludeIDs)
	}
	if len(candidates) == 0 {
		return nil, repositories.ErrExhausted
	}
	return candidates[rand.IntN(len(candidates))], nil
}

func (q *questionStore) GetRandomSet(ctx context.Context, _ *gorm.DB, quizID uint, count int) ([]*models.Question, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()

	questions := q.pool(quizID, nil, nil)
	rand.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	if count > 0 && count < len(questions) {
		questions = questions[:count]
	}
	return questions, nil
}

// pool must be called with the read lock held.
func (q *questionStore) pool(quizID uint, difficulty *models.DifficultyLevel, excludeIDs []uint) []*models.Question {
	var questions []*models.Question
	for _, question := range q.s.data.questions {
		if question.QuizID != quizID {
			continue
		}
		if difficulty != nil && question.Difficulty != *difficulty {
			continue
		}
		if slices.Contains(excludeIDs, question.ID) {
			continue
		}
		questions = append(questions, &question)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions
}
