package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type quizStore struct {
	s *Store
}

func (q *quizStore) Create(ctx context.Context, _ *gorm.DB, quiz *models.Quiz) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()

	data := q.s.data
	if quiz.ID == 0 {
		data.nextQuizID++
		quiz.ID = data.nextQuizID
	} else if _, exists := data.quizzes[quiz.ID]; exists {
		return repositories.ErrDuplicate
	} else if quiz.ID > data.nextQuizID {
		data.nextQuizID = quiz.ID
	}

	now := time.Now().UTC()
	quiz.CreatedAt, quiz.UpdatedAt = now, now
	data.quizzes[quiz.ID] = *quiz
	return nil
}

func (q *quizStore) GetByID(ctx context.Context, _ *gorm.DB, id uint) (*models.Quiz, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()

	quiz, ok := q.s.data.quizzes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &quiz, nil
}

func (q *quizStore) ListByClass(ctx context.Context, _ *gorm.DB, classID uint) ([]*models.Quiz, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()

	var quizzes []*models.Quiz
	for _, quiz := range q.s.data.quizzes {
		if quiz.ClassID == classID {
			quizzes = append(quizzes, &quiz)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}
