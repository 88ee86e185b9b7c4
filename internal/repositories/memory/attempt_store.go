package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type attemptStore struct {
	s *Store
}

func (a *attemptStore) CreateIfAbsent(ctx context.Context, _ *gorm.DB, attempt *models.Attempt) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	data := a.s.data
	key := attemptKey{studentID: attempt.StudentID, quizID: attempt.QuizID}
	if _, exists := data.byStudent[key]; exists {
		return false, nil
	}

	data.nextAttemptID++
	attempt.ID = data.nextAttemptID
	now := time.Now().UTC()
	attempt.CreatedAt, attempt.UpdatedAt = now, now

	stored := *attempt
	stored.Answers = nil
	data.attempts[attempt.ID] = stored
	data.byStudent[key] = attempt.ID
	return true, nil
}

func (a *attemptStore) GetByID(ctx context.Context, _ *gorm.DB, id uint) (*models.Attempt, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	return a.load(id)
}

// GetForUpdate needs no row lock here: transactions are already serialized by the store.
func (a *attemptStore) GetForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	return a.GetByID(ctx, tx, id)
}

func (a *attemptStore) GetByStudentAndQuiz(ctx context.Context, _ *gorm.DB, studentID string, quizID uint) (*models.Attempt, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	id, ok := a.s.data.byStudent[attemptKey{studentID: studentID, quizID: quizID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return a.load(id)
}

func (a *attemptStore) Update(ctx context.Context, _ *gorm.DB, attempt *models.Attempt) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.data.attempts[attempt.ID]; !ok {
		return repositories.ErrNotFound
	}
	attempt.UpdatedAt = time.Now().UTC()
	stored := *attempt
	stored.Answers = nil
	a.s.data.attempts[attempt.ID] = stored
	return nil
}

func (a *attemptStore) AppendAnswer(ctx context.Context, _ *gorm.DB, answer *models.Answer) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	data := a.s.data
	if _, ok := data.attempts[answer.AttemptID]; !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range data.answers[answer.AttemptID] {
		if existing.QuestionID == answer.QuestionID {
			return repositories.ErrDuplicate
		}
	}

	data.nextAnswerID++
	answer.ID = data.nextAnswerID
	data.answers[answer.AttemptID] = append(data.answers[answer.AttemptID], *answer)
	return nil
}

func (a *attemptStore) List(ctx context.Context, _ *gorm.DB, filters repositories.AttemptFilters) ([]models.Attempt, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	var attempts []models.Attempt
	for id, attempt := range a.s.data.attempts {
		if !matches(attempt, filters) {
			continue
		}
		attempt.Answers = append([]models.Answer(nil), a.s.data.answers[id]...)
		attempts = append(attempts, attempt)
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].ID < attempts[j].ID })

	if filters.Offset > 0 {
		if filters.Offset >= len(attempts) {
			return []models.Attempt{}, nil
		}
		attempts = attempts[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(attempts) {
		attempts = attempts[:filters.Limit]
	}
	return attempts, nil
}

func (a *attemptStore) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]models.Attempt, error) {
	return a.List(ctx, tx, repositories.AttemptFilters{QuizID: &quizID})
}

func (a *attemptStore) ListByClass(ctx context.Context, tx *gorm.DB, classID uint) ([]models.Attempt, error) {
	return a.List(ctx, tx, repositories.AttemptFilters{ClassID: &classID})
}

func (a *attemptStore) ListExpired(ctx context.Context, _ *gorm.DB, now time.Time, limit int) ([]models.Attempt, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	var attempts []models.Attempt
	for _, attempt := range a.s.data.attempts {
		if attempt.Status == models.AttemptInProgress && attempt.IsExpired(now) {
			attempts = append(attempts, attempt)
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].ExpiresAt.Before(*attempts[j].ExpiresAt) })
	if limit > 0 && limit < len(attempts) {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

// load must be called with the read lock held.
func (a *attemptStore) load(id uint) (*models.Attempt, error) {
	attempt, ok := a.s.data.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	attempt.Answers = append([]models.Answer(nil), a.s.data.answers[id]...)
	return &attempt, nil
}

func matches(attempt models.Attempt, filters repositories.AttemptFilters) bool {
	if filters.QuizID != nil && attempt.QuizID != *filters.QuizID {
		return false
	}
	if filters.ClassID != nil && attempt.ClassID != *filters.ClassID {
		return false
	}
	if filters.StudentID != nil && attempt.StudentID != *filters.StudentID {
		return false
	}
	if filters.DateFrom != nil && attempt.StartedAt.Before(*filters.DateFrom) {
		return false
	}
	if filters.DateTo != nil && attempt.StartedAt.After(*filters.DateTo) {
		return false
	}
	return true
}
