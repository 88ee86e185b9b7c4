// Package memory is an in-process Repository used by tests and by DB_DRIVER=memory.
package memory

import (
	"context"
	"sync"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type attemptKey struct {
	studentID string
	quizID    uint
}

type state struct {
	quizzes   map[uint]models.Quiz
	questions map[uint]models.Question
	attempts  map[uint]models.Attempt
	answers   map[uint][]models.Answer
	byStudent map[attemptKey]uint

	nextQuizID     uint
	nextQuestionID uint
	nextAttemptID  uint
	nextAnswerID   uint
}

func (s *state) clone() *state {
	c := *s
	c.quizzes = make(map[uint]models.Quiz, len(s.quizzes))
	for k, v := range s.quizzes {
		c.quizzes[k] = v
	}
	c.questions = make(map[uint]models.Question, len(s.questions))
	for k, v := range s.questions {
		c.questions[k] = v
	}
	c.attempts = make(map[uint]models.Attempt, len(s.attempts))
	for k, v := range s.attempts {
		c.attempts[k] = v
	}
	c.answers = make(map[uint][]models.Answer, len(s.answers))
	for k, v := range s.answers {
		c.answers[k] = append([]models.Answer(nil), v...)
	}
	c.byStudent = make(map[attemptKey]uint, len(s.byStudent))
	for k, v := range s.byStudent {
		c.byStudent[k] = v
	}
	return &c
}

// Store keeps every record in maps guarded by one mutex.
// Transactions are serialized and roll back by restoring a snapshot, so writes made
// outside WithTransaction while a transaction runs may be lost on rollback.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *state

	quizzes   *quizStore
	questions *questionStore
	attempts  *attemptStore
}

func NewStore() *Store {
	s := &Store{
		data: &state{
			quizzes:   make(map[uint]models.Quiz),
			questions: make(map[uint]models.Question),
			attempts:  make(map[uint]models.Attempt),
			answers:   make(map[uint][]models.Answer),
			byStudent: make(map[attemptKey]uint),
		},
	}
	s.quizzes = &quizStore{s: s}
	s.questions = &questionStore{s: s}
	s.attempts = &attemptStore{s: s}
	return s
}

func (s *Store) Quizzes() repositories.QuizRepository       { return s.quizzes }
func (s *Store) Questions() repositories.QuestionRepository { return s.questions }
func (s *Store) Attempts() repositories.AttemptRepository   { return s.attempts }

// WithTransaction calls fn with a nil handle; the memory stores ignore it.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			s.data = snapshot
			s.mu.Unlock()
		}
	}()

	if err := fn(nil); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
