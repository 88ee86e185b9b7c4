package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"gorm.io/gorm"
)

// SeedFile is the content document loaded at startup when SEED_FILE is set.
type SeedFile struct {
	Quizzes []SeedQuiz `json:"quizzes"`
}

type SeedQuiz struct {
	models.Quiz
	Questions []*models.Question `json:"questions"`
}

type SeedSummary struct {
	Quizzes   int `json:"quizzes"`
	Questions int `json:"questions"`
	Skipped   int `json:"skipped"`
}

// SeedService writes authored quiz content. The engine itself never writes questions.
type SeedService struct {
	repo      repositories.Repository
	validator *validator.Validator
	logger    *slog.Logger
}

func NewSeedService(repo repositories.Repository, validator *validator.Validator, logger *slog.Logger) *SeedService {
	return &SeedService{repo: repo, validator: validator, logger: logger}
}

func (s *SeedService) LoadFile(ctx context.Context, path string) (*SeedSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return s.Load(ctx, f)
}

// Load validates the whole document before writing anything. Quizzes with an id that
// already exists are skipped so restarts do not duplicate content.
func (s *SeedService) Load(ctx context.Context, r io.Reader) (*SeedSummary, error) {
	var file SeedFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	for i := range file.Quizzes {
		if err := s.validateQuiz(&file.Quizzes[i]); err != nil {
			return nil, fmt.Errorf("quiz %d (%q): %w", i+1, file.Quizzes[i].Title, err)
		}
	}

	summary := &SeedSummary{}
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		for i := range file.Quizzes {
			seed := &file.Quizzes[i]
			if seed.ID != 0 {
				if _, err := s.repo.Quizzes().GetByID(ctx, tx, seed.ID); err == nil {
					summary.Skipped++
					continue
				} else if !repositories.IsNotFoundError(err) {
					return err
				}
			}

			quiz := seed.Quiz
			if err := s.repo.Quizzes().Create(ctx, tx, &quiz); err != nil {
				return fmt.Errorf("create quiz %q: %w", quiz.Title, err)
			}
			for _, question := range seed.Questions {
				question.QuizID = quiz.ID
				if err := s.repo.Questions().Create(ctx, tx, question); err != nil {
					return fmt.Errorf("create question for quiz %d: %w", quiz.ID, err)
				}
				summary.Questions++
			}
			summary.Quizzes++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Seeded quiz content",
		"quizzes", summary.Quizzes,
		"questions", summary.Questions,
		"skipped", summary.Skipped)
	return summary, nil
}

func (s *SeedService) validateQuiz(seed *SeedQuiz) error {
	if err := s.validator.Validate(&seed.Quiz); err != nil {
		return err
	}
	if len(seed.Questions) == 0 {
		return ErrQuizHasNoQuestions
	}
	for i, question := range seed.Questions {
		if err := s.validator.Validate(question); err != nil {
			var fieldErrs ValidationErrors
			if errors.As(err, &fieldErrs) {
				return fieldErrs.Prefixed(fmt.Sprintf("questions[%d]", i))
			}
			return err
		}
	}
	return s.validator.Question().ValidateBatch(seed.Questions)
}
