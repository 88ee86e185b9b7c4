package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

const (
	minChoiceOptions = 2
	maxChoiceOptions = 10
)

// QuestionValidator checks that a question's answer key fits its type
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateContent validates options and correct answer based on question type
func (v *QuestionValidator) ValidateContent(question *models.Question) error {
	switch question.Type {
	case models.MultipleChoice:
		return v.validateMultipleChoice(question)
	case models.TrueFalse:
		return v.validateTrueFalse(question)
	case models.ShortAnswer:
		if strings.TrimSpace(question.CorrectAnswer) == "" {
			return fmt.Errorf("short answer needs a non-empty correct answer")
		}
		return nil
	default:
		return fmt.Errorf("unsupported question type: %s", question.Type)
	}
}

// ValidateBatch validates multiple questions
func (v *QuestionValidator) ValidateBatch(questions []*models.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("question batch cannot be empty")
	}

	for i, question := range questions {
		if err := v.ValidateContent(question); err != nil {
			return fmt.Errorf("validation failed for question %d: %w", i+1, err)
		}
	}
	return nil
}

func (v *QuestionValidator) validateMultipleChoice(question *models.Question) error {
	if len(question.Options) < minChoiceOptions {
		return fmt.Errorf("must have at least %d options", minChoiceOptions)
	}
	if len(question.Options) > maxChoiceOptions {
		return fmt.Errorf("cannot have more than %d options", maxChoiceOptions)
	}

	seen := make(map[string]bool, len(question.Options))
	for _, option := range question.Options {
		key := strings.ToLower(strings.TrimSpace(option))
		if key == "" {
			return fmt.Errorf("option text cannot be empty")
		}
		if seen[key] {
			return fmt.Errorf("duplicate option: %s", option)
		}
		seen[key] = true
	}

	answer := strings.TrimSpace(question.CorrectAnswer)
	if index, err := strconv.Atoi(answer); err == nil {
		if index < 0 || index >= len(question.Options) {
			return fmt.Errorf("correct answer index %d out of range", index)
		}
		return nil
	}
	if !seen[strings.ToLower(answer)] {
		return fmt.Errorf("correct answer must be an option index or match an option")
	}
	return nil
}

func (v *QuestionValidator) validateTrueFalse(question *models.Question) error {
	if len(question.Options) > 0 {
		return fmt.Errorf("true/false questions take no options")
	}
	switch strings.ToLower(strings.TrimSpace(question.CorrectAnswer)) {
	case "true", "false":
		return nil
	}
	return fmt.Errorf("true/false correct answer must be true or false")
}
