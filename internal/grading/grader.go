package grading

import (
	"strconv"
	"strings"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// IsCorrect compares a submitted value with the question's stored answer.
// The client never asserts correctness; this is the only source of truth.
func IsCorrect(question *models.Question, submitted string) bool {
	if question == nil {
		return false
	}

	switch question.Type {
	case models.MultipleChoice:
		return gradeMultipleChoice(question, submitted)
	case models.TrueFalse:
		want, ok := parseBool(question.CorrectAnswer)
		if !ok {
			return false
		}
		got, ok := parseBool(submitted)
		return ok && got == want
	default:
		return normalize(submitted) != "" && normalize(submitted) == normalize(question.CorrectAnswer)
	}
}

// gradeMultipleChoice accepts either the option index or the option text.
func gradeMultipleChoice(question *models.Question, submitted string) bool {
	correctIndex, err := strconv.Atoi(strings.TrimSpace(question.CorrectAnswer))
	if err != nil || correctIndex < 0 || correctIndex >= len(question.Options) {
		// Authored with the option text instead of an index.
		return normalize(submitted) != "" && normalize(submitted) == normalize(question.CorrectAnswer)
	}

	value := strings.TrimSpace(submitted)
	if index, err := strconv.Atoi(value); err == nil {
		return index == correctIndex
	}
	return normalize(value) == normalize(question.Options[correctIndex])
}

func parseBool(value string) (bool, bool) {
	switch normalize(value) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

func normalize(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}
