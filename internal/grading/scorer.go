// Package grading grades single answers and scores a set of graded answers.
package grading

import (
	"math"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

type ScoreResult struct {
	CorrectCount int     `json:"correct_count"`
	TotalCount   int     `json:"total_count"`
	Percentage   float64 `json:"percentage"`
	EarnedPoints int     `json:"earned_points"`
	MaxPoints    int     `json:"max_points"`
}

// Score is deterministic and side-effect free. An empty set scores 0%.
func Score(answers []models.Answer) ScoreResult {
	var result ScoreResult
	for _, answer := range answers {
		result.TotalCount++
		result.MaxPoints += answer.MaxPoints
		if answer.IsCorrect {
			result.CorrectCount++
			result.EarnedPoints += answer.Points
		}
	}
	result.Percentage = Percentage(result.CorrectCount, result.TotalCount)
	return result
}

// Percentage returns part/total*100 rounded to two decimals, 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
