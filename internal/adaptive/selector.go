// Package adaptive picks the difficulty of the next question from the last answer.
//
// The ladder reacts to the most recent answer only: one step harder after a
// correct answer, one step easier after a wrong one, saturating at both ends.
package adaptive

import "github.com/SAP-F-2025/quiz-engine/internal/models"

type transition struct {
	current    models.DifficultyLevel
	wasCorrect bool
}

var transitions = map[transition]models.DifficultyLevel{
	{models.DifficultyEasy, true}:    models.DifficultyMedium,
	{models.DifficultyMedium, true}:  models.DifficultyHard,
	{models.DifficultyHard, true}:    models.DifficultyHard,
	{models.DifficultyEasy, false}:   models.DifficultyEasy,
	{models.DifficultyMedium, false}: models.DifficultyEasy,
	{models.DifficultyHard, false}:   models.DifficultyMedium,
}

// NextDifficulty returns the level for the next question. Unknown levels are returned unchanged.
func NextDifficulty(wasCorrect bool, current models.DifficultyLevel) models.DifficultyLevel {
	if next, ok := transitions[transition{current: current, wasCorrect: wasCorrect}]; ok {
		return next
	}
	return current
}
