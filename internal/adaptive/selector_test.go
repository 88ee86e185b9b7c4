package adaptive

import (
	"testing"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNextDifficulty(t *testing.T) {
	tests := []struct {
		name       string
		wasCorrect bool
		current    models.DifficultyLevel
		expected   models.DifficultyLevel
	}{
		{"correct on easy steps up", true, models.DifficultyEasy, models.DifficultyMedium},
		{"correct on medium steps up", true, models.DifficultyMedium, models.DifficultyHard},
		{"correct on hard saturates", true, models.DifficultyHard, models.DifficultyHard},
		{"wrong on hard steps down", false, models.DifficultyHard, models.DifficultyMedium},
		{"wrong on medium steps down", false, models.DifficultyMedium, models.DifficultyEasy},
		{"wrong on easy saturates", false, models.DifficultyEasy, models.DifficultyEasy},
		{"unknown level unchanged", true, models.DifficultyLevel("expert"), models.DifficultyLevel("expert")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextDifficulty(tt.wasCorrect, tt.current))
		})
	}
}

func TestNextDifficulty_Monotonic(t *testing.T) {
	for _, level := range models.DifficultyLevels {
		assert.GreaterOrEqual(t, NextDifficulty(true, level).Rank(), level.Rank(), "correct answer made %s easier", level)
		assert.LessOrEqual(t, NextDifficulty(false, level).Rank(), level.Rank(), "wrong answer made %s harder", level)
	}
}

func TestNextDifficulty_TableIsExhaustive(t *testing.T) {
	for _, level := range models.DifficultyLevels {
		for _, correct := range []bool{true, false} {
			_, ok := transitions[transition{current: level, wasCorrect: correct}]
			assert.True(t, ok, "missing transition for %s/%v", level, correct)
		}
	}
}

func TestNextDifficulty_LastAnswerOnly(t *testing.T) {
	level := models.DifficultyEasy
	for _, correct := range []bool{true, true, true, false} {
		level = NextDifficulty(correct, level)
	}
	// three correct saturate at hard, one miss drops exactly one level
	assert.Equal(t, models.DifficultyMedium, level)
}
