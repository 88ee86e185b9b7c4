package models

import (
	"time"

	"gorm.io/datatypes"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// DifficultyLevels is the ladder from easiest to hardest.
var DifficultyLevels = []DifficultyLevel{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d DifficultyLevel) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Rank returns the position of d on the ladder, or -1 for an unknown level.
func (d DifficultyLevel) Rank() int {
	for i, level := range DifficultyLevels {
		if level == d {
			return i
		}
	}
	return -1
}

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

const DefaultQuestionPoints = 1

// Question is authored outside the engine and never mutated by it.
type Question struct {
	ID      uint                        `json:"id" gorm:"primaryKey"`
	QuizID  uint                        `json:"quiz_id" gorm:"not null;index:idx_question_pool"`
	Type    QuestionType                `json:"type" gorm:"not null;size:32" validate:"required,question_type"`
	Prompt  string                      `json:"prompt" gorm:"type:text;not null" validate:"required"`
	Options datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb"`

	// Option index for multiple choice, "true"/"false" for true/false, canonical text otherwise.
	CorrectAnswer string `json:"correct_answer" gorm:"type:text;not null" validate:"required"`

	Difficulty DifficultyLevel `json:"difficulty" gorm:"not null;size:16;index:idx_question_pool" validate:"required,difficulty_level"`
	Subject    string          `json:"subject" gorm:"size:100;index"`
	Points     int             `json:"points" gorm:"default:1" validate:"min=0,max=100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// Weight returns the point value, falling back to the default weight.
func (q *Question) Weight() int {
	if q.Points <= 0 {
		return DefaultQuestionPoints
	}
	return q.Points
}

// PublicQuestion is what a student sees: no correct answer.
type PublicQuestion struct {
	ID         uint            `json:"id"`
	Type       QuestionType    `json:"type"`
	Prompt     string          `json:"prompt"`
	Options    []string        `json:"options,omitempty"`
	Difficulty DifficultyLevel `json:"difficulty"`
	Subject    string          `json:"subject,omitempty"`
	Points     int             `json:"points"`
}

func (q *Question) Public() *PublicQuestion {
	if q == nil {
		return nil
	}
	var options []string
	if len(q.Options) > 0 {
		options = append(options, q.Options...)
	}
	return &PublicQuestion{
		ID:         q.ID,
		Type:       q.Type,
		Prompt:     q.Prompt,
		Options:    options,
		Difficulty: q.Difficulty,
		Subject:    q.Subject,
		Points:     q.Weight(),
	}
}
